package game

import (
	"context"
	"time"

	"github.com/wfunc/essay-arena/internal/logger"
	"go.uber.org/zap"
)

// Sweeper 定期结算到期邀约
type Sweeper struct {
	coordinator *AttackCoordinator
	interval    time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewSweeper 创建到期结算任务
func NewSweeper(coordinator *AttackCoordinator, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{
		coordinator: coordinator,
		interval:    interval,
		now:         time.Now,
		logger:      logger.GetModuleLogger(logger.ModuleAttack),
	}
}

// Run 阻塞运行直到 ctx 取消
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("启动攻击结算任务", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("停止攻击结算任务")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce 执行一轮结算，错误只记录日志
func (s *Sweeper) RunOnce(ctx context.Context) int {
	resolved, err := s.coordinator.ResolveExpired(ctx, s.now())
	if err != nil && ctx.Err() == nil {
		s.logger.Error("攻击结算失败", zap.Error(err))
	}
	if resolved > 0 {
		s.logger.Debug("攻击结算完成", zap.Int("resolved", resolved))
	}
	return resolved
}
