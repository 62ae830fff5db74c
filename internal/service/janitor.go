package service

import (
	"context"
	"time"

	"github.com/wfunc/essay-arena/internal/logger"
	"go.uber.org/zap"
)

// Janitor 定期清理过期的在线记录，与连接存活检测相互独立
type Janitor struct {
	presence PresenceService
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewJanitor 创建清理任务
func NewJanitor(presence PresenceService, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		presence: presence,
		interval: interval,
		now:      time.Now,
		logger:   logger.GetModuleLogger(logger.ModulePresence),
	}
}

// Run 阻塞运行直到 ctx 取消
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("启动会话清理任务", zap.Duration("interval", j.interval))
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("停止会话清理任务")
			return nil
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce 执行一轮清理，错误只记录日志
func (j *Janitor) RunOnce(ctx context.Context) int64 {
	removed, err := j.presence.Reap(ctx, j.now())
	if err != nil && ctx.Err() == nil {
		j.logger.Error("清理过期会话失败", zap.Error(err))
	}
	return removed
}
