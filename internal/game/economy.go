package game

import (
	"context"

	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/models"
	"github.com/wfunc/essay-arena/internal/repository"
	"github.com/wfunc/essay-arena/internal/utils"
	"go.uber.org/zap"
)

// Ledger 玩家令牌账本
type Ledger struct {
	repos    *repository.Manager
	settings Settings
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewLedger 创建令牌账本
func NewLedger(repos *repository.Manager, settings Settings, notifier Notifier, m *metrics.Metrics) *Ledger {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Ledger{
		repos:    repos,
		settings: settings,
		notifier: notifier,
		metrics:  m,
		logger:   logger.GetModuleLogger(logger.ModuleEconomy),
	}
}

// Defaults 新玩家的初始余额
func (l *Ledger) Defaults() models.TokenBalances {
	eco := l.settings.Economy()
	return models.TokenBalances{
		Review: eco.DefaultReviewTokens,
		Attack: eco.DefaultAttackTokens,
		Shield: eco.DefaultShieldTokens,
	}
}

// normalizeIdentity 规范化项目与用户，任一为空返回参数错误
func normalizeIdentity(projectCode, userName string) (string, string, error) {
	project := utils.NormalizeProjectCode(projectCode)
	user := utils.NormalizeUserName(userName)
	if project == "" {
		return "", "", errors.New(errors.ErrInvalidParam, "项目编码不能为空")
	}
	if user == "" {
		return "", "", errors.New(errors.ErrInvalidParam, "用户名不能为空")
	}
	return project, user, nil
}

// GetState 获取玩家状态，不存在时按默认值创建
func (l *Ledger) GetState(ctx context.Context, projectCode, userName string) (*models.PlayerState, error) {
	project, user, err := normalizeIdentity(projectCode, userName)
	if err != nil {
		return nil, err
	}
	return l.repos.PlayerState().Ensure(ctx, project, user, l.Defaults())
}

// AdjustTokens 原子地调整令牌，任一余额将为负时整体失败
func (l *Ledger) AdjustTokens(ctx context.Context, projectCode, userName string, delta models.TokenDelta) (*models.PlayerState, error) {
	project, user, err := normalizeIdentity(projectCode, userName)
	if err != nil {
		return nil, err
	}

	repo := l.repos.PlayerState()
	if _, err := repo.Ensure(ctx, project, user, l.Defaults()); err != nil {
		return nil, err
	}
	state, err := repo.Adjust(ctx, project, user, delta)
	if err != nil {
		if errors.IsInsufficientTokens(err) {
			l.metrics.TokenAdjustRejected()
			l.logger.Info("令牌不足",
				zap.String("project", project),
				zap.String("user", user),
				zap.Any("delta", delta))
		}
		return nil, err
	}

	l.notifier.NotifyTokenUpdate(project, user, state.Balances())
	return state, nil
}

// adjustInTx 事务内调整令牌，余额不足时返回 shortage 错误码
func (l *Ledger) adjustInTx(ctx context.Context, tx *repository.Transaction, project, user string, delta models.TokenDelta, shortage errors.ErrorCode) (*models.PlayerState, error) {
	repo := tx.PlayerState()
	if _, err := repo.Ensure(ctx, project, user, l.Defaults()); err != nil {
		return nil, err
	}
	state, err := repo.Adjust(ctx, project, user, delta)
	if err != nil {
		if errors.IsInsufficientTokens(err) {
			l.metrics.TokenAdjustRejected()
			return nil, errors.New(shortage)
		}
		return nil, err
	}
	return state, nil
}

// pushBalances 提交后推送最新余额
func (l *Ledger) pushBalances(ctx context.Context, project, user string) {
	state, err := l.repos.PlayerState().Find(ctx, project, user)
	if err != nil {
		l.logger.Warn("读取余额失败，跳过推送",
			zap.String("project", project),
			zap.String("user", user),
			zap.Error(err))
		return
	}
	l.notifier.NotifyTokenUpdate(project, user, state.Balances())
}

// ListPlayers 分页列出项目内玩家
func (l *Ledger) ListPlayers(ctx context.Context, projectCode string, p *repository.Pagination) ([]*models.PlayerState, error) {
	project := utils.NormalizeProjectCode(projectCode)
	if project == "" {
		return nil, errors.New(errors.ErrInvalidParam, "项目编码不能为空")
	}
	return l.repos.PlayerState().ListByProject(ctx, project, p)
}
