package game

import (
	"context"
	"time"

	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/models"
	"github.com/wfunc/essay-arena/internal/repository"
	"go.uber.org/zap"
)

const admitAttempts = 3

// CooldownProvider 项目冷却时间来源
type CooldownProvider interface {
	CooldownSeconds(ctx context.Context, projectCode string) (int, error)
}

// ProjectCooldowns 从项目表读取冷却时间，缺省时使用配置默认值
type ProjectCooldowns struct {
	projects repository.ProjectRepository
	settings Settings
}

// NewProjectCooldowns 创建冷却时间来源
func NewProjectCooldowns(projects repository.ProjectRepository, settings Settings) *ProjectCooldowns {
	return &ProjectCooldowns{projects: projects, settings: settings}
}

// CooldownSeconds 项目冷却秒数
func (p *ProjectCooldowns) CooldownSeconds(ctx context.Context, projectCode string) (int, error) {
	seconds, found, err := p.projects.CooldownSeconds(ctx, projectCode)
	if err != nil {
		return 0, err
	}
	if !found || seconds < 0 {
		return p.settings.Economy().DefaultCooldownSeconds, nil
	}
	return seconds, nil
}

// ReviewDecision 冷却判定结果
type ReviewDecision struct {
	Allowed     bool  `json:"allowed"`
	RemainingMs int64 `json:"remainingMs"`
}

// EvaluateCooldown 根据上次评审时间判定是否可以再次评审
func EvaluateCooldown(lastReviewAt *time.Time, cooldown time.Duration, now time.Time) ReviewDecision {
	if lastReviewAt == nil {
		return ReviewDecision{Allowed: true}
	}
	remaining := cooldown - now.Sub(*lastReviewAt)
	if remaining <= 0 {
		return ReviewDecision{Allowed: true}
	}
	return ReviewDecision{Allowed: false, RemainingMs: remaining.Milliseconds()}
}

// CooldownGate 评审冷却闸门
type CooldownGate struct {
	repos     *repository.Manager
	ledger    *Ledger
	cooldowns CooldownProvider
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewCooldownGate 创建评审冷却闸门
func NewCooldownGate(repos *repository.Manager, ledger *Ledger, cooldowns CooldownProvider, m *metrics.Metrics) *CooldownGate {
	return &CooldownGate{
		repos:     repos,
		ledger:    ledger,
		cooldowns: cooldowns,
		metrics:   m,
		logger:    logger.GetModuleLogger(logger.ModuleEconomy),
	}
}

func (g *CooldownGate) cooldown(ctx context.Context, project string) (time.Duration, error) {
	seconds, err := g.cooldowns.CooldownSeconds(ctx, project)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

// CanReview 判断玩家当前是否可以提交评审
func (g *CooldownGate) CanReview(ctx context.Context, projectCode, userName string, now time.Time) (ReviewDecision, error) {
	project, user, err := normalizeIdentity(projectCode, userName)
	if err != nil {
		return ReviewDecision{}, err
	}
	cooldown, err := g.cooldown(ctx, project)
	if err != nil {
		return ReviewDecision{}, err
	}

	state, err := g.repos.PlayerState().Find(ctx, project, user)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return ReviewDecision{Allowed: true}, nil
		}
		return ReviewDecision{}, err
	}
	return EvaluateCooldown(state.LastReviewAt, cooldown, now), nil
}

// RecordReview 记录一次评审时间
func (g *CooldownGate) RecordReview(ctx context.Context, projectCode, userName string, now time.Time) error {
	project, user, err := normalizeIdentity(projectCode, userName)
	if err != nil {
		return err
	}
	repo := g.repos.PlayerState()
	if _, err := repo.Ensure(ctx, project, user, g.ledger.Defaults()); err != nil {
		return err
	}
	return repo.SetLastReview(ctx, project, user, now)
}

// AdmitReview 一步完成冷却校验、扣减评审令牌与记录时间
//
// 冷却未结束时返回 ErrReviewCooldown 以及剩余时间，
// 令牌不足时返回 ErrNoReviewTokens。
func (g *CooldownGate) AdmitReview(ctx context.Context, projectCode, userName string, now time.Time) (*models.PlayerState, ReviewDecision, error) {
	project, user, err := normalizeIdentity(projectCode, userName)
	if err != nil {
		return nil, ReviewDecision{}, err
	}
	cooldown, err := g.cooldown(ctx, project)
	if err != nil {
		return nil, ReviewDecision{}, err
	}

	repo := g.repos.PlayerState()
	if _, err := repo.Ensure(ctx, project, user, g.ledger.Defaults()); err != nil {
		return nil, ReviewDecision{}, err
	}

	for attempt := 0; attempt < admitAttempts; attempt++ {
		admitted, err := repo.AdmitReview(ctx, project, user, now, cooldown, 1)
		if err != nil {
			return nil, ReviewDecision{}, err
		}

		state, err := repo.Find(ctx, project, user)
		if err != nil {
			return nil, ReviewDecision{}, err
		}
		if admitted {
			g.metrics.ReviewAdmission("admitted")
			g.ledger.notifier.NotifyTokenUpdate(project, user, state.Balances())
			return state, ReviewDecision{Allowed: true}, nil
		}

		decision := EvaluateCooldown(state.LastReviewAt, cooldown, now)
		if !decision.Allowed {
			g.metrics.ReviewAdmission("cooldown")
			return state, decision, errors.Newf(errors.ErrReviewCooldown, "剩余 %dms", decision.RemainingMs)
		}
		if state.ReviewTokens < 1 {
			g.metrics.ReviewAdmission("no_tokens")
			return state, decision, errors.New(errors.ErrNoReviewTokens)
		}
		// 条件在两次读取之间被并发修改，重试
		g.logger.Debug("评审准入重试", zap.String("project", project), zap.String("user", user), zap.Int("attempt", attempt+1))
	}
	return nil, ReviewDecision{}, errors.New(errors.ErrTransaction, "评审准入冲突")
}
