package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerStateRepository 玩家状态仓储接口
type PlayerStateRepository interface {
	BaseRepository
	// Find 查询玩家状态，不存在返回 ErrNotFound
	Find(ctx context.Context, projectCode, userName string) (*models.PlayerState, error)
	// Ensure 不存在时按默认值创建，返回当前状态
	Ensure(ctx context.Context, projectCode, userName string, defaults models.TokenBalances) (*models.PlayerState, error)
	// Adjust 原子地应用令牌变化，任一余额将为负时返回 ErrInsufficientTokens
	Adjust(ctx context.Context, projectCode, userName string, delta models.TokenDelta) (*models.PlayerState, error)
	// SetLastReview 记录最近一次评审时间
	SetLastReview(ctx context.Context, projectCode, userName string, at time.Time) error
	// AdmitReview 冷却已过且评审令牌充足时扣减令牌并记录时间，条件不满足返回 false
	AdmitReview(ctx context.Context, projectCode, userName string, now time.Time, cooldown time.Duration, cost int) (bool, error)
	// ListByProject 分页列出项目内玩家
	ListByProject(ctx context.Context, projectCode string, p *Pagination) ([]*models.PlayerState, error)
}

// playerStateRepo 玩家状态仓储实现
type playerStateRepo struct {
	*BaseRepo
}

// NewPlayerStateRepository 创建玩家状态仓储
func NewPlayerStateRepository(db *gorm.DB) PlayerStateRepository {
	return &playerStateRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

func (r *playerStateRepo) scope(ctx context.Context, projectCode, userName string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.PlayerState{}).
		Where("project_code = ? AND user_name_norm = ?", projectCode, userName)
}

// Find 查询玩家状态
func (r *playerStateRepo) Find(ctx context.Context, projectCode, userName string) (*models.PlayerState, error) {
	var state models.PlayerState
	err := r.scope(ctx, projectCode, userName).First(&state).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrNotFound, "玩家状态不存在")
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &state, nil
}

// Ensure 懒创建玩家状态
func (r *playerStateRepo) Ensure(ctx context.Context, projectCode, userName string, defaults models.TokenBalances) (*models.PlayerState, error) {
	state := &models.PlayerState{
		ProjectCode:  projectCode,
		UserNameNorm: userName,
		ReviewTokens: defaults.Review,
		AttackTokens: defaults.Attack,
		ShieldTokens: defaults.Shield,
	}
	// 并发创建时只有一个插入生效
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_code"}, {Name: "user_name_norm"}},
		DoNothing: true,
	}).Create(state).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	return r.Find(ctx, projectCode, userName)
}

// Adjust 单条条件UPDATE完成校验与变更，同一行的并发调整由数据库串行化
func (r *playerStateRepo) Adjust(ctx context.Context, projectCode, userName string, delta models.TokenDelta) (*models.PlayerState, error) {
	if delta.IsZero() {
		return r.Find(ctx, projectCode, userName)
	}

	result := r.scope(ctx, projectCode, userName).
		Where("review_tokens + ? >= 0 AND attack_tokens + ? >= 0 AND shield_tokens + ? >= 0",
			delta.Review, delta.Attack, delta.Shield).
		Updates(map[string]interface{}{
			"review_tokens": gorm.Expr("review_tokens + ?", delta.Review),
			"attack_tokens": gorm.Expr("attack_tokens + ?", delta.Attack),
			"shield_tokens": gorm.Expr("shield_tokens + ?", delta.Shield),
		})
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return nil, errors.New(errors.ErrInsufficientTokens)
	}
	return r.Find(ctx, projectCode, userName)
}

// SetLastReview 记录最近一次评审时间
func (r *playerStateRepo) SetLastReview(ctx context.Context, projectCode, userName string, at time.Time) error {
	result := r.scope(ctx, projectCode, userName).Update("last_review_at", at.UTC())
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrNotFound, "玩家状态不存在")
	}
	return nil
}

// AdmitReview 冷却判断、令牌扣减、时间记录在同一条UPDATE中完成
func (r *playerStateRepo) AdmitReview(ctx context.Context, projectCode, userName string, now time.Time, cooldown time.Duration, cost int) (bool, error) {
	threshold := now.Add(-cooldown).UTC()
	result := r.scope(ctx, projectCode, userName).
		Where("(last_review_at IS NULL OR last_review_at <= ?)", threshold).
		Where("review_tokens >= ?", cost).
		Updates(map[string]interface{}{
			"review_tokens":  gorm.Expr("review_tokens - ?", cost),
			"last_review_at": now.UTC(),
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrDatabaseUpdate)
	}
	return result.RowsAffected == 1, nil
}

// ListByProject 分页列出项目内玩家
func (r *playerStateRepo) ListByProject(ctx context.Context, projectCode string, p *Pagination) ([]*models.PlayerState, error) {
	var states []*models.PlayerState
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.PlayerState{}).Where("project_code = ?", projectCode)
	}
	if err := query().Count(&p.Total).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	err := query().Order("user_name_norm").Scopes(Paginate(p)).Find(&states).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return states, nil
}
