package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/wfunc/essay-arena/internal/database"
	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/models"
	"gorm.io/gorm"
)

// AttackRepository 攻击邀约仓储接口
type AttackRepository interface {
	BaseRepository
	// Create 创建邀约，同一对玩家已有进行中邀约时返回 ErrAttackAlreadyPending
	Create(ctx context.Context, attack *models.Attack) error
	// FindByID 按项目与ID查询，不存在返回 ErrOfferNotFound
	FindByID(ctx context.Context, projectCode string, id uint) (*models.Attack, error)
	// FindPendingByPair 查询一对玩家间进行中的邀约，没有时返回 nil
	FindPendingByPair(ctx context.Context, projectCode, pairKey string) (*models.Attack, error)
	// Transition 以 pending 为前提的比较并交换，返回是否由本次调用完成
	Transition(ctx context.Context, id uint, t AttackTransition) (bool, error)
	// ListDue 列出已到期仍为 pending 的邀约
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Attack, error)
	// ListPendingForTarget 列出指向某玩家且尚未到期的邀约
	ListPendingForTarget(ctx context.Context, projectCode, target string, now time.Time) ([]*models.Attack, error)
	// ListRecent 列出玩家最近参与的邀约
	ListRecent(ctx context.Context, projectCode, userName string, limit int) ([]*models.Attack, error)
}

// AttackTransition 一次终态迁移
type AttackTransition struct {
	To           models.AttackStatus
	RespondedAt  *time.Time
	ShieldUsed   bool
	RewardReview int
	// NotExpiredAt 非空时要求 expires_at > NotExpiredAt
	NotExpiredAt *time.Time
	// ExpiredAt 非空时要求 expires_at <= ExpiredAt
	ExpiredAt *time.Time
}

// attackRepo 攻击邀约仓储实现
type attackRepo struct {
	*BaseRepo
}

// NewAttackRepository 创建攻击邀约仓储
func NewAttackRepository(db *gorm.DB) AttackRepository {
	return &attackRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建邀约
func (r *attackRepo) Create(ctx context.Context, attack *models.Attack) error {
	if err := r.db.WithContext(ctx).Create(attack).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return errors.New(errors.ErrAttackAlreadyPending)
		}
		return errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	return nil
}

// FindByID 按项目与ID查询
func (r *attackRepo) FindByID(ctx context.Context, projectCode string, id uint) (*models.Attack, error) {
	var attack models.Attack
	err := r.db.WithContext(ctx).
		Where("id = ? AND project_code = ?", id, projectCode).
		First(&attack).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrOfferNotFound)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &attack, nil
}

// FindPendingByPair 查询一对玩家间进行中的邀约
func (r *attackRepo) FindPendingByPair(ctx context.Context, projectCode, pairKey string) (*models.Attack, error) {
	var attacks []*models.Attack
	err := r.db.WithContext(ctx).
		Where("project_code = ? AND active_pair_key = ? AND status = ?", projectCode, pairKey, models.AttackPending).
		Limit(1).
		Find(&attacks).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if len(attacks) == 0 {
		return nil, nil
	}
	return attacks[0], nil
}

// Transition 比较并交换，终态写入同时释放配对唯一键
func (r *attackRepo) Transition(ctx context.Context, id uint, t AttackTransition) (bool, error) {
	if !t.To.IsTerminal() {
		return false, errors.Newf(errors.ErrInvalidParam, "非终态: %s", t.To)
	}

	query := r.db.WithContext(ctx).Model(&models.Attack{}).
		Where("id = ? AND status = ?", id, models.AttackPending)
	if t.NotExpiredAt != nil {
		query = query.Where("expires_at > ?", t.NotExpiredAt.UTC())
	}
	if t.ExpiredAt != nil {
		query = query.Where("expires_at <= ?", t.ExpiredAt.UTC())
	}

	updates := map[string]interface{}{
		"status":          t.To,
		"active_pair_key": nil,
		"shield_used":     t.ShieldUsed,
		"reward_review":   t.RewardReview,
	}
	if t.RespondedAt != nil {
		updates["responded_at"] = t.RespondedAt.UTC()
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrDatabaseUpdate)
	}
	return result.RowsAffected == 1, nil
}

// ListDue 列出已到期仍为 pending 的邀约
func (r *attackRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Attack, error) {
	var attacks []*models.Attack
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.AttackPending, now.UTC()).
		Order("expires_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attacks).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return attacks, nil
}

// ListPendingForTarget 列出指向某玩家且尚未到期的邀约
func (r *attackRepo) ListPendingForTarget(ctx context.Context, projectCode, target string, now time.Time) ([]*models.Attack, error) {
	var attacks []*models.Attack
	err := r.db.WithContext(ctx).
		Where("project_code = ? AND target_name_norm = ? AND status = ? AND expires_at > ?",
			projectCode, target, models.AttackPending, now.UTC()).
		Order("expires_at").
		Find(&attacks).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return attacks, nil
}

// ListRecent 列出玩家最近参与的邀约
func (r *attackRepo) ListRecent(ctx context.Context, projectCode, userName string, limit int) ([]*models.Attack, error) {
	var attacks []*models.Attack
	query := r.db.WithContext(ctx).
		Where("project_code = ? AND (attacker_name_norm = ? OR target_name_norm = ?)", projectCode, userName, userName).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attacks).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return attacks, nil
}
