package repository

import (
	"context"
	"time"

	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActiveSessionRepository 活跃会话仓储接口
type ActiveSessionRepository interface {
	BaseRepository
	// Touch 写入或刷新会话，rotate 为 true 时同时替换 session_id
	Touch(ctx context.Context, session *models.ActiveSession, rotate bool) error
	// ListSince 列出 last_seen 不早于 since 的会话
	ListSince(ctx context.Context, projectCode string, since time.Time) ([]*models.ActiveSession, error)
	// DeleteStale 删除 last_seen 早于 before 的会话
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
	// Delete 删除某玩家的会话
	Delete(ctx context.Context, projectCode, userName string) error
}

// activeSessionRepo 活跃会话仓储实现
type activeSessionRepo struct {
	*BaseRepo
}

// NewActiveSessionRepository 创建活跃会话仓储
func NewActiveSessionRepository(db *gorm.DB) ActiveSessionRepository {
	return &activeSessionRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Touch 按 (project_code, user_name_norm) 更新插入
func (r *activeSessionRepo) Touch(ctx context.Context, session *models.ActiveSession, rotate bool) error {
	session.LastSeen = session.LastSeen.UTC()
	columns := []string{"last_seen"}
	if rotate {
		columns = append(columns, "session_id")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_code"}, {Name: "user_name_norm"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(session).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	return nil
}

// ListSince 列出最近活跃的会话
func (r *activeSessionRepo) ListSince(ctx context.Context, projectCode string, since time.Time) ([]*models.ActiveSession, error) {
	var sessions []*models.ActiveSession
	err := r.db.WithContext(ctx).
		Where("project_code = ? AND last_seen >= ?", projectCode, since.UTC()).
		Order("user_name_norm").
		Find(&sessions).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return sessions, nil
}

// DeleteStale 删除过期会话
func (r *activeSessionRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_seen < ?", before.UTC()).
		Delete(&models.ActiveSession{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrDatabaseDelete)
	}
	return result.RowsAffected, nil
}

// Delete 删除某玩家的会话
func (r *activeSessionRepo) Delete(ctx context.Context, projectCode, userName string) error {
	err := r.db.WithContext(ctx).
		Where("project_code = ? AND user_name_norm = ?", projectCode, userName).
		Delete(&models.ActiveSession{}).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete)
	}
	return nil
}
