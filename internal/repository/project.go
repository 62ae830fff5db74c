package repository

import (
	"context"

	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/models"
	"github.com/wfunc/essay-arena/internal/utils"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓储接口（只读）
type ProjectRepository interface {
	BaseRepository
	// CooldownSeconds 项目冷却秒数，项目不存在时 found 为 false
	CooldownSeconds(ctx context.Context, code string) (seconds int, found bool, err error)
}

// projectRepo 项目仓储实现
type projectRepo struct {
	*BaseRepo
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// CooldownSeconds 查询项目冷却配置
//
// 管理端写入的编码未必规范化，精确匹配不到时按规范化编码比对。
func (r *projectRepo) CooldownSeconds(ctx context.Context, code string) (int, bool, error) {
	code = utils.NormalizeProjectCode(code)

	var projects []models.Project
	err := r.db.WithContext(ctx).
		Select("code", "cooldown_seconds").
		Where("code = ?", code).
		Limit(1).
		Find(&projects).Error
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if len(projects) > 0 {
		return projects[0].CooldownSeconds, true, nil
	}

	projects = nil
	err = r.db.WithContext(ctx).
		Select("code", "cooldown_seconds").
		Order("id").
		Find(&projects).Error
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	for _, p := range projects {
		if utils.NormalizeProjectCode(p.Code) == code {
			return p.CooldownSeconds, true, nil
		}
	}
	return 0, false, nil
}
