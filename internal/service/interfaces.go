package service

import (
	"context"
	"time"

	"github.com/wfunc/essay-arena/internal/models"
)

// PresenceService 在线状态服务接口
type PresenceService interface {
	// Touch 刷新玩家最近在线时间，newSession 为 true 时分配新的会话ID
	Touch(ctx context.Context, projectCode, userName string, newSession bool, now time.Time) (string, error)
	// ListActive 列出在阈值内活跃过的玩家
	ListActive(ctx context.Context, projectCode string, now time.Time) ([]*models.ActiveSession, error)
	// Forget 删除玩家的在线记录
	Forget(ctx context.Context, projectCode, userName string) error
	// Reap 删除超过阈值未活跃的记录
	Reap(ctx context.Context, now time.Time) (int64, error)
}
