package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/models"
	"github.com/wfunc/essay-arena/internal/repository"
	"github.com/wfunc/essay-arena/internal/utils"
	"go.uber.org/zap"
)

// presenceService 在线状态服务实现
type presenceService struct {
	sessions   repository.ActiveSessionRepository
	staleAfter time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewPresenceService 创建在线状态服务
func NewPresenceService(sessions repository.ActiveSessionRepository, staleAfter time.Duration, m *metrics.Metrics) PresenceService {
	return &presenceService{
		sessions:   sessions,
		staleAfter: staleAfter,
		metrics:    m,
		logger:     logger.GetModuleLogger(logger.ModulePresence),
	}
}

func (s *presenceService) Touch(ctx context.Context, projectCode, userName string, newSession bool, now time.Time) (string, error) {
	project := utils.NormalizeProjectCode(projectCode)
	user := utils.NormalizeUserName(userName)
	if project == "" || user == "" {
		return "", errors.New(errors.ErrInvalidParam, "项目编码和用户名不能为空")
	}

	session := &models.ActiveSession{
		ProjectCode:  project,
		UserNameNorm: user,
		SessionID:    uuid.NewString(),
		LastSeen:     now,
	}
	if err := s.sessions.Touch(ctx, session, newSession); err != nil {
		return "", err
	}
	if newSession {
		s.logger.Debug("新会话",
			zap.String("project", project),
			zap.String("user", user),
			zap.String("session_id", session.SessionID))
		return session.SessionID, nil
	}
	return "", nil
}

func (s *presenceService) ListActive(ctx context.Context, projectCode string, now time.Time) ([]*models.ActiveSession, error) {
	project := utils.NormalizeProjectCode(projectCode)
	return s.sessions.ListSince(ctx, project, now.Add(-s.staleAfter))
}

func (s *presenceService) Forget(ctx context.Context, projectCode, userName string) error {
	return s.sessions.Delete(ctx, utils.NormalizeProjectCode(projectCode), utils.NormalizeUserName(userName))
}

func (s *presenceService) Reap(ctx context.Context, now time.Time) (int64, error) {
	removed, err := s.sessions.DeleteStale(ctx, now.Add(-s.staleAfter))
	if err != nil {
		return 0, err
	}
	s.metrics.SessionsReaped(removed)
	if removed > 0 {
		s.logger.Info("清理过期会话", zap.Int64("removed", removed))
	}
	return removed, nil
}
