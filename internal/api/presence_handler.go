package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/essay-arena/internal/service"
)

// PresenceHandler 在线状态处理器
type PresenceHandler struct {
	presence service.PresenceService
	now      func() time.Time
}

// NewPresenceHandler 创建在线状态处理器
func NewPresenceHandler(presence service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence, now: time.Now}
}

// ListActive 最近在线的玩家
func (h *PresenceHandler) ListActive(c *gin.Context) {
	sessions, err := h.presence.ListActive(c.Request.Context(), c.Param("project"), h.now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, sessions)
}

// Forget 移除玩家的在线记录
func (h *PresenceHandler) Forget(c *gin.Context) {
	if err := h.presence.Forget(c.Request.Context(), c.Param("project"), c.Param("user")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
