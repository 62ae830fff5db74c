package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wfunc/essay-arena/internal/game"
	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/service"
	"go.uber.org/zap"
)

// 单条消息处理超时
const handleTimeout = 5 * time.Second

type handlerFunc func(ctx context.Context, c *Connection, data []byte) error

// Handler 按消息类型分发客户端消息
type Handler struct {
	registry   *Registry
	dispatcher *Dispatcher
	ledger     *game.Ledger
	attacks    *game.AttackCoordinator
	presence   service.PresenceService
	now        func() time.Time
	handlers   map[string]handlerFunc
	logger     *zap.Logger
}

// NewHandler 创建消息处理器
func NewHandler(registry *Registry, dispatcher *Dispatcher, svc *service.Services) *Handler {
	h := &Handler{
		registry:   registry,
		dispatcher: dispatcher,
		ledger:     svc.Ledger,
		attacks:    svc.Attacks,
		presence:   svc.Presence,
		now:        time.Now,
		logger:     logger.GetModuleLogger(logger.ModuleWebSocket),
	}
	h.handlers = map[string]handlerFunc{
		TypeRegister:  h.handleRegister,
		TypeHeartbeat: h.handleHeartbeat,
	}
	return h
}

// HandleMessage 非法或未知消息记录后丢弃，连接保持
func (h *Handler) HandleMessage(c *Connection, data []byte) {
	msgType, err := DecodeType(data)
	if err != nil {
		h.logger.Warn("丢弃非法消息", zap.String("conn_id", c.ID), zap.Error(err))
		return
	}
	logger.LogWebSocketMessage("receive", msgType, c.ID)

	fn, ok := h.handlers[msgType]
	if !ok {
		h.logger.Warn("丢弃未知类型消息", zap.String("conn_id", c.ID), zap.String("type", msgType))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	if err := fn(ctx, c, data); err != nil {
		h.logger.Warn("处理消息失败",
			zap.String("conn_id", c.ID),
			zap.String("type", msgType),
			zap.Error(err))
	}
}

// OnClose 连接关闭后注销
func (h *Handler) OnClose(c *Connection) {
	h.registry.Detach(c)
	if project, user, ok := c.Identity(); ok {
		h.logger.Debug("连接关闭",
			zap.String("conn_id", c.ID),
			zap.String("project", project),
			zap.String("user", user))
	}
}

// handleRegister 绑定身份，并补发余额与未处理的攻击
func (h *Handler) handleRegister(ctx context.Context, c *Connection, data []byte) error {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.SendMessage(NewRegistered(false, "", "注册参数格式错误"))
		return err
	}

	now := h.now()
	state, err := h.ledger.GetState(ctx, msg.ProjectCode, msg.UserName)
	if err != nil {
		c.SendMessage(NewRegistered(false, "", err.Error()))
		return err
	}

	project, user := h.registry.Register(c, state.ProjectCode, state.UserNameNorm)
	sessionID, err := h.presence.Touch(ctx, project, user, true, now)
	if err != nil {
		h.logger.Warn("记录在线状态失败", zap.String("user", user), zap.Error(err))
	}
	c.SendMessage(NewRegistered(true, sessionID, ""))

	h.dispatcher.NotifyTokenUpdate(project, user, state.Balances())
	incoming, err := h.attacks.ListIncoming(ctx, project, user, now)
	if err != nil {
		return err
	}
	for _, attack := range incoming {
		h.dispatcher.NotifyAttack(attack, now)
	}
	return nil
}

// handleHeartbeat 应答心跳并刷新在线时间
func (h *Handler) handleHeartbeat(ctx context.Context, c *Connection, _ []byte) error {
	c.SendMessage(NewHeartbeatAck())
	project, user, ok := c.Identity()
	if !ok {
		return nil
	}
	_, err := h.presence.Touch(ctx, project, user, false, h.now())
	return err
}
