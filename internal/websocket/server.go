package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/logger"
	"go.uber.org/zap"
)

// Server 接受WebSocket连接
type Server struct {
	upgrader websocket.Upgrader
	registry *Registry
	handler  MessageHandler
	opts     ConnectionOptions
	logger   *zap.Logger
}

// NewServer 创建WebSocket服务
func NewServer(cfg config.WebSocketConfig, registry *Registry, handler MessageHandler) *Server {
	opts := ConnectionOptions{
		SendBuffer:     cfg.SendBufferSize,
		WriteTimeout:   cfg.WriteTimeout,
		MaxMessageSize: cfg.MaxMessageSize,
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin: func(r *http.Request) bool {
				// 身份由 register 消息声明，不依赖 Origin
				return true
			},
		},
		registry: registry,
		handler:  handler,
		opts:     opts,
		logger:   logger.GetModuleLogger(logger.ModuleWebSocket),
	}
}

// ServeHTTP 升级连接并阻塞运行到连接关闭
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket升级失败", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	conn := NewConnection(ws, s.opts)
	s.registry.Attach(conn)
	s.logger.Debug("新连接", zap.String("conn_id", conn.ID), zap.String("remote", r.RemoteAddr))
	conn.Run(s.handler)
}
