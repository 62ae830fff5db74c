package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/essay-arena/internal/logger"
	"go.uber.org/zap"
)

// Socket 连接所需的底层能力，*websocket.Conn 满足该接口
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ConnState 连接状态
type ConnState int32

const (
	StateOpen ConnState = iota
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MessageHandler 连接消息处理器
type MessageHandler interface {
	HandleMessage(c *Connection, data []byte)
	OnClose(c *Connection)
}

// ConnectionOptions 连接参数
type ConnectionOptions struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConnectionOptions 默认连接参数
func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		SendBuffer:     64,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// Connection 单个WebSocket连接
type Connection struct {
	ID string

	socket Socket
	opts   ConnectionOptions
	send   chan []byte
	done   chan struct{}

	state     atomic.Int32
	alive     atomic.Bool
	closeOnce sync.Once

	mu          sync.RWMutex
	projectCode string
	userName    string

	logger *zap.Logger
}

// NewConnection 包装底层连接
func NewConnection(socket Socket, opts ConnectionOptions) *Connection {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultConnectionOptions().SendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultConnectionOptions().WriteTimeout
	}
	c := &Connection{
		ID:     uuid.NewString(),
		socket: socket,
		opts:   opts,
		send:   make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
		logger: logger.GetModuleLogger(logger.ModuleWebSocket),
	}
	c.alive.Store(true)
	return c
}

// State 当前状态
func (c *Connection) State() ConnState {
	return ConnState(c.state.Load())
}

// IsOpen 是否可以收发消息
func (c *Connection) IsOpen() bool {
	return c.State() == StateOpen
}

// Identity 已注册的身份
func (c *Connection) Identity() (projectCode, userName string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projectCode, c.userName, c.userName != ""
}

func (c *Connection) setIdentity(projectCode, userName string) {
	c.mu.Lock()
	c.projectCode = projectCode
	c.userName = userName
	c.mu.Unlock()
}

// Send 放入发送队列，连接不可用或队列已满时返回 false
func (c *Connection) Send(data []byte) bool {
	if !c.IsOpen() {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("发送缓冲区已满，丢弃消息", zap.String("conn_id", c.ID))
		return false
	}
}

// SendMessage 编码并发送消息
func (c *Connection) SendMessage(msg Message) bool {
	data, err := Encode(msg)
	if err != nil {
		c.logger.Error("编码消息失败", zap.String("type", msg.MessageType()), zap.Error(err))
		return false
	}
	ok := c.Send(data)
	if ok {
		logger.LogWebSocketMessage("send", msg.MessageType(), c.ID)
	}
	return ok
}

// Ping 发送ping控制帧，并把连接标记为等待pong
func (c *Connection) Ping(now time.Time) error {
	c.alive.Store(false)
	return c.socket.WriteControl(websocket.PingMessage, nil, now.Add(c.opts.WriteTimeout))
}

// Alive 自上次ping以来是否收到pong
func (c *Connection) Alive() bool {
	return c.alive.Load()
}

// Close 发送关闭帧后关闭连接
func (c *Connection) Close() {
	if c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
	}
	c.Terminate()
}

// Terminate 立即关闭底层连接
func (c *Connection) Terminate() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.done)
		if err := c.socket.Close(); err != nil {
			c.logger.Debug("关闭连接出错", zap.String("conn_id", c.ID), zap.Error(err))
		}
		c.state.Store(int32(StateClosed))
	})
}

// Run 运行读写循环，阻塞到连接关闭
func (c *Connection) Run(handler MessageHandler) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()

	c.readPump(handler)
	c.Terminate()
	wg.Wait()
	handler.OnClose(c)
}

// readPump 读取消息
func (c *Connection) readPump(handler MessageHandler) {
	if c.opts.MaxMessageSize > 0 {
		c.socket.SetReadLimit(c.opts.MaxMessageSize)
	}
	c.socket.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && c.IsOpen() {
				c.logger.Warn("WebSocket读取错误",
					zap.String("conn_id", c.ID),
					zap.Error(err))
			}
			return
		}
		handler.HandleMessage(c, data)
	}
}

// writePump 写入消息
func (c *Connection) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("WebSocket写入失败", zap.String("conn_id", c.ID), zap.Error(err))
				c.Terminate()
				return
			}
		}
	}
}
