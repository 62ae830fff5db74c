package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// fakeSocket 内存版底层连接
type fakeSocket struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	written     [][]byte
	pings       int
	closeFrames int
	pongHandler func(string) error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case <-s.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	case data := <-s.inbound:
		return websocket.TextMessage, data, nil
	}
}

func (s *fakeSocket) WriteMessage(_ int, data []byte) error {
	if s.isClosed() {
		return websocket.ErrCloseSent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, append([]byte(nil), data...))
	return nil
}

func (s *fakeSocket) WriteControl(messageType int, _ []byte, _ time.Time) error {
	if s.isClosed() {
		return websocket.ErrCloseSent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch messageType {
	case websocket.PingMessage:
		s.pings++
	case websocket.CloseMessage:
		s.closeFrames++
	}
	return nil
}

func (s *fakeSocket) SetReadLimit(int64) {}

func (s *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (s *fakeSocket) SetPongHandler(h func(string) error) {
	s.mu.Lock()
	s.pongHandler = h
	s.mu.Unlock()
}

func (s *fakeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// pong 模拟客户端回应ping
func (s *fakeSocket) pong() bool {
	s.mu.Lock()
	h := s.pongHandler
	s.mu.Unlock()
	if h == nil {
		return false
	}
	_ = h("")
	return true
}

func (s *fakeSocket) hasPongHandler() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pongHandler != nil
}

func (s *fakeSocket) pingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

func (s *fakeSocket) closeFrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFrames
}

// writtenTypes 已写出消息的类型
func (s *fakeSocket) writtenTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.written))
	for _, data := range s.written {
		if t, err := DecodeType(data); err == nil {
			types = append(types, t)
		}
	}
	return types
}

// drain 取出发送队列中尚未写出的消息
func drain(c *Connection) []map[string]any {
	var out []map[string]any
	for {
		select {
		case data := <-c.send:
			var m map[string]any
			if err := json.Unmarshal(data, &m); err == nil {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

// ofType 按类型过滤消息
func ofType(msgs []map[string]any, msgType string) []map[string]any {
	var out []map[string]any
	for _, m := range msgs {
		if m["type"] == msgType {
			out = append(out, m)
		}
	}
	return out
}

// recordingHandler 记录收到的消息
type recordingHandler struct {
	registry *Registry

	mu       sync.Mutex
	received [][]byte
	closed   int
}

func (h *recordingHandler) HandleMessage(_ *Connection, data []byte) {
	h.mu.Lock()
	h.received = append(h.received, data)
	h.mu.Unlock()
}

func (h *recordingHandler) OnClose(c *Connection) {
	if h.registry != nil {
		h.registry.Detach(c)
	}
	h.mu.Lock()
	h.closed++
	h.mu.Unlock()
}

func (h *recordingHandler) receivedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func (h *recordingHandler) closedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
