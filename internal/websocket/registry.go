package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/utils"
	"go.uber.org/zap"
)

// Registry 在线连接注册表：项目 -> 用户 -> 连接
//
// 进程启动时创建一次并注入使用。
type Registry struct {
	mu       sync.RWMutex
	conns    map[*Connection]struct{}
	sessions map[string]map[string]*Connection

	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRegistry 创建注册表
func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		conns:    make(map[*Connection]struct{}),
		sessions: make(map[string]map[string]*Connection),
		metrics:  m,
		logger:   logger.GetModuleLogger(logger.ModuleWebSocket),
	}
}

// Attach 纳入存活检测
func (r *Registry) Attach(c *Connection) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	n := len(r.conns)
	r.mu.Unlock()
	r.metrics.SetLiveConnections(n)
}

// Detach 移出存活检测，并注销仍指向该连接的身份
func (r *Registry) Detach(c *Connection) {
	r.mu.Lock()
	delete(r.conns, c)
	r.unregisterLocked(c)
	n := len(r.conns)
	r.mu.Unlock()
	r.metrics.SetLiveConnections(n)
}

// Register 绑定身份，同一身份的旧连接被替换但不关闭
func (r *Registry) Register(c *Connection, projectCode, userName string) (string, string) {
	project := utils.NormalizeProjectCode(projectCode)
	user := utils.NormalizeUserName(userName)

	r.mu.Lock()
	defer r.mu.Unlock()

	// 同一连接换身份时释放旧身份
	if p, u, ok := c.Identity(); ok && (p != project || u != user) {
		r.unregisterLocked(c)
	}

	users, ok := r.sessions[project]
	if !ok {
		users = make(map[string]*Connection)
		r.sessions[project] = users
	}
	if prev, ok := users[user]; ok && prev != c {
		r.logger.Info("连接被替换",
			zap.String("project", project),
			zap.String("user", user),
			zap.String("old_conn", prev.ID),
			zap.String("new_conn", c.ID))
	}
	users[user] = c
	c.setIdentity(project, user)
	r.conns[c] = struct{}{}
	return project, user
}

// Unregister 仅当身份仍指向该连接时移除
func (r *Registry) Unregister(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(c)
}

func (r *Registry) unregisterLocked(c *Connection) bool {
	project, user, ok := c.Identity()
	if !ok {
		return false
	}
	users := r.sessions[project]
	if users == nil || users[user] != c {
		return false
	}
	delete(users, user)
	if len(users) == 0 {
		delete(r.sessions, project)
	}
	return true
}

// Lookup 查询身份当前绑定的连接
func (r *Registry) Lookup(projectCode, userName string) *Connection {
	project := utils.NormalizeProjectCode(projectCode)
	user := utils.NormalizeUserName(userName)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[project][user]
}

// IsReachable 玩家当前是否有可用连接
func (r *Registry) IsReachable(projectCode, userName string) bool {
	c := r.Lookup(projectCode, userName)
	return c != nil && c.IsOpen()
}

// Send 尽力投递，返回是否放入发送队列
func (r *Registry) Send(projectCode, userName string, msg Message) bool {
	c := r.Lookup(projectCode, userName)
	if c == nil {
		return false
	}
	return c.SendMessage(msg)
}

// Count 已注册身份数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, users := range r.sessions {
		n += len(users)
	}
	return n
}

// snapshot 当前所有连接
func (r *Registry) snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Connection, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// Sweep 存活检测：上一轮未回应ping的连接被终止并注销，其余连接发送新的ping
func (r *Registry) Sweep(now time.Time) (pinged, evicted int) {
	for _, c := range r.snapshot() {
		if !c.IsOpen() || !c.Alive() {
			c.Terminate()
			r.Detach(c)
			r.metrics.LivenessEviction()
			evicted++
			r.logger.Info("连接未响应ping，已断开", zap.String("conn_id", c.ID))
			continue
		}
		if err := c.Ping(now); err != nil {
			c.Terminate()
			r.Detach(c)
			evicted++
			r.logger.Debug("发送ping失败", zap.String("conn_id", c.ID), zap.Error(err))
			continue
		}
		pinged++
	}
	return pinged, evicted
}

// Run 周期性存活检测，ctx 取消后关闭全部连接
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("启动连接存活检测", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			r.logger.Info("停止连接存活检测")
			return nil
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// CloseAll 关闭全部连接
func (r *Registry) CloseAll() {
	for _, c := range r.snapshot() {
		c.Close()
		r.Detach(c)
	}
}
