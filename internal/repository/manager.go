package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 事务管理器
	txManager TransactionManager

	// 仓储实例（使用懒加载）
	playerStateOnce sync.Once
	playerState     PlayerStateRepository

	attackOnce sync.Once
	attack     AttackRepository

	activeSessionOnce sync.Once
	activeSession     ActiveSessionRepository

	projectOnce sync.Once
	project     ProjectRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Transaction 获取事务管理器
func (m *Manager) Transaction() TransactionManager {
	return m.txManager
}

// PlayerState 获取玩家状态仓储
func (m *Manager) PlayerState() PlayerStateRepository {
	m.playerStateOnce.Do(func() {
		m.playerState = NewPlayerStateRepository(m.db)
	})
	return m.playerState
}

// Attack 获取攻击邀约仓储
func (m *Manager) Attack() AttackRepository {
	m.attackOnce.Do(func() {
		m.attack = NewAttackRepository(m.db)
	})
	return m.attack
}

// ActiveSession 获取活跃会话仓储
func (m *Manager) ActiveSession() ActiveSessionRepository {
	m.activeSessionOnce.Do(func() {
		m.activeSession = NewActiveSessionRepository(m.db)
	})
	return m.activeSession
}

// Project 获取项目仓储
func (m *Manager) Project() ProjectRepository {
	m.projectOnce.Do(func() {
		m.project = NewProjectRepository(m.db)
	})
	return m.project
}

// WithTransaction 在事务中执行操作
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.txManager.WithTransaction(ctx, fn)
}
