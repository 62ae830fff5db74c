package models

import (
	"time"
)

// ActiveSession 活跃会话表，记录"该用户最近在线"
type ActiveSession struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectCode  string    `gorm:"uniqueIndex:idx_active_sessions_project_user;size:64;not null" json:"project_code"`
	UserNameNorm string    `gorm:"uniqueIndex:idx_active_sessions_project_user;size:128;not null" json:"user_name"`
	SessionID    string    `gorm:"size:64;not null" json:"session_id"`
	LastSeen     time.Time `gorm:"index;not null" json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (ActiveSession) TableName() string {
	return "active_sessions"
}
