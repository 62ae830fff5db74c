package models

import (
	"time"
)

// Project 项目表（由管理端维护，此处只读取冷却配置）
type Project struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Code            string    `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Name            string    `gorm:"size:200" json:"name"`
	CooldownSeconds int       `gorm:"not null;default:0" json:"cooldown_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// AllModels 需要迁移的模型
func AllModels() []interface{} {
	return []interface{}{
		&Project{},
		&PlayerState{},
		&Attack{},
		&ActiveSession{},
	}
}
