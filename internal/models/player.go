package models

import (
	"time"
)

// PlayerState 玩家经济状态表，每个 (项目, 规范化用户名) 一行
type PlayerState struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ProjectCode  string     `gorm:"uniqueIndex:idx_player_states_project_user;size:64;not null" json:"project_code"`
	UserNameNorm string     `gorm:"uniqueIndex:idx_player_states_project_user;size:128;not null" json:"user_name"`
	ReviewTokens int        `gorm:"not null;default:0" json:"review_tokens"`
	AttackTokens int        `gorm:"not null;default:0" json:"attack_tokens"`
	ShieldTokens int        `gorm:"not null;default:0" json:"shield_tokens"`
	LastReviewAt *time.Time `json:"last_review_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (PlayerState) TableName() string {
	return "player_states"
}

// Balances 令牌余额快照
func (p *PlayerState) Balances() TokenBalances {
	return TokenBalances{
		Review: p.ReviewTokens,
		Attack: p.AttackTokens,
		Shield: p.ShieldTokens,
	}
}

// TokenBalances 令牌余额
type TokenBalances struct {
	Review int `json:"review"`
	Attack int `json:"attack"`
	Shield int `json:"shield"`
}

// TokenDelta 令牌变化量，正数为增加，负数为扣减
type TokenDelta struct {
	Review int `json:"review,omitempty"`
	Attack int `json:"attack,omitempty"`
	Shield int `json:"shield,omitempty"`
}

// IsZero 是否没有任何变化
func (d TokenDelta) IsZero() bool {
	return d.Review == 0 && d.Attack == 0 && d.Shield == 0
}
