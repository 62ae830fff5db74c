package models

import (
	"time"
)

// AttackStatus 攻击状态
type AttackStatus string

const (
	AttackPending   AttackStatus = "pending"   // 等待目标响应
	AttackDefended  AttackStatus = "defended"  // 目标使用护盾防御
	AttackSucceeded AttackStatus = "succeeded" // 窗口结束未防御，攻击成功
	AttackExpired   AttackStatus = "expired"   // 超过宽限期仍未结算，作废
)

// IsTerminal 是否为终态
func (s AttackStatus) IsTerminal() bool {
	return s == AttackDefended || s == AttackSucceeded || s == AttackExpired
}

// Attack 攻击邀约表
//
// ActivePairKey 仅在 pending 状态下非空，与 ProjectCode 组成唯一索引，
// 保证同一对玩家（不分方向）同时最多只有一个进行中的攻击。
// 进入终态后置为 NULL，历史记录不占用唯一键。
type Attack struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	ProjectCode   string       `gorm:"uniqueIndex:idx_attacks_active_pair;index:idx_attacks_project_status;size:64;not null" json:"project_code"`
	AttackerNorm  string       `gorm:"column:attacker_name_norm;index;size:128;not null" json:"attacker"`
	TargetNorm    string       `gorm:"column:target_name_norm;index;size:128;not null" json:"target"`
	Status        AttackStatus `gorm:"index:idx_attacks_project_status;index:idx_attacks_status_expires;size:16;not null" json:"status"`
	ShieldUsed    bool         `gorm:"not null;default:false" json:"shield_used"`
	ActivePairKey *string      `gorm:"uniqueIndex:idx_attacks_active_pair;size:272" json:"-"`
	RewardReview  int          `gorm:"not null;default:0" json:"reward_review"`
	CreatedAt     time.Time    `json:"created_at"`
	RespondedAt   *time.Time   `json:"responded_at,omitempty"`
	ExpiresAt     time.Time    `gorm:"index:idx_attacks_status_expires;not null" json:"expires_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TableName 指定表名
func (Attack) TableName() string {
	return "attacks"
}

// ExpiresIn 距离过期的剩余时间，已过期返回0
func (a *Attack) ExpiresIn(now time.Time) time.Duration {
	remaining := a.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Involves 是否为攻击的一方
func (a *Attack) Involves(userNorm string) bool {
	return a.AttackerNorm == userNorm || a.TargetNorm == userNorm
}
