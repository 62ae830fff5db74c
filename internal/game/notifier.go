package game

import (
	"time"

	"github.com/wfunc/essay-arena/internal/models"
)

// Notifier 实时事件推送，均为尽力而为，结果不影响业务流程
type Notifier interface {
	// NotifyAttack 通知目标有新的攻击，返回是否送达
	NotifyAttack(attack *models.Attack, now time.Time) bool
	// NotifyAttackResult 通知攻防双方攻击结果
	NotifyAttackResult(attack *models.Attack)
	// NotifyTokenUpdate 推送最新令牌余额，返回是否送达
	NotifyTokenUpdate(projectCode, userName string, balances models.TokenBalances) bool
}

// NopNotifier 不推送任何事件
type NopNotifier struct{}

func (NopNotifier) NotifyAttack(*models.Attack, time.Time) bool { return false }

func (NopNotifier) NotifyAttackResult(*models.Attack) {}

func (NopNotifier) NotifyTokenUpdate(string, string, models.TokenBalances) bool { return false }
