package websocket

import (
	"time"

	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/models"
)

// Dispatcher 通过注册表推送游戏事件，不排队不重试
type Dispatcher struct {
	registry *Registry
	metrics  *metrics.Metrics
}

// NewDispatcher 创建事件推送器
func NewDispatcher(registry *Registry, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{registry: registry, metrics: m}
}

// NotifyAttack 通知目标有新的攻击
func (d *Dispatcher) NotifyAttack(attack *models.Attack, now time.Time) bool {
	delivered := d.registry.Send(attack.ProjectCode, attack.TargetNorm, IncomingAttackMessage{
		Type:        TypeIncomingAttack,
		AttackID:    attack.ID,
		Attacker:    attack.AttackerNorm,
		ExpiresInMs: attack.ExpiresIn(now).Milliseconds(),
	})
	d.metrics.Notification(TypeIncomingAttack, delivered)
	return delivered
}

// NotifyAttackResult 通知攻防双方
func (d *Dispatcher) NotifyAttackResult(attack *models.Attack) {
	for _, recipient := range []struct{ user, role string }{
		{attack.AttackerNorm, RoleAttacker},
		{attack.TargetNorm, RoleTarget},
	} {
		delivered := d.registry.Send(attack.ProjectCode, recipient.user, NewAttackResult(attack, recipient.role))
		d.metrics.Notification(TypeAttackResult, delivered)
	}
}

// NotifyTokenUpdate 推送令牌余额
func (d *Dispatcher) NotifyTokenUpdate(projectCode, userName string, balances models.TokenBalances) bool {
	delivered := d.registry.Send(projectCode, userName, TokenUpdateMessage{
		Type:   TypeTokenUpdate,
		Tokens: balances,
	})
	d.metrics.Notification(TypeTokenUpdate, delivered)
	return delivered
}
