package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "essay_arena"

// Metrics 业务指标，方法对 nil 接收者安全
type Metrics struct {
	attacksInitiated    prometheus.Counter
	attackOutcomes      *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	liveConnections     prometheus.Gauge
	livenessEvictions   prometheus.Counter
	sessionsReaped      prometheus.Counter
	tokenAdjustRejected prometheus.Counter
	reviewAdmissions    *prometheus.CounterVec
}

// New 在指定注册表上创建指标
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		attacksInitiated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attacks_initiated_total",
			Help:      "Total number of attack offers created",
		}),
		attackOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attack_outcomes_total",
			Help:      "Attack offers reaching a terminal status",
		}, []string{"status"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Server pushed events by type and delivery result",
		}, []string{"event", "delivered"}),
		liveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Registered live WebSocket connections",
		}),
		livenessEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liveness_evictions_total",
			Help:      "Connections terminated for missing a ping",
		}),
		sessionsReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "active_sessions_reaped_total",
			Help:      "Stale active session rows deleted by the janitor",
		}),
		tokenAdjustRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_adjustments_rejected_total",
			Help:      "Token adjustments rejected for insufficient balance",
		}),
		reviewAdmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_admissions_total",
			Help:      "Review admission attempts by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) AttackInitiated() {
	if m != nil {
		m.attacksInitiated.Inc()
	}
}

func (m *Metrics) AttackOutcome(status string) {
	if m != nil {
		m.attackOutcomes.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) Notification(event string, delivered bool) {
	if m != nil {
		m.notifications.WithLabelValues(event, strconv.FormatBool(delivered)).Inc()
	}
}

func (m *Metrics) SetLiveConnections(n int) {
	if m != nil {
		m.liveConnections.Set(float64(n))
	}
}

func (m *Metrics) LivenessEviction() {
	if m != nil {
		m.livenessEvictions.Inc()
	}
}

func (m *Metrics) SessionsReaped(n int64) {
	if m != nil && n > 0 {
		m.sessionsReaped.Add(float64(n))
	}
}

func (m *Metrics) TokenAdjustRejected() {
	if m != nil {
		m.tokenAdjustRejected.Inc()
	}
}

func (m *Metrics) ReviewAdmission(result string) {
	if m != nil {
		m.reviewAdmissions.WithLabelValues(result).Inc()
	}
}
