package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 网关决策
const (
	DecisionPreflight     = "preflight"
	DecisionOutsideAPI    = "outside_api"
	DecisionPublic        = "public"
	DecisionAuthenticated = "authenticated"
	DecisionRejected      = "rejected"
)

// GateMetrics 网关计数器
type GateMetrics struct {
	decisions *prometheus.CounterVec
}

// NewGateMetrics 创建并注册网关计数器，reg为nil时不注册
func NewGateMetrics(reg prometheus.Registerer) *GateMetrics {
	m := &GateMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keeper",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Request gate decisions by outcome and reason.",
		}, []string{"decision", "reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions)
	}
	return m
}

func (m *GateMetrics) observe(decision, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision, reason).Inc()
}
