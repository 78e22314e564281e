package alerts

import "github.com/prometheus/client_golang/prometheus"

const (
	promNamespace = "synthetics"
	promSubsystem = "default_alerts"
)

// Reconciliation outcomes recorded per kind.
const (
	outcomeCreated  = "created"
	outcomeExisting = "existing"
	outcomeUpdated  = "updated"
	outcomeFailed   = "failed"
)

// Metrics counts reconciliation outcomes. A nil *Metrics records nothing.
type Metrics struct {
	reconciled        *prometheus.CounterVec
	ambiguous         *prometheus.CounterVec
	connectorFailures prometheus.Counter
}

// NewMetrics creates the reconciler metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "reconciled_total",
			Help:      "default rule reconciliations by kind and outcome",
		}, []string{"kind", "outcome"}),
		ambiguous: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "ambiguous_total",
			Help:      "lookups that found more than one rule of a default kind",
		}, []string{"kind"}),
		connectorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "connector_fetch_failures_total",
			Help:      "action connector list fetches that failed and were replaced by an empty list",
		}),
	}
	reg.MustRegister(m.reconciled, m.ambiguous, m.connectorFailures)
	return m
}

func (m *Metrics) outcome(kind, outcome string) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ambiguousRule(kind string) {
	if m == nil {
		return
	}
	m.ambiguous.WithLabelValues(kind).Inc()
}

func (m *Metrics) connectorFailure() {
	if m == nil {
		return
	}
	m.connectorFailures.Inc()
}
