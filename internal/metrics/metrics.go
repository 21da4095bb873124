// Package metrics exposes the recorder's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded on events_dropped_total.
const (
	DropInvalidPayload = "invalid_payload"
	DropDownPhase      = "down_phase"
	DropNoTarget       = "no_target"
	DropSelf           = "self"
)

// Metrics holds all Prometheus counters for the recorder.
type Metrics struct {
	EventsReceived   *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
	RulesEmitted     prometheus.Counter
	SessionsCompiled prometheus.Counter
}

// New registers the recorder counters against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "g4_recorder_events_received_total",
			Help: "Raw events buffered, per capture connection",
		}, []string{"connection"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "g4_recorder_events_dropped_total",
			Help: "Events rejected at the boundary or by normalization, per reason",
		}, []string{"reason"}),
		RulesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "g4_recorder_rules_emitted_total",
			Help: "Rules emitted by the compiler",
		}),
		SessionsCompiled: factory.NewCounter(prometheus.CounterOpts{
			Name: "g4_recorder_sessions_compiled_total",
			Help: "Successful compile passes",
		}),
	}
}

// Received increments the per-connection received counter. Nil-safe.
func (m *Metrics) Received(connection string) {
	if m != nil {
		m.EventsReceived.WithLabelValues(connection).Inc()
	}
}

// Dropped increments the drop counter for a reason. Nil-safe.
func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.EventsDropped.WithLabelValues(reason).Inc()
	}
}

// Rules adds n emitted rules. Nil-safe.
func (m *Metrics) Rules(n int) {
	if m != nil {
		m.RulesEmitted.Add(float64(n))
	}
}

// Compiled counts one successful compile pass. Nil-safe.
func (m *Metrics) Compiled() {
	if m != nil {
		m.SessionsCompiled.Inc()
	}
}
