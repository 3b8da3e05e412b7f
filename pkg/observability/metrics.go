package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "webflow"

// Metrics holds the prometheus collectors fed by lifecycle events.
type Metrics struct {
	SessionsStarted *prometheus.CounterVec
	SessionsEnded   *prometheus.CounterVec
	ActiveSessions  *prometheus.GaugeVec
	StateEntries    *prometheus.CounterVec
	Events          *prometheus.CounterVec
	ViewsRendered   *prometheus.CounterVec
	Pauses          *prometheus.CounterVec
	Exceptions      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of flow sessions started, subflows included.",
		}, []string{"flow_id"}),
		SessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of flow sessions ended, by outcome.",
		}, []string{"flow_id", "outcome"}),
		ActiveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Flow sessions started and not yet ended by this process.",
		}, []string{"flow_id"}),
		StateEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_entries_total",
			Help:      "Total number of state entries.",
		}, []string{"flow_id", "state_id"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of events signaled.",
		}, []string{"flow_id", "event"}),
		ViewsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "views_rendered_total",
			Help:      "Total number of views rendered.",
		}, []string{"flow_id", "state_id"}),
		Pauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pauses_total",
			Help:      "Total number of requests that paused a flow execution.",
		}, []string{"flow_id", "state_id"}),
		Exceptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exceptions_total",
			Help:      "Total number of errors raised during flow execution.",
		}, []string{"flow_id", "state_id"}),
	}

	for _, c := range []prometheus.Collector{
		m.SessionsStarted, m.SessionsEnded, m.ActiveSessions, m.StateEntries,
		m.Events, m.ViewsRendered, m.Pauses, m.Exceptions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register webflow metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStarted: func(_ context.Context, e *domain.LifecycleEvent) {
			m.SessionsStarted.WithLabelValues(e.FlowID).Inc()
			m.ActiveSessions.WithLabelValues(e.FlowID).Inc()
		},
		OnSessionEnded: func(_ context.Context, e *domain.LifecycleEvent) {
			m.SessionsEnded.WithLabelValues(e.FlowID, e.EventID).Inc()
			m.ActiveSessions.WithLabelValues(e.FlowID).Dec()
		},
		OnStateEntered: func(_ context.Context, e *domain.LifecycleEvent) {
			m.StateEntries.WithLabelValues(e.FlowID, e.StateID).Inc()
		},
		OnEventSignaled: func(_ context.Context, e *domain.LifecycleEvent) {
			m.Events.WithLabelValues(e.FlowID, e.EventID).Inc()
		},
		OnViewRendered: func(_ context.Context, e *domain.LifecycleEvent) {
			m.ViewsRendered.WithLabelValues(e.FlowID, e.StateID).Inc()
		},
		OnPaused: func(_ context.Context, e *domain.LifecycleEvent) {
			m.Pauses.WithLabelValues(e.FlowID, e.StateID).Inc()
		},
		OnException: func(_ context.Context, e *domain.LifecycleEvent) {
			m.Exceptions.WithLabelValues(e.FlowID, e.StateID).Inc()
		},
	}
}
