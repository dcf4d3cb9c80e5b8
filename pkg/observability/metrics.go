package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferrou/turnstile/pkg/domain"
)

// Metrics records checkout lifecycle events into Prometheus collectors. Each
// instance carries its own registry so tests and multiple engines do not
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	hookFailures   *prometheus.CounterVec
	resolveSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_transitions_total",
				Help: "Committed step entries by step and direction",
			},
			[]string{"step", "direction"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_rejections_total",
				Help: "Refused moves by step and reason",
			},
			[]string{"step", "reason"},
		),
		hookFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_hook_failures_total",
				Help: "Pre-entry hook failures by step",
			},
			[]string{"step"},
		),
		resolveSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "turnstile_resolve_duration_seconds",
				Help:    "Flow resolution latency",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	m.registry.MustRegister(m.transitions, m.rejections, m.hookFailures, m.resolveSeconds)
	return m
}

// ObserveResolve records one flow resolution duration. Wire it with
// turnstile.WithResolveObserver.
func (m *Metrics) ObserveResolve(d time.Duration) {
	m.resolveSeconds.Observe(d.Seconds())
}

// Hooks returns lifecycle callbacks that feed the collectors. Pass next to
// chain another set of hooks behind the metrics; its callbacks run after the
// counters are bumped.
func (m *Metrics) Hooks(next ...domain.LifecycleHooks) domain.LifecycleHooks {
	var chained domain.LifecycleHooks
	if len(next) > 0 {
		chained = next[0]
	}

	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			m.transitions.WithLabelValues(e.Step, e.Direction).Inc()
			if chained.OnStepEnter != nil {
				chained.OnStepEnter(ctx, e)
			}
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			if chained.OnStepLeave != nil {
				chained.OnStepLeave(ctx, e)
			}
		},
		OnRejected: func(ctx context.Context, e *domain.StepEvent) {
			m.rejections.WithLabelValues(e.Step, string(e.Reason)).Inc()
			if chained.OnRejected != nil {
				chained.OnRejected(ctx, e)
			}
		},
		OnHookFailed: func(ctx context.Context, e *domain.StepEvent) {
			m.hookFailures.WithLabelValues(e.Step).Inc()
			if chained.OnHookFailed != nil {
				chained.OnHookFailed(ctx, e)
			}
		},
	}
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus text format, typically mounted
// at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
