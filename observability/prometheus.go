package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromObserver counts events on a dedicated Prometheus registry. Events are
// labeled by type and severity; error-level events are additionally counted
// per source so background failures (flushes, warm-loads) show up even when
// the API contract swallows them.
type PromObserver struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewPromObserver creates a PromObserver with its own registry.
func NewPromObserver() *PromObserver {
	registry := prometheus.NewRegistry()

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_events_total",
		Help: "Total observability events by type and severity",
	}, []string{"type", "severity"})

	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_errors_total",
		Help: "Total error-level events by source",
	}, []string{"source"})

	registry.MustRegister(events, errors)

	return &PromObserver{
		registry: registry,
		events:   events,
		errors:   errors,
	}
}

func (o *PromObserver) OnEvent(_ context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()
	if event.Level >= LevelError {
		o.errors.WithLabelValues(event.Source).Inc()
	}
}

// Registry returns the underlying Prometheus registry for custom collection.
func (o *PromObserver) Registry() *prometheus.Registry {
	return o.registry
}

// Handler returns an http.Handler exposing the registry in the Prometheus
// text format.
func (o *PromObserver) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
