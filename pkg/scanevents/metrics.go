package scanevents

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsHook exposes scan counters for Prometheus scraping. It
// subscribes to the event bus the same way pkg/output/hooks/prometheus.go
// subscribed to the output dispatcher: register once, update counters as
// matching events arrive, expose a registry the caller wires into its
// own /metrics endpoint (the core never starts an HTTP server itself —
// serving metrics is a host/UI concern, out of scope per §1).
type MetricsHook struct {
	registry *prometheus.Registry

	checksStarted  *prometheus.CounterVec
	checksFinished *prometheus.CounterVec
	checksFailed   *prometheus.CounterVec
	findingsTotal  *prometheus.CounterVec
	requestsTotal  prometheus.Counter
}

// NewMetricsHook creates a MetricsHook with its own private registry, so
// multiple concurrent scans never collide on metric names (same reason
// pkg/output/hooks/prometheus.go uses prometheus.NewRegistry() instead of
// the global default registry).
func NewMetricsHook() *MetricsHook {
	reg := prometheus.NewRegistry()
	h := &MetricsHook{
		registry: reg,
		checksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanengine_checks_started_total",
			Help: "Total number of checks dispatched.",
		}, []string{"check_id"}),
		checksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanengine_checks_finished_total",
			Help: "Total number of checks that reached a terminal state.",
		}, []string{"check_id"}),
		checksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanengine_checks_failed_total",
			Help: "Total number of checks that failed.",
		}, []string{"check_id", "error_code"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanengine_findings_total",
			Help: "Total number of findings emitted, by severity.",
		}, []string{"check_id", "severity"}),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanengine_requests_completed_total",
			Help: "Total number of check-issued HTTP sends that completed.",
		}),
	}
	reg.MustRegister(h.checksStarted, h.checksFinished, h.checksFailed, h.findingsTotal, h.requestsTotal)
	return h
}

// Registry returns the private Prometheus registry this hook populates.
func (h *MetricsHook) Registry() *prometheus.Registry { return h.registry }

// Attach registers this hook's handlers on bus for every event type it
// cares about.
func (h *MetricsHook) Attach(bus *Bus) {
	bus.On(TypeCheckStarted, func(e Event) {
		ev := e.(CheckStarted)
		h.checksStarted.WithLabelValues(ev.CheckID).Inc()
	})
	bus.On(TypeCheckFinished, func(e Event) {
		ev := e.(CheckFinished)
		h.checksFinished.WithLabelValues(ev.CheckID).Inc()
	})
	bus.On(TypeCheckFailed, func(e Event) {
		ev := e.(CheckFailed)
		h.checksFailed.WithLabelValues(ev.CheckID, ev.ErrorCode).Inc()
	})
	bus.On(TypeFinding, func(e Event) {
		ev := e.(Finding)
		h.findingsTotal.WithLabelValues(ev.CheckID, string(ev.Finding.Severity)).Inc()
	})
	bus.On(TypeRequestCompleted, func(e Event) {
		h.requestsTotal.Inc()
	})
}
