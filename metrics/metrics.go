package metrics

import (
	"net/http"
	"time"

	"github.com/MrEthical07/wanderlate/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wanderlate"

// Recorder owns a private registry so tests and multiple apps in one process
// do not collide on the global one.
type Recorder struct {
	registry      *prometheus.Registry
	gateDecisions *prometheus.CounterVec
	authEvents    *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the wanderlate collectors plus the Go runtime and process
// collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Request gate outcomes by decision.",
		}, []string{"decision"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Account flow outcomes by event and outcome.",
		}, []string{"event", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	r.registry.MustRegister(
		r.gateDecisions,
		r.authEvents,
		r.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveGate counts one gate decision. It satisfies middleware.GateObserver.
func (r *Recorder) ObserveGate(d middleware.Decision) {
	if r == nil {
		return
	}
	r.gateDecisions.WithLabelValues(d.String()).Inc()
}

// ObserveAuth counts one account flow outcome.
func (r *Recorder) ObserveAuth(event, outcome string) {
	if r == nil {
		return
	}
	r.authEvents.WithLabelValues(event, outcome).Inc()
}

// ObserveHTTP records the latency of one request. route should be the
// matched pattern, never the raw path.
func (r *Recorder) ObserveHTTP(route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpDuration.WithLabelValues(route, statusClass(status)).Observe(d.Seconds())
}

// TrackAuditDropped exports the dispatcher's drop counter.
func (r *Recorder) TrackAuditDropped(dropped func() uint64) {
	if r == nil || dropped == nil {
		return
	}
	r.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Audit events dropped due to dispatcher backpressure.",
	}, func() float64 { return float64(dropped()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
