package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the coordination engine.
type Metrics struct {
	HoldsExpired    prometheus.Counter
	SweepFailures   prometheus.Counter
	EventsPublished *prometheus.CounterVec
	EventsDropped   prometheus.Counter
	Subscribers     prometheus.Gauge
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HoldsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "spotshare_holds_expired_total",
			Help: "Holds transitioned to expired by the background sweep",
		}),
		SweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "spotshare_sweep_failures_total",
			Help: "Expiry sweep iterations that failed and were retried later",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spotshare_events_published_total",
			Help: "State-change events published, by event type",
		}, []string{"type"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "spotshare_events_dropped_total",
			Help: "Events dropped from a slow subscriber's buffer",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spotshare_event_subscribers",
			Help: "Currently connected event subscribers",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spotshare_http_requests_total",
			Help: "HTTP requests served, by method and status",
		}, []string{"method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spotshare_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// NewNop returns collectors that are not registered anywhere, for tests and
// callers that do not care about metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
