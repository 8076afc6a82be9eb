// Package metrics records engine calls as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/moamenhredeen/restbind/internal/engine"
)

// Collector observes engine calls
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
	inFlight prometheus.Gauge

	gatherer prometheus.Gatherer
}

var _ engine.Observer = (*Collector)(nil)

// New registers the collector's metrics on a fresh registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collector's metrics on reg. g is used by
// WriteFile and may be nil when the metrics are served elsewhere.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restbind",
			Name:      "requests_total",
			Help:      "Total number of dispatched requests",
		}, []string{"operation", "method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "restbind",
			Name:      "request_duration_seconds",
			Help:      "Request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "method"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restbind",
			Name:      "transport_errors_total",
			Help:      "Requests that produced no response",
		}, []string{"operation"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "restbind",
			Name:      "requests_in_flight",
			Help:      "Requests currently being run by a tester or benchmarker",
		}),
		gatherer: g,
	}
}

// Observe implements engine.Observer
func (c *Collector) Observe(o engine.Observation) {
	if o.Err != nil && o.StatusCode == 0 {
		c.failures.WithLabelValues(o.Operation).Inc()
		return
	}
	c.requests.WithLabelValues(o.Operation, o.Method, strconv.Itoa(o.StatusCode)).Inc()
	c.duration.WithLabelValues(o.Operation, o.Method).Observe(o.Duration.Seconds())
}

// Track marks the start of a request and returns a func marking its end
func (c *Collector) Track() func() {
	c.inFlight.Inc()
	return c.inFlight.Dec
}

// WriteFile writes all gathered metrics in the text exposition format
func (c *Collector) WriteFile(path string) error {
	if c.gatherer == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.gatherer)
}
