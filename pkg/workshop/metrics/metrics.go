// Package metrics exports workshop session counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

// Prom implements workshop.Metrics backed by Prometheus collectors.
type Prom struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	duplicates *prometheus.CounterVec
	pumpTicks  prometheus.Counter
	purged     prometheus.Counter
	denied     *prometheus.CounterVec
	publishes  *prometheus.CounterVec
}

var _ workshop.Metrics = (*Prom)(nil)

// NewProm registers the workshop collectors on a fresh registry.
func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Asynchronous platform operations by op and status",
		}, []string{"op", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time from issuing an operation to its resolution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_completions_total",
			Help:      "Completions ignored because the operation was already resolved",
		}, []string{"op"}),
		pumpTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_ticks_total",
			Help:      "Event queue drains",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_files_purged_total",
			Help:      "Temporary storage files removed",
		}),
		denied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_denied_total",
			Help:      "Bundle updates refused by the safety guard per app",
		}, []string{"app"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Publish runs by variant and status",
		}, []string{"variant", "status"}),
	}
	p.registry.MustRegister(p.operations, p.latency, p.duplicates, p.pumpTicks, p.purged, p.denied, p.publishes)
	return p
}

// Registry returns the registry holding the workshop collectors.
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prom) ObserveOperation(op, status string, d time.Duration) {
	p.operations.WithLabelValues(op, status).Inc()
	p.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prom) IncDuplicateCompletion(op string) {
	p.duplicates.WithLabelValues(op).Inc()
}

func (p *Prom) IncPumpTick() {
	p.pumpTicks.Inc()
}

func (p *Prom) AddStalePurged(n int) {
	if n > 0 {
		p.purged.Add(float64(n))
	}
}

func (p *Prom) IncSafetyDenied(app workshop.AppID) {
	p.denied.WithLabelValues(strconv.FormatUint(uint64(app), 10)).Inc()
}

func (p *Prom) IncPublish(variant workshop.Variant, status string) {
	p.publishes.WithLabelValues(string(variant), status).Inc()
}

// Handler returns an HTTP handler for /metrics.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// WriteToTextfile writes the current values in the text exposition format,
// for collection by a node exporter textfile collector.
func (p *Prom) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
