// Package metrics exposes the advisor's Prometheus instrumentation,
// trimmed to the counters and histograms a selection engine run
// actually produces: oracle round-trips, rounds completed, and
// indexes accepted/evicted.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "indexadvisor"

// Recorder collects run-level metrics for a single advisor invocation.
type Recorder struct {
	oracleCalls     *prometheus.CounterVec
	oracleDuration  *prometheus.HistogramVec
	roundsRun       prometheus.Counter
	indexesAccepted prometheus.Counter
	indexesEvicted  prometheus.Counter
	bytesRetained   prometheus.Gauge
}

// New registers the advisor's metrics against the default Prometheus
// registerer. Safe to call once per process.
func New() *Recorder {
	return &Recorder{
		oracleCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "calls_total",
				Help:      "Total number of cost oracle round-trips, by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		oracleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "call_duration_seconds",
				Help:      "Cost oracle round-trip latency in seconds, by operation.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		roundsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rounds_total",
			Help:      "Total number of selection engine outer-loop rounds run.",
		}),
		indexesAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "indexes_accepted_total",
			Help:      "Total number of candidate indexes accepted into the working set.",
		}),
		indexesEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "indexes_evicted_total",
			Help:      "Total number of indexes evicted to satisfy the storage budget.",
		}),
		bytesRetained: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "retained_bytes",
			Help:      "Total estimated size in bytes of the currently retained index set.",
		}),
	}
}

// ObserveOracleCall records one oracle round-trip.
func (r *Recorder) ObserveOracleCall(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.oracleCalls.WithLabelValues(operation, status).Inc()
	r.oracleDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (r *Recorder) RoundCompleted()        { r.roundsRun.Inc() }
func (r *Recorder) IndexAccepted()         { r.indexesAccepted.Inc() }
func (r *Recorder) IndexEvicted()          { r.indexesEvicted.Inc() }
func (r *Recorder) SetRetainedBytes(n int64) { r.bytesRetained.Set(float64(n)) }
