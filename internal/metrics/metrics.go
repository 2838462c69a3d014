package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// CyclesTotal counts finished capture cycles by result: "ready" or a failure kind.
	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipecam",
		Subsystem: "capture",
		Name:      "cycles_total",
		Help:      "Total number of finished capture cycles, labeled by result.",
	}, []string{"result"})

	StepDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recipecam",
		Subsystem: "capture",
		Name:      "step_duration_seconds",
		Help:      "Time spent in each capture step, including retries.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"step"})

	RetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipecam",
		Subsystem: "capture",
		Name:      "retries_total",
		Help:      "Total number of retried network steps.",
	}, []string{"step"})

	CycleInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "recipecam",
		Subsystem: "capture",
		Name:      "in_flight",
		Help:      "1 while a capture cycle is running.",
	})

	BusyRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "recipecam",
		Subsystem: "capture",
		Name:      "busy_rejections_total",
		Help:      "Captures rejected because another cycle was in flight.",
	})

	NarrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipecam",
		Subsystem: "playback",
		Name:      "narrations_total",
		Help:      "Server-side narrations by result.",
	}, []string{"result"})
)

// Register registers recipecam metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			CyclesTotal,
			StepDurationSeconds,
			RetriesTotal,
			CycleInFlight,
			BusyRejectionsTotal,
			NarrationsTotal,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
