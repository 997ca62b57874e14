package pipeline

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecast_runs_total",
			Help: "Forecast runs by outcome.",
		},
		[]string{"outcome"},
	)
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forecast_run_duration_seconds",
			Help:    "Duration of forecast runs, successful or not.",
			Buckets: prometheus.DefBuckets,
		},
	)
	rejectedStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecast_run_rejected_total",
			Help: "Run requests rejected because a run was in flight.",
		},
	)
)

func init() { prometheus.MustRegister(runsTotal, runDuration, rejectedStarts) }

// outcome labels a result for runsTotal.
func outcome(res Result) string {
	switch {
	case res.Success:
		return "success"
	case errors.Is(res.Err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(res.Err, ErrPersist):
		return "persist_failure"
	default:
		return "transport_failure"
	}
}
