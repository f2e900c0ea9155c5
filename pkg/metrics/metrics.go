package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Fetch outcome label values.
const (
	OutcomeSuccess        = "success"
	OutcomeBackendError   = "backend_error"
	OutcomeTransportError = "transport_error"
	OutcomeCanceled       = "canceled"
)

// Leaderboard groups the collectors the leaderboard views report to.
type Leaderboard struct {
	Fetches       *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	MountedViews  prometheus.Gauge
}

// NewRegistry returns a registry with the Go runtime and process collectors
// already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewLeaderboard creates the leaderboard collectors and registers them on reg.
// A nil reg leaves them unregistered, which is what tests usually want.
func NewLeaderboard(reg prometheus.Registerer) *Leaderboard {
	m := &Leaderboard{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_fetches_total",
			Help: "Leaderboard fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leaderboard_fetch_duration_seconds",
			Help:    "Time until a leaderboard fetch settled.",
			Buckets: prometheus.DefBuckets,
		}),
		MountedViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leaderboard_views_mounted",
			Help: "Leaderboard views currently mounted.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Fetches, m.FetchDuration, m.MountedViews)
	}
	return m
}
