package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewLeaderboardRegistersCollectors(t *testing.T) {
	reg := NewRegistry()
	m := NewLeaderboard(reg)

	m.Fetches.WithLabelValues(OutcomeSuccess).Inc()
	m.Fetches.WithLabelValues(OutcomeBackendError).Add(2)
	m.MountedViews.Set(3)
	m.FetchDuration.Observe(0.25)

	if got := testutil.ToFloat64(m.Fetches.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("Expected 1 successful fetch, got %v", got)
	}
	if got := testutil.ToFloat64(m.Fetches.WithLabelValues(OutcomeBackendError)); got != 2 {
		t.Errorf("Expected 2 backend errors, got %v", got)
	}
	if got := testutil.ToFloat64(m.MountedViews); got != 3 {
		t.Errorf("Expected 3 mounted views, got %v", got)
	}

	count, err := testutil.GatherAndCount(reg,
		"leaderboard_fetches_total",
		"leaderboard_fetch_duration_seconds",
		"leaderboard_views_mounted",
	)
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	// two label values on the counter, one histogram, one gauge
	if count != 4 {
		t.Errorf("Expected 4 series, got %d", count)
	}
}

func TestNewLeaderboardWithoutRegistry(t *testing.T) {
	m := NewLeaderboard(nil)
	m.Fetches.WithLabelValues(OutcomeCanceled).Inc()
	if got := testutil.ToFloat64(m.Fetches.WithLabelValues(OutcomeCanceled)); got != 1 {
		t.Errorf("Expected 1 canceled fetch, got %v", got)
	}
}
