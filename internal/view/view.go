package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsvchal/strp/internal/services/leaderboard"
	"github.com/bsvchal/strp/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// View is one mounted leaderboard. It fetches the leaderboard once, on
// Mount, and every later read of its state is a re-render of that result.
type View struct {
	id      string
	source  leaderboard.DataSource
	logger  *zap.Logger
	metrics *metrics.Leaderboard

	mu      sync.Mutex
	state   State
	mounted bool
	closed  bool
	cancel  context.CancelFunc
	settled chan struct{}
}

// New creates an unmounted view. A nil m disables metrics.
func New(source leaderboard.DataSource, logger *zap.Logger, m *metrics.Leaderboard) *View {
	if m == nil {
		m = metrics.NewLeaderboard(nil)
	}
	id := uuid.NewString()
	return &View{
		id:      id,
		source:  source,
		logger:  logger.With(zap.String("view_id", id)),
		metrics: m,
		state:   InitialState(),
		settled: make(chan struct{}),
	}
}

// ID returns the view's unique identifier.
func (v *View) ID() string {
	return v.id
}

// Mount starts the view's single fetch and returns without waiting for it.
// Only the first call on an open view has any effect.
func (v *View) Mount(ctx context.Context) {
	v.mu.Lock()
	if v.mounted || v.closed {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.state = Reduce(v.state, FetchStarted{})
	v.mu.Unlock()

	v.logger.Debug("Leaderboard view mounted")
	go v.fetch(fetchCtx)
}

func (v *View) fetch(ctx context.Context) {
	defer close(v.settled)

	start := time.Now()
	sellers, err := v.source.FetchLeaders(ctx)
	v.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		v.metrics.Fetches.WithLabelValues(metrics.OutcomeCanceled).Inc()
		v.logger.Debug("Discarding leaderboard result for closed view")
		return
	}

	if err != nil {
		v.metrics.Fetches.WithLabelValues(outcomeOf(err)).Inc()
		v.logger.Error("Failed to fetch leaderboard", zap.Error(err))
		v.state = Reduce(v.state, FetchFailed{Err: err})
		return
	}

	v.metrics.Fetches.WithLabelValues(metrics.OutcomeSuccess).Inc()
	v.logger.Debug("Leaderboard loaded", zap.Int("sellers", len(sellers)))
	v.state = Reduce(v.state, FetchSucceeded{Sellers: sellers})
}

// State returns a snapshot of the view's state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

// Settled is closed once the fetch started by Mount has finished, whether
// its result was applied or discarded.
func (v *View) Settled() <-chan struct{} {
	return v.settled
}

// Close unmounts the view. An in-flight fetch is canceled and its result,
// if it still arrives, is dropped. Close is safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	cancel := v.cancel
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	v.logger.Debug("Leaderboard view closed")
}

func outcomeOf(err error) string {
	var backendErr *leaderboard.BackendError
	switch {
	case errors.As(err, &backendErr):
		return metrics.OutcomeBackendError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeTransportError
	}
}
