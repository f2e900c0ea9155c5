package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsvchal/strp/internal/services/leaderboard"
	"github.com/bsvchal/strp/pkg/metrics"
	"go.uber.org/zap"
)

// ErrRegistryClosed is returned by Acquire after Close.
var ErrRegistryClosed = errors.New("view registry closed")

type registryEntry struct {
	view     *View
	lastSeen time.Time
}

// Registry keeps one mounted view per browser session and unmounts views
// that have not been rendered for longer than the idle timeout.
type Registry struct {
	source      leaderboard.DataSource
	logger      *zap.Logger
	metrics     *metrics.Leaderboard
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	views  map[string]*registryEntry
	closed bool
}

// NewRegistry creates a registry and starts its idle janitor. A nil m
// disables metrics.
func NewRegistry(source leaderboard.DataSource, idleTimeout time.Duration, logger *zap.Logger, m *metrics.Leaderboard) *Registry {
	if m == nil {
		m = metrics.NewLeaderboard(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		source:      source,
		logger:      logger,
		metrics:     m,
		idleTimeout: idleTimeout,
		ctx:         ctx,
		cancel:      cancel,
		views:       make(map[string]*registryEntry),
	}

	r.wg.Add(1)
	go r.janitor()

	return r
}

// Acquire returns the view mounted for sessionID, mounting a new one on the
// first call for that session.
func (r *Registry) Acquire(sessionID string) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	if e, ok := r.views[sessionID]; ok {
		e.lastSeen = time.Now()
		return e.view, nil
	}

	v := New(r.source, r.logger.With(zap.String("session_id", sessionID)), r.metrics)
	r.views[sessionID] = &registryEntry{view: v, lastSeen: time.Now()}
	r.metrics.MountedViews.Inc()
	v.Mount(r.ctx)

	return v, nil
}

// Release unmounts the view of sessionID. It reports whether one existed.
func (r *Registry) Release(sessionID string) bool {
	r.mu.Lock()
	e, ok := r.views[sessionID]
	if ok {
		delete(r.views, sessionID)
		r.metrics.MountedViews.Dec()
	}
	r.mu.Unlock()

	if ok {
		e.view.Close()
	}
	return ok
}

// Len returns the number of mounted views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close stops the janitor and unmounts every view.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	views := r.views
	r.views = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range views {
		e.view.Close()
		r.metrics.MountedViews.Dec()
	}

	r.cancel()
	r.wg.Wait()
}

func (r *Registry) janitor() {
	defer r.wg.Done()

	interval := r.idleTimeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(time.Now()); n > 0 {
				r.logger.Debug("Unmounted idle leaderboard views", zap.Int("count", n))
			}
		}
	}
}

// sweep unmounts views idle for longer than the idle timeout as of now and
// returns how many it removed.
func (r *Registry) sweep(now time.Time) int {
	cutoff := now.Add(-r.idleTimeout)

	r.mu.Lock()
	var stale []*View
	for id, e := range r.views {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.view)
			delete(r.views, id)
			r.metrics.MountedViews.Dec()
		}
	}
	r.mu.Unlock()

	for _, v := range stale {
		v.Close()
	}
	return len(stale)
}
