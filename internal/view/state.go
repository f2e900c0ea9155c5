package view

import (
	"errors"
	"slices"

	"github.com/bsvchal/strp/internal/services/leaderboard"
)

// Status is the lifecycle position of a leaderboard view.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusErrored Status = "errored"
)

// State is everything a leaderboard view renders from. It is a plain value:
// copies never share the Sellers backing array.
type State struct {
	Status     Status               `json:"status"`
	Sellers    []leaderboard.Seller `json:"sellers"`
	Processing bool                 `json:"processing"`
	Error      string               `json:"error,omitempty"`
	// Unavailable is set when the backend could not be reached at all, as
	// opposed to the backend answering with an error.
	Unavailable bool `json:"unavailable"`
}

// Event drives a State transition through Reduce.
type Event interface {
	event()
}

// FetchStarted is applied right before the one fetch of a view begins.
type FetchStarted struct{}

// FetchSucceeded carries the sellers of a settled fetch.
type FetchSucceeded struct {
	Sellers []leaderboard.Seller
}

// FetchFailed carries the error of a settled fetch.
type FetchFailed struct {
	Err error
}

func (FetchStarted) event()   {}
func (FetchSucceeded) event() {}
func (FetchFailed) event()    {}

// InitialState is the state of a view that has not been mounted.
func InitialState() State {
	return State{Status: StatusIdle, Sellers: []leaderboard.Seller{}}
}

// Reduce returns the state that follows s after e. Transitions are
// Idle -> Loading on FetchStarted, and Loading -> Ready or Errored when the
// fetch settles. Any other event leaves s unchanged.
func Reduce(s State, e Event) State {
	next := s.clone()

	switch ev := e.(type) {
	case FetchStarted:
		if s.Status != StatusIdle {
			return next
		}
		next.Status = StatusLoading
		next.Processing = true

	case FetchSucceeded:
		if s.Status != StatusLoading {
			return next
		}
		next.Status = StatusReady
		next.Processing = false
		next.Sellers = slices.Clone(ev.Sellers)
		if next.Sellers == nil {
			next.Sellers = []leaderboard.Seller{}
		}

	case FetchFailed:
		if s.Status != StatusLoading {
			return next
		}
		next.Status = StatusErrored
		next.Processing = false
		if ev.Err != nil {
			next.Error = ev.Err.Error()
			next.Unavailable = errors.Is(ev.Err, leaderboard.ErrTransport)
		}
	}

	return next
}

func (s State) clone() State {
	c := s
	c.Sellers = slices.Clone(s.Sellers)
	if c.Sellers == nil {
		c.Sellers = []leaderboard.Seller{}
	}
	return c
}
