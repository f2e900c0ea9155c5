package leaderboard

import (
	"context"
	"errors"
)

// Seller is one ranked fan as reported by the leaderboard backend.
type Seller struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Email  string  `json:"email"`
}

// DataSource returns the current leaderboard. The order of the returned
// sellers is the display order.
type DataSource interface {
	FetchLeaders(ctx context.Context) ([]Seller, error)
}

// ErrTransport marks failures to reach the backend or to read its body.
var ErrTransport = errors.New("leaderboard transport failure")

// BackendError is an error the backend reported in its response body.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

// DataSourceFunc adapts a function to the DataSource interface.
type DataSourceFunc func(ctx context.Context) ([]Seller, error)

func (f DataSourceFunc) FetchLeaders(ctx context.Context) ([]Seller, error) {
	return f(ctx)
}
