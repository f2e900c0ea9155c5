package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/bsvchal/strp/pkg/config"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type httpDataSource struct {
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// leadersResponse is the body of GET /leaders. Error is kept raw because the
// backend is free to send a string or a structured value.
type leadersResponse struct {
	Error   json.RawMessage `json:"error"`
	Sellers []Seller        `json:"sellers"`
}

type agentResult struct {
	code int
	body []byte
	errs []error
}

// NewHTTPDataSource returns a DataSource that reads GET <APIBaseURL>/leaders.
func NewHTTPDataSource(cfg config.LeadersConfig, logger *zap.Logger) (DataSource, error) {
	endpoint, err := url.JoinPath(cfg.APIBaseURL, "leaders")
	if err != nil {
		return nil, fmt.Errorf("failed to build leaders endpoint: %w", err)
	}
	return &httpDataSource{
		endpoint: endpoint,
		timeout:  cfg.Timeout,
		logger:   logger,
	}, nil
}

func (s *httpDataSource) FetchLeaders(ctx context.Context) ([]Seller, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch leaders: %w", err)
	}

	// fiber's Agent has no context support, so the request runs on its own
	// goroutine and is abandoned if ctx ends first. The agent timeout bounds it.
	done := make(chan agentResult, 1)
	go func() {
		agent := fiber.Get(s.endpoint)
		agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
		if s.timeout > 0 {
			agent.Timeout(s.timeout)
		}
		code, body, errs := agent.Bytes()
		done <- agentResult{code: code, body: body, errs: errs}
	}()

	var res agentResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch leaders: %w", ctx.Err())
	case res = <-done:
	}

	if len(res.errs) > 0 {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, s.endpoint, errors.Join(res.errs...))
	}

	s.logger.Debug("Leaders response received",
		zap.String("endpoint", s.endpoint),
		zap.Int("status", res.code),
		zap.Int("bytes", len(res.body)),
	)

	return decodeLeaders(res.code, res.body)
}

// decodeLeaders interprets a /leaders body. The body must be a JSON object.
// The error field decides the outcome; the status code only matters when the
// body carries no error.
func decodeLeaders(code int, body []byte) ([]Seller, error) {
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: leaders body is not a JSON object (status %d)", ErrTransport, code)
	}

	var resp leadersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid leaders body (status %d): %w", ErrTransport, code, err)
	}

	if msg, ok := errorMessage(resp.Error); ok {
		return nil, &BackendError{Message: msg}
	}

	if code >= fiber.StatusBadRequest {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransport, code)
	}

	if resp.Sellers == nil {
		return []Seller{}, nil
	}
	return resp.Sellers, nil
}

func errorMessage(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg, true
	}
	return string(raw), true
}
