package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bsvchal/strp/internal/services/leaderboard"
	"github.com/bsvchal/strp/pkg/config"
	"github.com/bsvchal/strp/pkg/metrics"
	"go.uber.org/zap/zaptest"
)

// getFreePort returns a free TCP port for testing.
func getFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func getTestConfig(t *testing.T) config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Host:              "localhost",
			Port:              getFreePort(t),
			CORSAllowOrigins:  "*",
			RateLimitMax:      10000,
			RateLimitDuration: time.Minute,
		},
		Leaders: config.LeadersConfig{
			APIBaseURL: "http://127.0.0.1:4242",
			Timeout:    time.Second,
		},
		View: config.ViewConfig{
			RefreshInterval: time.Second,
			IdleTimeout:     time.Hour,
		},
	}
}

func emptySource() leaderboard.DataSource {
	return leaderboard.DataSourceFunc(func(ctx context.Context) ([]leaderboard.Seller, error) {
		return []leaderboard.Seller{}, nil
	})
}

func TestNewServer(t *testing.T) {
	srv := New(getTestConfig(t), zaptest.NewLogger(t), emptySource(), nil)
	if srv == nil {
		t.Fatal("Expected server instance, got nil")
	}
	defer srv.Shutdown(context.Background())
}

func TestHealthEndpoint(t *testing.T) {
	cfg := getTestConfig(t)
	srv := New(cfg, zaptest.NewLogger(t), emptySource(), nil)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Errorf("Server failed: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	srv := New(getTestConfig(t), zaptest.NewLogger(t), emptySource(), reg)
	defer srv.Shutdown(context.Background())

	// mount one view so the leaderboard gauge has a value
	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to make leaderboard request: %v", err)
	}
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err = srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to make metrics request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "leaderboard_views_mounted 1") {
		t.Errorf("Expected one mounted view in metrics output")
	}
}

func TestMetricsEndpointDisabledWithoutRegistry(t *testing.T) {
	srv := New(getTestConfig(t), zaptest.NewLogger(t), emptySource(), nil)
	defer srv.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

const testOrigin = "https://fans.example.com"

func TestCORSHeaders(t *testing.T) {
	cfg := getTestConfig(t)
	cfg.Server.CORSAllowOrigins = testOrigin
	srv := New(cfg, zaptest.NewLogger(t), emptySource(), nil)
	defer srv.Shutdown(context.Background())

	for _, path := range []string{"/health", "/leaderboard", "/leaderboard/state"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Origin", testOrigin)
		resp, err := srv.App().Test(req, -1)
		if err != nil {
			t.Fatalf("Failed to make request to %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testOrigin {
			t.Errorf("%s: expected Access-Control-Allow-Origin %q, got %q", path, testOrigin, got)
		}
	}
}

func TestLeaderboardRateLimited(t *testing.T) {
	cfg := getTestConfig(t)
	cfg.Server.CORSAllowOrigins = testOrigin
	cfg.Server.RateLimitMax = 2
	srv := New(cfg, zaptest.NewLogger(t), emptySource(), nil)
	defer srv.Shutdown(context.Background())

	wantStatus := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, want := range wantStatus {
		req := httptest.NewRequest(http.MethodGet, "/leaderboard/state", nil)
		req.Header.Set("Origin", testOrigin)
		resp, err := srv.App().Test(req, -1)
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("Failed to read body of request %d: %v", i, err)
		}

		if resp.StatusCode != want {
			t.Errorf("Request %d: expected status %d, got %d", i, want, resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testOrigin {
			t.Errorf("Request %d: expected Access-Control-Allow-Origin %q, got %q", i, testOrigin, got)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			continue
		}

		var payload map[string]string
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("Expected JSON error body, got %q: %v", body, err)
		}
		if payload["error"] != "Too many requests" {
			t.Errorf("Unexpected error message: %q", payload["error"])
		}
	}

	// the limit only covers the leaderboard group
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to make health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected /health to stay unlimited, got %d", resp.StatusCode)
	}
}
