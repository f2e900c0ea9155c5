package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	Leaders LeadersConfig
	View    ViewConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string
	Port              int
	CORSAllowOrigins  string
	RateLimitMax      int
	RateLimitDuration time.Duration
}

// LeadersConfig points at the backend that serves the ranked seller list.
type LeadersConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

// ViewConfig controls the lifetime and re-render cadence of mounted views.
type ViewConfig struct {
	RefreshInterval time.Duration
	IdleTimeout     time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string
	Encoding string
}

// LoadConfig loads configuration from environment variables and defaults.
// Environment variables should be uppercase with underscores, e.g., LEADERS_API_BASE_URL.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:              v.GetString("server_host"),
			Port:              v.GetInt("server_port"),
			CORSAllowOrigins:  v.GetString("server_cors_allow_origins"),
			RateLimitMax:      v.GetInt("server_rate_limit_max"),
			RateLimitDuration: v.GetDuration("server_rate_limit_duration"),
		},
		Leaders: LeadersConfig{
			APIBaseURL: v.GetString("leaders_api_base_url"),
			Timeout:    v.GetDuration("leaders_timeout"),
		},
		View: ViewConfig{
			RefreshInterval: v.GetDuration("view_refresh_interval"),
			IdleTimeout:     v.GetDuration("view_idle_timeout"),
		},
		Log: LogConfig{
			Level:    v.GetString("log_level"),
			Encoding: v.GetString("log_encoding"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Leaders.APIBaseURL)
	if err != nil {
		return fmt.Errorf("LEADERS_API_BASE_URL is invalid: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("LEADERS_API_BASE_URL must be an absolute http(s) URL, got %q", c.Leaders.APIBaseURL)
	}
	if c.Server.RateLimitMax <= 0 || c.Server.RateLimitDuration <= 0 {
		return fmt.Errorf("SERVER_RATE_LIMIT_MAX and SERVER_RATE_LIMIT_DURATION must be positive")
	}
	if c.Leaders.Timeout <= 0 {
		return fmt.Errorf("LEADERS_TIMEOUT must be positive")
	}
	if c.View.RefreshInterval <= 0 {
		return fmt.Errorf("VIEW_REFRESH_INTERVAL must be positive")
	}
	if c.View.IdleTimeout <= 0 {
		return fmt.Errorf("VIEW_IDLE_TIMEOUT must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_cors_allow_origins", "*")
	v.SetDefault("server_rate_limit_max", 120)
	v.SetDefault("server_rate_limit_duration", time.Minute)

	// Backend the leaderboard is read from
	v.SetDefault("leaders_api_base_url", "http://127.0.0.1:4242")
	v.SetDefault("leaders_timeout", 10*time.Second)

	// View defaults
	v.SetDefault("view_refresh_interval", time.Second)
	v.SetDefault("view_idle_timeout", 30*time.Minute)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
}

func bindEnv(v *viper.Viper) {
	// Server
	_ = v.BindEnv("server_host", "SERVER_HOST")
	_ = v.BindEnv("server_port", "SERVER_PORT")
	_ = v.BindEnv("server_cors_allow_origins", "SERVER_CORS_ALLOW_ORIGINS")
	_ = v.BindEnv("server_rate_limit_max", "SERVER_RATE_LIMIT_MAX")
	_ = v.BindEnv("server_rate_limit_duration", "SERVER_RATE_LIMIT_DURATION")

	// Leaders backend
	_ = v.BindEnv("leaders_api_base_url", "LEADERS_API_BASE_URL")
	_ = v.BindEnv("leaders_timeout", "LEADERS_TIMEOUT")

	// View
	_ = v.BindEnv("view_refresh_interval", "VIEW_REFRESH_INTERVAL")
	_ = v.BindEnv("view_idle_timeout", "VIEW_IDLE_TIMEOUT")

	// Logging
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("log_encoding", "LOG_ENCODING")
}
