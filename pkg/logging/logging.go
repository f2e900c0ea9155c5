package logging

import (
	"strings"

	"github.com/bsvchal/strp/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap.Logger from the log settings. JSON output with
// ISO8601 timestamps is the default; Encoding "console" switches to the
// colored development encoder. An unknown Level falls back to info.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config

	if strings.EqualFold(cfg.Encoding, "console") {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	return zc.Build()
}

func parseLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zapcore.InfoLevel
	}
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
