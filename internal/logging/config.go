// Package logging wraps zap with context-aware helpers for memoryd.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format selects "json" or "console" output.
	Format string `koanf:"format"`

	// Development enables zap development behavior (DPanic panics).
	Development bool `koanf:"development"`

	// Fields are constant fields attached to every entry.
	Fields map[string]string `koanf:"fields"`
}

// NewDefaultConfig returns a production-oriented default configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("invalid format %q (must be json or console)", c.Format)
	}
	if _, err := parseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level %q: %w", c.Level, err)
	}
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// newEncoder creates a JSON or console encoder with ISO-8601 timestamps.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

func newCore(cfg *Config) (zapcore.Core, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return zapcore.NewCore(
		newEncoder(cfg.Format),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	), nil
}
