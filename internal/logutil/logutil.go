package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type ConfigReader interface {
	GetString(string) string
	GetBool(string) bool
}

type LoggerConfig struct {
	Level     string
	Format    string
	AddSource bool
}

func LoggerConfigFromReader(r ConfigReader) LoggerConfig {
	if r == nil {
		return LoggerConfig{}
	}
	return LoggerConfig{
		Level:     r.GetString("logging.level"),
		Format:    r.GetString("logging.format"),
		AddSource: r.GetBool("logging.add_source"),
	}
}

func LoggerFromViper() (*slog.Logger, error) {
	return NewLogger(LoggerConfigFromReader(viper.GetViper()), os.Stderr)
}

// Builds a text or JSON slog.Logger writing to w.
func NewLogger(cfg LoggerConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseSlogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown logging.format: %s", cfg.Format)
	}

	return slog.New(h), nil
}

func parseSlogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown logging.level: %s", s)
	}
}
