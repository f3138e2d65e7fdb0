// Package logging provides configurable slog.Logger construction.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Format     string `yaml:"format" toml:"format"`         // "text" or "json" (default: "json")
	Level      string `yaml:"level" toml:"level"`           // "debug", "info", "warn", "error" (default: "info")
	TimeFormat string `yaml:"timeFormat" toml:"timeFormat"` // "rfc3339", "rfc3339nano", "unix", "unixmilli"
	AddSource  bool   `yaml:"addSource" toml:"addSource"`
	// File, when set, sends output to a rotating log file instead of stdout.
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" toml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups" toml:"maxBackups"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger creates a configured *slog.Logger from LogConfig. The returned
// io.Closer flushes and closes the log file, if any.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer) {
	if cfg.File == "" {
		return slog.New(newHandler(cfg, os.Stdout)), nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     28,
	}
	return slog.New(newHandler(cfg, lj)), lj
}

func newHandler(cfg LogConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	switch cfg.Format {
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		opts.ReplaceAttr = timeFormatter(cfg.TimeFormat)
		return slog.NewJSONHandler(w, opts)
	}
}

// ParseLevel converts a string to slog.Level. Defaults to Info on error.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func timeFormatter(format string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) != 0 || a.Key != slog.TimeKey {
			return a
		}
		t, ok := a.Value.Any().(time.Time)
		if !ok {
			return a
		}
		switch format {
		case "rfc3339":
			a.Value = slog.StringValue(t.Format(time.RFC3339))
		case "unix":
			a = slog.Int64(a.Key, t.Unix())
		case "unixmilli":
			a = slog.Int64(a.Key, t.UnixMilli())
		}
		return a
	}
}
