// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/byteowlz/subtxt/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level string
	// File receives log output instead of stderr when set.
	File    string
	Verbose bool
	Quiet   bool
	// Writer overrides the destination; File is ignored when set.
	Writer io.Writer
}

// New constructs a text slog logger. The returned close function releases
// the log file, if one was opened.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := ParseLevel(opts.Level)
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelError
	}

	closer := func() error { return nil }
	w := opts.Writer
	if w == nil {
		w = os.Stderr
		if path := strings.TrimSpace(opts.File); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, nil, fmt.Errorf("ensure log directory: %w", err)
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("open log file: %w", err)
			}
			w = f
			closer = f.Close
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(handler), closer, nil
}

// NewFromConfig creates a logger from the [logging] section plus the CLI
// verbosity flags.
func NewFromConfig(cfg *config.Config, verbose, quiet bool) (*slog.Logger, func() error, error) {
	opts := Options{Verbose: verbose, Quiet: quiet}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.File = cfg.Logging.File
	}
	return New(opts)
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
