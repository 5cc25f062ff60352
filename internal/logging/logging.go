// Package logging configures structured JSON logging for ephemeris.
//
// Log records go to a size-rotated file under ~/.ephemeris/logs by
// default so CLI stdout stays clean for command output. Debug mode
// mirrors records to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where log records go and at what level.
type Config struct {
	Level         string // debug, info, warn, error
	FilePath      string // empty disables file logging
	MaxSizeMB     int    // rotation threshold
	MaxFiles      int    // rotated files kept
	WriteToStderr bool   // mirror records to stderr
}

// DefaultConfig logs info and above to the default file path.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// Setup builds a logger from cfg. The returned cleanup flushes and
// closes the log file; it is safe to call when no file was opened.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	if cfg.FilePath == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), func() {}, nil
	}

	rw, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var sink io.Writer = rw
	if cfg.WriteToStderr {
		sink = io.MultiWriter(rw, os.Stderr)
	}

	cleanup := func() {
		_ = rw.Sync()
		_ = rw.Close()
	}
	return slog.New(slog.NewJSONHandler(sink, opts)), cleanup, nil
}

// SetupDefault builds a logger from cfg and installs it as the process
// default. The returned cleanup closes the log file.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
