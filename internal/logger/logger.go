package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/huanlingzx/gemini-key/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a new slog.Logger instance that writes to os.Stdout.
// If debug is true, the log level is set to Debug. Otherwise, it's set to Info.
func New(debug bool) *slog.Logger {
	return NewWithWriter(os.Stdout, debug)
}

// NewFromConfig creates a logger that writes to os.Stdout and, when a log
// file is configured, also to a size-rotated file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, io.Closer) {
	if cfg.Log.File == "" {
		return New(cfg.Debug), io.NopCloser(nil)
	}
	file := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	}
	return NewWithWriter(io.MultiWriter(os.Stdout, file), cfg.Debug), file
}

// NewWithWriter creates a new slog.Logger instance with a specific writer.
func NewWithWriter(w io.Writer, debug bool) *slog.Logger {
	var level slog.Level
	if debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// KeySuffix returns the last 4 characters of a key, or the full key if it's shorter.
func KeySuffix(key string) string {
	if len(key) > 4 {
		return key[len(key)-4:]
	}
	return key
}
