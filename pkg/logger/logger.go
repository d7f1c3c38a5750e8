package logger

import (
	"log/slog"
	"os"
	"strings"
)

var root *slog.Logger

// Init configures the process-wide logger. Production gets JSON at info,
// everything else text at debug. LOG_LEVEL overrides the level either way.
func Init(env string) {
	opts := &slog.HandlerOptions{Level: levelFromEnv(env)}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	root = slog.New(handler)
	slog.SetDefault(root)
}

// L returns the process logger, initializing a development one on first
// use so callers never hold nil.
func L() *slog.Logger {
	if root == nil {
		Init("development")
	}
	return root
}

func levelFromEnv(env string) slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
