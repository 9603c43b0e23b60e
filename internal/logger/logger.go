package logger

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/0xDTC/0xGodaddy/internal/config"
)

// Configure installs the process-wide logger. Dev environments get a
// colorized console handler, everything else gets JSON. Logs go to
// stderr so the run summary on stdout stays clean. The debug flag
// overrides the configured level.
func Configure(cfg config.Log, debug bool) {
	level := parseLogLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	w := os.Stderr
	var handler slog.Handler
	if cfg.Env == "dev" || cfg.Env == "development" {
		handler = tint.NewHandler(w, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
