package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Setup creates a configured *slog.Logger, sets it as the default, and returns it.
// Unrecognized level strings fall back to info.
func Setup(level string) *slog.Logger {
	lvl, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
