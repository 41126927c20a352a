// Package log configures structured logging for the console and its components.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a textual level to a slog level. Unknown values fall back to info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
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

// Setup installs the default text logger on stderr.
func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})))
}

// WithModule returns the default logger scoped to a module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

// OrDefault scopes logger to module, falling back to the default logger when nil.
func OrDefault(logger *slog.Logger, module string) *slog.Logger {
	if logger == nil {
		return WithModule(module)
	}

	return logger.With("module", module)
}
