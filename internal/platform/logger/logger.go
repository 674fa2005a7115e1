// Package logger builds the process-wide *slog.Logger.
package logger

import (
	"io"
	"log/slog"
	"strings"

	"newsletter/internal/platform/config"
	"newsletter/pkg/platform/secret"
)

// New returns a JSON (default) or text logger writing to w. Attributes whose
// key mentions "email" are masked. Callers pass "request_id" themselves.
func New(w io.Writer, cfg config.LogSettings) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.Level),
		ReplaceAttr: redactEmails,
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

func redactEmails(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString && strings.Contains(strings.ToLower(a.Key), "email") {
		a.Value = slog.StringValue(secret.RedactEmail(a.Value.String()))
	}
	return a
}
