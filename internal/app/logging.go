package app

import (
	"io"
	"log/slog"
	"strings"

	"github.com/nhle/po-intake/internal/model"
)

// NewLogger builds the process logger: a text handler unless the format
// is "json", at the configured level, or debug when verbose.
func NewLogger(cfg model.LogConfig, verbose bool, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
