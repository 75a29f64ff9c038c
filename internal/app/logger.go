package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production deployments and an
// explicit LOG_FORMAT=json get JSON output, everything else stays
// human-readable text.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
