package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide structured logger. Deployments that
// ship logs set LOG_FORMAT=json; any other value gets the readable text
// handler, which is what local development wants.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
