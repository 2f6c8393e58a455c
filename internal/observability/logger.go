package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the JSON logger every binary writes to stdout, tagged
// with the binary's service name. dev logs at debug level.
func NewLogger(env, service string) *slog.Logger {
	return newLogger(os.Stdout, env, service)
}

func newLogger(w io.Writer, env, service string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "dev" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	return slog.New(NewTraceHandler(slog.NewJSONHandler(w, opts))).
		With(slog.String("service", service), slog.String("env", env))
}
