// Package logger builds the zerolog logger shared by the server, the store
// and the migrate command.
package logger

import (
	"io"
	"os"
	"time"

	"issuetracker/config"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr. Console format is meant for local
// development; json is what production log shippers expect.
func New(cfg config.LogConfig, env string) zerolog.Logger {
	return NewWithWriter(cfg, env, os.Stderr)
}

func NewWithWriter(cfg config.LogConfig, env string, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	w := out
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "issuetracker").
		Str("env", env).
		Logger()
}
