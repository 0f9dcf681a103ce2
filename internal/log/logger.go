package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"natours/api/internal/config"
)

// New builds the process logger for service ("natours-api", "natours-import").
// Production defaults to JSON at info, everything else to a console writer at debug;
// cfg overrides either.
func New(service, environment string, cfg config.LogConfig) zerolog.Logger {
	return newLogger(os.Stdout, service, environment, cfg)
}

func newLogger(w io.Writer, service, environment string, cfg config.LogConfig) zerolog.Logger {
	production := environment == "production"

	format := cfg.Format
	if format == "" {
		format = "console"
		if production {
			format = "json"
		}
	}
	out := w
	if format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    production,
		}
	}

	level := zerolog.DebugLevel
	if production {
		level = zerolog.InfoLevel
	}
	if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		level = parsed
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("env", environment).
		Logger()
}
