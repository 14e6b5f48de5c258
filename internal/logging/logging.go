package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Base builds the service logger writing to stderr.
// format: json|console; level: trace|debug|info|warn|error|disabled.
func Base(app, level, format string) zerolog.Logger {
	return New(os.Stderr, app, level, format)
}

// New builds a logger writing to w.
func New(w io.Writer, app, level, format string) zerolog.Logger {
	return zerolog.New(writerForFormat(w, format)).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", app).
		Logger()
}

// ParseLevel converts a level name, falling back to info.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}

	if lvl, err := zerolog.ParseLevel(s); err == nil && s != "" {
		return lvl
	}

	return zerolog.InfoLevel
}

// WithComponent returns a context whose logger tags entries with component.
func WithComponent(ctx context.Context, component string) context.Context {
	logger := zerolog.Ctx(ctx).With().Str("component", component).Logger()

	return logger.WithContext(ctx)
}

func writerForFormat(w io.Writer, format string) io.Writer {
	if strings.ToLower(format) == "console" {
		return zerolog.ConsoleWriter{Out: w}
	}

	return w
}
