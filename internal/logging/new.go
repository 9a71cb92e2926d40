package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	BackendSlog    = "slog"
	BackendZerolog = "zerolog"

	FormatText = "text"
	FormatJSON = "json"
)

// New builds a Logger writing to w.
//
// backend is "slog" or "zerolog"; format is "text" or "json" (zerolog "text"
// uses its console writer); level is one of debug, info, warn, error.
func New(backend, format, level string, w io.Writer) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(backend) {
	case "", BackendSlog:
		opts := &slog.HandlerOptions{Level: lvl}
		switch strings.ToLower(format) {
		case "", FormatText:
			return NewSlogLogger(slog.New(slog.NewTextHandler(w, opts))), nil
		case FormatJSON:
			return NewSlogLogger(slog.New(slog.NewJSONHandler(w, opts))), nil
		}
		return nil, fmt.Errorf("unknown log format %q", format)

	case BackendZerolog:
		out := w
		switch strings.ToLower(format) {
		case "", FormatText:
			out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
		case FormatJSON:
		default:
			return nil, fmt.Errorf("unknown log format %q", format)
		}
		zl := zerolog.New(out).Level(toZerologLevel(lvl)).With().Timestamp().Logger()
		return NewZerologLogger(zl), nil
	}

	return nil, fmt.Errorf("unknown log backend %q", backend)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}

func toZerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l <= slog.LevelInfo:
		return zerolog.InfoLevel
	case l <= slog.LevelWarn:
		return zerolog.WarnLevel
	}
	return zerolog.ErrorLevel
}
