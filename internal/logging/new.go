package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

// Output formats accepted by New.
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatConsole = "console"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New builds a Logger writing to w. "json" and "text" use log/slog handlers;
// "console" uses zerolog's human-readable console writer. Unknown formats fall
// back to JSON and unknown levels to info.
func New(w io.Writer, format, level string) Logger {
	switch strings.ToLower(format) {
	case FormatConsole:
		zl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil || zl == zerolog.NoLevel {
			zl = zerolog.InfoLevel
		}
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
		return NewZerologLogger(zerolog.New(cw).Level(zl).With().Timestamp().Logger())
	case FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})))
	default:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})))
	}
}

func slogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
