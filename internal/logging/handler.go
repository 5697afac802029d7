// Package logging builds the process slog.Handler from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Formats accepted by NewHandler.
const (
	FormatAuto   = "auto"
	FormatJSON   = "json"
	FormatText   = "text"
	FormatPretty = "pretty"
)

// ParseLevel maps a config level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewHandler returns a handler writing to out in the given format.
// FormatAuto resolves to pretty output when out is a terminal and JSON otherwise.
func NewHandler(out io.Writer, format string, level slog.Level) slog.Handler {
	if format == FormatAuto || format == "" {
		format = FormatJSON
		if isTerminal(out) {
			format = FormatPretty
		}
	}

	switch format {
	case FormatPretty:
		return tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(out),
		})
	case FormatText:
		return slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	default:
		return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}
}

// Setup installs a logger built from level and format as the slog default.
func Setup(out io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := slog.New(NewHandler(out, format, lvl))
	slog.SetDefault(logger)
	return logger, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
