// Package logging builds the slog logger the whole application logs through
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// App is the value of the "app" attribute every record carries
const App = "lanshare"

// ParseLevel converts DEBUG, INFO, WARN or ERROR in any case, anything else is INFO
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing to w, format is "json" or the colored text format of tint.
// On DEBUG the source location is added to every record.
func New(w io.Writer, level, format string) *slog.Logger {
	logLevel := ParseLevel(level)
	addSource := logLevel == slog.LevelDebug

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			AddSource:  addSource,
			Level:      logLevel,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler).With("app", App)
}
