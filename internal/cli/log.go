// Package cli implements the livegraph command-line interface.
//
// # Commands
//
//   - watch: tail a JSON-lines file and redraw the interaction graph live
//   - snapshot: read a whole file once and write the resulting graph
//   - version: print build information
//   - completion: generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and
// --log-format to switch between text, json and logfmt output. Loggers are
// passed through context.Context; each watch run carries its run id.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/livegraph/pkg/config"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// setLogFormat switches l to one of the config.LogFormat* formats.
func setLogFormat(l *log.Logger, format string) error {
	switch format {
	case "", config.LogFormatText:
		l.SetFormatter(log.TextFormatter)
	case config.LogFormatJSON:
		l.SetFormatter(log.JSONFormatter)
	case config.LogFormatLogfmt:
		l.SetFormatter(log.LogfmtFormatter)
	default:
		return fmt.Errorf("invalid log format: %s (must be text, json or logfmt)", format)
	}
	return nil
}

// parseLevel maps a config level name to a log level.
func parseLevel(s string) (log.Level, error) {
	if s == "" {
		return log.InfoLevel, nil
	}
	return log.ParseLevel(s)
}

// withRunID returns a child of l tagged with a fresh run id.
func withRunID(l *log.Logger) (*log.Logger, string) {
	id := uuid.NewString()
	return l.With("run", id[:8]), id
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Read 42 records (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() if none
// is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
