// Package cli implements the blockdeck command-line interface.
//
// # Commands
//
//   - login, logout, whoami: manage the stored Notion credential
//   - pages, databases: browse what the integration can see
//   - fetch, outline: inspect the normalized block tree of a page
//   - render: draw one page as a slide
//   - export: write every child page of a parent as numbered slides
//   - style: create, show and reset the style file
//   - cache: inspect and clear the response cache
//   - serve: run the HTTP API used by the web client
//
// User-facing output goes to stdout through the lipgloss helpers in ui.go.
// Logs go to stderr through charmbracelet/log; --verbose enables debug
// output. The logger travels in the command context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the elapsed time of one step, e.g. "Exported 12 slides (3.2s)".
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or log.Default() outside a
// command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
