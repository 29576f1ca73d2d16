// Package logger builds the *slog.Logger used across the simulation.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	pretty bool
	json   bool
	source bool
	writer io.Writer
}

// New returns a logger. Text output is the default; WithJSON and WithPretty
// select the JSON and charmbracelet handlers.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo, writer: os.Stderr}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.pretty:
		h := charmlog.NewWithOptions(c.writer, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportCaller:    c.source,
			ReportTimestamp: false,
		})
		return slog.New(h)
	case c.json:
		return slog.New(slog.NewJSONHandler(c.writer, &slog.HandlerOptions{Level: c.level, AddSource: c.source}))
	default:
		return slog.New(slog.NewTextHandler(c.writer, &slog.HandlerOptions{Level: c.level, AddSource: c.source}))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
