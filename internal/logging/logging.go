// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Options selects verbosity and output style.
type Options struct {
	Debug  bool
	Pretty bool      // colourised charmbracelet/log output for terminals
	Output io.Writer // defaults to os.Stderr
}

// New builds the logger and installs it with slog.SetDefault so the stdlib
// log package routes through the same handler.
func New(o Options) *slog.Logger {
	w := o.Output
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if o.Debug {
		level = slog.LevelDebug
	}

	var h slog.Handler
	if o.Pretty {
		cl := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.InfoLevel,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			ReportCaller:    o.Debug,
		})
		if o.Debug {
			cl.SetLevel(charmlog.DebugLevel)
		}
		h = cl
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: o.Debug, // include file:line in debug mode
		})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
