// Package klog wraps charmbracelet/log behind the kernel.Logger
// interface, grounded on the teacher's own declared-but-dormant
// charmbracelet/log dependency. internal/kernel never imports
// charmbracelet/log directly; only this package does, and cmd/prettyos-sim
// reaches it through this package - the same separation the teacher keeps
// between its direwolf package and its cmd/ entry points.
package klog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger adapts a *log.Logger to kernel.Logger's three-method surface.
type Logger struct {
	l *log.Logger
}

// New builds a Logger writing to os.Stderr at the given level
// ("debug", "info", "warn", "error"; anything else falls back to info).
func New(level string) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "prettyos",
	})
	l.SetLevel(parseLevel(level))
	return &Logger{l: l}
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func (lg *Logger) Debugf(format string, args ...any) { lg.l.Debugf(format, args...) }
func (lg *Logger) Infof(format string, args ...any)  { lg.l.Infof(format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.l.Errorf(format, args...) }

// With returns a Logger that always attaches the given key/value pairs,
// e.g. klog.New("info").With("tick", t).Infof("woke %d tasks", n).
func (lg *Logger) With(keyvals ...any) *Logger {
	return &Logger{l: lg.l.With(keyvals...)}
}
