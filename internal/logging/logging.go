// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger used by every netshield
// component. The hot packet-interception path never calls into it directly;
// everything else — the analyzer, the enrichment worker, the audit sink,
// the IPC readers — logs through a Logger obtained from New or WithComponent.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level mirrors the charmbracelet/log levels without leaking that import
// into every caller's type signatures.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config controls logger construction. The zero value is usable and
// produces an Info-level logger writing to stderr.
type Config struct {
	Level     Level
	Output    io.Writer
	JSON      bool
	Component string
	Syslog    SyslogConfig
}

// DefaultConfig returns the logger configuration used when no other
// configuration has been loaded yet (e.g. before config.Load runs).
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Logger wraps a charmbracelet/log.Logger with the key-value call shape
// used throughout netshield: Info/Warn/Error/Debug(msg string, keyvals ...any).
type Logger struct {
	inner *charmlog.Logger
}

var defaultLogger = New(DefaultConfig())

// Default returns the process-wide default logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the process-wide default logger. Called once at
// startup after configuration has been resolved.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := charmlog.Options{
		ReportTimestamp: true,
	}
	if cfg.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}
	l := charmlog.NewWithOptions(out, opts)
	l.SetLevel(toCharmLevel(cfg.Level))
	if cfg.Component != "" {
		l = l.With("component", cfg.Component)
	}
	return &Logger{inner: l}
}

func toCharmLevel(l Level) charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// WithComponent returns a derived logger tagging every entry with
// component=name, matching the convention internal/audit used in the
// teacher codebase for sub-system tagging.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{inner: l.inner.With("component", name)}
}

// With returns a derived logger with the given key-value pairs attached
// to every subsequent entry.
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{inner: l.inner.With(keyvals...)}
}

func (l *Logger) Debug(msg string, keyvals ...any) { l.inner.Debug(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.inner.Info(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.inner.Warn(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.inner.Error(msg, keyvals...) }
