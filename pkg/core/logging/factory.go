// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     logging
// Description: Logger factory and key/value logger
// Author:      Mike Stoffels
// Created:     2026-10-12
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	baseMu sync.RWMutex
	base   = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Config holds logging configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
	}
}

// Init configures the process-wide base logger. Loggers created before Init
// keep their previous output.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level).zerolog())

	baseMu.Lock()
	base = zerolog.New(out).With().Timestamp().Logger()
	baseMu.Unlock()
}

// Logger is a named component logger with a key/value API
type Logger struct {
	zl   zerolog.Logger
	name string
}

// New creates a logger tagged with the component name
func New(name string) *Logger {
	baseMu.RLock()
	zl := base.With().Str("component", name).Logger()
	baseMu.RUnlock()
	return &Logger{zl: zl, name: name}
}

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// WithLevel returns a copy of the logger with a minimum level
func (l *Logger) WithLevel(level Level) *Logger {
	return &Logger{zl: l.zl.Level(level.zerolog()), name: l.name}
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(toFields(keysAndValues...)).Logger(), name: l.name}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error().Fields(toFields(keysAndValues...)).Msg(msg)
}

// toFields converts key-value pairs to a field map, skipping non-string keys
func toFields(keysAndValues ...interface{}) map[string]interface{} {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields[key] = err.Error()
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
