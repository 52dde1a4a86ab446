// Copyright 2025 The pgr Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// HandlerType selects the output format.
type HandlerType string

const (
	JSONHandler    HandlerType = "json"
	TextHandler    HandlerType = "text"
	ConsoleHandler HandlerType = "console"
)

// Level is a log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	// ErrInvalidHandler is returned for an unknown [HandlerType].
	ErrInvalidHandler = errors.New("logging: invalid handler type")
	// ErrInvalidLevel is returned by [ParseLevel].
	ErrInvalidLevel = errors.New("logging: invalid level")
	// ErrNilLogger is returned when [WithCustomLogger] is given nil.
	ErrNilLogger = errors.New("logging: custom logger is nil")
	// ErrCannotChangeLevel is returned by SetLevel on a custom logger.
	ErrCannotChangeLevel = errors.New("logging: cannot change level of a custom logger")
)

// redacted attribute keys.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"dsn":           true,
	"token":         true,
	"secret":        true,
	"authorization": true,
}

// Logger builds and owns the process [slog.Logger]. All methods are safe for
// concurrent use.
type Logger struct {
	handlerType    HandlerType
	output         io.Writer
	level          Level
	serviceName    string
	serviceVersion string
	environment    string
	addSource      bool
	registerGlobal bool
	customLogger   *slog.Logger
	useCustom      bool

	slogger atomic.Pointer[slog.Logger]
	mu      sync.Mutex
}

// Option configures a [Logger].
type Option func(*Logger)

// New creates a [Logger]. Defaults are JSON to stdout at info level. The
// global slog default is only replaced with [WithGlobalLogger].
func New(opts ...Option) (*Logger, error) {
	l := &Logger{
		handlerType: JSONHandler,
		output:      os.Stdout,
		level:       LevelInfo,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.output == nil {
		return nil, errors.New("invalid configuration: output writer cannot be nil")
	}
	if l.useCustom && l.customLogger == nil {
		return nil, ErrNilLogger
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.initHandler(); err != nil {
		return nil, err
	}
	return l, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}
	return l
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// initHandler must be called with mu held.
func (l *Logger) initHandler() error {
	if l.useCustom {
		l.slogger.Store(l.customLogger)
		if l.registerGlobal {
			slog.SetDefault(l.customLogger)
		}
		return nil
	}

	opts := &slog.HandlerOptions{
		Level:       l.level,
		AddSource:   l.addSource,
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	switch l.handlerType {
	case JSONHandler:
		handler = slog.NewJSONHandler(l.output, opts)
	case TextHandler:
		handler = slog.NewTextHandler(l.output, opts)
	case ConsoleHandler:
		handler = newConsoleHandler(l.output, opts)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}

	logger := slog.New(handler)
	var attrs []any
	if l.serviceName != "" {
		attrs = append(attrs, "service", l.serviceName)
	}
	if l.serviceVersion != "" {
		attrs = append(attrs, "version", l.serviceVersion)
	}
	if l.environment != "" {
		attrs = append(attrs, "env", l.environment)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}

	l.slogger.Store(logger)
	if l.registerGlobal {
		slog.SetDefault(logger)
	}
	return nil
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "***REDACTED***")
	}
	return a
}

// Logger returns the [slog.Logger] handed to the rest of pgr.
func (l *Logger) Logger() *slog.Logger {
	return l.slogger.Load()
}

// With returns the logger with additional attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.Logger().With(args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.Logger().Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.Logger().Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.Logger().Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.Logger().Error(msg, args...) }

// SetLevel changes the minimum level at runtime, e.g. after a config reload.
func (l *Logger) SetLevel(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.useCustom {
		return ErrCannotChangeLevel
	}
	old := l.level
	l.level = level
	if err := l.initHandler(); err != nil {
		l.level = old
		return err
	}
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Shutdown flushes the handler when it supports flushing.
func (l *Logger) Shutdown(_ context.Context) error {
	if f, ok := l.Logger().Handler().(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Discard returns a logger that drops every record. Packages that accept an
// optional *slog.Logger default to it.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
