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


// Package recovery turns handler panics into 500 responses.
//
// Register it first so it covers every other middleware:
//
//	handler = recovery.New(recovery.WithLogger(log))(handler)
//
// The panic is logged with its stack and recorded on the active span as
// an escaped exception.
package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pgrerrors "pgr.dev/errors"
	"pgr.dev/middleware/requestid"
)

// ErrPanic is the error rendered for a recovered panic.
var ErrPanic = errors.New("internal server error")

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	handler    func(w http.ResponseWriter, r *http.Request, v any)
	formatter  pgrerrors.Formatter
	stackTrace bool
	stackSize  int
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithoutLogging disables panic logging.
func WithoutLogging() Option {
	return func(c *config) { c.logger = nil }
}

// WithHandler replaces the response written after a panic.
func WithHandler(fn func(w http.ResponseWriter, r *http.Request, v any)) Option {
	return func(c *config) { c.handler = fn }
}

// WithFormatter sets the formatter for the default response. Default
// RFC 9457.
func WithFormatter(f pgrerrors.Formatter) Option {
	return func(c *config) { c.formatter = f }
}

// WithStackTrace enables stack capture. Default true.
func WithStackTrace(enabled bool) Option {
	return func(c *config) { c.stackTrace = enabled }
}

// WithStackSize caps the captured stack in bytes. Default 4 KiB.
func WithStackSize(n int) Option {
	return func(c *config) { c.stackSize = n }
}

// New returns the middleware. http.ErrAbortHandler is re-panicked so the
// server can abort the connection.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		logger:     slog.Default(),
		formatter:  pgrerrors.NewRFC9457(""),
		stackTrace: true,
		stackSize:  4 << 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.handler == nil {
		cfg.handler = cfg.respond
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				//nolint:errorlint,err113 // identity check on the sentinel
				if v == http.ErrAbortHandler {
					panic(v)
				}
				cfg.record(r, v)
				cfg.handler(w, r, v)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func (c *config) record(r *http.Request, v any) {
	var stack []byte
	if c.stackTrace {
		stack = make([]byte, c.stackSize)
		stack = stack[:runtime.Stack(stack, false)]
	}

	span := trace.SpanFromContext(r.Context())
	span.AddEvent("exception", trace.WithAttributes(
		attribute.Bool("exception.escaped", true),
		attribute.String("exception.type", fmt.Sprintf("%T", v)),
		attribute.String("exception.message", fmt.Sprint(v)),
	))
	span.SetStatus(codes.Error, "panic")

	if c.logger == nil {
		return
	}
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"panic", fmt.Sprint(v),
	}
	if id := requestid.Get(r.Context()); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if stack != nil {
		attrs = append(attrs, "stack", string(stack))
	}
	c.logger.ErrorContext(r.Context(), "panic recovered", attrs...)
}

func (c *config) respond(w http.ResponseWriter, r *http.Request, _ any) {
	out := c.formatter.Format(r.URL.Path, pgrerrors.WithStatus(ErrPanic, http.StatusInternalServerError))
	for k, v := range out.Headers {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.WriteHeader(out.Status)
	//nolint:errchkjson,errcheck // best effort after a panic
	json.NewEncoder(w).Encode(out.Body)
}
