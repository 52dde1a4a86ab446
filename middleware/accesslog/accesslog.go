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


// Package accesslog writes one structured record per HTTP request.
//
// Records carry method, path, status, size, duration, client address,
// user agent and, when the requestid middleware ran first, request_id.
// Server errors are logged at ERROR, client errors and slow requests at
// WARN, everything else at INFO.
//
//	handler = accesslog.New(
//	    accesslog.WithLogger(log),
//	    accesslog.WithExcludePaths("/healthz", "/readyz"),
//	)(handler)
package accesslog

import (
	"log/slog"
	"net/http"
	"time"

	"pgr.dev/middleware/requestid"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	exclude       map[string]struct{}
	slowThreshold time.Duration
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithExcludePaths skips requests for the exact paths given.
func WithExcludePaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.exclude[p] = struct{}{}
		}
	}
}

// WithSlowThreshold logs successful requests slower than d at WARN.
// Zero disables it.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *config) { c.slowThreshold = d }
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{logger: slog.Default(), exclude: make(map[string]struct{})}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := cfg.exclude[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			elapsed := time.Since(start)

			level := slog.LevelInfo
			switch {
			case rw.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rw.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			case cfg.slowThreshold > 0 && elapsed > cfg.slowThreshold:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.status),
				slog.Int64("bytes", rw.size),
				slog.Duration("duration", elapsed),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}
			if id := requestid.Get(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			cfg.logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
