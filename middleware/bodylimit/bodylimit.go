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


// Package bodylimit caps request body size.
//
// A request whose Content-Length exceeds the limit is rejected with 413
// before the handler runs. Other bodies are wrapped in
// http.MaxBytesReader, so a handler reading past the limit gets an
// *http.MaxBytesError.
//
//	handler = bodylimit.New(bodylimit.WithMaxSize(1 << 20))(handler)
package bodylimit

import (
	"encoding/json"
	"fmt"
	"net/http"

	pgrerrors "pgr.dev/errors"
)

// DefaultMaxSize is used without [WithMaxSize].
const DefaultMaxSize int64 = 1 << 20

// Option configures the middleware.
type Option func(*config)

type config struct {
	maxSize   int64
	skip      map[string]struct{}
	formatter pgrerrors.Formatter
}

// WithMaxSize sets the limit in bytes.
func WithMaxSize(n int64) Option {
	return func(c *config) { c.maxSize = n }
}

// WithSkipPaths exempts the exact paths given.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.skip[p] = struct{}{}
		}
	}
}

// WithFormatter sets the formatter for 413 responses. Default RFC 9457.
func WithFormatter(f pgrerrors.Formatter) Option {
	return func(c *config) { c.formatter = f }
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		maxSize:   DefaultMaxSize,
		skip:      make(map[string]struct{}),
		formatter: pgrerrors.NewRFC9457(""),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := cfg.skip[r.URL.Path]; skip || cfg.maxSize <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > cfg.maxSize {
				cfg.reject(w, r)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, cfg.maxSize)
			next.ServeHTTP(w, r)
		})
	}
}

func (c *config) reject(w http.ResponseWriter, r *http.Request) {
	err := pgrerrors.WithStatus(
		fmt.Errorf("request body exceeds %d bytes", c.maxSize),
		http.StatusRequestEntityTooLarge,
	)
	out := c.formatter.Format(r.URL.Path, err)
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Connection", "close")
	w.WriteHeader(out.Status)
	//nolint:errchkjson,errcheck // the request is being refused
	json.NewEncoder(w).Encode(out.Body)
}
