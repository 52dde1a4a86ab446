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


// Package timeout bounds request processing with a context deadline.
//
// The handler is expected to honor the context: the dispatcher passes it
// to the database, whose driver cancels the running statement, and the
// resulting deadline error is answered with 504.
//
//	handler = timeout.New(timeout.WithDuration(10 * time.Second))(handler)
package timeout

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DefaultDuration is used without [WithDuration].
const DefaultDuration = 30 * time.Second

// Option configures the middleware.
type Option func(*config)

type config struct {
	duration time.Duration
	skip     []string
}

// WithDuration sets the deadline. Zero or negative disables the
// middleware.
func WithDuration(d time.Duration) Option {
	return func(c *config) { c.duration = d }
}

// WithSkipPrefix exempts each prefix and the paths below it. "/healthz"
// covers "/healthz" and "/healthz/live" but not "/healthzfoo".
func WithSkipPrefix(prefixes ...string) Option {
	return func(c *config) { c.skip = append(c.skip, prefixes...) }
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{duration: DefaultDuration}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		if cfg.duration <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range cfg.skip {
				if underPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			ctx, cancel := context.WithTimeout(r.Context(), cfg.duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func underPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}
