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

// Package cors answers cross-origin requests.
//
// No origin is allowed by default. Preflight requests from an allowed
// origin are answered with 204 and never reach the next handler; other
// requests get the allow headers and continue.
//
//	handler = cors.New(cors.WithAllowedOrigins("https://app.example.com"))(handler)
package cors

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	allowedOrigins   []string
	allowAllOrigins  bool
	allowOriginFunc  func(origin string) bool
	allowedMethods   []string
	allowedHeaders   []string
	exposedHeaders   []string
	allowCredentials bool
	maxAge           int
}

// WithAllowedOrigins sets the exact origins allowed. "*" allows any
// origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(c *config) {
		for _, o := range origins {
			if o == "*" {
				c.allowAllOrigins = true
				continue
			}
			c.allowedOrigins = append(c.allowedOrigins, o)
		}
	}
}

// WithAllowOriginFunc validates origins dynamically.
func WithAllowOriginFunc(fn func(origin string) bool) Option {
	return func(c *config) { c.allowOriginFunc = fn }
}

// WithAllowedMethods replaces the preflight method list.
func WithAllowedMethods(methods ...string) Option {
	return func(c *config) { c.allowedMethods = methods }
}

// WithAllowedHeaders replaces the preflight request header list.
func WithAllowedHeaders(headers ...string) Option {
	return func(c *config) { c.allowedHeaders = headers }
}

// WithExposedHeaders lists response headers readable by scripts.
func WithExposedHeaders(headers ...string) Option {
	return func(c *config) { c.exposedHeaders = headers }
}

// WithAllowCredentials allows cookies and authorization headers. The
// request origin is then echoed instead of "*".
func WithAllowCredentials(allow bool) Option {
	return func(c *config) { c.allowCredentials = allow }
}

// WithMaxAge sets how long a preflight answer may be cached, in seconds.
func WithMaxAge(seconds int) Option {
	return func(c *config) { c.maxAge = seconds }
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		allowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		allowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		maxAge:         3600,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	methods := strings.Join(cfg.allowedMethods, ", ")
	headers := strings.Join(cfg.allowedHeaders, ", ")
	exposed := strings.Join(cfg.exposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.maxAge)

	allowed := func(origin string) string {
		switch {
		case cfg.allowAllOrigins && cfg.allowCredentials:
			return origin
		case cfg.allowAllOrigins:
			return "*"
		case cfg.allowOriginFunc != nil && cfg.allowOriginFunc(origin):
			return origin
		case slices.Contains(cfg.allowedOrigins, origin):
			return origin
		}
		return ""
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")

			allow := allowed(origin)
			if allow == "" {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Origin", allow)
			if cfg.allowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
