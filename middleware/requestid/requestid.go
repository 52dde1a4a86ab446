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


// Package requestid tags each request with an id carried in a header and
// in the request context.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultHeader is the header read and written by default.
const DefaultHeader = "X-Request-ID"

type contextKey struct{}

// Option configures the middleware.
type Option func(*config)

type config struct {
	header        string
	generator     func() string
	allowClientID bool
}

// WithHeader sets the header name.
func WithHeader(name string) Option {
	return func(c *config) { c.header = name }
}

// WithGenerator replaces the UUIDv7 generator.
func WithGenerator(fn func() string) Option {
	return func(c *config) { c.generator = fn }
}

// WithAllowClientID controls whether an id sent by the client is kept.
// Default true.
func WithAllowClientID(allow bool) Option {
	return func(c *config) { c.allowClientID = allow }
}

func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// New returns the middleware. A client id longer than 128 bytes is
// replaced.
//
//	handler = requestid.New()(handler)
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{header: DefaultHeader, generator: generateUUIDv7, allowClientID: true}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cfg.allowClientID {
				if v := r.Header.Get(cfg.header); len(v) <= 128 {
					id = v
				}
			}
			if id == "" {
				id = cfg.generator()
			}

			w.Header().Set(cfg.header, id)
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// WithID returns ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Get returns the request id in ctx, or "".
func Get(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
