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

// Package methodoverride lets clients limited to GET and POST reach PUT,
// PATCH and DELETE routes.
//
// A POST carrying an X-HTTP-Method-Override header naming an allowed
// method is dispatched as that method. The original method is kept in
// the request context and read back with [OriginalMethod].
//
//	handler = methodoverride.New()(handler)
package methodoverride

import (
	"context"
	"net/http"
	"strings"
)

// DefaultHeader carries the override.
const DefaultHeader = "X-HTTP-Method-Override"

type contextKey struct{}

// Option configures the middleware.
type Option func(*config)

type config struct {
	header     string
	queryParam string
	allow      map[string]struct{}
	onlyOn     map[string]struct{}
}

// WithHeader changes the override header.
func WithHeader(name string) Option {
	return func(c *config) { c.header = name }
}

// WithQueryParam also accepts the override from a query parameter, such
// as "_method". The header wins when both are set.
func WithQueryParam(name string) Option {
	return func(c *config) { c.queryParam = name }
}

// WithAllow replaces the methods a request may be overridden to.
func WithAllow(methods ...string) Option {
	return func(c *config) { c.allow = methodSet(methods) }
}

// WithOnlyOn replaces the methods that may be overridden. Default POST.
func WithOnlyOn(methods ...string) Option {
	return func(c *config) { c.onlyOn = methodSet(methods) }
}

func methodSet(methods []string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[strings.ToUpper(m)] = struct{}{}
	}
	return set
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		header: DefaultHeader,
		allow:  methodSet([]string{http.MethodPut, http.MethodPatch, http.MethodDelete}),
		onlyOn: methodSet([]string{http.MethodPost}),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := cfg.onlyOn[r.Method]; !ok {
				next.ServeHTTP(w, r)
				return
			}
			method := r.Header.Get(cfg.header)
			if method == "" && cfg.queryParam != "" {
				method = r.URL.Query().Get(cfg.queryParam)
			}
			method = strings.ToUpper(strings.TrimSpace(method))
			if _, ok := cfg.allow[method]; !ok {
				next.ServeHTTP(w, r)
				return
			}

			r2 := r.WithContext(context.WithValue(r.Context(), contextKey{}, r.Method))
			r2.Method = method
			next.ServeHTTP(w, r2)
		})
	}
}

// OriginalMethod returns the method the client sent, which differs from
// r.Method after an override.
func OriginalMethod(r *http.Request) string {
	if m, ok := r.Context().Value(contextKey{}).(string); ok {
		return m
	}
	return r.Method
}
