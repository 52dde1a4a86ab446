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

// Package trailingslash normalizes request paths that end in "/".
//
// Route patterns never carry a trailing slash, so "/users/" would not
// match "/users". [PolicyStrip] rewrites the path before routing,
// [PolicyRedirect] answers 308 with the canonical location and
// [PolicyOff] leaves the request alone. The root path is never touched.
//
//	handler = trailingslash.New(trailingslash.WithPolicy(trailingslash.PolicyRedirect))(handler)
package trailingslash

import (
	"fmt"
	"net/http"
	"strings"
)

// Policy selects how a trailing slash is handled.
type Policy string

const (
	PolicyStrip    Policy = "strip"
	PolicyRedirect Policy = "redirect"
	PolicyOff      Policy = "off"
)

// ParsePolicy parses a policy name. The empty string is [PolicyStrip].
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyStrip, nil
	case PolicyStrip, PolicyRedirect, PolicyOff:
		return p, nil
	default:
		return "", fmt.Errorf("trailingslash: unknown policy %q", s)
	}
}

// Option configures the middleware.
type Option func(*config)

type config struct {
	policy Policy
}

// WithPolicy sets the policy. Default [PolicyStrip].
func WithPolicy(p Policy) Option {
	return func(c *config) { c.policy = p }
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{policy: PolicyStrip}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		if cfg.policy == PolicyOff {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if p == "/" || !strings.HasSuffix(p, "/") {
				next.ServeHTTP(w, r)
				return
			}
			trimmed := strings.TrimRight(p, "/")
			if trimmed == "" {
				trimmed = "/"
			}

			if cfg.policy == PolicyRedirect {
				u := *r.URL
				u.Path = trimmed
				u.RawPath = ""
				http.Redirect(w, r, u.RequestURI(), http.StatusPermanentRedirect)
				return
			}

			r2 := r.Clone(r.Context())
			r2.URL.Path = trimmed
			if r2.URL.RawPath != "" {
				r2.URL.RawPath = strings.TrimRight(r2.URL.RawPath, "/")
			}
			next.ServeHTTP(w, r2)
		})
	}
}
