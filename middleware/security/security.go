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

// Package security sets response headers that harden an API against
// content sniffing, framing and referrer leaks.
//
// Defaults suit a JSON API: nothing may be framed or loaded, and
// Strict-Transport-Security is sent on TLS requests only.
package security

import (
	"fmt"
	"net/http"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	frameOptions      string
	nosniff           bool
	csp               string
	referrerPolicy    string
	hstsMaxAge        int
	hstsSubdomains    bool
	trustForwardProto bool
	custom            map[string]string
}

// WithFrameOptions sets X-Frame-Options. Empty omits it.
func WithFrameOptions(v string) Option {
	return func(c *config) { c.frameOptions = v }
}

// WithContentSecurityPolicy sets Content-Security-Policy. Empty omits it.
func WithContentSecurityPolicy(policy string) Option {
	return func(c *config) { c.csp = policy }
}

// WithReferrerPolicy sets Referrer-Policy. Empty omits it.
func WithReferrerPolicy(policy string) Option {
	return func(c *config) { c.referrerPolicy = policy }
}

// WithHSTS sets the Strict-Transport-Security max age in seconds. Zero
// disables it.
func WithHSTS(maxAge int, includeSubdomains bool) Option {
	return func(c *config) {
		c.hstsMaxAge = maxAge
		c.hstsSubdomains = includeSubdomains
	}
}

// WithTrustForwardedProto treats X-Forwarded-Proto: https as TLS when
// deciding on HSTS.
func WithTrustForwardedProto(trust bool) Option {
	return func(c *config) { c.trustForwardProto = trust }
}

// WithHeader adds a fixed header.
func WithHeader(name, value string) Option {
	return func(c *config) { c.custom[name] = value }
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		frameOptions:   "DENY",
		nosniff:        true,
		csp:            "default-src 'none'; frame-ancestors 'none'",
		referrerPolicy: "no-referrer",
		hstsMaxAge:     31536000,
		hstsSubdomains: true,
		custom:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	fixed := make(http.Header)
	if cfg.frameOptions != "" {
		fixed.Set("X-Frame-Options", cfg.frameOptions)
	}
	if cfg.nosniff {
		fixed.Set("X-Content-Type-Options", "nosniff")
	}
	if cfg.csp != "" {
		fixed.Set("Content-Security-Policy", cfg.csp)
	}
	if cfg.referrerPolicy != "" {
		fixed.Set("Referrer-Policy", cfg.referrerPolicy)
	}
	for k, v := range cfg.custom {
		fixed.Set(k, v)
	}

	var hsts string
	if cfg.hstsMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", cfg.hstsMaxAge)
		if cfg.hstsSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range fixed {
				h.Set(k, v[0])
			}
			if hsts != "" && (r.TLS != nil || (cfg.trustForwardProto && r.Header.Get("X-Forwarded-Proto") == "https")) {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}
