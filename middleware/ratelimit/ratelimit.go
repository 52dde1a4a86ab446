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

// Package ratelimit throttles requests per client with a token bucket.
//
// Each key, the client IP by default, owns a bucket of Burst tokens that
// refills at Rate tokens per second. A request without a token is
// answered with 429 and a Retry-After header. RateLimit-Limit and
// RateLimit-Remaining are set on every response.
//
//	handler = ratelimit.New(ratelimit.WithRate(50, 100))(handler)
package ratelimit

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	pgrerrors "pgr.dev/errors"
)

// ErrRateLimited is the cause of a 429 response.
var ErrRateLimited = errors.New("rate limit exceeded")

// KeyFunc derives the bucket key of a request.
type KeyFunc func(*http.Request) string

// Option configures the middleware.
type Option func(*config)

type config struct {
	rate      float64
	burst     int
	key       KeyFunc
	skip      map[string]bool
	formatter pgrerrors.Formatter
	logger    *slog.Logger
	idleTTL   time.Duration
	now       func() time.Time
}

// WithRate sets the refill rate in tokens per second and the bucket size.
func WithRate(perSecond float64, burst int) Option {
	return func(c *config) {
		c.rate = perSecond
		c.burst = burst
	}
}

// WithKey replaces the client IP key.
func WithKey(fn KeyFunc) Option {
	return func(c *config) { c.key = fn }
}

// WithSkipPaths exempts exact paths.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.skip[p] = true
		}
	}
}

// WithFormatter sets the formatter for 429 responses. Default RFC 9457.
func WithFormatter(f pgrerrors.Formatter) Option {
	return func(c *config) { c.formatter = f }
}

// WithLogger logs refused requests at WARN.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New returns the middleware. A rate of zero or less disables it.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		rate:      100,
		burst:     200,
		key:       ClientIP(false),
		skip:      make(map[string]bool),
		formatter: pgrerrors.NewRFC9457(""),
		idleTTL:   10 * time.Minute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.burst < 1 {
		cfg.burst = 1
	}
	store := newStore(cfg.rate, cfg.burst, cfg.idleTTL)
	limit := strconv.Itoa(cfg.burst)

	return func(next http.Handler) http.Handler {
		if cfg.rate <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			key := cfg.key(r)
			ok, remaining, retry := store.allow(key, cfg.now())
			w.Header().Set("RateLimit-Limit", limit)
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.logger != nil {
				cfg.logger.Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
			}
			out := cfg.formatter.Format(r.URL.Path, pgrerrors.WithStatus(ErrRateLimited, http.StatusTooManyRequests))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", out.ContentType)
			w.WriteHeader(out.Status)
			//nolint:errchkjson,errcheck // the request is being refused
			json.NewEncoder(w).Encode(out.Body)
		})
	}
}

// ClientIP keys requests by remote address. With trustProxy the first
// X-Forwarded-For entry is used when present.
func ClientIP(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				return strings.TrimSpace(first)
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}

type bucket struct {
	tokens float64
	last   time.Time
}

// store holds one bucket per key. Buckets idle longer than ttl are swept
// during allow.
type store struct {
	mu        sync.Mutex
	rate      float64
	burst     float64
	ttl       time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newStore(rate float64, burst int, ttl time.Duration) *store {
	return &store{rate: rate, burst: float64(burst), ttl: ttl, buckets: make(map[string]*bucket)}
}

// allow takes a token for key. It returns whether one was available, the
// whole tokens left and the seconds until the next token.
func (s *store) allow(key string, now time.Time) (bool, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > s.ttl {
		for k, b := range s.buckets {
			if now.Sub(b.last) > s.ttl {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{tokens: s.burst, last: now}
		s.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(s.burst, b.tokens+elapsed*s.rate)
	}
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, int(b.tokens), 0
	}
	retry := int(math.Ceil((1 - b.tokens) / s.rate))
	return false, 0, max(retry, 1)
}
