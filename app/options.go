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


package app

import (
	"io"
	"log/slog"
	"time"

	"pgr.dev/dispatch"
	pgrerrors "pgr.dev/errors"
	"pgr.dev/metrics"
	"pgr.dev/middleware/trailingslash"
	"pgr.dev/tracing"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Option configures an [App].
type Option func(*config)

type config struct {
	serviceName    string
	serviceVersion string
	environment    string
	logger         *slog.Logger
	metrics        *metrics.Recorder
	tracing        *tracing.Tracer
	formatter      pgrerrors.Formatter
	dispatchOpts   []dispatch.Option
	banner         io.Writer
	server         serverConfig
	healthzPath    string
	readyzPath     string
	openapiPath    string
	readyTimeout   time.Duration
}

type serverConfig struct {
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	requestTimeout    time.Duration
	bodyLimit         int64
	h2c               bool
	compression       bool
	corsOrigins       []string
	trustProxy        bool
	rateLimit         float64
	rateBurst         int
	trailingSlash     trailingslash.Policy
	methodOverride    bool
}

func defaultConfig() *config {
	return &config{
		serviceName:    "pgr",
		serviceVersion: "dev",
		environment:    EnvironmentDevelopment,
		healthzPath:    "/healthz",
		readyzPath:     "/readyz",
		readyTimeout:   time.Second,
		server: serverConfig{
			readHeaderTimeout: 5 * time.Second,
			shutdownTimeout:   30 * time.Second,
			requestTimeout:    30 * time.Second,
			bodyLimit:         1 << 20,
			trailingSlash:     trailingslash.PolicyStrip,
		},
	}
}

// WithServiceName sets the name shown in the banner and logs.
func WithServiceName(name string) Option {
	return func(c *config) { c.serviceName = name }
}

// WithServiceVersion sets the version shown in the banner and logs.
func WithServiceVersion(version string) Option {
	return func(c *config) { c.serviceVersion = version }
}

// WithEnvironment sets "development" or "production". Production strips
// colors from the banner and omits the route table.
func WithEnvironment(env string) Option {
	return func(c *config) { c.environment = env }
}

// WithLogger sets the logger shared with the dispatcher and middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetrics records dispatch and reload metrics. The recorder is
// started and shut down with the App.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *config) { c.metrics = r }
}

// WithTracing traces requests, dispatch and invocation. The tracer is
// shut down with the App.
func WithTracing(t *tracing.Tracer) Option {
	return func(c *config) { c.tracing = t }
}

// WithFormatter sets the error formatter used by the dispatcher and the
// middleware. Default RFC 9457.
func WithFormatter(f pgrerrors.Formatter) Option {
	return func(c *config) { c.formatter = f }
}

// WithDispatchOptions passes extra options to the dispatcher. They are
// applied after the ones derived from the App options.
func WithDispatchOptions(opts ...dispatch.Option) Option {
	return func(c *config) { c.dispatchOpts = append(c.dispatchOpts, opts...) }
}

// WithBanner writes the startup banner to w. Nil disables it.
func WithBanner(w io.Writer) Option {
	return func(c *config) { c.banner = w }
}

// WithOpenAPI serves the OpenAPI document of the published routes at path.
// A path ending in .json is also served as YAML under the .yaml name.
// Routines mapped to the same path are shadowed.
func WithOpenAPI(path string) Option {
	return func(c *config) { c.openapiPath = path }
}

// WithHealthPaths overrides /healthz and /readyz.
func WithHealthPaths(healthz, readyz string) Option {
	return func(c *config) {
		c.healthzPath = healthz
		c.readyzPath = readyz
	}
}

// WithServer applies server options.
func WithServer(opts ...ServerOption) Option {
	return func(c *config) {
		for _, opt := range opts {
			opt(&c.server)
		}
	}
}

// ServerOption configures the HTTP server.
type ServerOption func(*serverConfig)

// WithReadHeaderTimeout bounds reading request headers.
func WithReadHeaderTimeout(d time.Duration) ServerOption {
	return func(s *serverConfig) { s.readHeaderTimeout = d }
}

// WithShutdownTimeout bounds graceful shutdown, OnShutdown hooks included.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *serverConfig) { s.shutdownTimeout = d }
}

// WithRequestTimeout bounds each dispatched request. Zero disables it.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *serverConfig) { s.requestTimeout = d }
}

// WithBodyLimit caps request bodies in bytes. Zero disables it.
func WithBodyLimit(n int64) ServerOption {
	return func(s *serverConfig) { s.bodyLimit = n }
}

// WithH2C serves cleartext HTTP/2 next to HTTP/1.1.
func WithH2C(enabled bool) ServerOption {
	return func(s *serverConfig) { s.h2c = enabled }
}

// WithCompression encodes large responses with brotli or gzip.
func WithCompression(enabled bool) ServerOption {
	return func(s *serverConfig) { s.compression = enabled }
}

// WithCORS answers cross-origin requests from origins. "*" allows any
// origin.
func WithCORS(origins ...string) ServerOption {
	return func(s *serverConfig) { s.corsOrigins = append(s.corsOrigins, origins...) }
}

// WithTrustProxy trusts X-Forwarded-Proto when deciding whether a request
// arrived over TLS.
func WithTrustProxy(trust bool) ServerOption {
	return func(s *serverConfig) { s.trustProxy = trust }
}

// WithRateLimit throttles each client to perSecond requests with bursts
// of burst. Zero disables it.
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *serverConfig) {
		s.rateLimit = perSecond
		s.rateBurst = burst
	}
}

// WithTrailingSlash sets how paths ending in "/" are routed. Default
// strip.
func WithTrailingSlash(p trailingslash.Policy) ServerOption {
	return func(s *serverConfig) { s.trailingSlash = p }
}

// WithMethodOverride honors X-HTTP-Method-Override on POST requests.
func WithMethodOverride(enabled bool) ServerOption {
	return func(s *serverConfig) { s.methodOverride = enabled }
}
