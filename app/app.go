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
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"path"
	"strings"

	"pgr.dev/dispatch"
	pgrerrors "pgr.dev/errors"
	"pgr.dev/logging"
	"pgr.dev/middleware/accesslog"
	"pgr.dev/middleware/bodylimit"
	"pgr.dev/middleware/compression"
	"pgr.dev/middleware/cors"
	"pgr.dev/middleware/methodoverride"
	"pgr.dev/middleware/ratelimit"
	"pgr.dev/middleware/recovery"
	"pgr.dev/middleware/requestid"
	"pgr.dev/middleware/security"
	"pgr.dev/middleware/timeout"
	"pgr.dev/middleware/trailingslash"
	"pgr.dev/openapi"
	"pgr.dev/pg"
	"pgr.dev/router"
	"pgr.dev/tracing"
)

// App serves a dispatcher over HTTP.
type App struct {
	config     *config
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	hooks      *Hooks
	handler    http.Handler
}

// New creates an App serving the routines found through db.
func New(db pg.Database, opts ...Option) (*App, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = logging.Discard()
	}
	if cfg.formatter == nil {
		cfg.formatter = pgrerrors.NewRFC9457("")
	}

	a := &App{config: cfg, logger: cfg.logger, hooks: &Hooks{}}

	dopts := []dispatch.Option{
		dispatch.WithLogger(cfg.logger),
		dispatch.WithFormatter(cfg.formatter),
		dispatch.WithCompileOptions(router.WithDiagnostics(router.DiagnosticHandlerFunc(a.logDiagnostic))),
	}
	if cfg.metrics != nil {
		dopts = append(dopts, dispatch.WithRecorder(cfg.metrics))
	}
	if cfg.tracing != nil {
		dopts = append(dopts, dispatch.WithTracer(cfg.tracing.Tracer()))
	}
	d, err := dispatch.New(db, append(dopts, cfg.dispatchOpts...)...)
	if err != nil {
		return nil, err
	}
	a.dispatcher = d
	a.handler = a.buildHandler()
	return a, nil
}

// MustNew is like [New] but panics on error.
func MustNew(db pg.Database, opts ...Option) *App {
	a, err := New(db, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

func (c *config) validate() error {
	var errs []error
	if c.serviceName == "" {
		errs = append(errs, errors.New("service name cannot be empty"))
	}
	if c.environment != EnvironmentDevelopment && c.environment != EnvironmentProduction {
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q",
			EnvironmentDevelopment, EnvironmentProduction, c.environment))
	}
	if c.server.shutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if c.healthzPath == "" || c.readyzPath == "" || c.healthzPath == c.readyzPath {
		errs = append(errs, errors.New("health paths must be set and distinct"))
	}
	if _, err := trailingslash.ParsePolicy(string(c.server.trailingSlash)); err != nil {
		errs = append(errs, err)
	}
	if p := c.openapiPath; p != "" && (!strings.HasPrefix(p, "/") || p == c.healthzPath || p == c.readyzPath) {
		errs = append(errs, fmt.Errorf("openapi path %q must start with / and differ from the health paths", p))
	}
	return errors.Join(errs...)
}

// Dispatcher returns the dispatcher served by the App.
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.dispatcher }

// Handler returns the full HTTP handler: probes, metrics and dispatch
// behind the middleware chain.
func (a *App) Handler() http.Handler { return a.handler }

// Logger returns the App logger.
func (a *App) Logger() *slog.Logger { return a.logger }

func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(a.config.healthzPath, a.healthz)
	mux.HandleFunc(a.config.readyzPath, a.readyz)
	if m := a.config.metrics; m != nil && !m.ServesOwnEndpoint() {
		if h, err := m.Handler(); err == nil {
			mux.Handle(m.Path(), h)
		}
	}
	if p := a.config.openapiPath; p != "" {
		doc := openapi.Handler(a.dispatcher.Table,
			openapi.WithInfo(a.config.serviceName, a.config.serviceVersion))
		mux.Handle(p, doc)
		if path.Ext(p) == ".json" {
			mux.Handle(strings.TrimSuffix(p, ".json")+".yaml", doc)
		}
	}
	mux.Handle("/", a.dispatcher)

	probes := []string{a.config.healthzPath, a.config.readyzPath}

	var h http.Handler = mux
	h = trailingslash.New(trailingslash.WithPolicy(a.config.server.trailingSlash))(h)
	if a.config.server.methodOverride {
		h = methodoverride.New()(h)
	}
	h = bodylimit.New(
		bodylimit.WithMaxSize(a.config.server.bodyLimit),
		bodylimit.WithFormatter(a.config.formatter),
	)(h)
	if a.config.server.compression {
		h = compression.New(
			compression.WithLogger(a.logger),
			compression.WithExcludePaths(probes...),
		)(h)
	}
	h = timeout.New(
		timeout.WithDuration(a.config.server.requestTimeout),
		timeout.WithSkipPrefix(probes...),
	)(h)
	if srv := a.config.server; srv.rateLimit > 0 {
		burst := srv.rateBurst
		if burst == 0 {
			burst = int(math.Ceil(srv.rateLimit))
		}
		h = ratelimit.New(
			ratelimit.WithRate(srv.rateLimit, burst),
			ratelimit.WithKey(ratelimit.ClientIP(srv.trustProxy)),
			ratelimit.WithSkipPaths(probes...),
			ratelimit.WithFormatter(a.config.formatter),
			ratelimit.WithLogger(a.logger),
		)(h)
	}
	if origins := a.config.server.corsOrigins; len(origins) > 0 {
		h = cors.New(
			cors.WithAllowedOrigins(origins...),
			cors.WithExposedHeaders(requestid.DefaultHeader),
		)(h)
	}
	h = accesslog.New(
		accesslog.WithLogger(a.logger),
		accesslog.WithExcludePaths(probes...),
	)(h)
	h = recovery.New(
		recovery.WithLogger(a.logger),
		recovery.WithFormatter(a.config.formatter),
	)(h)
	if a.config.tracing != nil {
		h = tracing.Middleware(a.config.tracing, probes...)(h)
	}
	h = security.New(security.WithTrustForwardedProto(a.config.server.trustProxy))(h)
	return requestid.New()(h)
}

func (a *App) logDiagnostic(d router.Diagnostic) {
	args := make([]any, 0, 4+2*len(d.Fields))
	args = append(args, "routine", d.Routine, "kind", string(d.Kind))
	for k, v := range d.Fields {
		args = append(args, k, v)
	}
	if d.Kind.Skipped() {
		a.logger.Warn(d.Message, args...)
		return
	}
	a.logger.Debug(d.Message, args...)
}
