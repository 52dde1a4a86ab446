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
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	pgrconfig "pgr.dev/config"
	"pgr.dev/dispatch"
	pgrerrors "pgr.dev/errors"
	"pgr.dev/logging"
	"pgr.dev/metrics"
	"pgr.dev/middleware/trailingslash"
	"pgr.dev/naming"
	"pgr.dev/pg"
	"pgr.dev/router"
	"pgr.dev/tracing"
)

// NewLogger builds the logger described by s, writing to w.
func NewLogger(s *pgrconfig.Settings, w io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(s.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(
		logging.WithHandlerType(logging.HandlerType(s.Logging.Format)),
		logging.WithLevel(level),
		logging.WithOutput(w),
		logging.WithServiceName(s.ServiceName),
		logging.WithServiceVersion(s.ServiceVersion),
		logging.WithEnvironment(s.Environment),
	)
}

// CompileOptions returns the route compiler options described by s.
func CompileOptions(s *pgrconfig.Settings) ([]router.CompileOption, error) {
	vc, ok := naming.ParseVerbCase(s.Routing.VerbCase)
	if !ok {
		return nil, fmt.Errorf("unknown verb case %q", s.Routing.VerbCase)
	}
	return []router.CompileOption{
		router.WithCaseSensitive(s.Routing.CaseSensitive),
		router.WithVerbCase(vc),
	}, nil
}

// OpenDatabase opens the connection pool described by s.
func OpenDatabase(s *pgrconfig.Settings) (pg.Database, io.Closer, error) {
	db, err := pg.Open(s.Database.DSN,
		pg.WithMaxOpenConns(s.Database.MaxOpenConns),
		pg.WithMaxIdleConns(s.Database.MaxIdleConns),
		pg.WithConnMaxLifetime(s.Database.ConnMaxLifetime),
	)
	if err != nil {
		return nil, nil, err
	}
	return db, db, nil
}

// FromSettings builds an App from s: the logger, the database pool, the
// error formatter, and metrics and tracing when enabled. Everything it
// opens is closed by the App's shutdown. opts are applied last.
func FromSettings(s *pgrconfig.Settings, opts ...Option) (*App, error) {
	log, err := NewLogger(s, os.Stdout)
	if err != nil {
		return nil, err
	}
	formatter, err := pgrerrors.New(s.Errors.Format, s.Errors.BaseURL)
	if err != nil {
		return nil, err
	}
	compileOpts, err := CompileOptions(s)
	if err != nil {
		return nil, err
	}

	var closers []func(context.Context) error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i](context.Background())
		}
	}

	all := []Option{
		WithServiceName(s.ServiceName),
		WithServiceVersion(s.ServiceVersion),
		WithEnvironment(s.Environment),
		WithLogger(log.Logger()),
		WithFormatter(formatter),
		WithBanner(os.Stdout),
		WithServer(
			WithReadHeaderTimeout(s.Server.ReadHeaderTimeout),
			WithShutdownTimeout(s.Server.ShutdownTimeout),
			WithRequestTimeout(s.Server.RequestTimeout),
			WithBodyLimit(s.Server.BodyLimit),
			WithCompression(s.Server.Compression),
			WithCORS(s.Server.CORSOrigins...),
			WithTrustProxy(s.Server.TrustProxy),
			WithRateLimit(s.Server.RateLimit, s.Server.RateBurst),
			WithH2C(s.Server.H2C),
			WithTrailingSlash(trailingslash.Policy(s.Server.TrailingSlash)),
			WithMethodOverride(s.Server.MethodOverride),
		),
		WithDispatchOptions(
			dispatch.WithSchema(s.Database.Schema),
			dispatch.WithCatalogFunction(s.Database.CatalogFunction),
			dispatch.WithCompileOptions(compileOpts...),
		),
	}

	if s.OpenAPI.Enabled {
		all = append(all, WithOpenAPI(s.OpenAPI.Path))
	}
	if s.Metrics.Enabled {
		rec, err := newMetrics(s, log)
		if err != nil {
			return nil, err
		}
		closers = append(closers, rec.Shutdown)
		all = append(all, WithMetrics(rec))
	}
	if s.Tracing.Enabled {
		tr, err := newTracing(s, log)
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, tr.Shutdown)
		all = append(all, WithTracing(tr))
	}

	db, closer, err := OpenDatabase(s)
	if err != nil {
		cleanup()
		return nil, err
	}

	a, err := New(db, append(all, opts...)...)
	if err != nil {
		cleanup()
		return nil, errors.Join(err, closer.Close())
	}
	a.OnStop(func() {
		if err := closer.Close(); err != nil {
			a.logger.Warn("database close failed", "error", err)
		}
	})
	return a, nil
}

func newMetrics(s *pgrconfig.Settings, log *logging.Logger) (*metrics.Recorder, error) {
	opts := []metrics.Option{
		metrics.WithServiceName(s.ServiceName),
		metrics.WithServiceVersion(s.ServiceVersion),
		metrics.WithLogger(log.Logger()),
	}
	switch metrics.Provider(s.Metrics.Provider) {
	case metrics.OTLPProvider:
		opts = append(opts, metrics.WithOTLP(s.Metrics.Endpoint))
	case metrics.StdoutProvider:
		opts = append(opts, metrics.WithStdout())
	default:
		opts = append(opts, metrics.WithPrometheus(s.Metrics.Addr, s.Metrics.Path))
	}
	return metrics.New(opts...)
}

func newTracing(s *pgrconfig.Settings, log *logging.Logger) (*tracing.Tracer, error) {
	rate := s.Tracing.SampleRate
	if rate == 0 {
		rate = 1
	}
	opts := []tracing.Option{
		tracing.WithServiceName(s.ServiceName),
		tracing.WithServiceVersion(s.ServiceVersion),
		tracing.WithSampleRate(rate),
		tracing.WithLogger(log.Logger()),
	}
	if s.Tracing.Exporter == string(tracing.OTLPProvider) {
		opts = append(opts, tracing.WithOTLP(s.Tracing.Endpoint))
	} else {
		opts = append(opts, tracing.WithStdout())
	}
	return tracing.New(opts...)
}
