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


package dispatch

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	pgrerrors "pgr.dev/errors"
	"pgr.dev/router"
)

// Recorder receives request and reload measurements. *metrics.Recorder
// implements it.
type Recorder interface {
	RecordRequest(ctx context.Context, route string, status int, elapsed time.Duration)
	RecordReload(ctx context.Context, err error, routes int)
}

type noopRecorder struct{}

func (noopRecorder) RecordRequest(context.Context, string, int, time.Duration) {}
func (noopRecorder) RecordReload(context.Context, error, int) {}

// Option configures a [Dispatcher].
type Option func(*Dispatcher)

// WithSchema sets the schema whose routines are exposed. Default "pgr".
func WithSchema(schema string) Option {
	return func(d *Dispatcher) { d.schema = schema }
}

// WithCatalogFunction sets the function that lists routines.
// Default catalog.DefaultFunction.
func WithCatalogFunction(name string) Option {
	return func(d *Dispatcher) { d.function = name }
}

// WithCompileOptions passes options to router.Compile on every reload.
func WithCompileOptions(opts ...router.CompileOption) Option {
	return func(d *Dispatcher) { d.compileOpts = append(d.compileOpts, opts...) }
}

// WithFormatter sets the error formatter. Default RFC 9457.
func WithFormatter(f pgrerrors.Formatter) Option {
	return func(d *Dispatcher) {
		if f != nil {
			d.formatter = f
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithTracer sets the tracer for the pgr.dispatch, pgr.invoke and
// pgr.reload spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithLogger sets the logger. Server errors are logged at ERROR with the
// underlying driver error, client errors at DEBUG.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}
