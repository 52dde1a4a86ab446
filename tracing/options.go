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

package tracing

import (
	"log/slog"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a [Tracer].
type Option func(*Tracer)

// WithTracerProvider uses a caller-owned provider. Provider options are
// ignored and Shutdown leaves it running.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracerProvider = provider
		t.customProvider = true
	}
}

// WithGlobalTracerProvider registers the provider and propagator as the
// OpenTelemetry globals.
func WithGlobalTracerProvider() Option {
	return func(t *Tracer) { t.registerGlobal = true }
}

// WithStdout pretty-prints spans to standard output.
func WithStdout() Option {
	return func(t *Tracer) { t.provider = StdoutProvider }
}

// WithOTLP exports spans to an OTLP HTTP collector. An http:// endpoint
// disables TLS.
func WithOTLP(endpoint string) Option {
	return func(t *Tracer) {
		t.provider = OTLPProvider
		t.otlpEndpoint = endpoint
	}
}

// WithNoop records nothing.
func WithNoop() Option {
	return func(t *Tracer) { t.provider = NoopProvider }
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(t *Tracer) { t.serviceName = name }
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(t *Tracer) { t.serviceVersion = version }
}

// WithSampleRate samples root spans at rate in [0, 1].
func WithSampleRate(rate float64) Option {
	return func(t *Tracer) { t.sampleRate = rate }
}

// WithPropagator replaces the W3C trace context and baggage propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(t *Tracer) { t.propagator = p }
}

// WithEventHandler receives internal events.
func WithEventHandler(handler EventHandler) Option {
	return func(t *Tracer) { t.eventHandler = handler }
}

// WithLogger logs internal events to logger.
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}
