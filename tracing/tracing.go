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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "pgr.dev/tracing"

// Provider names a trace exporter.
type Provider string

const (
	NoopProvider   Provider = "noop"
	StdoutProvider Provider = "stdout"
	OTLPProvider   Provider = "otlp"
)

// EventType is the severity of an internal event.
type EventType int

const (
	EventError EventType = iota
	EventWarning
	EventInfo
	EventDebug
)

// Event is an internal operational event.
type Event struct {
	Type    EventType
	Message string
	Args    []any
}

// EventHandler receives internal events.
type EventHandler func(Event)

// DefaultEventHandler logs events to logger. A nil logger discards them.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}
	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// Tracer owns a tracer provider and the propagator used for inbound
// requests. The global provider is only set with [WithGlobalTracerProvider].
type Tracer struct {
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
	eventHandler   EventHandler

	provider       Provider
	otlpEndpoint   string
	serviceName    string
	serviceVersion string
	sampleRate     float64
	customProvider bool
	registerGlobal bool
}

// New creates a [Tracer]. The default provider records nothing.
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		provider:       NoopProvider,
		serviceName:    "pgr",
		serviceVersion: "dev",
		sampleRate:     1,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.serviceName == "" {
		return nil, errors.New("invalid configuration: service name cannot be empty")
	}
	if t.sampleRate < 0 || t.sampleRate > 1 {
		return nil, fmt.Errorf("invalid configuration: sample rate %v outside [0, 1]", t.sampleRate)
	}
	if err := t.initProvider(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if t.registerGlobal {
		otel.SetTracerProvider(t.tracerProvider)
		otel.SetTextMapPropagator(t.propagator)
	}
	return t, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Tracer returns the underlying OpenTelemetry tracer.
func (t *Tracer) Tracer() trace.Tracer { return t.tracer }

// Provider returns the configured provider.
func (t *Tracer) Provider() Provider { return t.provider }

// StartRequestSpan extracts the remote trace context from req and starts a
// server span named "<method> <path>".
func (t *Tracer) StartRequestSpan(req *http.Request) (context.Context, trace.Span) {
	ctx := t.propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))
	ctx, span := t.tracer.Start(ctx, req.Method+" "+req.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
		attribute.String("user_agent.original", req.UserAgent()),
		attribute.String("service.name", t.serviceName),
	)
	return ctx, span
}

// FinishRequestSpan records status on span and ends it.
func (t *Tracer) FinishRequestSpan(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	span.End()
}

// Shutdown flushes and stops a provider created by [New]. A provider
// passed with [WithTracerProvider] is left to its owner.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.sdkProvider == nil || t.customProvider {
		return nil
	}
	if err := t.sdkProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	return nil
}

func (t *Tracer) emit(typ EventType, msg string, args ...any) {
	if t.eventHandler != nil {
		t.eventHandler(Event{Type: typ, Message: msg, Args: args})
	}
}

// TraceID returns the trace id of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanID returns the span id of the span in ctx, or "".
func SpanID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}
