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
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

func (t *Tracer) initProvider(ctx context.Context) error {
	if t.customProvider {
		if t.tracerProvider == nil {
			return fmt.Errorf("custom tracer provider is nil")
		}
		t.tracer = t.tracerProvider.Tracer(tracerName)
		return nil
	}

	var exporter sdktrace.SpanExporter
	switch t.provider {
	case NoopProvider:
	case StdoutProvider:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		exporter = exp
	case OTLPProvider:
		exp, err := t.otlpExporter(ctx)
		if err != nil {
			return err
		}
		exporter = exp
	default:
		return fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(t.serviceName),
			semconv.ServiceVersion(t.serviceVersion),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.sampleRate))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	t.sdkProvider = tp
	t.tracerProvider = tp
	t.tracer = tp.Tracer(tracerName)
	t.emit(EventInfo, "tracing initialized", "provider", string(t.provider), "service", t.serviceName)
	return nil
}

func (t *Tracer) otlpExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	var opts []otlptracehttp.Option
	if endpoint := t.otlpEndpoint; endpoint != "" {
		insecure := false
		if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
			endpoint = trimmed
			insecure = true
		} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
			endpoint = trimmed
		}
		if i := strings.Index(endpoint, "/"); i != -1 {
			endpoint = endpoint[:i]
		}
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}
	return exp, nil
}
