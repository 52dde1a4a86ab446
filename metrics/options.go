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

package metrics

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Option configures a [Recorder].
type Option func(*Recorder)

// WithMeterProvider records through a caller-owned meter provider. Built-in
// provider options are ignored and Shutdown leaves the provider running.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		r.meterProvider = provider
		r.customProvider = true
	}
}

// WithPrometheus exposes metrics for scraping at addr+path. An empty addr
// disables the built-in server; the handler is still available from
// [Recorder.Handler].
func WithPrometheus(addr, path string) Option {
	return func(r *Recorder) {
		r.provider = PrometheusProvider
		r.addr = addr
		r.path = path
		r.providerSet++
	}
}

// WithOTLP pushes metrics to an OTLP HTTP collector.
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.provider = OTLPProvider
		r.otlpEndpoint = endpoint
		r.providerSet++
	}
}

// WithStdout writes metrics to standard output.
func WithStdout() Option {
	return func(r *Recorder) {
		r.provider = StdoutProvider
		r.providerSet++
	}
}

// WithServiceName sets the service.name attribute.
func WithServiceName(name string) Option {
	return func(r *Recorder) { r.serviceName = name }
}

// WithServiceVersion sets the service.version attribute.
func WithServiceVersion(version string) Option {
	return func(r *Recorder) { r.serviceVersion = version }
}

// WithExportInterval sets the push interval for OTLP and stdout.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) { r.exportInterval = interval }
}

// WithDurationBuckets overrides [DefaultDurationBuckets].
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.durationBuckets = buckets
		}
	}
}

// WithEventHandler receives internal events.
func WithEventHandler(handler EventHandler) Option {
	return func(r *Recorder) { r.eventHandler = handler }
}

// WithLogger logs internal events to logger.
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}
