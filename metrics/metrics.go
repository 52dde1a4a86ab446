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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultDurationBuckets are histogram boundaries for dispatch duration in
// seconds.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// ErrNoHandler is returned by [Recorder.Handler] when the provider is not
// Prometheus.
var ErrNoHandler = errors.New("metrics: handler only available with the prometheus provider")

const meterName = "pgr.dev/metrics"

// EventType is the severity of an internal event.
type EventType int

const (
	EventError EventType = iota
	EventWarning
	EventInfo
	EventDebug
)

// Event is an internal operational event, such as a failed export.
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

// Provider names a metrics backend.
type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OTLPProvider       Provider = "otlp"
	StdoutProvider     Provider = "stdout"
)

// Recorder records dispatcher and reload metrics. It is safe for concurrent
// use.
//
// Instruments:
//
//	pgr.requests          counter    route, status
//	pgr.dispatch.duration histogram  route (seconds)
//	pgr.reloads           counter    result
//	pgr.routes            gauge      compiled routes in the published table
type Recorder struct {
	meterProvider     metric.MeterProvider
	customProvider    bool
	prometheusHandler http.Handler
	eventHandler      EventHandler

	requests metric.Int64Counter
	duration metric.Float64Histogram
	reloads  metric.Int64Counter
	routes   metric.Int64Gauge

	serviceAttrs attribute.Set

	provider        Provider
	providerSet     int
	otlpEndpoint    string
	exportInterval  time.Duration
	durationBuckets []float64
	serviceName     string
	serviceVersion  string
	addr            string
	path            string

	serverMu     sync.Mutex
	server       *http.Server
	started      atomic.Bool
	shuttingDown atomic.Bool
}

// New creates a [Recorder]. Prometheus is the default provider.
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		provider:        PrometheusProvider,
		exportInterval:  30 * time.Second,
		durationBuckets: DefaultDurationBuckets,
		serviceName:     "pgr",
		serviceVersion:  "dev",
		addr:            ":9090",
		path:            "/metrics",
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := r.initProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := r.initInstruments(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Recorder) validate() error {
	if r.providerSet > 1 {
		return errors.New("only one of WithPrometheus, WithOTLP or WithStdout can be used")
	}
	if r.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	switch r.provider {
	case PrometheusProvider:
		if r.path == "" {
			return errors.New("metrics path cannot be empty")
		}
	case OTLPProvider:
		if r.otlpEndpoint == "" {
			r.emit(EventWarning, "OTLP endpoint not specified, using default", "default", "http://localhost:4318")
			r.otlpEndpoint = "http://localhost:4318"
		}
	case StdoutProvider:
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}
	return nil
}

func (r *Recorder) initInstruments() error {
	meter := r.meterProvider.Meter(meterName)
	r.serviceAttrs = attribute.NewSet(
		attribute.String("service.name", r.serviceName),
		attribute.String("service.version", r.serviceVersion),
	)

	var err error
	if r.requests, err = meter.Int64Counter("pgr.requests",
		metric.WithDescription("Dispatched requests by route and status")); err != nil {
		return fmt.Errorf("pgr.requests: %w", err)
	}
	if r.duration, err = meter.Float64Histogram("pgr.dispatch.duration",
		metric.WithDescription("Time spent dispatching a request"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...)); err != nil {
		return fmt.Errorf("pgr.dispatch.duration: %w", err)
	}
	if r.reloads, err = meter.Int64Counter("pgr.reloads",
		metric.WithDescription("Route table reloads by result")); err != nil {
		return fmt.Errorf("pgr.reloads: %w", err)
	}
	if r.routes, err = meter.Int64Gauge("pgr.routes",
		metric.WithDescription("Routes in the published table")); err != nil {
		return fmt.Errorf("pgr.routes: %w", err)
	}
	return nil
}

// RecordRequest records one dispatched request. route is the matched
// pattern key, or empty when nothing matched.
func (r *Recorder) RecordRequest(ctx context.Context, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	routeAttr := attribute.String("route", route)
	r.requests.Add(ctx, 1, metric.WithAttributeSet(r.serviceAttrs),
		metric.WithAttributes(routeAttr, attribute.String("status", strconv.Itoa(status))))
	r.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributeSet(r.serviceAttrs),
		metric.WithAttributes(routeAttr))
}

// RecordReload records a reload attempt. routes is the size of the table
// published by a successful reload.
func (r *Recorder) RecordReload(ctx context.Context, err error, routes int) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.reloads.Add(ctx, 1, metric.WithAttributeSet(r.serviceAttrs),
		metric.WithAttributes(attribute.String("result", result)))
	if err == nil {
		r.routes.Record(ctx, int64(routes), metric.WithAttributeSet(r.serviceAttrs))
	}
}

// Handler returns the Prometheus scrape handler.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.prometheusHandler == nil {
		return nil, ErrNoHandler
	}
	return r.prometheusHandler, nil
}

// Provider returns the configured provider.
func (r *Recorder) Provider() Provider { return r.provider }

// Path returns the scrape path.
func (r *Recorder) Path() string { return r.path }

// Addr returns the address of the built-in scrape server, or "".
func (r *Recorder) Addr() string { return r.addr }

// ServesOwnEndpoint reports whether [Recorder.Start] runs a scrape server.
// Otherwise the caller mounts [Recorder.Handler] itself.
func (r *Recorder) ServesOwnEndpoint() bool {
	return r.prometheusHandler != nil && r.addr != ""
}

// Start serves the scrape endpoint on the configured address when the
// provider is Prometheus and an address is set. It is idempotent.
func (r *Recorder) Start(_ context.Context) error {
	if r.prometheusHandler == nil || r.addr == "" {
		return nil
	}
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}
	if r.shuttingDown.Load() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(r.path, r.prometheusHandler)
	server := &http.Server{
		Addr:              r.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.serverMu.Lock()
	r.server = server
	r.serverMu.Unlock()

	go func() {
		r.emit(EventInfo, "metrics server starting", "address", r.addr, "path", r.path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.emit(EventError, "metrics server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the scrape server and flushes the meter provider. A
// provider passed with [WithMeterProvider] is left to its owner.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	r.serverMu.Lock()
	server := r.server
	r.server = nil
	r.serverMu.Unlock()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if mp, ok := r.meterProvider.(*sdkmetric.MeterProvider); ok && !r.customProvider {
		if err := mp.ForceFlush(ctx); err != nil {
			r.emit(EventWarning, "metrics flush failed", "error", err)
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Recorder) emit(t EventType, msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: t, Message: msg, Args: args})
	}
}
