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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"pgr.dev/binding"
	"pgr.dev/catalog"
	pgrerrors "pgr.dev/errors"
	"pgr.dev/logging"
	"pgr.dev/pg"
	"pgr.dev/render"
	"pgr.dev/router"
)

const tracerName = "pgr.dev/dispatch"

// Request is a transport-neutral HTTP request.
type Request struct {
	Method string
	// Path is the escaped request path. Path parameter values are
	// unescaped after matching, so "%2F" stays inside one segment.
	Path        string
	Query       url.Values
	Accept      string
	ContentType string
	Body        []byte
}

// Response is the outcome of [Dispatcher.Dispatch]. It is always complete:
// failures are rendered into Status, Header and Body.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Dispatcher serves requests from the published route table.
//
// The table is replaced atomically by [Dispatcher.Reload] and
// [Dispatcher.Publish]; requests in flight keep the table they started
// with. A Dispatcher is safe for concurrent use.
type Dispatcher struct {
	db          pg.Database
	table       atomic.Pointer[router.Table]
	reloading   atomic.Bool
	schema      string
	function    string
	compileOpts []router.CompileOption
	formatter   pgrerrors.Formatter
	recorder    Recorder
	tracer      trace.Tracer
	logger      *slog.Logger
}

// New returns a Dispatcher over db. No table is published until
// [Dispatcher.Reload] or [Dispatcher.Publish] is called; until then every
// request fails with 503.
func New(db pg.Database, opts ...Option) (*Dispatcher, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	d := &Dispatcher{
		db:        db,
		schema:    "pgr",
		function:  catalog.DefaultFunction,
		formatter: pgrerrors.NewRFC9457(""),
		recorder:  noopRecorder{},
		tracer:    noop.NewTracerProvider().Tracer(tracerName),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.schema == "" {
		return nil, errors.New("dispatch: schema is required")
	}
	return d, nil
}

// Table returns the published table, or nil.
func (d *Dispatcher) Table() *router.Table { return d.table.Load() }

// Publish replaces the route table.
func (d *Dispatcher) Publish(t *router.Table) { d.table.Store(t) }

// Reload reads the catalog, compiles it and publishes the result. The
// previous table stays in place when reading or decoding the catalog
// fails. Only one reload runs at a time; a concurrent call returns
// [ErrReloadInProgress] without waiting.
func (d *Dispatcher) Reload(ctx context.Context) (router.Diagnostics, error) {
	if !d.reloading.CompareAndSwap(false, true) {
		return nil, ErrReloadInProgress
	}
	defer d.reloading.Store(false)

	ctx, span := d.tracer.Start(ctx, "pgr.reload",
		trace.WithAttributes(attribute.String("pgr.schema", d.schema)))
	defer span.End()

	sigs, err := catalog.Load(ctx, d.db, d.function, d.schema)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog load failed")
		d.recorder.RecordReload(ctx, err, 0)
		return nil, fmt.Errorf("reload: %w", err)
	}

	table, diags := router.Compile(sigs, d.compileOpts...)
	d.table.Store(table)

	span.SetAttributes(
		attribute.Int("pgr.routines", len(sigs)),
		attribute.Int("pgr.routes", table.Len()),
	)
	d.recorder.RecordReload(ctx, nil, table.Len())
	return diags, nil
}

// Ready reports whether a table is published and the database answers.
func (d *Dispatcher) Ready(ctx context.Context) error {
	if d.table.Load() == nil {
		return ErrNotReady
	}
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("dispatch: ping: %w", err)
	}
	return nil
}

// Dispatch matches req, binds its arguments, invokes the routine and
// encodes the result in the format negotiated from req.Accept.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "pgr.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		))
	defer span.End()

	resp, route, err := d.dispatch(ctx, req)
	if err != nil {
		resp = d.fail(ctx, req.Path, err)
		if resp.Status >= http.StatusInternalServerError {
			span.RecordError(err)
			span.SetStatus(codes.Error, http.StatusText(resp.Status))
		}
	}

	label := ""
	if route != nil {
		label = route.String()
		span.SetAttributes(
			attribute.String("http.route", route.Pattern()),
			attribute.String("pgr.routine", route.Name()),
		)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	d.recorder.RecordRequest(ctx, label, resp.Status, time.Since(start))
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request) (*Response, *router.CompiledRoute, error) {
	table := d.table.Load()
	if table == nil {
		return nil, nil, pgrerrors.WithStatus(ErrNotReady, http.StatusServiceUnavailable)
	}

	route, values, ok := table.Match(req.Method, req.Path)
	if !ok {
		return nil, nil, &NotFoundError{Method: req.Method, Path: req.Path}
	}
	values, err := unescapeAll(values)
	if err != nil {
		return nil, route, pgrerrors.WithStatus(err, http.StatusBadRequest)
	}

	params, err := binding.Bind(route, binding.Input{
		Params:      values,
		Query:       req.Query,
		ContentType: req.ContentType,
		Body:        req.Body,
	})
	if err != nil {
		return nil, route, err
	}

	res, err := d.invoke(ctx, route, params)
	if err != nil {
		return nil, route, err
	}

	payload, err := render.Encode(route.Output(), res)
	if err != nil {
		return nil, route, fmt.Errorf("encode %s: %w", route.Name(), err)
	}
	format := render.Negotiate(req.Accept)
	body, err := render.Marshal(format, payload)
	if err != nil {
		return nil, route, fmt.Errorf("marshal %s: %w", format, err)
	}

	return &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {format.ContentType()}},
		Body:   body,
	}, route, nil
}

func (d *Dispatcher) invoke(ctx context.Context, route *router.CompiledRoute, params []pg.Param) (*pg.Result, error) {
	ctx, span := d.tracer.Start(ctx, "pgr.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", route.Name()),
		))
	defer span.End()

	res, err := pg.Invoke(ctx, d.db, &pg.Call{
		Schema:  d.schema,
		Routine: route.Name(),
		Scalar:  route.Output().Kind == router.OutputScalar,
		Params:  params,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invocation failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.rows", len(res.Rows)))
	return res, nil
}

// fail renders err through the formatter and logs it.
func (d *Dispatcher) fail(ctx context.Context, instance string, err error) *Response {
	out := d.formatter.Format(instance, err)

	log := logging.NewContextLogger(ctx, d.logger)
	if out.Status >= http.StatusInternalServerError {
		log.Error("request failed", "path", instance, "status", out.Status, "error", cause(err))
	} else {
		log.Debug("request rejected", "path", instance, "status", out.Status, "error", err.Error())
	}

	body, merr := render.Marshal(render.FormatJSON, out.Body)
	if merr != nil {
		body = []byte(`{"title":"Internal Server Error","status":500}`)
		out.Status = http.StatusInternalServerError
	}

	header := make(http.Header, len(out.Headers)+1)
	for k, v := range out.Headers {
		header[k] = v
	}
	header.Set("Content-Type", out.ContentType)
	return &Response{Status: out.Status, Header: header, Body: body}
}

// cause returns the driver error behind an invocation failure, which the
// response never carries.
func cause(err error) string {
	var ie *pg.InvocationError
	if errors.As(err, &ie) && ie.Err != nil {
		return ie.Err.Error()
	}
	return err.Error()
}

func unescapeAll(values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		u, err := url.PathUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("path parameter %q: %w", v, err)
		}
		out[i] = u
	}
	return out, nil
}
