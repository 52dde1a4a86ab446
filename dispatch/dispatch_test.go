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


//go:build !integration

package dispatch

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"pgr.dev/catalog"
	pgrerrors "pgr.dev/errors"
	"pgr.dev/logging"
	"pgr.dev/pg"
	"pgr.dev/router"
)

type requestRecord struct {
	route  string
	status int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []requestRecord
	reloads  []error
	routes   int
}

func (f *fakeRecorder) RecordRequest(_ context.Context, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, requestRecord{route: route, status: status})
}

func (f *fakeRecorder) RecordReload(_ context.Context, err error, routes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads = append(f.reloads, err)
	f.routes = routes
}

var userRoutine = catalog.Row{
	Name:       "get /user/:id?name&age",
	ReturnType: "text",
	ArgNames:   []string{"id", "name", "age"},
	ArgTypes:   []string{"integer", "text", "integer"},
}

var splitRoutine = catalog.Row{
	Name:       "get /split/:n",
	ReturnType: "record",
	ArgNames:   []string{"n", "lo", "hi"},
	ArgModes:   []string{"i", "o", "o"},
	ArgTypes:   []string{"integer", "integer", "integer"},
}

var createRoutine = catalog.Row{
	Name:       "post /users",
	ReturnType: "bigint",
	ArgNames:   []string{"name"},
	ArgTypes:   []string{"text"},
}

func compile(t *testing.T, rows ...catalog.Row) *router.Table {
	t.Helper()

	sigs, err := catalog.Introspect(rows)
	require.NoError(t, err)
	table, _ := router.Compile(sigs)
	require.Equal(t, len(rows), table.Len())
	return table
}

func newDispatcher(t *testing.T, opts ...Option) (*Dispatcher, sqlmock.Sqlmock) {
	t.Helper()

	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d, err := New(db, opts...)
	require.NoError(t, err)
	return d, m
}

func problem(t *testing.T, resp *Response) map[string]any {
	t.Helper()

	assert.Equal(t, "application/problem+json; charset=utf-8", resp.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	return body
}

func TestDispatch_BindsInDeclarationOrder(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	d, m := newDispatcher(t, WithRecorder(rec))
	d.Publish(compile(t, userRoutine))

	m.ExpectQuery(regexp.QuoteMeta(
		`SELECT "pgr"."get /user/:id?name&age"($1::integer, $2::text, $3::integer) AS "get /user/:id?name&age"`,
	)).
		WithArgs(int32(42), "Ann", int32(30)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("get /user/:id?name&age").OfType("TEXT", ""),
		).AddRow("Ann is 30"))

	resp := d.Dispatch(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/user/42",
		Query:  url.Values{"name": {"Ann"}, "age": {"30"}},
	})

	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `"Ann is 30"`, string(resp.Body))
	require.NoError(t, m.ExpectationsWereMet())

	require.Len(t, rec.requests, 1)
	assert.Equal(t, requestRecord{route: "GET /user/:id", status: http.StatusOK}, rec.requests[0])
}

func TestDispatch_MissingQueryBindsNull(t *testing.T) {
	t.Parallel()

	d, m := newDispatcher(t)
	d.Publish(compile(t, userRoutine))

	m.ExpectQuery(regexp.QuoteMeta(`SELECT "pgr"."get /user/:id?name&age"(`)).
		WithArgs(int32(7), nil, nil).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("get /user/:id?name&age").OfType("TEXT", ""),
		).AddRow(nil))

	resp := d.Dispatch(context.Background(), &Request{Method: http.MethodGet, Path: "/user/7"})

	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.Equal(t, "null", string(resp.Body))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestDispatch_BoundaryValues(t *testing.T) {
	t.Parallel()

	amount := catalog.Row{
		Name:       "get /amount/:v",
		ReturnType: "text",
		ArgNames:   []string{"v"},
		ArgTypes:   []string{"numeric"},
	}

	tests := []struct {
		name  string
		row   catalog.Row
		path  string
		query string
		arg   any
	}{
		{name: "integer max", row: userRoutine, path: "/user/2147483647", query: `SELECT "pgr"."get /user/:id?name&age"(`, arg: int32(2147483647)},
		{name: "integer min", row: userRoutine, path: "/user/-2147483648", query: `SELECT "pgr"."get /user/:id?name&age"(`, arg: int32(-2147483648)},
		{name: "numeric beyond float64", row: amount, path: "/amount/1e400", query: `SELECT "pgr"."get /amount/:v"($1::numeric)`, arg: "1e400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, m := newDispatcher(t)
			d.Publish(compile(t, tt.row))

			args := []driver.Value{tt.arg}
			if tt.row.Name == userRoutine.Name {
				args = append(args, nil, nil)
			}
			m.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs(args...).
				WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
					sqlmock.NewColumn(tt.row.Name).OfType("TEXT", ""),
				).AddRow("ok"))

			resp := d.Dispatch(context.Background(), &Request{Method: http.MethodGet, Path: tt.path})

			require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
			require.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestDispatch_OutComposite(t *testing.T) {
	t.Parallel()

	d, m := newDispatcher(t)
	d.Publish(compile(t, splitRoutine))

	m.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "pgr"."get /split/:n"($1::integer)`)).
		WithArgs(int32(5)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("lo").OfType("INT4", int64(0)),
			sqlmock.NewColumn("hi").OfType("INT4", int64(0)),
		).AddRow(int64(2), int64(3)))

	resp := d.Dispatch(context.Background(), &Request{Method: http.MethodGet, Path: "/split/5"})

	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.Equal(t, `{"lo":2,"hi":3}`, string(resp.Body))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestDispatch_Negotiation(t *testing.T) {
	t.Parallel()

	d, m := newDispatcher(t)
	d.Publish(compile(t, splitRoutine))

	m.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "pgr"."get /split/:n"($1::integer)`)).
		WithArgs(int32(1)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("lo").OfType("INT4", int64(0)),
			sqlmock.NewColumn("hi").OfType("INT4", int64(0)),
		).AddRow(int64(0), int64(1)))

	resp := d.Dispatch(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/split/1",
		Accept: "application/yaml, application/json;q=0.5",
	})

	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.Equal(t, "application/yaml; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "lo: 0\nhi: 1\n", string(resp.Body))
}

func TestDispatch_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    *Request
		status int
		code   string
		arg    string
	}{
		{
			name:   "path integer overflow",
			req:    &Request{Method: http.MethodGet, Path: "/user/99999999999"},
			status: http.StatusBadRequest,
			code:   "binding_error",
			arg:    "id",
		},
		{
			name:   "path integer just above range",
			req:    &Request{Method: http.MethodGet, Path: "/user/2147483648"},
			status: http.StatusBadRequest,
			code:   "binding_error",
			arg:    "id",
		},
		{
			name: "query integer overflow",
			req: &Request{
				Method: http.MethodGet, Path: "/user/1",
				Query: url.Values{"age": {"3000000000"}},
			},
			status: http.StatusBadRequest,
			code:   "binding_error",
			arg:    "age",
		},
		{
			name:   "wrong method",
			req:    &Request{Method: http.MethodPost, Path: "/user/42"},
			status: http.StatusNotFound,
			code:   "route_not_found",
		},
		{
			name:   "unknown path",
			req:    &Request{Method: http.MethodGet, Path: "/nope"},
			status: http.StatusNotFound,
			code:   "route_not_found",
		},
		{
			name:   "malformed path value",
			req:    &Request{Method: http.MethodGet, Path: "/user/abc"},
			status: http.StatusBadRequest,
			code:   "binding_error",
		},
		{
			name:   "missing body",
			req:    &Request{Method: http.MethodPost, Path: "/users"},
			status: http.StatusBadRequest,
			code:   "binding_error",
		},
		{
			name: "unsupported media type",
			req: &Request{
				Method: http.MethodPost, Path: "/users",
				ContentType: "image/png", Body: []byte{0x89},
			},
			status: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &fakeRecorder{}
			d, m := newDispatcher(t, WithRecorder(rec))
			d.Publish(compile(t, userRoutine, createRoutine))

			resp := d.Dispatch(context.Background(), tt.req)

			assert.Equal(t, tt.status, resp.Status)
			body := problem(t, resp)
			assert.InDelta(t, tt.status, body["status"], 0)
			assert.Equal(t, tt.req.Path, body["instance"])
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			}
			if tt.arg != "" {
				details, ok := body["details"].(map[string]any)
				require.True(t, ok, "details: %v", body["details"])
				assert.Equal(t, tt.arg, details["argument"])
			}
			require.NoError(t, m.ExpectationsWereMet())
			require.Len(t, rec.requests, 1)
			assert.Equal(t, tt.status, rec.requests[0].status)
		})
	}
}

func TestDispatch_NotReady(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t)
	resp := d.Dispatch(context.Background(), &Request{Method: http.MethodGet, Path: "/"})

	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, "about:blank", problem(t, resp)["type"])
}

func TestDispatch_DatabaseError(t *testing.T) {
	t.Parallel()

	th := logging.NewTestHelper(t)
	d, m := newDispatcher(t, WithLogger(th.Logger.Logger()))
	d.Publish(compile(t, createRoutine))

	m.ExpectQuery(regexp.QuoteMeta(`SELECT "pgr"."post /users"($1::text) AS "post /users"`)).
		WithArgs("Ann").
		WillReturnError(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "users_pkey"`})

	resp := d.Dispatch(context.Background(), &Request{
		Method:      http.MethodPost,
		Path:        "/users",
		ContentType: "application/json",
		Body:        []byte(`"Ann"`),
	})

	assert.Equal(t, http.StatusBadGateway, resp.Status)
	body := problem(t, resp)
	assert.Equal(t, "invocation_failed", body["code"])
	assert.NotContains(t, string(resp.Body), "users_pkey")
	assert.Equal(t, map[string]any{"sqlstate": "23505", "condition": "unique_violation"}, body["details"])

	assert.True(t, th.ContainsLog("request failed"))
	assert.True(t, th.ContainsAttr("status", http.StatusBadGateway))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestDispatch_SimpleFormatter(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t, WithFormatter(pgrerrors.NewSimple()))
	d.Publish(compile(t, userRoutine))

	resp := d.Dispatch(context.Background(), &Request{Method: http.MethodDelete, Path: "/user/1"})

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"error":"no route for DELETE /user/1","code":"route_not_found"}`, string(resp.Body))
}

func TestDispatch_Spans(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	d, m := newDispatcher(t, WithTracer(tp.Tracer("test")))
	d.Publish(compile(t, splitRoutine))

	m.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "pgr"."get /split/:n"($1::integer)`)).
		WithArgs(int32(9)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("lo").OfType("INT4", int64(0)),
			sqlmock.NewColumn("hi").OfType("INT4", int64(0)),
		).AddRow(int64(4), int64(5)))

	resp := d.Dispatch(context.Background(), &Request{Method: http.MethodGet, Path: "/split/9"})
	require.Equal(t, http.StatusOK, resp.Status)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "pgr.invoke", spans[0].Name())
	assert.Equal(t, "pgr.dispatch", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func catalogRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"name", "retset", "rettype", "retcomposite", "argnames", "argmodes", "argtypes"}).
		AddRow("get /user/:id?name&age", false, "text", false, "{id,name,age}", nil, "{integer,text,integer}").
		AddRow("get /split/:n", false, "record", true, "{n,lo,hi}", "{i,o,o}", "{integer,integer,integer}").
		AddRow("get /broken/:x", false, "text", false, nil, nil, nil)
}

func TestReload(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	d, m := newDispatcher(t, WithRecorder(rec), WithCompileOptions(router.WithCaseSensitive(true)))

	m.ExpectQuery(regexp.QuoteMeta(catalog.Query(catalog.DefaultFunction))).
		WithArgs("pgr").
		WillReturnRows(catalogRows())

	diags, err := d.Reload(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.ExpectationsWereMet())

	require.NotNil(t, d.Table())
	assert.Equal(t, 2, d.Table().Len())
	assert.Equal(t, []string{"get /broken/:x"}, diags.Kind(router.DiagUnboundPath).Routines())

	require.Len(t, rec.reloads, 1)
	require.NoError(t, rec.reloads[0])
	assert.Equal(t, 2, rec.routes)
}

func TestReload_FailureKeepsTable(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	d, m := newDispatcher(t, WithRecorder(rec), WithSchema("api"), WithCatalogFunction("meta.routines"))
	previous := compile(t, userRoutine)
	d.Publish(previous)

	boom := errors.New("relation does not exist")
	m.ExpectQuery(regexp.QuoteMeta(catalog.Query("meta.routines"))).
		WithArgs("api").
		WillReturnError(boom)

	_, err := d.Reload(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Same(t, previous, d.Table())
	require.Len(t, rec.reloads, 1)
	require.ErrorIs(t, rec.reloads[0], boom)
}

func TestReload_InProgress(t *testing.T) {
	t.Parallel()

	d, m := newDispatcher(t)
	d.reloading.Store(true)

	_, err := d.Reload(context.Background())
	require.ErrorIs(t, err, ErrReloadInProgress)
	require.NoError(t, m.ExpectationsWereMet())

	d.reloading.Store(false)
	m.ExpectQuery(regexp.QuoteMeta(catalog.Query(catalog.DefaultFunction))).
		WithArgs("pgr").
		WillReturnRows(catalogRows())
	_, err = d.Reload(context.Background())
	require.NoError(t, err)
}

func TestReady(t *testing.T) {
	t.Parallel()

	db, m, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	d, err := New(db)
	require.NoError(t, err)
	require.ErrorIs(t, d.Ready(context.Background()), ErrNotReady)

	d.Publish(compile(t, userRoutine))
	m.ExpectPing()
	require.NoError(t, d.Ready(context.Background()))

	m.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.Error(t, d.Ready(context.Background()))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, ErrNilDatabase)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, WithSchema(""))
	require.Error(t, err)
}

func TestServeHTTP(t *testing.T) {
	t.Parallel()

	d, m := newDispatcher(t)
	d.Publish(compile(t, createRoutine))

	m.ExpectQuery(regexp.QuoteMeta(`SELECT "pgr"."post /users"($1::text) AS "post /users"`)).
		WithArgs("Bob").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("post /users").OfType("INT8", int64(0)),
		).AddRow(int64(11)))

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`"Bob"`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "11", w.Body.String())
	assert.Equal(t, "2", w.Header().Get("Content-Length"))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestServeHTTP_EscapedSlashInParam(t *testing.T) {
	t.Parallel()

	file := catalog.Row{
		Name:       "get /file/:name",
		ReturnType: "text",
		ArgNames:   []string{"name"},
		ArgTypes:   []string{"text"},
	}
	d, m := newDispatcher(t)
	d.Publish(compile(t, file))

	m.ExpectQuery(regexp.QuoteMeta(`SELECT "pgr"."get /file/:name"($1::text)`)).
		WithArgs("docs/a b.txt").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("get /file/:name").OfType("TEXT", ""),
		).AddRow("found"))

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/file/docs%2Fa%20b.txt", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `"found"`, w.Body.String())
	require.NoError(t, m.ExpectationsWereMet())

	w = httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/file/docs/a.txt", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeHTTP_BodyTooLarge(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t)
	d.Publish(compile(t, createRoutine))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(bytes.Repeat([]byte("a"), 64)))
	req.Body = http.MaxBytesReader(w, req.Body, 8)
	d.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// unreachableDB fails every connection attempt.
type unreachableDB struct{ pg.Database }

func (unreachableDB) Conn(context.Context) (*sql.Conn, error) {
	return nil, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
}

func TestDispatch_ConnectionFailure(t *testing.T) {
	t.Parallel()

	d, err := New(unreachableDB{})
	require.NoError(t, err)
	d.Publish(compile(t, splitRoutine))

	resp := d.Dispatch(context.Background(), &Request{Method: http.MethodGet, Path: "/split/1"})

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	body := problem(t, resp)
	assert.Equal(t, "invocation_failed", body["code"])
	assert.NotContains(t, string(resp.Body), "127.0.0.1")
}
