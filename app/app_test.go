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

package app

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgr.dev/catalog"
	"pgr.dev/dispatch"
	"pgr.dev/logging"
	"pgr.dev/router"
)

func catalogRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"name", "retset", "rettype", "retcomposite", "argnames", "argmodes", "argtypes"}).
		AddRow("get /ping", false, "text", false, nil, nil, nil).
		AddRow("post /users", false, "bigint", false, "{name}", nil, "{text}").
		AddRow("get /broken/:x", false, "text", false, nil, nil, nil)
}

func expectCatalog(m sqlmock.Sqlmock) {
	m.ExpectQuery(regexp.QuoteMeta(catalog.Query(catalog.DefaultFunction))).
		WithArgs("pgr").
		WillReturnRows(catalogRows())
}

func newTestApp(t *testing.T, opts ...Option) (*App, sqlmock.Sqlmock) {
	t.Helper()

	db, m, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a, err := New(db, opts...)
	require.NoError(t, err)
	return a, m
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{name: "empty service name", opts: []Option{WithServiceName("")}, want: "service name"},
		{name: "unknown environment", opts: []Option{WithEnvironment("staging")}, want: "environment"},
		{name: "zero shutdown timeout", opts: []Option{WithServer(WithShutdownTimeout(0))}, want: "shutdown timeout"},
		{name: "same health paths", opts: []Option{WithHealthPaths("/h", "/h")}, want: "health paths"},
		{name: "relative openapi path", opts: []Option{WithOpenAPI("openapi.json")}, want: "openapi path"},
		{name: "openapi on probe", opts: []Option{WithOpenAPI("/healthz")}, want: "openapi path"},
		{name: "unknown trailing slash policy", opts: []Option{WithServer(WithTrailingSlash("append"))}, want: "unknown policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(db, tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err = New(nil)
	require.ErrorIs(t, err, dispatch.ErrNilDatabase)
}

func TestHandler_Probes(t *testing.T) {
	t.Parallel()

	a, m := newTestApp(t)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/problem+json; charset=utf-8", w.Header().Get("Content-Type"))

	expectCatalog(m)
	_, err := a.Reload(context.Background())
	require.NoError(t, err)

	m.ExpectPing()
	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestHandler_Dispatch(t *testing.T) {
	t.Parallel()

	th := logging.NewTestHelper(t)
	a, m := newTestApp(t, WithLogger(th.Logger.Logger()))
	expectCatalog(m)
	_, err := a.Reload(context.Background())
	require.NoError(t, err)

	m.ExpectQuery(regexp.QuoteMeta(`SELECT "pgr"."get /ping"() AS "get /ping"`)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("get /ping").OfType("TEXT", ""),
		).AddRow("pong"))

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"pong"`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	id := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, id)
	assert.True(t, th.ContainsAttr("request_id", id))
	assert.True(t, th.ContainsAttr("path", "/ping"))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestHandler_CORSAndCompression(t *testing.T) {
	t.Parallel()

	a, m := newTestApp(t, WithServer(
		WithCORS("https://app.example.com"),
		WithCompression(true),
	))
	expectCatalog(m)
	_, err := a.Reload(context.Background())
	require.NoError(t, err)

	preflight := httptest.NewRequest(http.MethodOptions, "/users", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	long := strings.Repeat("x", 4096)
	m.ExpectQuery(regexp.QuoteMeta(`SELECT "pgr"."get /ping"() AS "get /ping"`)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("get /ping").OfType("TEXT", ""),
		).AddRow(long))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+long+`"`, string(body))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestHandler_RateLimit(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, WithServer(WithRateLimit(0.001, 1)))

	serve := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.0.2.7:4000"
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, req)
		return w.Code
	}

	assert.NotEqual(t, http.StatusTooManyRequests, serve("/nothing"))
	assert.Equal(t, http.StatusTooManyRequests, serve("/nothing"))
	assert.Equal(t, http.StatusOK, serve("/healthz"))
}

func TestHandler_TrailingSlashAndOverride(t *testing.T) {
	t.Parallel()

	a, m := newTestApp(t, WithServer(WithMethodOverride(true)))
	expectCatalog(m)
	_, err := a.Reload(context.Background())
	require.NoError(t, err)

	m.ExpectQuery(regexp.QuoteMeta(`SELECT "pgr"."get /ping"() AS "get /ping"`)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("get /ping").OfType("TEXT", ""),
		).AddRow("pong"))

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"pong"`, w.Body.String())

	// No DELETE route exists for /users, so the overridden request misses.
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"Ann"}`))
	req.Header.Set("X-HTTP-Method-Override", "DELETE")
	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestHandler_BodyLimit(t *testing.T) {
	t.Parallel()

	a, m := newTestApp(t, WithServer(WithBodyLimit(4)))
	expectCatalog(m)
	_, err := a.Reload(context.Background())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users",
		strings.NewReader(`{"name":"Ann"}`)))

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.InDelta(t, float64(http.StatusRequestEntityTooLarge), body["status"], 0)
}

func TestReload_LogsDiagnosticsAndRunsHooks(t *testing.T) {
	t.Parallel()

	th := logging.NewTestHelper(t)
	a, m := newTestApp(t, WithLogger(th.Logger.Logger()))

	var got router.Diagnostics
	a.OnReload(func(d router.Diagnostics, err error) {
		assert.NoError(t, err)
		got = d
	})

	expectCatalog(m)
	_, err := a.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"get /broken/:x"}, got.Routines())
	assert.Equal(t, 1, th.CountLevel("WARN"))
	assert.True(t, th.ContainsAttr("kind", string(router.DiagUnboundPath)))
	assert.True(t, th.ContainsAttr("routine", "get /ping"))
	assert.True(t, th.ContainsAttr("routes", 2))
}

func TestHandler_OpenAPI(t *testing.T) {
	t.Parallel()

	a, m := newTestApp(t, WithServiceVersion("1.4.0"), WithOpenAPI("/openapi.json"))
	expectCatalog(m)
	_, err := a.Reload(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Info  map[string]string         `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "1.4.0", doc.Info["version"])
	assert.Contains(t, doc.Paths["/ping"], "get")
	assert.Contains(t, doc.Paths["/users"], "post")
	assert.NotContains(t, doc.Paths, "/broken/{x}")

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml; charset=utf-8", rec.Header().Get("Content-Type"))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestReload_Failure(t *testing.T) {
	t.Parallel()

	th := logging.NewTestHelper(t)
	a, m := newTestApp(t, WithLogger(th.Logger.Logger()))

	var hookErr error
	a.OnReload(func(_ router.Diagnostics, err error) { hookErr = err })

	m.ExpectQuery(regexp.QuoteMeta(catalog.Query(catalog.DefaultFunction))).
		WillReturnError(assert.AnError)
	_, err := a.Reload(context.Background())

	require.ErrorIs(t, err, assert.AnError)
	require.ErrorIs(t, hookErr, assert.AnError)
	assert.True(t, th.ContainsLog("reload failed"))
}

func TestRenderRoutes(t *testing.T) {
	t.Parallel()

	a, m := newTestApp(t)
	expectCatalog(m)
	diags, err := a.Reload(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	RenderRoutes(&buf, a.Dispatcher().Table().Routes(), false, 60)
	out := buf.String()
	assert.Contains(t, out, "Routine")
	assert.Contains(t, out, "/ping")
	assert.Contains(t, out, "post /users")
	assert.Contains(t, out, "scalar")
	assert.NotContains(t, out, "\x1b[")

	buf.Reset()
	RenderDiagnostics(&buf, diags, false)
	assert.Equal(t, "unbound_path  \"get /broken/:x\": "+diags[0].Message+"\n", buf.String())

	buf.Reset()
	RenderRoutes(&buf, nil, false, 60)
	assert.Equal(t, "No routes compiled\n", buf.String())
}

func TestPrintStartupBanner(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a, m := newTestApp(t,
		WithBanner(&buf),
		WithServiceVersion("1.2.3"),
		WithEnvironment(EnvironmentProduction),
	)
	expectCatalog(m)
	_, err := a.Reload(context.Background())
	require.NoError(t, err)

	a.printStartupBanner(":3030", "HTTP")
	out := buf.String()
	assert.Contains(t, out, "1.2.3")
	assert.Contains(t, out, "http://0.0.0.0:3030")
	assert.Contains(t, out, "Disabled")
	assert.NotContains(t, out, "Routine", "route table is development only")

	silent, _ := newTestApp(t)
	silent.printStartupBanner(":3030", "HTTP")
}
