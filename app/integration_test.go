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


//go:build integration

package app_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"pgr.dev/app"
	"pgr.dev/catalog"
	"pgr.dev/pg"
	"pgr.dev/router"
)

const schemaDDL = `
CREATE TABLE pgr.users (id serial PRIMARY KEY, name text NOT NULL, age integer);
CREATE TYPE pgr.new_user AS (name text, age integer);

CREATE FUNCTION pgr."post /users"(u pgr.new_user) RETURNS bigint
LANGUAGE sql AS $$
    INSERT INTO pgr.users (name, age) VALUES (($1).name, ($1).age) RETURNING id
$$;

CREATE FUNCTION pgr."get /user/:id"(id integer) RETURNS pgr.users
LANGUAGE sql STABLE AS $$
    SELECT * FROM pgr.users WHERE users.id = $1
$$;

CREATE FUNCTION pgr."get /users?min_age"(min_age integer) RETURNS SETOF pgr.users
LANGUAGE sql STABLE AS $$
    SELECT * FROM pgr.users WHERE $1 IS NULL OR age >= $1 ORDER BY id
$$;

CREATE FUNCTION pgr."get /split/:n"(n integer, OUT lo integer, OUT hi integer)
LANGUAGE sql IMMUTABLE AS $$
    SELECT $1 / 2, $1 - $1 / 2
$$;

CREATE FUNCTION pgr."get /fail"() RETURNS text
LANGUAGE plpgsql AS $$
BEGIN
    RAISE EXCEPTION 'nope' USING ERRCODE = 'P0001';
END
$$;

CREATE FUNCTION pgr."fetch /nothing"() RETURNS text
LANGUAGE sql AS $$ SELECT 'x' $$;
`

type PostgresSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *sql.DB
	app       *app.App
	diags     router.Diagnostics
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pgr"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLogger(log.TestLogger(s.T())),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.db, err = pg.Open(dsn, pg.WithMaxOpenConns(4))
	s.Require().NoError(err)

	s.Require().NoError(catalog.Provision(ctx, s.db, schemaDDL))

	s.app, err = app.New(s.db)
	s.Require().NoError(err)
	s.diags, err = s.app.Reload(ctx)
	s.Require().NoError(err)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.db != nil {
		s.NoError(s.db.Close())
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.app.Handler().ServeHTTP(w, req)
	return w
}

func (s *PostgresSuite) Test01_Catalog() {
	s.Equal(5, s.app.Dispatcher().Table().Len())
	s.Equal([]string{"fetch /nothing"}, s.diags.Kind(router.DiagParseError).Routines())

	w := s.do(http.MethodGet, "/readyz", "")
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *PostgresSuite) Test02_CreateAndRead() {
	w := s.do(http.MethodPost, "/users", `{"name":"Ann","age":30}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.JSONEq(`1`, w.Body.String())

	w = s.do(http.MethodPost, "/users", `{"name":"Bob","age":45}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/user/1", "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.JSONEq(`{"id":1,"name":"Ann","age":30}`, w.Body.String())

	w = s.do(http.MethodGet, "/users", "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var all []map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &all))
	s.Len(all, 2)

	w = s.do(http.MethodGet, "/users?min_age=40", "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.JSONEq(`[{"id":2,"name":"Bob","age":45}]`, w.Body.String())

	w = s.do(http.MethodGet, "/user/99", "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.JSONEq(`{"id":null,"name":null,"age":null}`, w.Body.String())
}

func (s *PostgresSuite) Test03_OutArguments() {
	w := s.do(http.MethodGet, "/split/5", "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.JSONEq(`{"lo":2,"hi":3}`, w.Body.String())
}

func (s *PostgresSuite) Test04_Errors() {
	w := s.do(http.MethodGet, "/fail", "")
	s.Equal(http.StatusBadGateway, w.Code)
	var problem map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &problem))
	s.Equal("invocation_failed", problem["code"])
	s.NotContains(w.Body.String(), "nope")

	w = s.do(http.MethodGet, "/user/abc", "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/nothing", "")
	s.Equal(http.StatusNotFound, w.Code)
}
