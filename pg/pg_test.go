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

package pg

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_SQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		call Call
		want string
	}{
		{
			name: "scalar without arguments",
			call: Call{Schema: "pgr", Routine: "get /count", Scalar: true},
			want: `SELECT "pgr"."get /count"() AS "get /count"`,
		},
		{
			name: "scalar with arguments",
			call: Call{
				Schema: "pgr", Routine: "get /user/:id?name", Scalar: true,
				Params: []Param{
					{Name: "id", Type: "integer", Value: int32(1)},
					{Name: "name", Type: "text", Value: "Ann"},
				},
			},
			want: `SELECT "pgr"."get /user/:id?name"($1::integer, $2::text) AS "get /user/:id?name"`,
		},
		{
			name: "set with composite body",
			call: Call{
				Schema: "pgr", Routine: "put /user/:id",
				Params: []Param{
					{Name: "id", Type: "integer", Value: int32(1)},
					{Name: "u", Type: "pgr.user_t", Value: `{"name":"Ann"}`, Kind: ParamRecord},
				},
			},
			want: `SELECT * FROM "pgr"."put /user/:id"($1::integer, json_populate_record(NULL::pgr.user_t, $2::json))`,
		},
		{
			name: "quoted schema",
			call: Call{Schema: `we"ird`, Routine: "get /"},
			want: `SELECT * FROM "we""ird"."get /"()`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.call.SQL())
		})
	}
}

func TestInvoke(t *testing.T) {
	t.Parallel()

	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	call := &Call{
		Schema:  "pgr",
		Routine: "get /user/:id",
		Params:  []Param{{Name: "id", Type: "integer", Value: int32(42)}},
	}
	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INT4", int64(0)),
		sqlmock.NewColumn("name").OfType("TEXT", ""),
		sqlmock.NewColumn("tags").OfType("JSONB", []byte(nil)),
	).AddRow(int64(42), "Ann", []byte(`["a"]`))

	m.ExpectQuery(regexp.QuoteMeta(call.SQL())).
		WithArgs(int32(42)).
		WillReturnRows(rows).
		RowsWillBeClosed()

	res, err := Invoke(context.Background(), db, call)
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "id", DatabaseType: "INT4"},
		{Name: "name", DatabaseType: "TEXT"},
		{Name: "tags", DatabaseType: "JSONB"},
	}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(42), res.Rows[0][0])
	assert.Equal(t, "Ann", res.Rows[0][1])
	assert.Equal(t, []byte(`["a"]`), res.Rows[0][2])
	require.NoError(t, m.ExpectationsWereMet())
}

func TestInvoke_EmptyResult(t *testing.T) {
	t.Parallel()

	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	call := &Call{Schema: "pgr", Routine: "get /users"}
	m.ExpectQuery(regexp.QuoteMeta(call.SQL())).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(sqlmock.NewColumn("id").OfType("INT4", int64(0))))

	res, err := Invoke(context.Background(), db, call)
	require.NoError(t, err)
	assert.Len(t, res.Columns, 1)
	assert.Empty(t, res.Rows)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestInvoke_DatabaseError(t *testing.T) {
	t.Parallel()

	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	call := &Call{Schema: "pgr", Routine: "post /user", Params: []Param{{Name: "n", Type: "text", Value: "x"}}}
	m.ExpectQuery(regexp.QuoteMeta(call.SQL())).
		WithArgs("x").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint \"users_pkey\""})

	_, err = Invoke(context.Background(), db, call)
	require.Error(t, err)

	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "23505", ie.SQLState)
	assert.Equal(t, "unique_violation", ie.Condition)
	assert.Equal(t, http.StatusBadGateway, ie.HTTPStatus())
	assert.Equal(t, "invocation_failed", ie.Code())
	assert.NotContains(t, err.Error(), "users_pkey")

	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestInvoke_CanceledConnectionDiscarded(t *testing.T) {
	t.Parallel()

	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	call := &Call{Schema: "pgr", Routine: "get /slow"}
	m.ExpectQuery(regexp.QuoteMeta(call.SQL())).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("late"))
	m.ExpectClose()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err = Invoke(ctx, db, call)
	require.Error(t, err)

	// The driver connection was closed instead of parked in the pool.
	require.NoError(t, m.ExpectationsWereMet())
	assert.Equal(t, 0, db.Stats().OpenConnections)
	assert.Equal(t, 0, db.Stats().Idle)
}

func TestInvoke_ConnectionReturnedToPool(t *testing.T) {
	t.Parallel()

	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	call := &Call{Schema: "pgr", Routine: "get /fast"}
	for range 2 {
		m.ExpectQuery(regexp.QuoteMeta(call.SQL())).
			WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("ok"))
	}

	for range 2 {
		_, err = Invoke(context.Background(), db, call)
		require.NoError(t, err)
		assert.Equal(t, 1, db.Stats().OpenConnections)
		assert.Equal(t, 1, db.Stats().Idle)
	}
	require.NoError(t, m.ExpectationsWereMet())
}

func TestInvocationError_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "connection failure", err: errors.New("dial tcp: refused"), status: http.StatusInternalServerError},
		{name: "deadline", err: context.DeadlineExceeded, status: http.StatusGatewayTimeout},
		{name: "canceled", err: context.Canceled, status: StatusClientClosedRequest},
		{name: "raised", err: &pq.Error{Code: "P0001", Message: "boom"}, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newInvocationError("get /x", tt.err)
			assert.Equal(t, tt.status, e.HTTPStatus())
			assert.Contains(t, e.Error(), `"get /x"`)
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := Open("")
	require.ErrorIs(t, err, ErrNoDSN)

	db, err := Open("postgres://localhost/none?sslmode=disable", WithMaxOpenConns(3), WithMaxIdleConns(1))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 3, db.Stats().MaxOpenConnections)
}
