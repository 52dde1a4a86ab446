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

package pg

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
)

// Column describes one result column.
type Column struct {
	Name string
	// DatabaseType is the upper-case type name reported by the driver,
	// e.g. "INT4", "JSONB", "_TEXT" for text[].
	DatabaseType string
}

// Result is the raw outcome of a call. Values are as returned by the
// driver: int64, float64, bool, string, time.Time, []byte or nil.
type Result struct {
	Columns []Column
	Rows    [][]any
}

// Invoke runs call on a connection borrowed from db. The connection is
// released on every path; if ctx is done by then it is discarded.
func Invoke(ctx context.Context, db Database, call *Call) (*Result, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &InvocationError{Routine: call.Routine, Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer release(ctx, conn)

	rows, err := conn.QueryContext(ctx, call.SQL(), call.Args()...)
	if err != nil {
		return nil, newInvocationError(call.Routine, err)
	}
	defer rows.Close()

	res, err := scan(rows)
	if err != nil {
		return nil, newInvocationError(call.Routine, err)
	}
	return res, nil
}

// release returns conn to the pool, or discards it when ctx is done so a
// half-read result never reaches the next borrower.
func release(ctx context.Context, conn *sql.Conn) {
	if ctx.Err() != nil {
		//nolint:errcheck // returning ErrBadConn is how the pool is told to drop it
		conn.Raw(func(any) error { return driver.ErrBadConn })
	}
	//nolint:errcheck // nothing useful to do with a close error here
	conn.Close()
}

func scan(rows *sql.Rows) (*Result, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: make([]Column, len(types))}
	for i, ct := range types {
		res.Columns[i] = Column{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
