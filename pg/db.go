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
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver
)

// Database is the database capability used by the dispatcher.
// *sql.DB implements it.
type Database interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
	Conn(ctx context.Context) (*sql.Conn, error)
}

var _ Database = (*sql.DB)(nil)

// ErrNoDSN is returned by [Open] when no data source name is given.
var ErrNoDSN = errors.New("pg: empty data source name")

// Option configures the connection pool opened by [Open].
type Option func(*sql.DB)

// WithMaxOpenConns limits the number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *sql.DB) { db.SetMaxOpenConns(n) }
}

// WithMaxIdleConns limits the number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *sql.DB) { db.SetMaxIdleConns(n) }
}

// WithConnMaxLifetime closes connections older than d.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *sql.DB) { db.SetConnMaxLifetime(d) }
}

// Open opens a connection pool for dsn. It does not connect; use Ping.
func Open(dsn string, opts ...Option) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: open: %w", err)
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}
