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

package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed pgr.sql
var bootstrap string

// Placeholder marks where user DDL is inserted into the bootstrap script.
const Placeholder = "PLACEHOLDER"

// Execer executes statements. *sql.DB and *sql.Conn implement it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Script returns the bootstrap script with ddl substituted at [Placeholder].
// The script recreates the pgr schema and its catalog function inside one
// transaction, then runs ddl.
func Script(ddl string) string {
	return strings.Replace(bootstrap, Placeholder, ddl, 1)
}

// Provision runs the bootstrap script with ddl as a single batch.
// The pgr schema is dropped and recreated, so every routine in it must be
// part of ddl.
func Provision(ctx context.Context, e Execer, ddl string) error {
	if _, err := e.ExecContext(ctx, Script(ddl)); err != nil {
		return fmt.Errorf("provision: %w", err)
	}
	return nil
}
