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
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// DefaultFunction is the catalog function installed by the bootstrap script.
const DefaultFunction = "pgr._pgr_functions"

// Querier runs catalog queries. *sql.DB and *sql.Conn implement it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Query returns the catalog query for the given catalog function,
// e.g. "pgr._pgr_functions". Each dotted part is quoted as an identifier.
func Query(function string) string {
	parts := strings.Split(function, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return fmt.Sprintf(
		"SELECT name, retset, rettype, retcomposite, argnames, argmodes, argtypes FROM %s($1)",
		strings.Join(parts, "."),
	)
}

// Fetch reads the routines of schema through the catalog function.
// Rows come back in the order the catalog function returns them.
func Fetch(ctx context.Context, q Querier, function, schema string) ([]Row, error) {
	if function == "" {
		function = DefaultFunction
	}

	rows, err := q.QueryContext(ctx, Query(function), schema)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.Name,
			&r.ReturnsSet,
			&r.ReturnType,
			&r.ReturnsComposite,
			pq.Array(&r.ArgNames),
			pq.Array(&r.ArgModes),
			pq.Array(&r.ArgTypes),
		); err != nil {
			return nil, fmt.Errorf("catalog scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog rows: %w", err)
	}
	return out, nil
}

// Load fetches and introspects the routines of schema.
func Load(ctx context.Context, q Querier, function, schema string) ([]Signature, error) {
	rows, err := Fetch(ctx, q, function, schema)
	if err != nil {
		return nil, err
	}
	return Introspect(rows)
}
