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

package render

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/spf13/cast"

	"pgr.dev/pg"
	"pgr.dev/router"
)

// ErrNoColumns is returned when a scalar result has no column to read.
var ErrNoColumns = errors.New("render: result has no columns")

// Encode shapes a call result into a response payload.
//
//   - scalar: the first column of the first row, or nil without rows;
//     a set-returning scalar yields the list of first-column values
//   - row: the first row as an [*Object], or nil without rows
//   - rowset: every row as an [*Object]; an empty set is an empty list
//   - outComposite: the out argument columns of the first row, in
//     declaration order
func Encode(spec router.OutputSpec, res *pg.Result) (any, error) {
	if res == nil {
		res = &pg.Result{}
	}

	switch spec.Kind {
	case router.OutputScalar:
		if len(res.Columns) == 0 {
			if spec.Set {
				return []any{}, nil
			}
			return nil, ErrNoColumns
		}
		if spec.Set {
			list := make([]any, 0, len(res.Rows))
			for _, row := range res.Rows {
				v, err := value(res.Columns[0], row[0])
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			return list, nil
		}
		if len(res.Rows) == 0 {
			return nil, nil
		}
		return value(res.Columns[0], res.Rows[0][0])

	case router.OutputRow:
		if len(res.Rows) == 0 {
			return nil, nil
		}
		return object(res.Columns, res.Rows[0])

	case router.OutputRowSet:
		list := make([]any, 0, len(res.Rows))
		for _, row := range res.Rows {
			obj, err := object(res.Columns, row)
			if err != nil {
				return nil, err
			}
			list = append(list, obj)
		}
		return list, nil

	case router.OutputComposite:
		obj := NewObject(len(spec.Fields))
		var row []any
		if len(res.Rows) > 0 {
			row = res.Rows[0]
		}
		for _, field := range spec.Fields {
			var v any
			if i := columnIndex(res.Columns, field); i >= 0 && row != nil {
				var err error
				if v, err = value(res.Columns[i], row[i]); err != nil {
					return nil, err
				}
			}
			obj.Set(field, v)
		}
		return obj, nil
	}

	return nil, fmt.Errorf("render: unknown output kind %s", spec.Kind)
}

func object(cols []pg.Column, row []any) (*Object, error) {
	obj := NewObject(len(cols))
	for i, c := range cols {
		v, err := value(c, row[i])
		if err != nil {
			return nil, err
		}
		obj.Set(c.Name, v)
	}
	return obj, nil
}

func columnIndex(cols []pg.Column, name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// value converts a driver value for encoding. json and jsonb columns are
// embedded as structured values, arrays become lists, bytea stays binary
// (base64 in JSON, bin in MessagePack) and other byte values become
// strings.
func value(col pg.Column, v any) (any, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = t
	case string:
		if !isJSON(col.DatabaseType) && !isArray(col.DatabaseType) {
			return t, nil
		}
		raw = []byte(t)
	default:
		return v, nil
	}

	switch {
	case col.DatabaseType == "BYTEA":
		return raw, nil
	case isJSON(col.DatabaseType):
		return decodeJSON(raw)
	case isArray(col.DatabaseType):
		return decodeArray(strings.TrimPrefix(col.DatabaseType, "_"), raw)
	default:
		return string(raw), nil
	}
}

func isJSON(dbType string) bool {
	return dbType == "JSON" || dbType == "JSONB"
}

func isArray(dbType string) bool {
	return strings.HasPrefix(dbType, "_")
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("render: decode json column: %w", err)
	}
	return numbers(v), nil
}

// numbers replaces json.Number with int64 or float64 so every encoder
// writes numbers as numbers.
func numbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = numbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = numbers(e)
		}
		return t
	default:
		return v
	}
}

func decodeArray(elemType string, raw []byte) (any, error) {
	var elems []sql.NullString
	if err := (pq.GenericArray{A: &elems}).Scan(raw); err != nil {
		return string(raw), nil
	}

	out := make([]any, len(elems))
	for i, e := range elems {
		if !e.Valid {
			continue
		}
		out[i] = arrayElem(elemType, e.String)
	}
	return out, nil
}

func arrayElem(elemType, s string) any {
	switch elemType {
	case "INT2", "INT4", "INT8":
		if n, err := cast.ToInt64E(s); err == nil {
			return n
		}
	case "FLOAT4", "FLOAT8":
		if f, err := cast.ToFloat64E(s); err == nil {
			return f
		}
	case "BOOL":
		if b, err := cast.ToBoolE(s); err == nil {
			return b
		}
	case "JSON", "JSONB":
		if v, err := decodeJSON([]byte(s)); err == nil {
			return v
		}
	}
	return s
}
