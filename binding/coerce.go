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

package binding

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/spf13/cast"

	"pgr.dev/catalog"
)

type typeFamily uint8

const (
	familyOther typeFamily = iota
	familyText
	familyInt
	familyFloat
	familyNumeric
	familyBool
	familyTime
	familyUUID
	familyJSON
)

// families maps format_type base names to coercion rules.
var families = map[string]typeFamily{
	"text":                        familyText,
	"character varying":           familyText,
	"varchar":                     familyText,
	"character":                   familyText,
	"char":                        familyText,
	"bpchar":                      familyText,
	"name":                        familyText,
	"citext":                      familyText,
	"smallint":                    familyInt,
	"int2":                        familyInt,
	"integer":                     familyInt,
	"int":                         familyInt,
	"int4":                        familyInt,
	"bigint":                      familyInt,
	"int8":                        familyInt,
	"real":                        familyFloat,
	"float4":                      familyFloat,
	"double precision":            familyFloat,
	"float8":                      familyFloat,
	"numeric":                     familyNumeric,
	"decimal":                     familyNumeric,
	"boolean":                     familyBool,
	"bool":                        familyBool,
	"date":                        familyTime,
	"timestamp without time zone": familyTime,
	"timestamp with time zone":    familyTime,
	"timestamp":                   familyTime,
	"timestamptz":                 familyTime,
	"uuid":                        familyUUID,
	"json":                        familyJSON,
	"jsonb":                       familyJSON,
}

func family(t catalog.TypeRef) typeFamily {
	return families[t.Base()]
}

// IsScalar reports whether t is a base type the binder coerces itself.
// Other types (composites, enums, domains) are passed through as text.
func IsScalar(t catalog.TypeRef) bool {
	return !t.IsArray() && family(t) != familyOther
}

// Coerce converts a raw request string into a query parameter for an
// argument of type t. Integer, float, boolean, timestamp and uuid values are
// parsed and rejected when malformed; numeric values are validated and sent
// as text to keep their precision; other types are sent as text and cast by
// the database.
func Coerce(t catalog.TypeRef, raw string) (any, error) {
	if t.IsArray() {
		return CoerceList(t, splitList([]string{raw}))
	}

	switch family(t) {
	case familyInt:
		return coerceInt(t.Base(), raw)
	case familyFloat:
		return coerceFloat(t.Base(), raw)
	case familyNumeric:
		if !numericSyntax.MatchString(strings.TrimSpace(raw)) {
			return nil, ErrInvalidNumeric
		}
		return strings.TrimSpace(raw), nil
	case familyBool:
		return cast.ToBoolE(raw)
	case familyTime:
		return cast.ToTimeE(raw)
	case familyUUID:
		u, err := uuid.Parse(raw)
		if err != nil {
			return nil, ErrInvalidUUID
		}
		return u.String(), nil
	case familyJSON:
		if !json.Valid([]byte(raw)) {
			return nil, ErrInvalidJSON
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// numericSyntax is the PostgreSQL numeric input syntax, special values
// included. Magnitude is not limited.
var numericSyntax = regexp.MustCompile(`^(?i:[+-]?(\d+\.?\d*|\.\d+)(e[+-]?\d+)?|nan|[+-]?inf(inity)?)$`)

func coerceInt(base, raw string) (any, error) {
	n, err := cast.ToInt64E(decimal(raw))
	if err != nil {
		return nil, err
	}
	switch base {
	case "smallint", "int2":
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("%w: %d outside smallint", ErrOutOfRange, n)
		}
		return int16(n), nil
	case "bigint", "int8":
		return n, nil
	default:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %d outside integer", ErrOutOfRange, n)
		}
		return int32(n), nil
	}
}

func coerceFloat(base, raw string) (any, error) {
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, err
	}
	if base != "real" && base != "float4" {
		return f, nil
	}
	if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return nil, fmt.Errorf("%w: %s outside real", ErrOutOfRange, raw)
	}
	return float32(f), nil
}

// decimal strips leading zeros so the value is not read as octal.
func decimal(raw string) string {
	sign := ""
	if strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "+") {
		sign, raw = raw[:1], raw[1:]
	}
	trimmed := strings.TrimLeft(raw, "0")
	if trimmed == "" && raw != "" {
		trimmed = "0"
	}
	return sign + trimmed
}

// CoerceList coerces each element for the element type of the array type t
// and returns a PostgreSQL array parameter.
func CoerceList(t catalog.TypeRef, raws []string) (any, error) {
	elem := t.Elem()
	out := make([]string, len(raws))
	for i, raw := range raws {
		v, err := Coerce(elem, raw)
		if err != nil {
			return nil, err
		}
		out[i] = formatElem(v)
	}
	return pq.Array(out), nil
}

func formatElem(v any) string {
	if ts, ok := v.(time.Time); ok {
		return ts.Format(time.RFC3339Nano)
	}
	return cast.ToString(v)
}

// splitList flattens repeated and comma-separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, part := range strings.Split(v, ",") {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}
