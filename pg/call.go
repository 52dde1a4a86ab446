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
	"strconv"
	"strings"

	"github.com/lib/pq"

	"pgr.dev/catalog"
)

// ParamKind selects how a bind parameter is passed to the routine.
type ParamKind uint8

const (
	// ParamValue passes the value cast to the argument type.
	ParamValue ParamKind = iota
	// ParamRecord passes a JSON object expanded into the composite
	// argument type with json_populate_record.
	ParamRecord
)

// Param is one input argument of a call. A nil Value is SQL NULL.
type Param struct {
	Name  string
	Type  catalog.TypeRef
	Value any
	Kind  ParamKind
}

// Call is a routine invocation.
type Call struct {
	Schema  string
	Routine string
	// Scalar selects the routine value as a single column named after the
	// routine. Otherwise the call is expanded with SELECT * FROM.
	Scalar bool
	// Params are the input arguments in declaration order.
	Params []Param
}

// SQL returns the statement for the call.
func (c *Call) SQL() string {
	var b strings.Builder
	fn := pq.QuoteIdentifier(c.Schema) + "." + pq.QuoteIdentifier(c.Routine)

	if c.Scalar {
		b.WriteString("SELECT ")
	} else {
		b.WriteString("SELECT * FROM ")
	}
	b.WriteString(fn)
	b.WriteByte('(')
	for i, p := range c.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		ph := "$" + strconv.Itoa(i+1)
		switch p.Kind {
		case ParamRecord:
			b.WriteString("json_populate_record(NULL::")
			b.WriteString(string(p.Type))
			b.WriteString(", ")
			b.WriteString(ph)
			b.WriteString("::json)")
		default:
			b.WriteString(ph)
			b.WriteString("::")
			b.WriteString(string(p.Type))
		}
	}
	b.WriteByte(')')
	if c.Scalar {
		b.WriteString(" AS ")
		b.WriteString(pq.QuoteIdentifier(c.Routine))
	}
	return b.String()
}

// Args returns the bind parameter values.
func (c *Call) Args() []any {
	args := make([]any, len(c.Params))
	for i, p := range c.Params {
		args[i] = p.Value
	}
	return args
}
