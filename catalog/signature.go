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
	"strings"
)

// TypeRef is a PostgreSQL type name as printed by format_type,
// e.g. "integer", "character varying(20)", "text[]" or "pgr.user_t".
type TypeRef string

// IsArray reports whether the type is an array type.
func (t TypeRef) IsArray() bool {
	return strings.HasSuffix(string(t), "[]")
}

// Elem returns the element type of an array type, or t itself.
func (t TypeRef) Elem() TypeRef {
	return TypeRef(strings.TrimSuffix(string(t), "[]"))
}

// Base returns the lower-cased type name without modifiers,
// so "character varying(20)" becomes "character varying".
func (t TypeRef) Base() string {
	s := string(t)
	if i := strings.IndexByte(s, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(s[i:], ')'); j >= 0 {
			rest = s[i+j+1:]
		}
		s = s[:i] + rest
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// IsJSON reports whether the type is json or jsonb.
func (t TypeRef) IsJSON() bool {
	b := t.Base()
	return b == "json" || b == "jsonb"
}

func (t TypeRef) String() string { return string(t) }

// Argument is one declared routine argument.
type Argument struct {
	// Name is the declared name, or "$<position>" for unnamed arguments.
	Name string
	Mode ArgMode
	Type TypeRef
	// Position is the 1-based declaration position.
	Position int
}

// Signature describes a routine as found in the catalog.
type Signature struct {
	// Name is the raw routine name, which carries the route declaration.
	Name string
	// ReturnsSet is true for set-returning routines.
	ReturnsSet bool
	// ReturnType is the declared return type.
	ReturnType TypeRef
	// ReturnsComposite is true when the return type is a row type.
	ReturnsComposite bool
	// Args are the arguments in declaration order, including out arguments.
	Args []Argument
}

// Inputs returns the arguments a caller supplies, in declaration order.
func (s *Signature) Inputs() []Argument {
	in := make([]Argument, 0, len(s.Args))
	for _, a := range s.Args {
		if a.Mode.IsInput() {
			in = append(in, a)
		}
	}
	return in
}

// Outputs returns the out-mode arguments in declaration order.
func (s *Signature) Outputs() []Argument {
	var out []Argument
	for _, a := range s.Args {
		if a.Mode == ModeOut {
			out = append(out, a)
		}
	}
	return out
}
