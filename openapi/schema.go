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

package openapi

import (
	"pgr.dev/catalog"
)

// Schema is the subset of JSON Schema 2020-12 used by generated documents.
// A schema with no type accepts any value.
type Schema struct {
	Ref         string             `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type        string             `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string             `json:"format,omitempty" yaml:"format,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Items       *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string           `json:"required,omitempty" yaml:"required,omitempty"`
}

// ProblemRef references the shared problem details schema.
const ProblemRef = "#/components/schemas/Problem"

type typeSchema struct {
	typ    string
	format string
}

var scalarTypes = map[string]typeSchema{
	"text":                        {"string", ""},
	"character varying":           {"string", ""},
	"varchar":                     {"string", ""},
	"character":                   {"string", ""},
	"char":                        {"string", ""},
	"bpchar":                      {"string", ""},
	"name":                        {"string", ""},
	"citext":                      {"string", ""},
	"smallint":                    {"integer", "int32"},
	"int2":                        {"integer", "int32"},
	"integer":                     {"integer", "int32"},
	"int":                         {"integer", "int32"},
	"int4":                        {"integer", "int32"},
	"bigint":                      {"integer", "int64"},
	"int8":                        {"integer", "int64"},
	"real":                        {"number", "float"},
	"float4":                      {"number", "float"},
	"double precision":            {"number", "double"},
	"float8":                      {"number", "double"},
	"numeric":                     {"string", "decimal"},
	"decimal":                     {"string", "decimal"},
	"boolean":                     {"boolean", ""},
	"bool":                        {"boolean", ""},
	"date":                        {"string", "date"},
	"timestamp without time zone": {"string", "date-time"},
	"timestamp with time zone":    {"string", "date-time"},
	"timestamp":                   {"string", "date-time"},
	"timestamptz":                 {"string", "date-time"},
	"time without time zone":      {"string", "time"},
	"time":                        {"string", "time"},
	"uuid":                        {"string", "uuid"},
	"bytea":                       {"string", "byte"},
}

// TypeSchema returns the schema of values of PostgreSQL type t. json and
// jsonb accept any value. Types without a mapping, such as composites,
// enums and domains, are described by name only.
func TypeSchema(t catalog.TypeRef) *Schema {
	if t.IsArray() {
		return &Schema{Type: "array", Items: TypeSchema(t.Elem())}
	}
	if t.IsJSON() {
		return &Schema{Description: t.String()}
	}
	if ts, ok := scalarTypes[t.Base()]; ok {
		return &Schema{Type: ts.typ, Format: ts.format}
	}
	return &Schema{Description: t.String()}
}

// recordSchema describes a row of a composite type whose columns are not
// known from the routine signature.
func recordSchema(t catalog.TypeRef) *Schema {
	return &Schema{Type: "object", Description: t.String()}
}

func problemSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"type":     {Type: "string", Format: "uri-reference"},
			"title":    {Type: "string"},
			"status":   {Type: "integer"},
			"detail":   {Type: "string"},
			"instance": {Type: "string"},
			"code":     {Type: "string"},
			"error_id": {Type: "string"},
			"error":    {Type: "string"},
			"details":  {},
		},
	}
}
