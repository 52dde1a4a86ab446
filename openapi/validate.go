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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validation errors.
var (
	ErrDuplicateOperationID = errors.New("duplicate operationId")
	ErrUndeclaredParameter  = errors.New("path parameter not declared")
	ErrUnknownParameter     = errors.New("path parameter not in template")
)

const schemaURL = "pgr-openapi.json"

// CompileSchema compiles s as a JSON Schema 2020-12 schema. References
// into the document components are resolved.
func (d *Document) CompileSchema(s *Schema) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(struct {
		*Schema
		Components Components `json:"components"`
	}{s, d.Components})
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
}

// Validate checks that every operation id is unique, that path parameters
// match their templates and that every schema compiles.
func (d *Document) Validate() error {
	var errs []error
	seen := make(map[string]string)
	for path, item := range d.Paths {
		for _, m := range methods {
			op := item.Operation(m)
			if op == nil {
				continue
			}
			where := m + " " + path
			if prev, ok := seen[op.OperationID]; ok {
				errs = append(errs, fmt.Errorf("%s: %w %q (also %s)", where, ErrDuplicateOperationID, op.OperationID, prev))
			}
			seen[op.OperationID] = where
			errs = append(errs, checkPathParams(where, path, op)...)
			errs = append(errs, d.checkSchemas(where, op)...)
		}
	}
	return errors.Join(errs...)
}

func checkPathParams(where, path string, op *Operation) []error {
	inTemplate := make(map[string]bool)
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			inTemplate[seg[1:len(seg)-1]] = true
		}
	}

	var errs []error
	declared := make(map[string]bool)
	for _, p := range op.Parameters {
		if p.In != "path" {
			continue
		}
		declared[p.Name] = true
		if !inTemplate[p.Name] {
			errs = append(errs, fmt.Errorf("%s: %w: %s", where, ErrUnknownParameter, p.Name))
		}
	}
	for name := range inTemplate {
		if !declared[name] {
			errs = append(errs, fmt.Errorf("%s: %w: %s", where, ErrUndeclaredParameter, name))
		}
	}
	return errs
}

func (d *Document) checkSchemas(where string, op *Operation) []error {
	var errs []error
	check := func(loc string, s *Schema) {
		if s == nil {
			return
		}
		if _, err := d.CompileSchema(s); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", where, loc, err))
		}
	}
	for _, p := range op.Parameters {
		check(p.In+" "+p.Name, p.Schema)
	}
	if op.RequestBody != nil {
		for mt, c := range op.RequestBody.Content {
			check("request "+mt, c.Schema)
		}
	}
	for code, r := range op.Responses {
		for mt, c := range r.Content {
			check("response "+code+" "+mt, c.Schema)
		}
	}
	return errs
}
