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
	"strconv"
	"strings"

	"pgr.dev/catalog"
	"pgr.dev/router"
)

// Option configures [Build].
type Option func(*buildConfig)

type buildConfig struct {
	info    Info
	servers []Server
}

// WithInfo sets the document title and version.
func WithInfo(title, version string) Option {
	return func(c *buildConfig) {
		c.info.Title = title
		c.info.Version = version
	}
}

// WithDescription sets the document description.
func WithDescription(desc string) Option {
	return func(c *buildConfig) { c.info.Description = desc }
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(c *buildConfig) {
		c.servers = append(c.servers, Server{URL: url})
	}
}

var (
	bodyMediaTypes     = []string{"application/json", "application/yaml", "application/toml", "application/msgpack"}
	responseMediaTypes = []string{"application/json", "application/yaml", "application/msgpack"}
)

// Build describes routes as an OpenAPI document. Routes with a method that
// has no operation field in a path item are listed in Document.Skipped.
func Build(routes []*router.CompiledRoute, opts ...Option) *Document {
	cfg := &buildConfig{info: Info{Title: "pgr", Version: "dev"}}
	for _, opt := range opts {
		opt(cfg)
	}

	doc := &Document{
		OpenAPI: Version,
		Info:    cfg.info,
		Servers: cfg.servers,
		Paths:   make(map[string]*PathItem),
		Components: Components{
			Schemas: map[string]*Schema{"Problem": problemSchema()},
		},
	}

	ids := make(map[string]int, len(routes))
	for _, r := range routes {
		path := templatePath(r.Pattern())
		item, ok := doc.Paths[path]
		if !ok {
			item = &PathItem{}
		}
		slot := item.slot(r.Method())
		if slot == nil {
			doc.Skipped = append(doc.Skipped, r.Name())
			continue
		}
		op := operation(r)
		if n := ids[op.OperationID]; n > 0 {
			ids[op.OperationID]++
			op.OperationID += "_" + strconv.Itoa(n+1)
		} else {
			ids[op.OperationID] = 1
		}
		*slot = op
		doc.Paths[path] = item
	}
	return doc
}

// templatePath rewrites "/user/:id" as "/user/{id}".
func templatePath(pattern string) string {
	if !strings.Contains(pattern, ":") {
		return pattern
	}
	segs := strings.Split(pattern, "/")
	for i, s := range segs {
		if name, ok := strings.CutPrefix(s, ":"); ok {
			segs[i] = "{" + name + "}"
		}
	}
	return strings.Join(segs, "/")
}

func operation(r *router.CompiledRoute) *Operation {
	sig := r.Routine()
	op := &Operation{
		OperationID: operationID(r),
		Summary:     r.String(),
		Routine:     sig.Name,
		Responses: map[string]*Response{
			"200": response(r),
			"default": {
				Description: "Problem details",
				Content: map[string]MediaType{
					"application/problem+json": {Schema: &Schema{Ref: ProblemRef}},
				},
			},
		},
	}

	for _, p := range r.Params() {
		op.Parameters = append(op.Parameters, Parameter{
			Name:     p.Name,
			In:       "path",
			Required: true,
			Schema:   TypeSchema(sig.Args[p.Arg].Type),
		})
	}
	// A missing query parameter is passed as NULL.
	for _, q := range r.Query() {
		op.Parameters = append(op.Parameters, Parameter{
			Name:   q.Name,
			In:     "query",
			Schema: TypeSchema(sig.Args[q.Arg].Type),
		})
	}

	if i, ok := r.Body(); ok {
		schema := bodySchema(sig.Args[i].Type)
		content := make(map[string]MediaType, len(bodyMediaTypes))
		for _, mt := range bodyMediaTypes {
			content[mt] = MediaType{Schema: schema}
		}
		op.RequestBody = &RequestBody{Required: true, Content: content}
	}
	return op
}

func bodySchema(t catalog.TypeRef) *Schema {
	s := TypeSchema(t)
	if s.Type == "" && !t.IsJSON() {
		return recordSchema(t)
	}
	return s
}

func response(r *router.CompiledRoute) *Response {
	sig := r.Routine()
	out := r.Output()

	var schema *Schema
	switch out.Kind {
	case router.OutputRow:
		schema = recordSchema(sig.ReturnType)
	case router.OutputRowSet:
		schema = &Schema{Type: "array", Items: recordSchema(sig.ReturnType)}
	case router.OutputComposite:
		props := make(map[string]*Schema, len(out.Fields))
		for _, a := range sig.Outputs() {
			props[a.Name] = TypeSchema(a.Type)
		}
		schema = &Schema{Type: "object", Properties: props}
	default:
		schema = TypeSchema(sig.ReturnType)
		if out.Set {
			schema = &Schema{Type: "array", Items: schema}
		}
	}

	content := make(map[string]MediaType, len(responseMediaTypes))
	for _, mt := range responseMediaTypes {
		content[mt] = MediaType{Schema: schema}
	}
	return &Response{Description: out.Kind.String() + " result", Content: content}
}

// operationID derives an identifier from the method and template,
// e.g. "get_user_id" for GET /user/:id.
func operationID(r *router.CompiledRoute) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(r.Method()))
	for _, s := range strings.Split(r.Pattern(), "/") {
		s = strings.TrimPrefix(s, ":")
		if s == "" {
			continue
		}
		b.WriteByte('_')
		for _, c := range s {
			if c == '_' || c == '-' || c == '.' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
				b.WriteRune(c)
			} else {
				b.WriteByte('_')
			}
		}
	}
	return b.String()
}
