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

package router

import (
	"strings"

	"pgr.dev/catalog"
	"pgr.dev/naming"
)

// OutputKind is the response shape of a route.
type OutputKind uint8

const (
	// OutputScalar encodes the single returned value.
	OutputScalar OutputKind = iota
	// OutputRow encodes one composite value as an object.
	OutputRow
	// OutputRowSet encodes every returned row as an array of objects.
	OutputRowSet
	// OutputComposite encodes the out arguments as one object.
	OutputComposite
)

var outputNames = [...]string{
	OutputScalar:    "scalar",
	OutputRow:       "row",
	OutputRowSet:    "rowset",
	OutputComposite: "outComposite",
}

func (k OutputKind) String() string {
	if int(k) < len(outputNames) {
		return outputNames[k]
	}
	return "unknown"
}

// OutputSpec describes how an invocation result becomes a response payload.
type OutputSpec struct {
	Kind OutputKind
	// Fields lists the out argument names for OutputComposite,
	// in declaration order.
	Fields []string
	// Set is true for a set-returning scalar routine; the payload is then
	// the list of returned values.
	Set bool
}

// ParamBinding binds a path parameter slot to a routine argument.
type ParamBinding struct {
	// Name is the parameter name from the path template.
	Name string
	// Arg indexes the routine's Args.
	Arg int
}

// QueryBinding binds a query parameter to a routine argument.
type QueryBinding struct {
	Name string
	Arg  int
}

// CompiledRoute is an immutable binding of a method and path template to a
// routine invocation plan.
type CompiledRoute struct {
	method  string
	pattern string // "/user/:id"
	shape   string // "/user/:" parameter names removed
	hash    uint64

	segmentCount   int32
	staticSegments []string
	staticPos      []int32
	paramPos       []int32

	params []ParamBinding
	query  []QueryBinding
	body   int // -1 when the route takes no body

	output  OutputSpec
	routine catalog.Signature
	name    *naming.ParsedName
}

func newCompiledRoute(sig catalog.Signature, parsed *naming.ParsedName, fold bool) *CompiledRoute {
	r := &CompiledRoute{
		method:  parsed.Method,
		pattern: parsed.Pattern(),
		body:    -1,
		routine: sig,
		name:    parsed,
	}

	if parsed.IsRoot() {
		r.shape = "/"
		r.hash = hashRoute(r.method, "/")
		return r
	}

	var shape strings.Builder
	r.segmentCount = int32(len(parsed.Path))
	for i, seg := range parsed.Path {
		shape.WriteByte('/')
		if seg.IsParam() {
			shape.WriteByte(':')
			r.paramPos = append(r.paramPos, int32(i))
			continue
		}
		lit := seg.Value
		if fold {
			lit = strings.ToLower(lit)
		}
		shape.WriteString(lit)
		r.staticSegments = append(r.staticSegments, lit)
		r.staticPos = append(r.staticPos, int32(i))
	}
	r.shape = shape.String()
	r.hash = hashRoute(r.method, r.shape)
	return r
}

// Method returns the upper-case HTTP method.
func (r *CompiledRoute) Method() string { return r.method }

// Pattern returns the path template, e.g. "/user/:id".
func (r *CompiledRoute) Pattern() string { return r.pattern }

// Name returns the routine name the route was compiled from.
func (r *CompiledRoute) Name() string { return r.routine.Name }

// Routine returns the routine signature.
func (r *CompiledRoute) Routine() catalog.Signature { return r.routine }

// Parsed returns the parsed routine name.
func (r *CompiledRoute) Parsed() *naming.ParsedName { return r.name }

// Params returns the path parameter bindings in slot order.
func (r *CompiledRoute) Params() []ParamBinding { return r.params }

// Query returns the query parameter bindings in declaration order.
func (r *CompiledRoute) Query() []QueryBinding { return r.query }

// Body returns the index of the body-bound argument.
func (r *CompiledRoute) Body() (int, bool) { return r.body, r.body >= 0 }

// Output returns the response shape.
func (r *CompiledRoute) Output() OutputSpec { return r.output }

// IsStatic reports whether the template has no parameters.
func (r *CompiledRoute) IsStatic() bool { return len(r.paramPos) == 0 }

// Key returns the route table key: method and template shape.
func (r *CompiledRoute) Key() string { return r.method + " " + r.shape }

// String returns "<METHOD> <pattern>".
func (r *CompiledRoute) String() string { return r.method + " " + r.pattern }

// specificity orders dynamic routes: more literal segments first.
func (r *CompiledRoute) specificity() int { return len(r.staticSegments) }

// matchAndExtract matches path against the template and appends the
// parameter values in slot order to params.
func (r *CompiledRoute) matchAndExtract(path string, fold bool, params []string) ([]string, bool) {
	if r.segmentCount == 0 {
		return params, path == "/" || path == ""
	}

	pathLen := len(path)
	if pathLen < int(r.segmentCount)+int(r.segmentCount-1) {
		return params, false
	}

	slashCount := int32(0)
	for i := range pathLen {
		if path[i] == '/' {
			slashCount++
			if slashCount > r.segmentCount {
				return params, false
			}
		}
	}
	expected := r.segmentCount
	if path[0] != '/' {
		expected--
	}
	if slashCount != expected {
		return params, false
	}

	var segments [16]string
	var overflow []string
	segs := segments[:0]
	if r.segmentCount > int32(len(segments)) {
		overflow = make([]string, 0, r.segmentCount)
		segs = overflow
	}

	start := 0
	if path[0] == '/' {
		start = 1
	}
	for start <= pathLen {
		end := start
		for end < pathLen && path[end] != '/' {
			end++
		}
		segs = append(segs, path[start:end])
		start = end + 1
	}
	if int32(len(segs)) != r.segmentCount {
		return params, false
	}

	for i, pos := range r.staticPos {
		if !segmentEqual(segs[pos], r.staticSegments[i], fold) {
			return params, false
		}
	}

	n := len(params)
	for _, pos := range r.paramPos {
		v := segs[pos]
		if v == "" {
			return params[:n], false
		}
		params = append(params, v)
	}
	return params, true
}

func segmentEqual(got, want string, fold bool) bool {
	if fold {
		return strings.EqualFold(got, want)
	}
	return got == want
}
