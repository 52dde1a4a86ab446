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

package naming

import (
	"strings"
)

// HTTP verbs accepted in routine names.
const (
	MethodGet    = "GET"
	MethodPut    = "PUT"
	MethodPost   = "POST"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

var methods = map[string]struct{}{
	MethodGet:    {},
	MethodPut:    {},
	MethodPost:   {},
	MethodPatch:  {},
	MethodDelete: {},
}

// VerbCase controls how the verb token of a routine name is matched.
type VerbCase uint8

const (
	// VerbCaseInsensitive accepts any spelling ("get", "GET", "Get").
	VerbCaseInsensitive VerbCase = iota
	// VerbCaseLower accepts only the lower-case spelling ("get").
	VerbCaseLower
)

// ParseVerbCase converts a configuration value ("insensitive" or "lower").
func ParseVerbCase(s string) (VerbCase, bool) {
	switch strings.ToLower(s) {
	case "", "insensitive":
		return VerbCaseInsensitive, true
	case "lower":
		return VerbCaseLower, true
	}
	return VerbCaseInsensitive, false
}

// Option configures [Parse].
type Option func(*options)

type options struct {
	verbCase VerbCase
}

// WithVerbCase sets the verb matching rule.
func WithVerbCase(c VerbCase) Option {
	return func(o *options) {
		o.verbCase = c
	}
}

// SegmentKind distinguishes literal path segments from parameter markers.
type SegmentKind uint8

const (
	SegmentLiteral SegmentKind = iota
	SegmentParam
)

// Segment is one "/"-separated element of a path template.
// For parameters, Value holds the name without the ":" prefix.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// Literal returns a literal segment.
func Literal(v string) Segment { return Segment{Kind: SegmentLiteral, Value: v} }

// Param returns a parameter segment.
func Param(name string) Segment { return Segment{Kind: SegmentParam, Value: name} }

// IsParam reports whether s is a parameter marker.
func (s Segment) IsParam() bool { return s.Kind == SegmentParam }

func (s Segment) String() string {
	if s.Kind == SegmentParam {
		return ":" + s.Value
	}
	return s.Value
}

// ParsedName is the route declaration carried by a routine name.
type ParsedName struct {
	// Method is the upper-case HTTP verb.
	Method string
	// Path holds the path template segments in order. A root template holds
	// a single empty literal segment.
	Path []Segment
	// Query holds the declared query parameter names in order.
	Query []string
}

// IsRoot reports whether the path template is empty ("/").
func (p *ParsedName) IsRoot() bool {
	return len(p.Path) == 1 && p.Path[0].Kind == SegmentLiteral && p.Path[0].Value == ""
}

// Params returns the number of parameter segments.
func (p *ParsedName) Params() int {
	n := 0
	for _, s := range p.Path {
		if s.IsParam() {
			n++
		}
	}
	return n
}

// Pattern returns the path template, e.g. "/user/:id".
func (p *ParsedName) Pattern() string {
	if p.IsRoot() {
		return "/"
	}
	var b strings.Builder
	for _, s := range p.Path {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// String serializes the declaration back to routine name form using the
// lower-case verb. Parsing the result yields an equal ParsedName.
func (p *ParsedName) String() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(p.Method))
	b.WriteByte(' ')
	b.WriteString(p.Pattern())
	if len(p.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(strings.Join(p.Query, "&"))
	}
	return b.String()
}

// Parse parses a routine name of the form "<verb> <path>[?<query>]".
//
// The name must split into exactly two whitespace separated tokens. The URL
// token is split on its first "?"; a second "?" is an error. The path is
// trimmed of leading and trailing "/" and split on "/"; empty segments are
// rejected except for the root template. A missing query yields no names.
func Parse(name string, opts ...Option) (*ParsedName, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	tokens := strings.Fields(name)
	if len(tokens) != 2 {
		return nil, parseErrorf(name, "expected \"<verb> <url>\", got %d tokens", len(tokens))
	}

	method, err := parseMethod(name, tokens[0], o.verbCase)
	if err != nil {
		return nil, err
	}

	url := tokens[1]
	if strings.Count(url, "?") > 1 {
		return nil, parseErrorf(name, "more than one '?' in url")
	}
	rawPath, rawQuery, hasQuery := strings.Cut(url, "?")

	path, err := parsePath(name, rawPath)
	if err != nil {
		return nil, err
	}

	var query []string
	if hasQuery {
		query, err = parseQuery(name, rawQuery)
		if err != nil {
			return nil, err
		}
	}

	return &ParsedName{Method: method, Path: path, Query: query}, nil
}

func parseMethod(name, tok string, vc VerbCase) (string, error) {
	upper := strings.ToUpper(tok)
	if _, ok := methods[upper]; !ok {
		return "", parseErrorf(name, "unsupported verb %q", tok)
	}
	if vc == VerbCaseLower && tok != strings.ToLower(tok) {
		return "", parseErrorf(name, "verb %q must be lower case", tok)
	}
	return upper, nil
}

func parsePath(name, raw string) ([]Segment, error) {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return []Segment{Literal("")}, nil
	}

	parts := strings.Split(trimmed, "/")
	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		switch {
		case part == "":
			return nil, parseErrorf(name, "empty path segment at position %d", i)
		case part == ":":
			return nil, parseErrorf(name, "path parameter at position %d has no name", i)
		case part[0] == ':':
			segments = append(segments, Param(part[1:]))
		default:
			segments = append(segments, Literal(part))
		}
	}
	return segments, nil
}

func parseQuery(name, raw string) ([]string, error) {
	if raw == "" {
		return nil, parseErrorf(name, "empty query after '?'")
	}

	parts := strings.Split(raw, "&")
	seen := make(map[string]struct{}, len(parts))
	for _, q := range parts {
		if q == "" {
			return nil, parseErrorf(name, "empty query parameter name")
		}
		if _, dup := seen[q]; dup {
			return nil, parseErrorf(name, "duplicate query parameter %q", q)
		}
		seen[q] = struct{}{}
	}
	return parts, nil
}
