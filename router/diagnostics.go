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

// DiagnosticKind categorizes compile diagnostics.
type DiagnosticKind string

const (
	// Routine skipped
	DiagParseError      DiagnosticKind = "parse_error"
	DiagUnsupportedMode DiagnosticKind = "unsupported_mode"
	DiagUnboundPath     DiagnosticKind = "unbound_path"
	DiagUnboundQuery    DiagnosticKind = "unbound_query"
	DiagAmbiguousBody   DiagnosticKind = "ambiguous_body"
	DiagRouteConflict   DiagnosticKind = "route_conflict"

	// Informational
	DiagRouteCompiled DiagnosticKind = "route_compiled"
)

// Skipped reports whether the kind means the routine was left out of the
// table.
func (k DiagnosticKind) Skipped() bool {
	return k != DiagRouteCompiled
}

// Diagnostic reports what happened to one routine during compilation.
type Diagnostic struct {
	Kind    DiagnosticKind
	Routine string // raw routine name
	Message string
	Fields  map[string]any // structured context
}

// Diagnostics lists the routines skipped by [Compile], in catalog order.
type Diagnostics []Diagnostic

// Routines returns the names of the routines with a diagnostic.
func (d Diagnostics) Routines() []string {
	names := make([]string, 0, len(d))
	for _, e := range d {
		names = append(names, e.Routine)
	}
	return names
}

// Kind returns the diagnostics of kind k.
func (d Diagnostics) Kind(k DiagnosticKind) Diagnostics {
	var out Diagnostics
	for _, e := range d {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// DiagnosticHandler receives every diagnostic produced by [Compile],
// including DiagRouteCompiled events for routes that made it into the table.
//
// Example with logging:
//
//	handler := router.DiagnosticHandlerFunc(func(d router.Diagnostic) {
//	    logger.Warn(d.Message, "kind", d.Kind, "routine", d.Routine)
//	})
//	table, _ := router.Compile(sigs, router.WithDiagnostics(handler))
type DiagnosticHandler interface {
	OnDiagnostic(Diagnostic)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(Diagnostic)

func (f DiagnosticHandlerFunc) OnDiagnostic(d Diagnostic) {
	f(d)
}
