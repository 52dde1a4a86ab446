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
	"fmt"

	"pgr.dev/catalog"
	"pgr.dev/naming"
)

// CompileOption configures [Compile].
type CompileOption func(*compileConfig)

type compileConfig struct {
	caseSensitive bool
	verbCase      naming.VerbCase
	bloomSize     uint64
	bloomHashes   int
	handler       DiagnosticHandler
}

func defaultCompileConfig() *compileConfig {
	return &compileConfig{
		bloomSize:   1000,
		bloomHashes: 3,
	}
}

// WithCaseSensitive makes literal path segments match case-sensitively.
// The default folds case.
func WithCaseSensitive(enabled bool) CompileOption {
	return func(c *compileConfig) {
		c.caseSensitive = enabled
	}
}

// WithVerbCase sets how routine name verbs are matched.
func WithVerbCase(vc naming.VerbCase) CompileOption {
	return func(c *compileConfig) {
		c.verbCase = vc
	}
}

// WithBloomFilter sizes the static route bloom filter.
func WithBloomFilter(size uint64, hashFuncs int) CompileOption {
	return func(c *compileConfig) {
		if size > 0 {
			c.bloomSize = size
		}
		if hashFuncs > 0 {
			c.bloomHashes = hashFuncs
		}
	}
}

// WithDiagnostics sets a handler that receives every diagnostic as it is
// produced.
func WithDiagnostics(h DiagnosticHandler) CompileOption {
	return func(c *compileConfig) {
		c.handler = h
	}
}

// Compile builds a route table from routine signatures.
//
// Each routine name is parsed into a route declaration and its arguments are
// bound to request zones in this order: path parameters positionally to the
// next unconsumed input argument, query names by exact argument name, then at
// most one remaining input argument to the request body. A routine that cannot
// be bound is skipped with a diagnostic. When two routines share a method and
// template shape the first one wins.
//
// Compile never fails as a whole; it returns the routes it could build and one
// diagnostic per skipped routine.
func Compile(sigs []catalog.Signature, opts ...CompileOption) (*Table, Diagnostics) {
	cfg := defaultCompileConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	table := newTable(!cfg.caseSensitive, cfg.bloomSize, cfg.bloomHashes)
	var diags Diagnostics
	report := func(d Diagnostic) {
		if d.Kind.Skipped() {
			diags = append(diags, d)
		}
		if cfg.handler != nil {
			cfg.handler.OnDiagnostic(d)
		}
	}

	for _, sig := range sigs {
		route, diag := compileRoutine(sig, cfg)
		if diag != nil {
			report(*diag)
			continue
		}
		if existing, ok := table.add(route); !ok {
			report(Diagnostic{
				Kind:    DiagRouteConflict,
				Routine: sig.Name,
				Message: fmt.Sprintf("route %s already bound to %q", route.Key(), existing.Name()),
				Fields: map[string]any{
					"method":   route.method,
					"pattern":  route.pattern,
					"existing": existing.Name(),
				},
			})
			continue
		}
		report(Diagnostic{
			Kind:    DiagRouteCompiled,
			Routine: sig.Name,
			Message: "route compiled",
			Fields: map[string]any{
				"method":  route.method,
				"pattern": route.pattern,
				"output":  route.output.Kind.String(),
			},
		})
	}

	table.freeze()
	return table, diags
}

func compileRoutine(sig catalog.Signature, cfg *compileConfig) (*CompiledRoute, *Diagnostic) {
	parsed, err := naming.Parse(sig.Name, naming.WithVerbCase(cfg.verbCase))
	if err != nil {
		return nil, &Diagnostic{
			Kind:    DiagParseError,
			Routine: sig.Name,
			Message: err.Error(),
		}
	}

	for _, a := range sig.Args {
		if !a.Mode.Supported() {
			return nil, &Diagnostic{
				Kind:    DiagUnsupportedMode,
				Routine: sig.Name,
				Message: fmt.Sprintf("argument %q has unsupported mode %s", a.Name, a.Mode),
				Fields:  map[string]any{"argument": a.Name, "mode": a.Mode.String()},
			}
		}
	}

	route := newCompiledRoute(sig, parsed, !cfg.caseSensitive)
	consumed := make([]bool, len(sig.Args))

	// Path zone: positional, declaration order.
	next := 0
	for _, seg := range parsed.Path {
		if !seg.IsParam() {
			continue
		}
		for next < len(sig.Args) && !sig.Args[next].Mode.IsInput() {
			next++
		}
		if next == len(sig.Args) {
			return nil, &Diagnostic{
				Kind:    DiagUnboundPath,
				Routine: sig.Name,
				Message: fmt.Sprintf("path parameter %q has no input argument left to bind", seg.Value),
				Fields:  map[string]any{"parameter": seg.Value},
			}
		}
		route.params = append(route.params, ParamBinding{Name: seg.Value, Arg: next})
		consumed[next] = true
		next++
	}

	// Query zone: exact name.
	for _, q := range parsed.Query {
		idx := -1
		for i, a := range sig.Args {
			if !consumed[i] && a.Mode.IsInput() && a.Name == q {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, &Diagnostic{
				Kind:    DiagUnboundQuery,
				Routine: sig.Name,
				Message: fmt.Sprintf("query parameter %q matches no unbound input argument", q),
				Fields:  map[string]any{"parameter": q},
			}
		}
		route.query = append(route.query, QueryBinding{Name: q, Arg: idx})
		consumed[idx] = true
	}

	// Body zone: at most one argument left.
	var rest []string
	for i, a := range sig.Args {
		if consumed[i] || !a.Mode.IsInput() {
			continue
		}
		if route.body < 0 {
			route.body = i
		}
		rest = append(rest, a.Name)
	}
	if len(rest) > 1 {
		return nil, &Diagnostic{
			Kind:    DiagAmbiguousBody,
			Routine: sig.Name,
			Message: fmt.Sprintf("%d arguments left for the request body, at most one allowed", len(rest)),
			Fields:  map[string]any{"arguments": rest},
		}
	}

	route.output = outputSpec(&sig)
	return route, nil
}

func outputSpec(sig *catalog.Signature) OutputSpec {
	if outs := sig.Outputs(); len(outs) > 0 {
		fields := make([]string, len(outs))
		for i, a := range outs {
			fields[i] = a.Name
		}
		return OutputSpec{Kind: OutputComposite, Fields: fields}
	}
	switch {
	case sig.ReturnsComposite && sig.ReturnsSet:
		return OutputSpec{Kind: OutputRowSet}
	case sig.ReturnsComposite:
		return OutputSpec{Kind: OutputRow}
	default:
		return OutputSpec{Kind: OutputScalar, Set: sig.ReturnsSet}
	}
}
