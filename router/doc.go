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

// Package router compiles routine signatures into an immutable route table.
//
// [Compile] parses each routine name with package naming, binds the
// routine's arguments to path, query and body zones, and decides the
// response shape ([OutputSpec]). Routines that cannot be compiled are
// skipped and reported in the returned [Diagnostics].
//
// # Matching
//
// Routes without parameters live in a hash table keyed by method and path,
// fronted by a bloom filter once the table is large enough. Parameterized
// routes are kept ordered by the number of literal segments, so
// "/user/me" is tried before "/user/:id". Matching checks the segment count,
// then literal positions, then extracts parameter values by position.
//
// Routes are keyed by method and template shape, ignoring parameter names.
// A request whose path fits a template registered for another method does
// not match; callers answer 404 in that case.
//
// # Concurrency
//
// A [Table] is never modified after Compile returns and can be read from any
// number of goroutines. Reloading builds a new table.
//
// # Quick Start
//
//	table, diags := router.Compile(sigs, router.WithCaseSensitive(false))
//	for _, d := range diags {
//		log.Printf("skipped %q: %s", d.Routine, d.Message)
//	}
//	route, params, ok := table.Match("GET", "/user/42")
package router
