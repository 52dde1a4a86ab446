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

// Package naming parses routine names into HTTP route declarations.
//
// A routine exposed over HTTP declares its route in its own name:
//
//	get /user/:id?name&age
//
// The name holds exactly two whitespace separated tokens. The first is the
// HTTP verb (get, put, post, patch or delete). The second is the URL template:
// a path made of literal segments and ":"-prefixed parameter segments,
// optionally followed by "?" and a "&"-separated list of query parameter
// names.
//
// # Quick Start
//
//	parsed, err := naming.Parse("get /user/:id?name&age")
//	if err != nil {
//		return err
//	}
//	parsed.Method  // "GET"
//	parsed.Path    // [user :id]
//	parsed.Query   // [name age]
//
// # Verb Case
//
// By default verbs are matched case-insensitively and normalized to upper
// case. [WithVerbCase] with [VerbCaseLower] restricts verbs to the lower-case
// spelling used by routine authors.
//
// # Root Path
//
// A template with an empty path ("get /") yields a single empty segment.
// [ParsedName.IsRoot] reports that case so callers can treat it as the root
// route instead of a literal empty segment.
package naming
