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

// Package pg invokes stored routines on PostgreSQL.
//
// [Open] returns a pooled *sql.DB using the lib/pq driver. [Invoke] runs one
// routine call on a connection borrowed for the duration of the call. When
// the caller's context is done before the call finishes, the connection is
// discarded instead of being returned to the pool.
//
// Calls are built from a [Call]: the routine's schema and name, and its
// input arguments in declaration order. Arguments are always sent as bind
// parameters with an explicit cast to the declared type:
//
//	SELECT "pgr"."get /count"($1::integer) AS "get /count"
//	SELECT * FROM "pgr"."put /user/:id"($1::integer, json_populate_record(NULL::pgr.user_t, $2::json))
package pg
