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

// Package errors formats request errors as HTTP responses.
//
// Two formats are provided:
//   - [RFC9457]: problem details (application/problem+json), the default
//   - [Simple]: a flat JSON object (application/json)
//
// Errors control the response through optional interfaces:
//
//   - [ErrorType]: HTTPStatus() int, otherwise 500
//   - [ErrorCode]: Code() string, used as the problem type
//   - [ErrorDetails]: Details() any, rendered under "details"
//
// Writing a response:
//
//	resp := formatter.Format(r.URL.Path, err)
//	w.Header().Set("Content-Type", resp.ContentType)
//	w.WriteHeader(resp.Status)
//	json.NewEncoder(w).Encode(resp.Body)
//
// The message of every error is rendered as-is. Errors that wrap database
// or driver failures must sanitize their own Error() text.
package errors
