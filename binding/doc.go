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

// Package binding turns request values into routine call parameters.
//
// [Bind] takes a matched route and the request's path values, query string
// and body, and produces one parameter per input argument of the routine in
// declaration order. Values are coerced according to the argument's
// PostgreSQL type:
//
//   - integers, floats and booleans are parsed with spf13/cast
//   - numeric values are validated and sent as text
//   - timestamps and dates accept RFC 3339 and the common layouts
//   - uuid values are validated and normalized
//   - json and jsonb values must be valid JSON
//   - array types take a comma-separated list or repeated parameters
//   - anything else is sent as text and cast by the database
//
// # Request Bodies
//
// A route with a body argument decodes the body by Content-Type: JSON
// (default), YAML, TOML, MessagePack, or a protobuf google.protobuf.Struct.
// An object bound to a composite argument is passed through
// json_populate_record; json and jsonb arguments receive the body as JSON.
//
// # Errors
//
// Conversion failures are reported as [*BindError] (400, "binding_error"),
// naming the argument and the request zone. An unknown content type is a
// [*MediaTypeError] (415).
package binding
