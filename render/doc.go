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

// Package render turns routine results into response payloads.
//
// [Encode] shapes a [pg.Result] according to the route's output kind.
// Row values become [*Object]s, which keep column order across every
// supported encoding. [Negotiate] selects JSON, YAML or MessagePack from an
// Accept header and [Marshal] writes the payload.
//
//	payload, err := render.Encode(route.Output(), res)
//	if err != nil {
//	    return err
//	}
//	format := render.Negotiate(r.Header.Get("Accept"))
//	body, err := render.Marshal(format, payload)
package render
