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


// Package dispatch serves HTTP requests from a compiled route table.
//
// A [Dispatcher] owns the published [router.Table]. For each request it
// matches the method and path, binds path, query and body values to the
// routine's input arguments, invokes the routine on a dedicated connection
// and encodes the result as JSON, YAML or MessagePack depending on the
// Accept header. Every failure becomes a formatted error response:
//
//	404 route_not_found    no route for method and path
//	400 binding_error      a value does not fit its argument type
//	415                    unsupported body media type
//	502 invocation_failed  the routine raised an error
//	503                    no table published yet
//
// [Dispatcher.Reload] rebuilds the table from the catalog and swaps it in
// atomically:
//
//	d, err := dispatch.New(db, dispatch.WithSchema("pgr"))
//	if err != nil {
//	    return err
//	}
//	if _, err := d.Reload(ctx); err != nil {
//	    return err
//	}
//	http.ListenAndServe(":3030", d)
package dispatch
