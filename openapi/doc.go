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

// Package openapi describes a compiled route table as an OpenAPI 3.1
// document.
//
// [Build] walks the routes of a [router.Table] and emits one operation
// per route: path parameters and query parameters typed from the routine
// arguments, a request body for the body-bound argument and a 200
// response shaped by the route output. Every operation also documents
// the problem response written on failure.
//
//	doc := openapi.Build(table.Routes(),
//	    openapi.WithInfo("pgr", "1.4.0"),
//	    openapi.WithServer("https://api.example.com"),
//	)
//	data, err := doc.JSON()
//
// [Handler] serves the document for the table currently published by a
// dispatcher, as JSON or YAML.
package openapi
