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

// Package tracing configures OpenTelemetry tracing for pgr.
//
// A [Tracer] wraps a tracer provider (noop, stdout or OTLP over HTTP) and
// the W3C propagator. [Middleware] opens a server span per request; the
// dispatcher nests pgr.dispatch and pgr.invoke spans under it.
//
//	tr, err := tracing.New(tracing.WithOTLP("http://collector:4318"))
//	if err != nil {
//	    return err
//	}
//	defer tr.Shutdown(context.Background())
//	handler = tracing.Middleware(tr, "/healthz", "/readyz")(handler)
package tracing
