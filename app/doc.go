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


// Package app assembles the pgr HTTP service.
//
// An [App] owns a [dispatch.Dispatcher] and serves it behind the standard
// middleware chain, next to the /healthz and /readyz probes and, when
// configured, the Prometheus scrape endpoint and the OpenAPI document.
// Outermost first the chain is: request id, security headers, tracing,
// panic recovery, access log, CORS, rate limit, request timeout,
// compression, body limit, method override, trailing slash. CORS, rate
// limiting, compression and method override are opt-in.
//
//	a, err := app.New(db,
//	    app.WithServiceName("pgr"),
//	    app.WithLogger(log),
//	    app.WithServer(app.WithShutdownTimeout(10*time.Second)),
//	)
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	err = a.Start(ctx, ":3030")
//
// Start loads the catalog before listening and fails if it cannot. After
// that, SIGHUP (on Unix) or [App.Reload] recompiles the route table; a
// failed reload keeps serving the previous table.
//
// Lifecycle hooks run in this order: OnStart (sequential, aborts on
// error), OnReady (asynchronous), OnShutdown (LIFO, bounded by the
// shutdown timeout), OnStop (best effort). OnReload hooks run after every
// reload attempt.
//
// [FromSettings] builds an App, its database pool, logger, metrics and
// tracing from [config.Settings].
package app
