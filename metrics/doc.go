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

// Package metrics records dispatcher and reload metrics with OpenTelemetry.
//
// The default provider exports to a private Prometheus registry, so the
// global meter provider is never touched:
//
//	rec, err := metrics.New(
//	    metrics.WithPrometheus(":9090", "/metrics"),
//	    metrics.WithServiceName("pgr"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer rec.Shutdown(context.Background())
//	rec.Start(ctx)
//
// With Prometheus the instruments appear as pgr_requests_total,
// pgr_dispatch_duration_seconds, pgr_reloads_total and pgr_routes.
package metrics
