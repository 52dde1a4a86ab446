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

// Package logging builds the structured logger shared by pgr.
//
// A [Logger] wraps log/slog with JSON, text or console output, service
// metadata on every record and redaction of credential keys such as dsn
// and password. Other packages take a plain *slog.Logger obtained from
// [Logger.Logger] and fall back to [Discard].
//
//	log, err := logging.New(
//	    logging.WithConsoleHandler(),
//	    logging.WithLevel(logging.LevelDebug),
//	    logging.WithServiceName("pgr"),
//	)
//
// [NewContextLogger] adds trace_id and span_id from the active span.
// [NewTestHelper] captures records for assertions in tests.
package logging
