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


package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	pgrerrors "pgr.dev/errors"
)

// healthz answers liveness: the process is up.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok") //nolint:errcheck // probe output
}

// readyz answers readiness: a route table is published and the database
// responds within the ready timeout.
func (a *App) readyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	ctx, cancel := context.WithTimeout(r.Context(), a.config.readyTimeout)
	defer cancel()
	if err := a.dispatcher.Ready(ctx); err != nil {
		a.logger.Debug("readiness check failed", "error", err)
		out := a.config.formatter.Format(r.URL.Path,
			pgrerrors.WithStatus(err, http.StatusServiceUnavailable))
		w.Header().Set("Content-Type", out.ContentType)
		w.WriteHeader(out.Status)
		//nolint:errchkjson,errcheck // probe output
		json.NewEncoder(w).Encode(out.Body)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
