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

package openapi

import (
	"net/http"
	"path"
	"sync"

	"pgr.dev/render"
	"pgr.dev/router"
)

// TableSource returns the currently published route table, or nil.
type TableSource func() *router.Table

// Handler serves the document for the table returned by source. A path
// ending in .yaml or .yml, or an Accept header preferring YAML, selects
// YAML output. Documents are rebuilt only when the table changes.
func Handler(source TableSource, opts ...Option) http.Handler {
	return &handler{source: source, opts: opts}
}

type handler struct {
	source TableSource
	opts   []Option

	mu    sync.Mutex
	table *router.Table
	json  []byte
	yaml  []byte
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	asYAML := render.Negotiate(r.Header.Get("Accept")) == render.FormatYAML
	switch path.Ext(r.URL.Path) {
	case ".yaml", ".yml":
		asYAML = true
	case ".json":
		asYAML = false
	}

	jsonDoc, yamlDoc, err := h.encoded()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body, ctype := jsonDoc, "application/json; charset=utf-8"
	if asYAML {
		body, ctype = yamlDoc, "application/yaml; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Vary", "Accept")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(body)
	}
}

func (h *handler) encoded() ([]byte, []byte, error) {
	t := h.source()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.json != nil && t == h.table {
		return h.json, h.yaml, nil
	}

	var routes []*router.CompiledRoute
	if t != nil {
		routes = t.Routes()
	}
	doc := Build(routes, h.opts...)
	j, err := doc.JSON()
	if err != nil {
		return nil, nil, err
	}
	y, err := doc.YAML()
	if err != nil {
		return nil, nil, err
	}
	h.table, h.json, h.yaml = t, j, y
	return j, y, nil
}
