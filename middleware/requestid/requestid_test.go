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


//go:build !integration

package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []Option
		incoming string
		check    func(t *testing.T, id string)
	}{
		{
			name: "generates uuid v7",
			check: func(t *testing.T, id string) {
				u, err := uuid.Parse(id)
				require.NoError(t, err)
				assert.Equal(t, uuid.Version(7), u.Version())
			},
		},
		{
			name:     "keeps client id",
			incoming: "abc-123",
			check:    func(t *testing.T, id string) { assert.Equal(t, "abc-123", id) },
		},
		{
			name:     "replaces client id when disallowed",
			opts:     []Option{WithAllowClientID(false), WithGenerator(func() string { return "fixed" })},
			incoming: "abc-123",
			check:    func(t *testing.T, id string) { assert.Equal(t, "fixed", id) },
		},
		{
			name:     "replaces oversized client id",
			opts:     []Option{WithGenerator(func() string { return "fixed" })},
			incoming: strings.Repeat("x", 129),
			check:    func(t *testing.T, id string) { assert.Equal(t, "fixed", id) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			h := New(tt.opts...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = Get(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tt.incoming != "" {
				req.Header.Set(DefaultHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			tt.check(t, seen)
			assert.Equal(t, seen, w.Header().Get(DefaultHeader))
		})
	}
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	h := New(WithHeader("X-Correlation-ID"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "corr-1", w.Header().Get("X-Correlation-ID"))
	assert.Empty(t, w.Header().Get(DefaultHeader))
	assert.Empty(t, Get(req.Context()))
}
