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

package timeout

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func deadlineOf(h func(http.Handler) http.Handler, path string) (time.Time, bool) {
	var (
		deadline time.Time
		ok       bool
	)
	h(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	return deadline, ok
}

func TestNew(t *testing.T) {
	t.Parallel()

	start := time.Now()
	deadline, ok := deadlineOf(New(WithDuration(2*time.Second)), "/users")
	assert.True(t, ok)
	assert.WithinDuration(t, start.Add(2*time.Second), deadline, time.Second)

	_, ok = deadlineOf(New(WithSkipPrefix("/healthz")), "/healthz")
	assert.False(t, ok)

	_, ok = deadlineOf(New(WithDuration(0)), "/users")
	assert.False(t, ok)

	deadline, ok = deadlineOf(New(), "/users")
	assert.True(t, ok)
	assert.WithinDuration(t, start.Add(DefaultDuration), deadline, time.Second)
}

func TestNew_SkipPrefixBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		skip bool
	}{
		{path: "/healthz", skip: true},
		{path: "/healthz/live", skip: true},
		{path: "/healthzfoo", skip: false},
		{path: "/healthz-x", skip: false},
		{path: "/users", skip: false},
	}

	h := New(WithDuration(time.Second), WithSkipPrefix("/healthz"))
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			_, ok := deadlineOf(h, tt.path)
			assert.Equal(t, tt.skip, !ok)
		})
	}
}
