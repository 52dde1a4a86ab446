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

package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testError struct {
	message string
	code    string
	status  int
	details any
}

func (e *testError) Error() string   { return e.message }
func (e *testError) Code() string    { return e.code }
func (e *testError) HTTPStatus() int { return e.status }
func (e *testError) Details() any    { return e.details }

type plainError struct{ message string }

func (e *plainError) Error() string { return e.message }

func TestRFC9457_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		formatter  *RFC9457
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "plain error",
			formatter:  NewRFC9457("https://pgr.dev/problems/"),
			err:        &plainError{message: "boom"},
			wantStatus: http.StatusInternalServerError,
			wantType:   "about:blank",
		},
		{
			name:       "coded error",
			formatter:  NewRFC9457("https://pgr.dev/problems"),
			err:        &testError{message: "no route", code: "route_not_found", status: http.StatusNotFound},
			wantStatus: http.StatusNotFound,
			wantType:   "https://pgr.dev/problems/route_not_found",
		},
		{
			name:       "code without base url",
			formatter:  NewRFC9457(""),
			err:        &testError{message: "bad", code: "binding_error", status: http.StatusBadRequest},
			wantStatus: http.StatusBadRequest,
			wantType:   "binding_error",
		},
		{
			name:       "wrapped status",
			formatter:  NewRFC9457(""),
			err:        fmt.Errorf("outer: %w", WithStatus(nil, http.StatusServiceUnavailable)),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "about:blank",
		},
		{
			name: "status resolver",
			formatter: &RFC9457{StatusResolver: func(error) int {
				return http.StatusTeapot
			}},
			err:        &plainError{message: "tea"},
			wantStatus: http.StatusTeapot,
			wantType:   "about:blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := tt.formatter.Format("/user/1", tt.err)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "application/problem+json; charset=utf-8", resp.ContentType)

			p, ok := resp.Body.(ProblemDetail)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, http.StatusText(tt.wantStatus), p.Title)
			assert.Equal(t, "/user/1", p.Instance)
			assert.Equal(t, tt.err.Error(), p.Detail)
		})
	}
}

func TestRFC9457_Extensions(t *testing.T) {
	t.Parallel()

	f := NewRFC9457("")
	err := &testError{
		message: "binding argument",
		code:    "binding_error",
		status:  http.StatusBadRequest,
		details: map[string]any{"argument": "id", "source": "path"},
	}

	resp := f.Format("/user/x", err)
	out, mErr := json.Marshal(resp.Body)
	require.NoError(t, mErr)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "binding_error", m["code"])
	assert.Equal(t, map[string]any{"argument": "id", "source": "path"}, m["details"])
	assert.Equal(t, float64(400), m["status"])
	id, ok := m["error_id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(id, "err-"))

	f.DisableErrorID = true
	resp = f.Format("/user/x", err)
	assert.NotContains(t, resp.Body.(ProblemDetail).Extensions, "error_id")

	f = &RFC9457{ErrorIDGenerator: func() string { return "fixed" }}
	resp = f.Format("", err)
	assert.Equal(t, "fixed", resp.Body.(ProblemDetail).Extensions["error_id"])
}

func TestProblemDetail_ReservedMembers(t *testing.T) {
	t.Parallel()

	p := ProblemDetail{
		Type:       "about:blank",
		Title:      "Bad Request",
		Status:     400,
		Extensions: map[string]any{"status": 999, "extra": true},
	}
	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"about:blank","title":"Bad Request","status":400,"extra":true}`, string(out))
}

func TestSimple_Format(t *testing.T) {
	t.Parallel()

	resp := NewSimple().Format("/ignored", &testError{
		message: "no route",
		code:    "route_not_found",
		status:  http.StatusNotFound,
	})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/json; charset=utf-8", resp.ContentType)
	assert.Equal(t, map[string]any{"error": "no route", "code": "route_not_found"}, resp.Body)

	resp = NewSimple().Format("", &plainError{message: "boom"})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, map[string]any{"error": "boom"}, resp.Body)
}

func TestNew(t *testing.T) {
	t.Parallel()

	f, err := New("", "https://pgr.dev/problems")
	require.NoError(t, err)
	assert.IsType(t, &RFC9457{}, f)

	f, err = New("SIMPLE", "")
	require.NoError(t, err)
	assert.IsType(t, &Simple{}, f)

	_, err = New("jsonapi", "")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWithStatus(t *testing.T) {
	t.Parallel()

	err := WithStatus(nil, http.StatusServiceUnavailable)
	assert.Equal(t, "Service Unavailable", err.Error())
	assert.Equal(t, http.StatusServiceUnavailable, Status(err))

	inner := &plainError{message: "db down"}
	err = WithStatus(inner, http.StatusBadGateway)
	assert.Equal(t, "db down", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, http.StatusInternalServerError, Status(inner))
}
