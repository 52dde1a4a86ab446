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

package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// RFC9457 formats errors as RFC 9457 problem details
// ("application/problem+json").
type RFC9457 struct {
	// BaseURL is prepended to error codes to build the problem type URI.
	// Without it the code itself is the type.
	BaseURL string

	// StatusResolver overrides status detection when set.
	StatusResolver func(err error) int

	// ErrorIDGenerator generates the error_id extension. Defaults to a
	// UUIDv7 prefixed with "err-".
	ErrorIDGenerator func() string

	// DisableErrorID omits the error_id extension.
	DisableErrorID bool
}

// ProblemDetail is an RFC 9457 problem. Extensions are marshaled inline.
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"-"`
}

// MarshalJSON merges extensions into the problem object. Extensions never
// override the standard members.
func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extensions)+5)
	for k, v := range p.Extensions {
		m[k] = v
	}
	m["type"] = p.Type
	m["title"] = p.Title
	m["status"] = p.Status
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	if p.Instance != "" {
		m["instance"] = p.Instance
	}
	return json.Marshal(m)
}

// Format implements [Formatter].
func (f *RFC9457) Format(instance string, err error) Response {
	status := Status(err)
	if f.StatusResolver != nil {
		status = f.StatusResolver(err)
	}

	p := ProblemDetail{
		Type:       f.problemType(err),
		Title:      http.StatusText(status),
		Status:     status,
		Detail:     err.Error(),
		Instance:   instance,
		Extensions: make(map[string]any),
	}
	if !f.DisableErrorID {
		if f.ErrorIDGenerator != nil {
			p.Extensions["error_id"] = f.ErrorIDGenerator()
		} else {
			p.Extensions["error_id"] = errorID()
		}
	}
	enrich(err, func(k string, v any) { p.Extensions[k] = v })

	return Response{
		Status:      status,
		ContentType: "application/problem+json; charset=utf-8",
		Body:        p,
	}
}

func (f *RFC9457) problemType(err error) string {
	var coded ErrorCode
	if !errors.As(err, &coded) {
		return "about:blank"
	}
	if f.BaseURL != "" {
		return f.BaseURL + "/" + coded.Code()
	}
	return coded.Code()
}

func errorID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "err-" + uuid.NewString()
	}
	return "err-" + id.String()
}
