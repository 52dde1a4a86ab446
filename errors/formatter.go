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
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnknownFormat is returned by [New] for an unrecognized format name.
var ErrUnknownFormat = errors.New("errors: unknown format")

// Format names accepted by [New].
const (
	FormatRFC9457 = "rfc9457"
	FormatSimple  = "simple"
)

// Formatter turns an error into the components of an HTTP response.
//
// The instance is the request path the error occurred on. Formatters that
// have no use for it ignore it.
type Formatter interface {
	Format(instance string, err error) Response
}

// Response is a formatted error response.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is marshaled as JSON.
	Body any

	// Headers contains additional headers to set (optional).
	Headers http.Header
}

// ErrorType lets an error declare its HTTP status code.
type ErrorType interface {
	error
	HTTPStatus() int
}

// ErrorDetails lets an error expose structured details.
type ErrorDetails interface {
	error
	Details() any
}

// ErrorCode lets an error expose a machine-readable code.
type ErrorCode interface {
	error
	Code() string
}

// New returns the formatter registered under name. An empty name selects
// RFC 9457.
//
//	f, err := errors.New("simple", "")
func New(name, baseURL string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", FormatRFC9457:
		return NewRFC9457(baseURL), nil
	case FormatSimple:
		return NewSimple(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// NewRFC9457 creates an RFC 9457 formatter. baseURL is prepended to error
// codes to build problem type URIs.
func NewRFC9457(baseURL string) *RFC9457 {
	return &RFC9457{BaseURL: strings.TrimSuffix(baseURL, "/")}
}

// NewSimple creates a Simple formatter.
func NewSimple() *Simple {
	return &Simple{}
}

// WithStatus wraps err with an explicit HTTP status code. A nil err uses
// the status text as its message.
//
//	return errors.WithStatus(err, http.StatusServiceUnavailable)
func WithStatus(err error, status int) error {
	return &statusError{err: err, status: status}
}

type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string {
	if e.err == nil {
		return http.StatusText(e.status)
	}
	return e.err.Error()
}

func (e *statusError) Unwrap() error { return e.err }

func (e *statusError) HTTPStatus() int { return e.status }

// Status returns the HTTP status declared by err, or 500.
func Status(err error) int {
	var typed ErrorType
	if errors.As(err, &typed) {
		return typed.HTTPStatus()
	}
	return http.StatusInternalServerError
}

func enrich(err error, set func(key string, value any)) {
	var detailed ErrorDetails
	if errors.As(err, &detailed) {
		if d := detailed.Details(); d != nil {
			set("details", d)
		}
	}
	var coded ErrorCode
	if errors.As(err, &coded) {
		set("code", coded.Code())
	}
}
