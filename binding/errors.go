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

package binding

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pgr.dev/catalog"
)

// Source is the request zone an argument value came from.
type Source int

const (
	SourceUnknown Source = iota
	SourcePath
	SourceQuery
	SourceBody
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	case SourceBody:
		return "body"
	default:
		return "unknown"
	}
}

// Static errors for binding operations.
var (
	ErrBodyRequired        = errors.New("request body is required")
	ErrInvalidJSON         = errors.New("invalid JSON value")
	ErrInvalidUUID         = errors.New("invalid UUID")
	ErrInvalidNumeric      = errors.New("invalid numeric value")
	ErrOutOfRange          = errors.New("value out of range")
	ErrUnsupportedBodyType = errors.New("body value does not fit argument type")
)

// BindError reports an argument that could not be bound from the request.
//
// Use [errors.As] to check for BindError:
//
//	var bindErr *BindError
//	if errors.As(err, &bindErr) {
//	    fmt.Printf("argument: %s, source: %s\n", bindErr.Arg, bindErr.Source)
//	}
type BindError struct {
	Arg    string          // Argument name
	Source Source          // Request zone
	Value  string          // Raw value that failed conversion
	Type   catalog.TypeRef // Declared argument type
	Reason string          // Human-readable reason, used when Err is nil
	Err    error           // Underlying error
}

// Error returns a formatted error message with a hint when one applies.
func (e *BindError) Error() string {
	var base string
	if e.Err == nil {
		base = fmt.Sprintf("binding argument %q (%s): %s", e.Arg, e.Source, e.Reason)
	} else {
		base = fmt.Sprintf("binding argument %q (%s): cannot convert %q to %s: %v",
			e.Arg, e.Source, e.Value, e.Type, e.Err)
	}
	if hint := e.hint(); hint != "" {
		base += " (hint: " + hint + ")"
	}
	return base
}

func (e *BindError) hint() string {
	if e.Err == nil {
		return ""
	}
	t := e.Type
	if t.IsArray() {
		t = t.Elem()
	}
	if errors.Is(e.Err, ErrOutOfRange) {
		if r, ok := typeRanges[t.Base()]; ok {
			return t.Base() + " accepts " + r
		}
	}
	switch family(t) {
	case familyInt:
		if strings.Contains(e.Value, ".") {
			return "integer arguments do not accept fractional values"
		}
	case familyBool:
		return "accepted values: true/false, t/f, 1/0"
	case familyTime:
		return "use RFC 3339 (2006-01-02T15:04:05Z07:00) or 2006-01-02"
	case familyUUID:
		return "use the 8-4-4-4-12 hexadecimal form"
	}
	if e.Type.IsArray() && e.Source == SourceQuery {
		return "send a comma-separated list or repeat the query parameter"
	}
	return ""
}

var typeRanges = map[string]string{
	"smallint": "-32768 to 32767",
	"int2":     "-32768 to 32767",
	"integer":  "-2147483648 to 2147483647",
	"int":      "-2147483648 to 2147483647",
	"int4":     "-2147483648 to 2147483647",
	"real":     "magnitudes up to 3.4e38",
	"float4":   "magnitudes up to 3.4e38",
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *BindError) Unwrap() error {
	return e.Err
}

// HTTPStatus implements errors.ErrorType.
func (e *BindError) HTTPStatus() int {
	return http.StatusBadRequest
}

// Code implements errors.ErrorCode.
func (e *BindError) Code() string {
	return "binding_error"
}

// Details implements errors.ErrorDetails.
func (e *BindError) Details() any {
	return map[string]any{
		"argument": e.Arg,
		"source":   e.Source.String(),
		"type":     e.Type.String(),
	}
}

// MediaTypeError is returned for a request body in a format the binder
// cannot decode.
type MediaTypeError struct {
	ContentType string
}

func (e *MediaTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %q", e.ContentType)
}

// HTTPStatus implements errors.ErrorType.
func (e *MediaTypeError) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// Code implements errors.ErrorCode.
func (e *MediaTypeError) Code() string {
	return "unsupported_media_type"
}
