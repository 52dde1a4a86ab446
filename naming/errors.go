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

package naming

import (
	"errors"
	"fmt"
)

// ErrInvalidName is wrapped by every error returned from [Parse].
var ErrInvalidName = errors.New("invalid routine name")

// ParseError describes why a routine name does not follow the route grammar.
type ParseError struct {
	Name   string // the raw routine name
	Reason string // human readable cause
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidName, e.Name, e.Reason)
}

// Unwrap returns [ErrInvalidName] so callers can use errors.Is.
func (e *ParseError) Unwrap() error {
	return ErrInvalidName
}

func parseErrorf(name, format string, args ...any) error {
	return &ParseError{Name: name, Reason: fmt.Sprintf(format, args...)}
}
