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

package pg

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// StatusClientClosedRequest is used when the caller went away before the
// routine finished.
const StatusClientClosedRequest = 499

// InvocationError reports a failed routine call. Its message only names
// the routine and the SQLSTATE condition; the driver error is available
// through Unwrap for logging.
type InvocationError struct {
	Routine   string
	SQLState  string // empty when the database did not answer
	Condition string // SQLSTATE condition name, e.g. "unique_violation"
	Err       error
}

func newInvocationError(routine string, err error) *InvocationError {
	e := &InvocationError{Routine: routine, Err: err}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		e.SQLState = string(pqErr.Code)
		e.Condition = pqErr.Code.Name()
	}
	return e
}

// Error returns the sanitized message.
func (e *InvocationError) Error() string {
	switch {
	case e.SQLState != "":
		return fmt.Sprintf("routine %q failed: %s (SQLSTATE %s)", e.Routine, e.Condition, e.SQLState)
	case errors.Is(e.Err, context.DeadlineExceeded):
		return fmt.Sprintf("routine %q timed out", e.Routine)
	case errors.Is(e.Err, context.Canceled):
		return fmt.Sprintf("routine %q canceled", e.Routine)
	default:
		return fmt.Sprintf("routine %q failed", e.Routine)
	}
}

// Unwrap returns the driver error.
func (e *InvocationError) Unwrap() error { return e.Err }

// HTTPStatus implements errors.ErrorType. Errors raised by the database are
// reported as 502; failures to reach it as 500.
func (e *InvocationError) HTTPStatus() int {
	switch {
	case e.SQLState != "":
		return http.StatusBadGateway
	case errors.Is(e.Err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(e.Err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code implements errors.ErrorCode.
func (e *InvocationError) Code() string { return "invocation_failed" }

// Details implements errors.ErrorDetails.
func (e *InvocationError) Details() any {
	if e.SQLState == "" {
		return nil
	}
	return map[string]string{"sqlstate": e.SQLState, "condition": e.Condition}
}
