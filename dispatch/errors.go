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


package dispatch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrReloadInProgress is returned by [Dispatcher.Reload] while another
	// reload is running.
	ErrReloadInProgress = errors.New("dispatch: reload already in progress")

	// ErrNotReady is reported with status 503 until a route table has been
	// published.
	ErrNotReady = errors.New("dispatch: route table not published")

	// ErrNilDatabase is returned by [New] without a database.
	ErrNilDatabase = errors.New("dispatch: database is nil")
)

// NotFoundError is returned when no route matches the request. A path that
// exists under another method is reported the same way.
type NotFoundError struct {
	Method string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no route for %s %s", e.Method, e.Path)
}

// HTTPStatus implements errors.ErrorType.
func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }

// Code implements errors.ErrorCode.
func (e *NotFoundError) Code() string { return "route_not_found" }
