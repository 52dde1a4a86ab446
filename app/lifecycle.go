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


package app

import (
	"context"
	"fmt"
	"sync"

	"pgr.dev/router"
)

// Hooks holds lifecycle callbacks.
type Hooks struct {
	mu         sync.Mutex
	onStart    []func(context.Context) error
	onReady    []func()
	onShutdown []func(context.Context)
	onStop     []func()
	onReload   []func(router.Diagnostics, error)
}

// OnStart registers a hook run before the catalog is loaded and the
// server listens. Hooks run in order; the first error aborts startup.
func (a *App) OnStart(fn func(context.Context) error) {
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onStart = append(a.hooks.onStart, fn)
}

// OnReady registers a hook run asynchronously once the server listens.
// A panicking hook is logged.
func (a *App) OnReady(fn func()) {
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onReady = append(a.hooks.onReady, fn)
}

// OnShutdown registers a hook run during graceful shutdown, in reverse
// registration order, with the shutdown deadline in ctx.
//
//	a.OnShutdown(func(context.Context) { db.Close() })
func (a *App) OnShutdown(fn func(context.Context)) {
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onShutdown = append(a.hooks.onShutdown, fn)
}

// OnStop registers a hook run after the server stopped. Panics are
// recovered and logged.
func (a *App) OnStop(fn func()) {
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onStop = append(a.hooks.onStop, fn)
}

// OnReload registers a hook run after every reload attempt with its
// diagnostics and error. [dispatch.ErrReloadInProgress] is reported too.
func (a *App) OnReload(fn func(router.Diagnostics, error)) {
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onReload = append(a.hooks.onReload, fn)
}

func snapshot[T any](mu *sync.Mutex, hooks []T) []T {
	mu.Lock()
	defer mu.Unlock()
	out := make([]T, len(hooks))
	copy(out, hooks)
	return out
}

func (a *App) executeStartHooks(ctx context.Context) error {
	for i, hook := range snapshot(&a.hooks.mu, a.hooks.onStart) {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("OnStart hook %d failed: %w", i, err)
		}
	}
	return nil
}

func (a *App) executeReadyHooks() {
	for _, hook := range snapshot(&a.hooks.mu, a.hooks.onReady) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("OnReady hook panic", "error", r)
				}
			}()
			hook()
		}()
	}
}

func (a *App) executeShutdownHooks(ctx context.Context) {
	hooks := snapshot(&a.hooks.mu, a.hooks.onShutdown)
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i](ctx)
	}
}

func (a *App) executeStopHooks() {
	for _, hook := range snapshot(&a.hooks.mu, a.hooks.onStop) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("OnStop hook panic", "error", r)
				}
			}()
			hook()
		}()
	}
}

func (a *App) executeReloadHooks(diags router.Diagnostics, err error) {
	for _, hook := range snapshot(&a.hooks.mu, a.hooks.onReload) {
		hook(diags, err)
	}
}
