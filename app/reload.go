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
	"errors"

	"pgr.dev/dispatch"
	"pgr.dev/router"
)

// Reload recompiles the route table from the catalog and runs the
// OnReload hooks. On error the previous table keeps serving.
func (a *App) Reload(ctx context.Context) (router.Diagnostics, error) {
	diags, err := a.dispatcher.Reload(ctx)
	switch {
	case errors.Is(err, dispatch.ErrReloadInProgress):
		a.logger.Info("reload skipped", "reason", err)
	case err != nil:
		a.logger.Error("reload failed", "error", err)
	default:
		a.logger.Info("routes reloaded",
			"routes", a.dispatcher.Table().Len(),
			"skipped", len(diags),
		)
	}
	a.executeReloadHooks(diags, err)
	return diags, err
}

// watchReload reloads on every reload signal until ctx is done.
func (a *App) watchReload(ctx context.Context) {
	sig, stop := notifyReload()
	if sig == nil {
		return
	}
	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-sig:
				a.logger.Info("reload requested", "signal", s.String())
				//nolint:errcheck // logged and reported to OnReload hooks
				a.Reload(ctx)
			}
		}
	}()
}
