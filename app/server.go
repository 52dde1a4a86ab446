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
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Start listens on addr and serves until ctx is canceled. See [App.Serve].
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer cancel()
//	if err := a.Start(ctx, ":3030"); err != nil {
//	    log.Fatal(err)
//	}
func (a *App) Start(ctx context.Context, addr string) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve starts observability, runs the OnStart hooks, loads the route
// table and serves on ln until ctx is canceled, then shuts down
// gracefully. A catalog that cannot be loaded aborts startup; routines
// that fail to compile only produce diagnostics.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.startObservability(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to start observability: %w", err)
	}
	if err := a.executeStartHooks(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("startup failed: %w", err)
	}
	if _, err := a.Reload(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("startup failed: %w", err)
	}
	a.watchReload(ctx)

	server, protocol := a.newServer(ln.Addr().String())
	return a.runServer(ctx, server, ln, protocol)
}

func (a *App) newServer(addr string) (*http.Server, string) {
	handler := a.handler
	protocol := "HTTP"
	if a.config.server.h2c {
		handler = h2c.NewHandler(handler, &http2.Server{})
		protocol = "h2c"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: a.config.server.readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
	}, protocol
}

// runServer serves until ctx is canceled or the server fails, then runs
// the shutdown sequence: OnShutdown hooks, server shutdown, observability
// shutdown, OnStop hooks.
func (a *App) runServer(ctx context.Context, server *http.Server, ln net.Listener, protocol string) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("%s server failed: %w", protocol, err)
		}
	}()

	a.printStartupBanner(server.Addr, protocol)
	a.logger.Info("server starting",
		"address", server.Addr,
		"environment", a.config.environment,
		"protocol", protocol,
		"routes", a.dispatcher.Table().Len(),
	)
	a.executeReadyHooks()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		a.logger.Info("server shutting down", "protocol", protocol, "reason", context.Cause(ctx))
	}

	// ctx is already done; the shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.server.shutdownTimeout)
	defer cancel()

	a.executeShutdownHooks(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server forced to shutdown: %w", protocol, err)
	}
	a.shutdownObservability(shutdownCtx)
	a.executeStopHooks()

	a.logger.Info("server exited", "protocol", protocol)
	return nil
}

func (a *App) startObservability(ctx context.Context) error {
	if a.config.metrics != nil {
		if err := a.config.metrics.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}
	return nil
}

func (a *App) shutdownObservability(ctx context.Context) {
	if a.config.metrics != nil {
		if err := a.config.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics shutdown failed", "error", err)
		}
	}
	if a.config.tracing != nil {
		if err := a.config.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}
}
