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

package app

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgr.dev/logging"
)

func TestHooks_Order(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t)
	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, s)
	}

	a.OnStart(func(context.Context) error { record("start-1"); return nil })
	a.OnStart(func(context.Context) error { record("start-2"); return nil })
	a.OnShutdown(func(context.Context) { record("shutdown-1") })
	a.OnShutdown(func(context.Context) { record("shutdown-2") })
	a.OnStop(func() { record("stop") })

	require.NoError(t, a.executeStartHooks(context.Background()))
	a.executeShutdownHooks(context.Background())
	a.executeStopHooks()

	assert.Equal(t, []string{"start-1", "start-2", "shutdown-2", "shutdown-1", "stop"}, calls)
}

func TestHooks_StartErrorAbortsServe(t *testing.T) {
	t.Parallel()

	a, m := newTestApp(t)
	boom := errors.New("migration failed")
	second := false
	a.OnStart(func(context.Context) error { return boom })
	a.OnStart(func(context.Context) error { second = true; return nil })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = a.Serve(context.Background(), ln)
	require.ErrorIs(t, err, boom)
	assert.False(t, second)
	require.NoError(t, m.ExpectationsWereMet(), "catalog must not be read")

	_, err = ln.Accept()
	require.Error(t, err, "listener is closed")
}

func TestHooks_PanicsAreRecovered(t *testing.T) {
	t.Parallel()

	th := logging.NewTestHelper(t)
	a, _ := newTestApp(t, WithLogger(th.Logger.Logger()))

	ran := false
	a.OnStop(func() { panic("disk gone") })
	a.OnStop(func() { ran = true })

	done := make(chan struct{})
	a.OnReady(func() {
		defer close(done)
		panic("registry down")
	})

	a.executeStopHooks()
	a.executeReadyHooks()
	<-done

	assert.True(t, ran)
	assert.Eventually(t, func() bool { return th.ContainsLog("OnReady hook panic") }, time.Second, 10*time.Millisecond)
	assert.True(t, th.ContainsLog("OnStop hook panic"))
}
