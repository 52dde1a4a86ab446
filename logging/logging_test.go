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

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNew_Handlers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler HandlerType
		check   func(t *testing.T, out string)
	}{
		{
			name:    "json",
			handler: JSONHandler,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `"msg":"route compiled"`)
				assert.Contains(t, out, `"routine":"get /users"`)
			},
		},
		{
			name:    "text",
			handler: TextHandler,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `msg="route compiled"`)
			},
		},
		{
			name:    "console",
			handler: ConsoleHandler,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "route compiled")
				assert.Contains(t, out, "routine=get /users")
				assert.Contains(t, out, "service=pgr")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l, err := New(WithHandlerType(tt.handler), WithOutput(&buf), WithServiceName("pgr"))
			require.NoError(t, err)
			l.Info("route compiled", "routine", "get /users")
			tt.check(t, buf.String())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(WithHandlerType("xml"))
	require.ErrorIs(t, err, ErrInvalidHandler)

	_, err = New(WithOutput(nil))
	require.Error(t, err)

	_, err = New(WithCustomLogger(nil))
	require.ErrorIs(t, err, ErrNilLogger)
}

func TestRedaction(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	th.Logger.Info("connecting", "dsn", "postgres://u:p@h/db", "schema", "pgr")

	assert.True(t, th.ContainsAttr("dsn", "***REDACTED***"))
	assert.True(t, th.ContainsAttr("schema", "pgr"))
}

func TestSetLevel(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t, WithLevel(LevelWarn))
	th.Logger.Info("dropped")
	require.NoError(t, th.Logger.SetLevel(LevelInfo))
	th.Logger.Info("kept")

	assert.False(t, th.ContainsLog("dropped"))
	assert.True(t, th.ContainsLog("kept"))
	assert.Equal(t, LevelInfo, th.Logger.Level())

	custom, err := New(WithCustomLogger(Discard()))
	require.NoError(t, err)
	require.ErrorIs(t, custom.SetLevel(LevelDebug), ErrCannotChangeLevel)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
		"warn": LevelWarn, "warning": LevelWarn, "error": LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	cl := NewContextLogger(ctx, th.Logger.Logger())
	cl.Warn("routine skipped", "kind", "parse_error")

	assert.Equal(t, span.SpanContext().TraceID().String(), cl.TraceID())
	assert.True(t, th.ContainsAttr("trace_id", cl.TraceID()))
	assert.True(t, th.ContainsAttr("span_id", cl.SpanID()))
	assert.Equal(t, 1, th.CountLevel("WARN"))

	plain := NewContextLogger(context.Background(), th.Logger.Logger())
	assert.Empty(t, plain.TraceID())
}

func TestConsoleHandler_Groups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithConsoleHandler(), WithOutput(&buf))
	l.Logger().WithGroup("db").Info("pool", "open", 3, slog.Group("wait", "count", 1))

	out := buf.String()
	assert.Contains(t, out, "db.open=3")
	assert.Contains(t, out, "db.wait.count=1")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
