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

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func manualRecorder(t *testing.T) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	rec, err := New(WithMeterProvider(provider), WithServiceName("pgr-test"))
	require.NoError(t, err)
	return rec, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecorder_RecordRequest(t *testing.T) {
	t.Parallel()

	rec, reader := manualRecorder(t)
	ctx := context.Background()
	rec.RecordRequest(ctx, "GET /user/:", http.StatusOK, 20*time.Millisecond)
	rec.RecordRequest(ctx, "GET /user/:", http.StatusOK, 30*time.Millisecond)
	rec.RecordRequest(ctx, "", http.StatusNotFound, time.Millisecond)

	got := collect(t, reader)

	requests, ok := got["pgr.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	counts := make(map[string]int64)
	for _, dp := range requests.DataPoints {
		route, _ := dp.Attributes.Value(attribute.Key("route"))
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		counts[route.AsString()+" "+status.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"GET /user/: 200": 2, "unmatched 404": 1}, counts)

	hist, ok := got["pgr.dispatch.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(3), total)
}

func TestRecorder_RecordReload(t *testing.T) {
	t.Parallel()

	rec, reader := manualRecorder(t)
	ctx := context.Background()
	rec.RecordReload(ctx, nil, 12)
	rec.RecordReload(ctx, errors.New("catalog down"), 0)

	got := collect(t, reader)

	reloads, ok := got["pgr.reloads"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, reloads.DataPoints, 2)

	routes, ok := got["pgr.routes"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, routes.DataPoints, 1)
	assert.Equal(t, int64(12), routes.DataPoints[0].Value)
}

func TestRecorder_PrometheusHandler(t *testing.T) {
	t.Parallel()

	rec, err := New(WithPrometheus("", "/metrics"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Shutdown(context.Background()) })

	rec.RecordRequest(context.Background(), "GET /users", http.StatusOK, time.Millisecond)

	h, err := rec.Handler()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pgr_requests_total")
	assert.Equal(t, PrometheusProvider, rec.Provider())
	assert.Equal(t, "/metrics", rec.Path())
	assert.False(t, rec.ServesOwnEndpoint())

	// Start without an address is a no-op.
	require.NoError(t, rec.Start(context.Background()))
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(WithStdout(), WithPrometheus(":0", "/metrics"))
	require.Error(t, err)

	_, err = New(WithServiceName(""))
	require.Error(t, err)

	_, err = New(WithMeterProvider(nil))
	require.Error(t, err)

	rec, err := New(WithStdout(), WithExportInterval(time.Hour))
	require.NoError(t, err)
	_, err = rec.Handler()
	require.ErrorIs(t, err, ErrNoHandler)
	require.NoError(t, rec.Shutdown(context.Background()))
	require.NoError(t, rec.Shutdown(context.Background()))
}

func TestDefaultEventHandler(t *testing.T) {
	t.Parallel()

	var events []Event
	rec, err := New(WithOTLP(""), WithEventHandler(func(e Event) { events = append(events, e) }))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rec.Shutdown(ctx)
	})

	require.NotEmpty(t, events)
	assert.Equal(t, EventWarning, events[0].Type)

	assert.NotPanics(t, func() { DefaultEventHandler(nil)(Event{Type: EventError}) })
}
