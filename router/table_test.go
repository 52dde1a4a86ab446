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

package router

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgr.dev/catalog"
)

func routine(name string, inputs ...string) catalog.Signature {
	sig := catalog.Signature{Name: name, ReturnType: "text"}
	for i, in := range inputs {
		sig.Args = append(sig.Args, arg(in, catalog.ModeIn, "text", i+1))
	}
	return sig
}

func testTable(t *testing.T, opts ...CompileOption) *Table {
	t.Helper()

	table, diags := Compile([]catalog.Signature{
		routine("get /"),
		routine("get /users"),
		routine("get /user/me"),
		routine("get /user/:id", "id"),
		routine("delete /user/:id", "id"),
		routine("get /user/:id/posts/:pid", "id", "pid"),
		routine("get /:tenant/status", "tenant"),
	}, opts...)
	require.Empty(t, diags)
	return table
}

func TestTable_Match(t *testing.T) {
	t.Parallel()

	table := testTable(t)

	tests := []struct {
		method     string
		path       string
		wantRoute  string
		wantParams []string
	}{
		{method: "GET", path: "/", wantRoute: "get /"},
		{method: "GET", path: "", wantRoute: "get /"},
		{method: "GET", path: "/users", wantRoute: "get /users"},
		{method: "GET", path: "/user/me", wantRoute: "get /user/me"},
		{method: "GET", path: "/user/42", wantRoute: "get /user/:id", wantParams: []string{"42"}},
		{method: "DELETE", path: "/user/42", wantRoute: "delete /user/:id", wantParams: []string{"42"}},
		{method: "GET", path: "/user/7/posts/9", wantRoute: "get /user/:id/posts/:pid", wantParams: []string{"7", "9"}},
		{method: "GET", path: "/acme/status", wantRoute: "get /:tenant/status", wantParams: []string{"acme"}},
		{method: "GET", path: "/USERS", wantRoute: "get /users"},
		{method: "GET", path: "/User/5", wantRoute: "get /user/:id", wantParams: []string{"5"}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			route, params, ok := table.Match(tt.method, tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.wantRoute, route.Name())
			if tt.wantParams == nil {
				assert.Empty(t, params)
			} else {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestTable_NoMatch(t *testing.T) {
	t.Parallel()

	table := testTable(t)

	tests := []struct {
		method string
		path   string
	}{
		{method: "GET", path: "/nope"},
		{method: "POST", path: "/users"},
		{method: "PUT", path: "/user/42"},
		{method: "GET", path: "/user/"},
		{method: "GET", path: "/user//posts/1"},
		{method: "GET", path: "/user/1/posts"},
		{method: "GET", path: "/users/"},
		{method: "GET", path: "/user/1/posts/2/extra"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			route, params, ok := table.Match(tt.method, tt.path)
			assert.False(t, ok)
			assert.Nil(t, route)
			assert.Nil(t, params)
		})
	}
}

func TestTable_CaseSensitive(t *testing.T) {
	t.Parallel()

	table := testTable(t, WithCaseSensitive(true))

	_, _, ok := table.Match("GET", "/USERS")
	assert.False(t, ok)
	_, _, ok = table.Match("GET", "/User/5")
	assert.False(t, ok)
	_, _, ok = table.Match("GET", "/users")
	assert.True(t, ok)
}

func TestTable_NilSafe(t *testing.T) {
	t.Parallel()

	var table *Table
	_, _, ok := table.Match("GET", "/")
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Routes())
}

func TestTable_IndexedMatch(t *testing.T) {
	t.Parallel()

	var sigs []catalog.Signature
	for i := range 30 {
		sigs = append(sigs,
			routine(fmt.Sprintf("get /r%d/:id", i), "id"),
			routine(fmt.Sprintf("get /s%d", i)),
		)
	}
	sigs = append(sigs, routine("get /:any/x", "any"))

	table, diags := Compile(sigs)
	require.Empty(t, diags)
	require.True(t, table.indexed)

	route, params, ok := table.Match("GET", "/r17/abc")
	require.True(t, ok)
	assert.Equal(t, "get /r17/:id", route.Name())
	assert.Equal(t, []string{"abc"}, params)

	route, _, ok = table.Match("GET", "/s29")
	require.True(t, ok)
	assert.Equal(t, "get /s29", route.Name())

	route, params, ok = table.Match("GET", "/zzz/x")
	require.True(t, ok)
	assert.Equal(t, "get /:any/x", route.Name())
	assert.Equal(t, []string{"zzz"}, params)

	route, _, ok = table.Match("GET", "/R3/1")
	require.True(t, ok)
	assert.Equal(t, "get /r3/:id", route.Name())

	_, _, ok = table.Match("GET", "/s30")
	assert.False(t, ok)
}

func TestTable_ConcurrentMatch(t *testing.T) {
	t.Parallel()

	table := testTable(t)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				route, params, ok := table.Match("GET", "/user/42")
				assert.True(t, ok)
				assert.Equal(t, "get /user/:id", route.Name())
				assert.Equal(t, []string{"42"}, params)
			}
		}()
	}
	wg.Wait()
}

func TestBloomFilter(t *testing.T) {
	t.Parallel()

	bf := newBloomFilter(256, 3)
	h := hashRoute("GET", "/users")
	assert.False(t, bf.test(h))
	bf.add(h)
	assert.True(t, bf.test(h))
	assert.NotEqual(t, hashRoute("GET", "/users"), hashRoute("GET /", "users"))
}
