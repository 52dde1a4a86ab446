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

package router

import (
	"strings"
)

const (
	// minRoutesForIndexing is the number of dynamic routes below which the
	// first-segment index is not built.
	minRoutesForIndexing = 10

	// minRoutesForBloom is the number of static routes below which lookups
	// go straight to the map.
	minRoutesForBloom = 10
)

// Table is an immutable route table. It is safe for concurrent use.
type Table struct {
	routes []*CompiledRoute            // compile order
	keys   map[string]*CompiledRoute   // method + shape
	static map[uint64][]*CompiledRoute // routes without parameters

	staticBloom *bloomFilter

	// dynamic holds parameterized routes, most literal segments first.
	dynamic []*CompiledRoute

	// firstSegmentIndex maps the first byte of a request path to the
	// dynamic routes that can match it. Non-ASCII paths scan dynamic.
	firstSegmentIndex [128][]*CompiledRoute
	indexed           bool

	fold bool
}

func newTable(fold bool, bloomSize uint64, bloomHashes int) *Table {
	return &Table{
		keys:        make(map[string]*CompiledRoute),
		static:      make(map[uint64][]*CompiledRoute),
		staticBloom: newBloomFilter(bloomSize, bloomHashes),
		fold:        fold,
	}
}

// add inserts r unless a route with the same key exists, in which case the
// existing route is returned.
func (t *Table) add(r *CompiledRoute) (*CompiledRoute, bool) {
	key := r.Key()
	if existing, ok := t.keys[key]; ok {
		return existing, false
	}
	t.keys[key] = r
	t.routes = append(t.routes, r)

	if r.IsStatic() {
		t.static[r.hash] = append(t.static[r.hash], r)
		t.staticBloom.add(r.hash)
		return r, true
	}

	t.dynamic = append(t.dynamic, r)
	t.sortBySpecificity()
	return r, true
}

// sortBySpecificity keeps dynamic routes ordered by literal segment count.
// Insertion sort is stable, so ties keep compile order.
func (t *Table) sortBySpecificity() {
	routes := t.dynamic
	for i := 1; i < len(routes); i++ {
		key := routes[i]
		spec := key.specificity()
		j := i - 1
		for j >= 0 && routes[j].specificity() < spec {
			routes[j+1] = routes[j]
			j--
		}
		routes[j+1] = key
	}
}

// freeze builds the lookup index. The table is not modified afterwards.
// Every bucket keeps the dynamic routes in specificity order; routes that
// start with a parameter appear in every bucket.
func (t *Table) freeze() {
	if len(t.dynamic) < minRoutesForIndexing {
		return
	}
	for _, r := range t.dynamic {
		first := r.pattern[1]
		switch {
		case first == ':':
			for c := range t.firstSegmentIndex {
				t.firstSegmentIndex[c] = append(t.firstSegmentIndex[c], r)
			}
		case first < 128:
			t.indexFirst(first, r)
		}
	}
	t.indexed = true
}

func (t *Table) indexFirst(first byte, r *CompiledRoute) {
	t.firstSegmentIndex[first] = append(t.firstSegmentIndex[first], r)
	if !t.fold {
		return
	}
	switch {
	case 'a' <= first && first <= 'z':
		upper := first - 'a' + 'A'
		t.firstSegmentIndex[upper] = append(t.firstSegmentIndex[upper], r)
	case 'A' <= first && first <= 'Z':
		lower := first - 'A' + 'a'
		t.firstSegmentIndex[lower] = append(t.firstSegmentIndex[lower], r)
	}
}

// Match finds the route for method and path. Parameter values are returned
// in slot order. A path whose shape matches a route of another method does
// not match.
func (t *Table) Match(method, path string) (*CompiledRoute, []string, bool) {
	if t == nil {
		return nil, nil, false
	}
	if r := t.lookupStatic(method, path); r != nil {
		return r, nil, true
	}
	return t.matchDynamic(method, path)
}

func (t *Table) lookupStatic(method, path string) *CompiledRoute {
	if len(t.static) == 0 {
		return nil
	}

	key := path
	if key == "" {
		key = "/"
	}
	if t.fold {
		key = strings.ToLower(key)
	}
	hash := hashRoute(method, key)

	if len(t.static) >= minRoutesForBloom && !t.staticBloom.test(hash) {
		return nil
	}
	for _, r := range t.static[hash] {
		if r.method == method && r.shape == key {
			return r
		}
	}
	return nil
}

func (t *Table) matchDynamic(method, path string) (*CompiledRoute, []string, bool) {
	if t.indexed && len(path) > 1 && path[1] < 128 {
		return t.scan(t.firstSegmentIndex[path[1]], method, path)
	}
	return t.scan(t.dynamic, method, path)
}

func (t *Table) scan(routes []*CompiledRoute, method, path string) (*CompiledRoute, []string, bool) {
	for _, r := range routes {
		if r.method != method {
			continue
		}
		if params, ok := r.matchAndExtract(path, t.fold, make([]string, 0, len(r.paramPos))); ok {
			return r, params, true
		}
	}
	return nil, nil, false
}

// Routes returns the routes in compile order.
func (t *Table) Routes() []*CompiledRoute {
	if t == nil {
		return nil
	}
	out := make([]*CompiledRoute, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len returns the number of routes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}

// Lookup returns the route compiled from the routine with the given name.
func (t *Table) Lookup(name string) (*CompiledRoute, bool) {
	if t == nil {
		return nil, false
	}
	for _, r := range t.routes {
		if r.routine.Name == name {
			return r, true
		}
	}
	return nil, false
}
