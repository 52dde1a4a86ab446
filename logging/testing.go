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

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

// LogEntry is one parsed JSON record.
type LogEntry struct {
	Level   string
	Message string
	Attrs   map[string]any
}

// syncBuffer lets concurrent handlers write while a test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func (b *syncBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// TestHelper captures JSON records in memory.
type TestHelper struct {
	Logger *Logger
	buf    *syncBuffer
}

// NewTestHelper returns a debug-level JSON logger writing to memory.
func NewTestHelper(t testing.TB, opts ...Option) *TestHelper {
	t.Helper()

	buf := &syncBuffer{}
	all := append([]Option{WithJSONHandler(), WithOutput(buf), WithLevel(LevelDebug)}, opts...)
	l, err := New(all...)
	if err != nil {
		t.Fatalf("NewTestHelper: %v", err)
	}
	return &TestHelper{Logger: l, buf: buf}
}

// Logs parses every captured record.
func (th *TestHelper) Logs() ([]LogEntry, error) {
	var entries []LogEntry
	sc := bufio.NewScanner(bytes.NewReader(th.buf.snapshot()))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			return nil, err
		}
		e := LogEntry{Attrs: make(map[string]any)}
		e.Level, _ = m["level"].(string)
		e.Message, _ = m["msg"].(string)
		for k, v := range m {
			if k != "time" && k != "level" && k != "msg" {
				e.Attrs[k] = v
			}
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// ContainsLog reports whether any record has message msg.
func (th *TestHelper) ContainsLog(msg string) bool {
	entries, _ := th.Logs()
	for _, e := range entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record has key set to value. Values
// are compared by their printed form, so 3 matches the JSON number 3.
func (th *TestHelper) ContainsAttr(key string, value any) bool {
	entries, _ := th.Logs()
	want := fmt.Sprint(value)
	for _, e := range entries {
		if v, ok := e.Attrs[key]; ok && fmt.Sprint(v) == want {
			return true
		}
	}
	return false
}

// CountLevel counts records at level ("INFO", "WARN", ...).
func (th *TestHelper) CountLevel(level string) int {
	entries, _ := th.Logs()
	n := 0
	for _, e := range entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Reset drops captured records.
func (th *TestHelper) Reset() { th.buf.reset() }
