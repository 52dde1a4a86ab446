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


package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// TypeEnvVar is the environment variable codec.
const TypeEnvVar Type = "env_var"

// EnvSeparator separates nesting levels in variable names. A single
// underscore stays part of the key, so SERVER__READ_HEADER_TIMEOUT is
// server.read_header_timeout.
const EnvSeparator = "__"

func init() {
	RegisterDecoder(TypeEnvVar, EnvVarCodec{})
}

// EnvVarCodec decodes KEY=value lines into a nested map. Keys are lowered.
type EnvVarCodec struct{}

// Decode expects v to be a *map[string]any.
func (EnvVarCodec) Decode(data []byte, v any) error {
	ptr, ok := v.(*map[string]any)
	if !ok {
		return fmt.Errorf("EnvVarCodec.Decode: expected *map[string]any, got %T", v)
	}

	conf := make(map[string]any)
	for _, line := range bytes.Split(data, []byte("\n")) {
		key, value, found := strings.Cut(string(line), "=")
		if !found {
			continue
		}
		parts := splitKey(key)
		if len(parts) == 0 {
			continue
		}

		current := conf
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = strings.TrimSpace(value)
	}

	*ptr = conf
	return nil
}

// Encode is not supported.
func (EnvVarCodec) Encode(any) ([]byte, error) {
	return nil, errors.New("encoding to environment variables is not supported")
}

func splitKey(key string) []string {
	raw := strings.Split(strings.ToLower(strings.TrimSpace(key)), EnvSeparator)
	parts := raw[:0]
	for _, p := range raw {
		if p = strings.Trim(p, "_"); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
