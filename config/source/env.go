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


package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"pgr.dev/config/codec"
)

// OSEnvVar loads variables starting with a prefix. With prefix "PGR_",
// PGR_DATABASE__DSN becomes database.dsn.
type OSEnvVar struct {
	prefix  string
	environ func() []string
}

// NewOSEnvVar returns a source for variables starting with prefix.
func NewOSEnvVar(prefix string) *OSEnvVar {
	return &OSEnvVar{prefix: prefix, environ: os.Environ}
}

func (e *OSEnvVar) Load(context.Context) (map[string]any, error) {
	var lines []string
	for _, kv := range e.environ() {
		if rest, ok := strings.CutPrefix(kv, e.prefix); ok {
			lines = append(lines, rest)
		}
	}

	var conf map[string]any
	if err := (codec.EnvVarCodec{}).Decode([]byte(strings.Join(lines, "\n")), &conf); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return conf, nil
}
