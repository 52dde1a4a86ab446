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


// Package source loads raw configuration maps from files, inline content,
// the process environment and Consul KV.
package source

import (
	"context"
	"fmt"
	"os"

	"pgr.dev/config/codec"
)

// File loads a document from a path or from bytes.
type File struct {
	path    string
	data    []byte
	decoder codec.Decoder
}

// NewFile reads path on every Load.
func NewFile(path string, decoder codec.Decoder) *File {
	return &File{path: path, decoder: decoder}
}

// NewFileContent decodes data on every Load.
func NewFileContent(data []byte, decoder codec.Decoder) *File {
	return &File{data: data, decoder: decoder}
}

func (f *File) Load(context.Context) (map[string]any, error) {
	data := f.data
	if f.path != "" {
		var err error
		if data, err = os.ReadFile(f.path); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.path, err)
		}
	}

	var conf map[string]any
	if err := f.decoder.Decode(data, &conf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.name(), err)
	}
	return conf, nil
}

func (f *File) name() string {
	if f.path == "" {
		return "content"
	}
	return f.path
}
