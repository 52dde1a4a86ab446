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


// Package codec decodes configuration documents into nested maps.
//
// Codecs register themselves by [Type] at init; sources look them up with
// [GetDecoder]. Keys are left as written; the config package folds case.
package codec

import (
	"fmt"
	"sync"
)

// Type names a codec, e.g. "yaml".
type Type string

// Encoder encodes a value.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Decoder decodes data into the value pointed to by v.
type Decoder interface {
	Decode(data []byte, v any) error
}

var registry = struct {
	sync.RWMutex
	encoders map[Type]Encoder
	decoders map[Type]Decoder
}{
	encoders: make(map[Type]Encoder),
	decoders: make(map[Type]Decoder),
}

// RegisterEncoder registers encoder under name, replacing any previous one.
func RegisterEncoder(name Type, encoder Encoder) {
	registry.Lock()
	defer registry.Unlock()
	registry.encoders[name] = encoder
}

// RegisterDecoder registers decoder under name, replacing any previous one.
func RegisterDecoder(name Type, decoder Decoder) {
	registry.Lock()
	defer registry.Unlock()
	registry.decoders[name] = decoder
}

// GetEncoder returns the encoder registered under name.
func GetEncoder(name Type) (Encoder, error) {
	registry.RLock()
	defer registry.RUnlock()
	if e, ok := registry.encoders[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("encoder not found for type: %s", name)
}

// GetDecoder returns the decoder registered under name.
func GetDecoder(name Type) (Decoder, error) {
	registry.RLock()
	defer registry.RUnlock()
	if d, ok := registry.decoders[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("decoder not found for type: %s", name)
}
