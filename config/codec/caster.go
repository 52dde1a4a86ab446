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
	"fmt"

	"github.com/spf13/cast"
)

// Caster decoders turn a single raw value, such as one Consul key, into a
// typed value.
const (
	TypeCasterBool     Type = "caster-bool"
	TypeCasterInt      Type = "caster-int"
	TypeCasterInt64    Type = "caster-int64"
	TypeCasterDuration Type = "caster-duration"
	TypeCasterString   Type = "caster-string"
)

func init() {
	for _, t := range []Type{TypeCasterBool, TypeCasterInt, TypeCasterInt64, TypeCasterDuration, TypeCasterString} {
		RegisterDecoder(t, CasterCodec{castType: t})
	}
}

// CasterCodec converts a raw value with spf13/cast.
type CasterCodec struct {
	castType Type
}

// NewCaster returns the caster for t.
func NewCaster(t Type) CasterCodec { return CasterCodec{castType: t} }

// Decode expects v to be a *any.
func (c CasterCodec) Decode(data []byte, v any) error {
	out, ok := v.(*any)
	if !ok {
		return fmt.Errorf("CasterCodec.Decode: expected *any, got %T", v)
	}
	raw := string(data)

	var err error
	switch c.castType {
	case TypeCasterBool:
		*out, err = cast.ToBoolE(raw)
	case TypeCasterInt:
		*out, err = cast.ToIntE(raw)
	case TypeCasterInt64:
		*out, err = cast.ToInt64E(raw)
	case TypeCasterDuration:
		*out, err = cast.ToDurationE(raw)
	default:
		*out = raw
	}
	return err
}
