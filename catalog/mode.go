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

package catalog

import (
	"errors"
	"fmt"
)

// ArgMode is the parameter mode of a routine argument.
type ArgMode uint8

const (
	ModeIn ArgMode = iota
	ModeOut
	ModeInOut
	ModeVariadic
	ModeTable
)

var modeNames = [...]string{
	ModeIn:       "in",
	ModeOut:      "out",
	ModeInOut:    "inout",
	ModeVariadic: "variadic",
	ModeTable:    "table",
}

func (m ArgMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("ArgMode(%d)", m)
}

// IsInput reports whether the caller supplies a value for the argument.
func (m ArgMode) IsInput() bool {
	return m == ModeIn || m == ModeInOut
}

// Supported reports whether the mode has an HTTP binding.
func (m ArgMode) Supported() bool {
	return m != ModeVariadic && m != ModeTable
}

var (
	// ErrUnknownMode means the catalog returned a mode code outside the
	// known alphabet. The catalog format is not supported.
	ErrUnknownMode = errors.New("unknown argument mode code")

	// ErrArgumentArity means the parallel argument sequences of a catalog
	// row disagree in length.
	ErrArgumentArity = errors.New("argument sequences differ in length")
)

// modeCodes maps pg_proc.proargmodes codes and their long spellings.
var modeCodes = map[string]ArgMode{
	"i":        ModeIn,
	"o":        ModeOut,
	"b":        ModeInOut,
	"v":        ModeVariadic,
	"t":        ModeTable,
	"in":       ModeIn,
	"out":      ModeOut,
	"inout":    ModeInOut,
	"variadic": ModeVariadic,
	"table":    ModeTable,
}

// DecodeMode returns the mode of argument i given the catalog mode codes of
// a routine. An empty codes slice means every argument is an input.
func DecodeMode(codes []string, i int) (ArgMode, error) {
	if len(codes) == 0 {
		return ModeIn, nil
	}
	if i < 0 || i >= len(codes) {
		return 0, fmt.Errorf("%w: mode index %d out of range [0,%d)", ErrArgumentArity, i, len(codes))
	}
	m, ok := modeCodes[codes[i]]
	if !ok {
		return 0, fmt.Errorf("%w: %q at index %d", ErrUnknownMode, codes[i], i)
	}
	return m, nil
}
