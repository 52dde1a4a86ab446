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
	"fmt"
	"strconv"
)

// Row is one raw record returned by the catalog function.
type Row struct {
	Name             string
	ReturnsSet       bool
	ReturnType       string
	ReturnsComposite bool
	ArgNames         []string
	ArgModes         []string
	ArgTypes         []string
}

// Introspect converts raw catalog rows into signatures.
//
// The argument sequences of each row are decoded index by index. ArgModes and
// ArgNames may be empty, meaning all-in and unnamed respectively; otherwise
// they must have the same length as ArgTypes. Rows are not deduplicated.
//
// Any error is fatal for the whole batch: it means the catalog does not have
// the expected format.
func Introspect(rows []Row) ([]Signature, error) {
	sigs := make([]Signature, 0, len(rows))
	for _, row := range rows {
		sig, err := introspectRow(row)
		if err != nil {
			return nil, fmt.Errorf("routine %q: %w", row.Name, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func introspectRow(row Row) (Signature, error) {
	n := len(row.ArgTypes)
	if len(row.ArgNames) != 0 && len(row.ArgNames) != n {
		return Signature{}, fmt.Errorf("%w: %d names for %d types", ErrArgumentArity, len(row.ArgNames), n)
	}
	if len(row.ArgModes) != 0 && len(row.ArgModes) != n {
		return Signature{}, fmt.Errorf("%w: %d modes for %d types", ErrArgumentArity, len(row.ArgModes), n)
	}

	sig := Signature{
		Name:             row.Name,
		ReturnsSet:       row.ReturnsSet,
		ReturnType:       TypeRef(row.ReturnType),
		ReturnsComposite: row.ReturnsComposite,
	}
	if n == 0 {
		return sig, nil
	}

	sig.Args = make([]Argument, n)
	for i := range n {
		mode, err := DecodeMode(row.ArgModes, i)
		if err != nil {
			return Signature{}, err
		}
		name := ""
		if len(row.ArgNames) > 0 {
			name = row.ArgNames[i]
		}
		if name == "" {
			name = "$" + strconv.Itoa(i+1)
		}
		sig.Args[i] = Argument{
			Name:     name,
			Mode:     mode,
			Type:     TypeRef(row.ArgTypes[i]),
			Position: i + 1,
		}
	}
	return sig, nil
}
