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


package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pgr.dev/naming"
)

type parsedJSON struct {
	Name    string   `json:"name"`
	Method  string   `json:"method,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Params  []string `json:"params,omitempty"`
	Query   []string `json:"query,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func newParseCommand(root *rootOptions) *cobra.Command {
	var verbCase string

	cmd := &cobra.Command{
		Use:   "parse <routine-name>...",
		Short: "Check routine names against the naming grammar",
		Long: `Parse each routine name offline and print the route it declares.
Exits non-zero if any name is invalid.`,
		Example: `  pgr parse 'get /user/:id?fields' 'post /users'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vc, ok := naming.ParseVerbCase(verbCase)
			if !ok {
				return &usageError{fmt.Errorf("invalid verb case %q: must be insensitive or lower", verbCase)}
			}
			return runParse(cmd.OutOrStdout(), args, root.format, naming.WithVerbCase(vc))
		},
	}
	cmd.Flags().StringVar(&verbCase, "verb-case", "insensitive", "verb matching (insensitive|lower)")
	return cmd
}

func runParse(w io.Writer, names []string, format string, opts ...naming.Option) error {
	results := make([]parsedJSON, 0, len(names))
	invalid := 0
	for _, name := range names {
		res := parsedJSON{Name: name}
		parsed, err := naming.Parse(name, opts...)
		if err != nil {
			res.Error = err.Error()
			invalid++
		} else {
			res.Method = parsed.Method
			res.Pattern = parsed.Pattern()
			res.Query = parsed.Query
			for _, seg := range parsed.Path {
				if seg.IsParam() {
					res.Params = append(res.Params, seg.Value)
				}
			}
		}
		results = append(results, res)
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(w, "%q: invalid: %s\n", r.Name, r.Error) //nolint:errcheck // display output
				continue
			}
			line := r.Method + " " + r.Pattern
			if len(r.Query) > 0 {
				line += "  query: " + strings.Join(r.Query, ", ")
			}
			fmt.Fprintf(w, "%q: %s\n", r.Name, line) //nolint:errcheck // display output
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d names invalid: %w", invalid, len(names), errInvalidNames)
	}
	return nil
}

var errInvalidNames = errors.New("naming grammar violated")
