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
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pgr.dev/app"
	"pgr.dev/catalog"
	"pgr.dev/config"
	"pgr.dev/router"
)

type routeJSON struct {
	Method  string   `json:"method"`
	Path    string   `json:"path"`
	Routine string   `json:"routine"`
	Output  string   `json:"output"`
	Set     bool     `json:"set,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

type diagnosticJSON struct {
	Kind    string         `json:"kind"`
	Routine string         `json:"routine"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

type routesJSON struct {
	Routes      []routeJSON      `json:"routes"`
	Diagnostics []diagnosticJSON `json:"diagnostics"`
}

func newRoutesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Compile the catalog and print the route table",
		Long: `Connect to the database, compile the routines of the configured schema
and print the routes together with the routines that were skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := root.loadSettings(cmd)
			if err != nil {
				return err
			}
			db, closer, err := app.OpenDatabase(s)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()
			return runRoutes(cmd.Context(), cmd.OutOrStdout(), db, s, root.format)
		},
	}
}

func runRoutes(ctx context.Context, w io.Writer, q catalog.Querier, s *config.Settings, format string) error {
	sigs, err := catalog.Load(ctx, q, s.Database.CatalogFunction, s.Database.Schema)
	if err != nil {
		return err
	}
	opts, err := app.CompileOptions(s)
	if err != nil {
		return err
	}
	table, diags := router.Compile(sigs, opts...)

	if format == "json" {
		return writeRoutesJSON(w, table, diags)
	}
	app.RenderRoutes(w, table.Routes(), false, 80)
	if len(diags) > 0 {
		fmt.Fprintf(w, "\n%d routine(s) skipped:\n", len(diags)) //nolint:errcheck // display output
		app.RenderDiagnostics(w, diags, false)
	}
	return nil
}

func writeRoutesJSON(w io.Writer, table *router.Table, diags router.Diagnostics) error {
	out := routesJSON{
		Routes:      make([]routeJSON, 0, table.Len()),
		Diagnostics: make([]diagnosticJSON, 0, len(diags)),
	}
	for _, r := range table.Routes() {
		spec := r.Output()
		out.Routes = append(out.Routes, routeJSON{
			Method:  r.Method(),
			Path:    r.Pattern(),
			Routine: r.Name(),
			Output:  spec.Kind.String(),
			Set:     spec.Set,
			Fields:  spec.Fields,
		})
	}
	for _, d := range diags {
		out.Diagnostics = append(out.Diagnostics, diagnosticJSON{
			Kind:    string(d.Kind),
			Routine: d.Routine,
			Message: d.Message,
			Fields:  d.Fields,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
