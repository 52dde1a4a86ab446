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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pgr.dev/app"
	"pgr.dev/catalog"
	"pgr.dev/config"
	"pgr.dev/openapi"
	"pgr.dev/router"
)

func newOpenAPICommand(root *rootOptions) *cobra.Command {
	var (
		output string
		server string
	)
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document of the route table",
		Long: `Connect to the database, compile the routines of the configured schema
and print an OpenAPI 3.1 document describing the routes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "json" && output != "yaml" {
				return &usageError{fmt.Errorf("invalid output %q: must be json or yaml", output)}
			}
			s, _, err := root.loadSettings(cmd)
			if err != nil {
				return err
			}
			db, closer, err := app.OpenDatabase(s)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()
			return runOpenAPI(cmd.Context(), cmd.OutOrStdout(), db, s, output, server)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "document encoding (json|yaml)")
	cmd.Flags().StringVar(&server, "server", "", "server URL to list in the document")
	return cmd
}

func runOpenAPI(ctx context.Context, w io.Writer, q catalog.Querier, s *config.Settings, output, server string) error {
	sigs, err := catalog.Load(ctx, q, s.Database.CatalogFunction, s.Database.Schema)
	if err != nil {
		return err
	}
	opts, err := app.CompileOptions(s)
	if err != nil {
		return err
	}
	table, _ := router.Compile(sigs, opts...)

	docOpts := []openapi.Option{openapi.WithInfo(s.ServiceName, s.ServiceVersion)}
	if server != "" {
		docOpts = append(docOpts, openapi.WithServer(server))
	}
	doc := openapi.Build(table.Routes(), docOpts...)
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}

	var data []byte
	if output == "json" {
		data, err = doc.JSON()
	} else {
		data, err = doc.YAML()
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
