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
	"os"

	"github.com/spf13/cobra"

	"pgr.dev/app"
	"pgr.dev/catalog"
)

func newProvisionCommand(root *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "provision <file.sql>",
		Short: "Recreate the pgr schema and run the given DDL",
		Long: `Run the bootstrap script, which drops and recreates the pgr schema and
its catalog function, with the DDL from file.sql inserted, as one batch.
Every routine of the schema must be defined in file.sql.

Use "-" to read the DDL from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ddl, err := readDDL(cmd.InOrStdin(), args[0])
			if err != nil {
				return &usageError{err}
			}
			if dryRun {
				_, err = io.WriteString(cmd.OutOrStdout(), catalog.Script(ddl))
				return err
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
			return runProvision(cmd.Context(), cmd.OutOrStdout(), db, ddl)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the script instead of running it")
	return cmd
}

func readDDL(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read ddl: %w", err)
	}
	return string(b), nil
}

func runProvision(ctx context.Context, w io.Writer, e catalog.Execer, ddl string) error {
	if err := catalog.Provision(ctx, e, ddl); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "provisioned")
	return err
}
