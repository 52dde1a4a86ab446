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
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"pgr.dev/config"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks errors caused by invalid arguments or flags.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitFailure
}

var validFormats = []string{"text", "json"}

// rootOptions holds the persistent flags.
type rootOptions struct {
	configFile string
	format     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pgr",
		Short: "Serve PostgreSQL routines as HTTP endpoints",
		Long: `pgr reads the routines of a PostgreSQL schema, compiles the HTTP route
declared by each routine name ("get /user/:id?fields") and serves them.

Settings come from the --config file, Consul KV when CONSUL_HTTP_ADDR is
set, and PGR_ environment variables (PGR_DATABASE__DSN, PGR_SERVER__ADDR).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(validFormats, opts.format) {
				return &usageError{fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "settings file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		newServeCommand(opts),
		newRoutesCommand(opts),
		newParseCommand(opts),
		newProvisionCommand(opts),
		newConfigCommand(opts),
		newOpenAPICommand(opts),
	)
	return cmd
}

func (o *rootOptions) loadSettings(cmd *cobra.Command) (*config.Settings, *config.Config, error) {
	s, cfg, err := config.LoadSettings(cmd.Context(), o.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("settings: %w", err)
	}
	return s, cfg, nil
}
