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
	"fmt"
	"io"
	"maps"
	"net/url"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"pgr.dev/config"
	"pgr.dev/config/codec"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the configuration values read from all sources",
		Long: `Load and validate the settings, then print the merged values read from
the file, Consul and the environment. Defaults that no source set are not
shown. The database password is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ct := codec.Type(strings.ToLower(output))
			if ct != codec.TypeYAML && ct != codec.TypeTOML && ct != codec.TypeJSON {
				return &usageError{fmt.Errorf("invalid output %q: must be yaml, toml or json", output)}
			}
			_, cfg, err := root.loadSettings(cmd)
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), cfg, ct)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "encoding (yaml|toml|json)")
	return cmd
}

func writeConfig(w io.Writer, cfg *config.Config, ct codec.Type) error {
	values := cfg.Values()
	if db, ok := values["database"].(map[string]any); ok {
		db = maps.Clone(db)
		if dsn, ok := db["dsn"].(string); ok {
			db["dsn"] = maskDSN(dsn)
		}
		values["database"] = db
	}

	enc, err := codec.GetEncoder(ct)
	if err != nil {
		return err
	}
	b, err := enc.Encode(values)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

var passwordKV = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// maskDSN hides the password of a URL or key=value connection string.
func maskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		return u.Redacted()
	}
	return passwordKV.ReplaceAllString(dsn, "${1}xxxxx")
}
