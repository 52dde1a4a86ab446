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


// Package config loads layered configuration and binds it to structs.
//
// Sources are merged in the order they are added, later ones overriding
// earlier ones key by key:
//
//	cfg, err := config.New(
//	    config.WithFile("pgr.yaml"),
//	    config.WithConsul("pgr/config", codec.TypeYAML), // skipped without CONSUL_HTTP_ADDR
//	    config.WithEnv("PGR_"),                          // PGR_DATABASE__DSN -> database.dsn
//	    config.WithBinding(&settings),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Load(ctx); err != nil {
//	    return err
//	}
//
// Keys are case-insensitive. A double underscore in a variable name starts
// a nested key; a single underscore is part of the key. Struct fields are
// matched by their "config" tag and fall back to their "default" tag.
//
// [LoadSettings] applies the pgr layout: struct defaults, an optional
// file, Consul, then PGR_ variables, validated by an embedded JSON Schema
// and by the validate tags on [Settings].
package config
