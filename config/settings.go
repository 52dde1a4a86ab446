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


package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"pgr.dev/config/codec"
)

// EnvPrefix prefixes the environment variables read by [LoadSettings].
const EnvPrefix = "PGR_"

// DefaultConsulKey is the Consul KV key read by [LoadSettings] when
// CONSUL_HTTP_ADDR is set. CONSUL_PGR_KEY overrides it.
const DefaultConsulKey = "pgr/config"

//go:embed settings.schema.json
var settingsSchema []byte

// Settings is the service configuration.
type Settings struct {
	Environment    string `config:"environment" default:"development" validate:"oneof=development production"`
	ServiceName    string `config:"service_name" default:"pgr" validate:"required"`
	ServiceVersion string `config:"service_version" default:"dev"`

	Server   ServerSettings   `config:"server"`
	Database DatabaseSettings `config:"database"`
	Routing  RoutingSettings  `config:"routing"`
	Errors   ErrorSettings    `config:"errors"`
	Logging  LoggingSettings  `config:"logging"`
	Metrics  MetricsSettings  `config:"metrics"`
	Tracing  TracingSettings  `config:"tracing"`
	OpenAPI  OpenAPISettings  `config:"openapi"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Addr              string        `config:"addr" default:":3030" validate:"required"`
	ReadHeaderTimeout time.Duration `config:"read_header_timeout" default:"5s" validate:"gt=0"`
	ShutdownTimeout   time.Duration `config:"shutdown_timeout" default:"30s" validate:"gt=0"`
	RequestTimeout    time.Duration `config:"request_timeout" default:"30s" validate:"gt=0"`
	BodyLimit         int64         `config:"body_limit" default:"1048576" validate:"gt=0"`
	H2C               bool          `config:"h2c"`
	Compression       bool          `config:"compression"`
	CORSOrigins       []string      `config:"cors_origins"`
	TrustProxy        bool          `config:"trust_proxy"`
	RateLimit         float64       `config:"rate_limit" validate:"gte=0"`
	RateBurst         int           `config:"rate_burst" validate:"gte=0"`
	TrailingSlash     string        `config:"trailing_slash" default:"strip" validate:"oneof=strip redirect off"`
	MethodOverride    bool          `config:"method_override"`
}

// DatabaseSettings configures the connection pool and the catalog.
type DatabaseSettings struct {
	DSN             string        `config:"dsn" validate:"required"`
	Schema          string        `config:"schema" default:"pgr" validate:"required"`
	CatalogFunction string        `config:"catalog_function" default:"pgr._pgr_functions" validate:"required"`
	MaxOpenConns    int           `config:"max_open_conns" default:"10" validate:"gte=1"`
	MaxIdleConns    int           `config:"max_idle_conns" default:"5" validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `config:"conn_max_lifetime" default:"30m" validate:"gte=0"`
}

// RoutingSettings configures route compilation.
type RoutingSettings struct {
	CaseSensitive bool   `config:"case_sensitive"`
	VerbCase      string `config:"verb_case" default:"insensitive" validate:"oneof=insensitive lower"`
}

// ErrorSettings selects the error response format.
type ErrorSettings struct {
	Format  string `config:"format" default:"rfc9457" validate:"oneof=rfc9457 simple"`
	BaseURL string `config:"base_url" validate:"omitempty,url"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level  string `config:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Format string `config:"format" default:"json" validate:"oneof=json text console"`
}

// MetricsSettings configures the meter provider.
type MetricsSettings struct {
	Enabled  bool   `config:"enabled"`
	Provider string `config:"provider" default:"prometheus" validate:"oneof=prometheus otlp stdout"`
	Addr     string `config:"addr" default:":9090"`
	Path     string `config:"path" default:"/metrics" validate:"startswith=/"`
	Endpoint string `config:"endpoint"`
}

// TracingSettings configures the tracer provider. A zero sample rate is
// read as 1.
type TracingSettings struct {
	Enabled    bool    `config:"enabled"`
	Exporter   string  `config:"exporter" default:"stdout" validate:"oneof=stdout otlp"`
	Endpoint   string  `config:"endpoint" validate:"required_if=Exporter otlp Enabled true"`
	SampleRate float64 `config:"sample_rate" default:"1" validate:"gte=0,lte=1"`
}

// OpenAPISettings configures the OpenAPI document endpoint.
type OpenAPISettings struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path" default:"/openapi.json" validate:"startswith=/"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate implements [Validator]. Each failed rule becomes one [Error]
// naming the field.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	errs := make([]error, len(fields))
	for i, fe := range fields {
		errs[i] = NewFieldError("settings", fe.Namespace(), "validate",
			fmt.Errorf("failed %q rule", fe.Tag()))
	}
	return errors.Join(errs...)
}

// LoadSettings reads settings from, in increasing precedence: struct
// defaults, file (if not empty), Consul KV (if CONSUL_HTTP_ADDR is set),
// PGR_ environment variables, then extra.
func LoadSettings(ctx context.Context, file string, extra ...Option) (*Settings, *Config, error) {
	var s Settings

	opts := []Option{WithJSONSchema(settingsSchema), WithBinding(&s)}
	if file != "" {
		opts = append(opts, WithFile(file))
	}
	key := os.Getenv("CONSUL_PGR_KEY")
	if key == "" {
		key = DefaultConsulKey
	}
	opts = append(opts, WithConsul(key, codec.TypeYAML), WithEnv(EnvPrefix))
	opts = append(opts, extra...)

	cfg, err := New(opts...)
	if err != nil {
		return nil, nil, err
	}
	if err = cfg.Load(ctx); err != nil {
		return nil, nil, err
	}
	return &s, cfg, nil
}
