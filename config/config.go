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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cast"

	"pgr.dev/config/codec"
	"pgr.dev/config/source"
)

// Option configures a [Config].
type Option func(c *Config) error

// Config merges configuration from its sources in order, later sources
// overriding earlier ones, and optionally binds the result to a struct.
// Keys are case-insensitive.
//
// Config is safe for concurrent use.
type Config struct {
	mu         sync.RWMutex
	values     map[string]any
	sources    []Source
	binding    any
	tagName    string
	schema     *jsonschema.Schema
	validators []func(map[string]any) error
}

// WithSource adds a source.
func WithSource(s Source) Option {
	return func(c *Config) error {
		if s == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, s)
		return nil
	}
}

// WithFile adds a file source. The format is detected from the extension
// (.yaml, .yml, .json, .toml). Environment variables in path are expanded.
func WithFile(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		format, err := detectFormat(path)
		if err != nil {
			return NewError("file-source", "detect-format", err)
		}
		return WithFileAs(path, format)(c)
	}
}

// WithFileAs adds a file source decoded with the given codec.
func WithFileAs(path string, codecType codec.Type) Option {
	return func(c *Config) error {
		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("file-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFile(os.ExpandEnv(path), decoder))
		return nil
	}
}

// WithContent adds an inline document.
func WithContent(data []byte, codecType codec.Type) Option {
	return func(c *Config) error {
		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("content-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFileContent(data, decoder))
		return nil
	}
}

// WithEnv adds the environment variables starting with prefix.
// PGR_SERVER__ADDR becomes server.addr for prefix "PGR_".
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, source.NewOSEnvVar(prefix))
		return nil
	}
}

// WithConsul adds a Consul KV key decoded with the given codec. It is
// skipped when CONSUL_HTTP_ADDR is not set.
func WithConsul(key string, codecType codec.Type) Option {
	return func(c *Config) error {
		if os.Getenv("CONSUL_HTTP_ADDR") == "" {
			return nil
		}
		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("consul-source", "get-decoder", err)
		}
		s, err := source.NewConsul(os.ExpandEnv(key), decoder, nil)
		if err != nil {
			return NewError("consul-source", "create-client", err)
		}
		c.sources = append(c.sources, s)
		return nil
	}
}

// WithBinding binds the merged values to v, a pointer to a struct, on
// every successful Load. Fields are matched by the "config" tag; fields
// left zero take their "default" tag. If *v implements [Validator] it is
// validated before the values are published.
func WithBinding(v any) Option {
	return func(c *Config) error {
		if v == nil || reflect.TypeOf(v).Kind() != reflect.Pointer {
			return errors.New("binding target must be a non-nil pointer")
		}
		c.binding = v
		return nil
	}
}

// WithTag sets the struct tag used for binding. Default "config".
func WithTag(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return errors.New("tag name cannot be empty")
		}
		c.tagName = name
		return nil
	}
}

// WithJSONSchema validates the merged values against schema.
func WithJSONSchema(schema []byte) Option {
	return func(c *Config) error {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
		if err != nil {
			return NewError("json-schema", "parse", err)
		}
		compiler := jsonschema.NewCompiler()
		if err = compiler.AddResource("config.schema.json", doc); err != nil {
			return NewError("json-schema", "add", err)
		}
		if c.schema, err = compiler.Compile("config.schema.json"); err != nil {
			return NewError("json-schema", "compile", err)
		}
		return nil
	}
}

// WithValidator adds a check on the merged values.
func WithValidator(fn func(map[string]any) error) Option {
	return func(c *Config) error {
		if fn != nil {
			c.validators = append(c.validators, fn)
		}
		return nil
	}
}

// Validator is implemented by binding targets that check themselves.
type Validator interface {
	Validate() error
}

// New returns a Config. Option errors are joined.
func New(opts ...Option) (*Config, error) {
	c := &Config{values: map[string]any{}, tagName: "config"}
	var errs error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		errs = errors.Join(errs, opt(c))
	}
	if errs != nil {
		return nil, errs
	}
	return c, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Config {
	c, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return c
}

// Load reads every source, merges, validates and binds. The previous
// values stay in place if any step fails.
func (c *Config) Load(ctx context.Context) error {
	values, err := c.loadSources(ctx)
	if err != nil {
		return err
	}

	if c.schema != nil {
		if err = c.schema.Validate(values); err != nil {
			return NewError("json-schema", "validate", err)
		}
	}
	for i, fn := range c.validators {
		if err = fn(values); err != nil {
			return NewError(fmt.Sprintf("validator[%d]", i), "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		// Decode into a scratch value first so a failed Load leaves the
		// caller's struct untouched.
		scratch := reflect.New(reflect.TypeOf(c.binding).Elem())
		if err = c.decode(values, scratch.Interface()); err != nil {
			return NewError("binding", "bind", err)
		}
		if v, ok := scratch.Interface().(Validator); ok {
			if err = v.Validate(); err != nil {
				return NewError("binding", "validate", err)
			}
		}
		reflect.ValueOf(c.binding).Elem().Set(scratch.Elem())
	}

	c.values = values
	return nil
}

func (c *Config) loadSources(ctx context.Context) (map[string]any, error) {
	merged := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conf, err := src.Load(ctx)
		if err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if err = mergo.Map(&merged, normalizeKeys(conf), mergo.WithOverride); err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}
	return merged, nil
}

func (c *Config) decode(values map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          c.tagName,
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err = dec.Decode(values); err != nil {
		return err
	}
	return applyDefaults(reflect.ValueOf(target).Elem())
}

// normalizeKeys lowers keys recursively. YAML decoders may produce
// map[any]any for nested documents; those are converted too.
func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeKeys(t)
	case map[any]any:
		return normalizeKeys(cast.ToStringMap(t))
	default:
		return v
	}
}

// applyDefaults sets zero fields from their "default" tag.
func applyDefaults(v reflect.Value) error {
	t := v.Type()
	for i := range v.NumField() {
		field, sf := v.Field(i), t.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := applyDefaults(field); err != nil {
				return err
			}
			continue
		}
		def, ok := sf.Tag.Lookup("default")
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefault(field, def); err != nil {
			return fmt.Errorf("default for %s: %w", sf.Name, err)
		}
	}
	return nil
}

func setDefault(field reflect.Value, def string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := cast.ToDurationE(def)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(def)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(def)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(def)
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(def)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := cast.ToBoolE(def)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

// Values returns a copy of the merged top-level values.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Get returns the value at a dotted key such as "database.dsn", or nil.
func (c *Config) Get(key string) any {
	if c == nil || key == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var current any = c.values
	for _, part := range strings.Split(strings.ToLower(key), ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		if current, ok = m[part]; !ok {
			return nil
		}
	}
	return current
}

// String returns the value at key as a string.
func (c *Config) String(key string) string { return cast.ToString(c.Get(key)) }

// Int returns the value at key as an int.
func (c *Config) Int(key string) int { return cast.ToInt(c.Get(key)) }

// Bool returns the value at key as a bool.
func (c *Config) Bool(key string) bool { return cast.ToBool(c.Get(key)) }

// Duration returns the value at key as a duration; bare numbers are
// nanoseconds.
func (c *Config) Duration(key string) time.Duration { return cast.ToDuration(c.Get(key)) }

// Encode renders the merged values with the given codec.
func (c *Config) Encode(codecType codec.Type) ([]byte, error) {
	enc, err := codec.GetEncoder(codecType)
	if err != nil {
		return nil, err
	}
	return enc.Encode(c.Values())
}
