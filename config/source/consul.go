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


package source

import (
	"context"
	"fmt"
	"path"

	"github.com/hashicorp/consul/api"

	"pgr.dev/config/codec"
)

// ConsulKV is the part of the Consul KV API the source uses.
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// Consul loads one key from Consul KV. The client is configured from
// CONSUL_HTTP_ADDR and CONSUL_HTTP_TOKEN.
//
// A structured decoder yields the decoded document. A caster decoder
// yields a single entry named after the last path element of the key.
type Consul struct {
	kv        ConsulKV
	key       string
	decoder   codec.Decoder
	lastIndex uint64
}

// NewConsul returns a source for key. A nil kv uses the default client.
func NewConsul(key string, decoder codec.Decoder, kv ConsulKV) (*Consul, error) {
	if kv == nil {
		client, err := api.NewClient(api.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("consul client: %w", err)
		}
		kv = client.KV()
	}
	return &Consul{kv: kv, key: key, decoder: decoder}, nil
}

// Load returns an empty map when the key does not exist.
func (c *Consul) Load(ctx context.Context) (map[string]any, error) {
	pair, meta, err := c.kv.Get(c.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("consul get %s: %w", c.key, err)
	}
	if pair == nil {
		return map[string]any{}, nil
	}
	if meta != nil {
		c.lastIndex = meta.LastIndex
	}

	if caster, ok := c.decoder.(codec.CasterCodec); ok {
		var v any
		if err := caster.Decode(pair.Value, &v); err != nil {
			return nil, fmt.Errorf("consul decode %s: %w", c.key, err)
		}
		return map[string]any{path.Base(pair.Key): v}, nil
	}

	var conf map[string]any
	if err := c.decoder.Decode(pair.Value, &conf); err != nil {
		return nil, fmt.Errorf("consul decode %s: %w", c.key, err)
	}
	return conf, nil
}

// LastIndex returns the Consul index of the last successful read.
func (c *Consul) LastIndex() uint64 { return c.lastIndex }
