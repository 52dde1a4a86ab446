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

package binding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// BodyDecoder decodes a request body into generic Go values
// (maps, slices, strings, numbers, booleans and nil).
type BodyDecoder func(body []byte) (any, error)

// Media types understood by [DecodeBody].
const (
	MediaJSON     = "application/json"
	MediaYAML     = "application/yaml"
	MediaTOML     = "application/toml"
	MediaMsgPack  = "application/msgpack"
	MediaProtobuf = "application/x-protobuf"
)

var decoders = map[string]BodyDecoder{
	MediaJSON:               decodeJSON,
	"text/json":             decodeJSON,
	MediaYAML:               decodeYAML,
	"application/x-yaml":    decodeYAML,
	"text/yaml":             decodeYAML,
	MediaTOML:               decodeTOML,
	MediaMsgPack:            decodeMsgPack,
	"application/x-msgpack": decodeMsgPack,
	MediaProtobuf:           decodeProtobuf,
	"application/protobuf":  decodeProtobuf,
}

// DecodeBody decodes body according to contentType. An empty content type
// is treated as JSON. Protobuf bodies must hold a google.protobuf.Struct.
func DecodeBody(contentType string, body []byte) (any, error) {
	media := MediaJSON
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, &MediaTypeError{ContentType: contentType}
		}
		media = strings.ToLower(mt)
	}

	dec, ok := decoders[media]
	if !ok {
		if strings.HasSuffix(media, "+json") {
			dec = decodeJSON
		} else {
			return nil, &MediaTypeError{ContentType: contentType}
		}
	}
	return dec(body)
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("json: unexpected data after top-level value")
	}
	return v, nil
}

func decodeYAML(body []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return v, nil
}

func decodeTOML(body []byte) (any, error) {
	var v map[string]any
	if _, err := toml.Decode(string(body), &v); err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	return v, nil
}

func decodeMsgPack(body []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("msgpack: %w", err)
	}
	return v, nil
}

func decodeProtobuf(body []byte) (any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("protobuf: %w", err)
	}
	return s.AsMap(), nil
}
