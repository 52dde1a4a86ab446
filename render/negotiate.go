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

package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is a response encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
	FormatMsgPack
)

// ContentType returns the Content-Type header value for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml; charset=utf-8"
	case FormatMsgPack:
		return "application/msgpack"
	default:
		return "application/json; charset=utf-8"
	}
}

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatMsgPack:
		return "msgpack"
	default:
		return "json"
	}
}

type offer struct {
	mediaType string
	format    Format
}

// offers in server preference order.
var offers = []offer{
	{mediaType: "application/json", format: FormatJSON},
	{mediaType: "application/yaml", format: FormatYAML},
	{mediaType: "application/x-yaml", format: FormatYAML},
	{mediaType: "text/yaml", format: FormatYAML},
	{mediaType: "application/msgpack", format: FormatMsgPack},
	{mediaType: "application/x-msgpack", format: FormatMsgPack},
}

type acceptSpec struct {
	value   string
	quality float64
}

// Negotiate picks the response format for an Accept header. The offer with
// the highest quality wins; ties go to the more specific range, then to
// server preference. JSON is returned when nothing matches.
func Negotiate(accept string) Format {
	if accept == "" {
		return FormatJSON
	}

	specs := parseAccept(accept)
	best := FormatJSON
	bestQuality := 0.0
	bestSpecificity := -1
	for _, o := range offers {
		for _, spec := range specs {
			specificity, ok := matchMediaType(o.mediaType, spec.value)
			if !ok || spec.quality <= 0 {
				continue
			}
			if spec.quality > bestQuality || (spec.quality == bestQuality && specificity > bestSpecificity) {
				best = o.format
				bestQuality = spec.quality
				bestSpecificity = specificity
			}
		}
	}
	return best
}

func parseAccept(header string) []acceptSpec {
	parts := strings.Split(header, ",")
	specs := make([]acceptSpec, 0, len(parts))
	for _, part := range parts {
		value, params, _ := strings.Cut(part, ";")
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		spec := acceptSpec{value: value, quality: 1}
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || strings.TrimSpace(k) != "q" {
				continue
			}
			if q, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && q >= 0 && q <= 1 {
				spec.quality = q
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

// matchMediaType reports whether offer falls in the accepted range and how
// specific the range is: 2 exact, 1 type/*, 0 */*.
func matchMediaType(offer, accepted string) (int, bool) {
	switch {
	case accepted == offer:
		return 2, true
	case accepted == "*/*":
		return 0, true
	case strings.HasSuffix(accepted, "/*"):
		return 1, strings.HasPrefix(offer, strings.TrimSuffix(accepted, "*"))
	}
	return 0, false
}

// Marshal encodes payload in format f.
func Marshal(f Format, payload any) ([]byte, error) {
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatMsgPack:
		out, err := msgpack.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("msgpack: %w", err)
		}
		return out, nil
	default:
		out, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		return out, nil
	}
}
