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
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cast"

	"pgr.dev/catalog"
	"pgr.dev/pg"
	"pgr.dev/router"
)

// Input is the part of a request that feeds routine arguments.
type Input struct {
	// Params are the path parameter values in slot order.
	Params      []string
	Query       url.Values
	ContentType string
	Body        []byte
}

// Bind coerces the request values for route into call parameters, one per
// input argument in declaration order.
//
// Path values are always present once the route matched. A query parameter
// missing from the request binds SQL NULL; of repeated values the first is
// used unless the argument is an array. A body is required when the route
// has a body argument.
func Bind(route *router.CompiledRoute, in Input) ([]pg.Param, error) {
	sig := route.Routine()
	bound := make([]*pg.Param, len(sig.Args))

	for i, pb := range route.Params() {
		a := sig.Args[pb.Arg]
		raw := ""
		if i < len(in.Params) {
			raw = in.Params[i]
		}
		v, err := Coerce(a.Type, raw)
		if err != nil {
			return nil, &BindError{Arg: a.Name, Source: SourcePath, Value: raw, Type: a.Type, Err: err}
		}
		bound[pb.Arg] = &pg.Param{Name: a.Name, Type: a.Type, Value: v}
	}

	for _, qb := range route.Query() {
		a := sig.Args[qb.Arg]
		p, err := bindQuery(a, in.Query[qb.Name])
		if err != nil {
			return nil, err
		}
		bound[qb.Arg] = p
	}

	if idx, ok := route.Body(); ok {
		a := sig.Args[idx]
		p, err := bindBody(a, in.ContentType, in.Body)
		if err != nil {
			return nil, err
		}
		bound[idx] = p
	}

	params := make([]pg.Param, 0, len(sig.Args))
	for i, a := range sig.Args {
		if !a.Mode.IsInput() {
			continue
		}
		if bound[i] == nil {
			params = append(params, pg.Param{Name: a.Name, Type: a.Type})
			continue
		}
		params = append(params, *bound[i])
	}
	return params, nil
}

func bindQuery(a catalog.Argument, values []string) (*pg.Param, error) {
	p := &pg.Param{Name: a.Name, Type: a.Type}
	if len(values) == 0 {
		return p, nil
	}

	if a.Type.IsArray() {
		v, err := CoerceList(a.Type, splitList(values))
		if err != nil {
			return nil, &BindError{Arg: a.Name, Source: SourceQuery, Value: fmt.Sprint(values), Type: a.Type, Err: err}
		}
		p.Value = v
		return p, nil
	}

	v, err := Coerce(a.Type, values[0])
	if err != nil {
		return nil, &BindError{Arg: a.Name, Source: SourceQuery, Value: values[0], Type: a.Type, Err: err}
	}
	p.Value = v
	return p, nil
}

func bindBody(a catalog.Argument, contentType string, body []byte) (*pg.Param, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &BindError{Arg: a.Name, Source: SourceBody, Type: a.Type, Reason: ErrBodyRequired.Error()}
	}

	decoded, err := DecodeBody(contentType, body)
	if err != nil {
		var mte *MediaTypeError
		if errors.As(err, &mte) {
			return nil, err
		}
		return nil, &BindError{Arg: a.Name, Source: SourceBody, Type: a.Type, Reason: err.Error()}
	}

	p := &pg.Param{Name: a.Name, Type: a.Type}
	switch v := decoded.(type) {
	case nil:
		return p, nil

	case map[string]any:
		if a.Type.IsArray() || (IsScalar(a.Type) && !a.Type.IsJSON()) {
			return nil, bodyMismatch(a, "object")
		}
		text, err := json.Marshal(v)
		if err != nil {
			return nil, &BindError{Arg: a.Name, Source: SourceBody, Type: a.Type, Reason: err.Error()}
		}
		p.Value = string(text)
		if !a.Type.IsJSON() {
			p.Kind = pg.ParamRecord
		}
		return p, nil

	case []any:
		switch {
		case a.Type.IsJSON():
			text, err := json.Marshal(v)
			if err != nil {
				return nil, &BindError{Arg: a.Name, Source: SourceBody, Type: a.Type, Reason: err.Error()}
			}
			p.Value = string(text)
		case a.Type.IsArray():
			raws := make([]string, len(v))
			for i, e := range v {
				raws[i] = cast.ToString(e)
			}
			list, err := CoerceList(a.Type, raws)
			if err != nil {
				return nil, &BindError{Arg: a.Name, Source: SourceBody, Value: fmt.Sprint(raws), Type: a.Type, Err: err}
			}
			p.Value = list
		default:
			return nil, bodyMismatch(a, "array")
		}
		return p, nil

	default:
		if a.Type.IsJSON() {
			text, err := json.Marshal(v)
			if err != nil {
				return nil, &BindError{Arg: a.Name, Source: SourceBody, Type: a.Type, Reason: err.Error()}
			}
			p.Value = string(text)
			return p, nil
		}
		raw := cast.ToString(v)
		c, err := Coerce(a.Type, raw)
		if err != nil {
			return nil, &BindError{Arg: a.Name, Source: SourceBody, Value: raw, Type: a.Type, Err: err}
		}
		p.Value = c
		return p, nil
	}
}

func bodyMismatch(a catalog.Argument, got string) error {
	return &BindError{
		Arg:    a.Name,
		Source: SourceBody,
		Type:   a.Type,
		Reason: fmt.Sprintf("%v: got %s for %s", ErrUnsupportedBodyType, got, a.Type),
	}
}
