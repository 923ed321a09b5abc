package intrinsics

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.JsonEncode, jsonEncode)
	register(stdlib.JsonDecode, jsonDecode)
	register(stdlib.YamlEncode, yamlEncode)
	register(stdlib.YamlDecode, yamlDecode)
}

func jsonEncode(_ *Context, args []value.Value) (value.Value, error) {
	plain, err := valueToPlain(args[0])
	if err != nil {
		return value.Nil(), fmt.Errorf("json.encode: %w", err)
	}
	data, err := json.Marshal(plain)
	if err != nil {
		return value.Nil(), fmt.Errorf("json.encode: %w", err)
	}
	return value.String(string(data)), nil
}

func jsonDecode(_ *Context, args []value.Value) (value.Value, error) {
	text, err := wantString(args, 0, "json.decode")
	if err != nil {
		return value.Nil(), err
	}
	var plain interface{}
	if err := json.Unmarshal([]byte(text), &plain); err != nil {
		return value.Nil(), fmt.Errorf("json.decode: %w", err)
	}
	return plainToValue(plain), nil
}

func yamlEncode(_ *Context, args []value.Value) (value.Value, error) {
	plain, err := valueToPlain(args[0])
	if err != nil {
		return value.Nil(), fmt.Errorf("yaml.encode: %w", err)
	}
	data, err := yaml.Marshal(plain)
	if err != nil {
		return value.Nil(), fmt.Errorf("yaml.encode: %w", err)
	}
	return value.String(strings.TrimRight(string(data), "\n")), nil
}

func yamlDecode(_ *Context, args []value.Value) (value.Value, error) {
	text, err := wantString(args, 0, "yaml.decode")
	if err != nil {
		return value.Nil(), err
	}
	var plain interface{}
	if err := yaml.Unmarshal([]byte(text), &plain); err != nil {
		return value.Nil(), fmt.Errorf("yaml.decode: %w", err)
	}
	return plainToValue(plain), nil
}

// valueToPlain converts a runtime value into the shape the encoders expect.
func valueToPlain(v value.Value) (interface{}, error) {
	switch v.Kind {
	case value.NilKind, value.VoidKind:
		return nil, nil
	case value.IntKind:
		return v.AsInt(), nil
	case value.FloatKind:
		return v.AsFloat(), nil
	case value.BoolKind:
		return v.AsBool(), nil
	case value.StringKind:
		return v.AsString(), nil
	case value.ListKind:
		list := v.AsList()
		out := make([]interface{}, len(list.Elements))
		for i, element := range list.Elements {
			converted, err := valueToPlain(element)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case value.DictKind:
		dict := v.AsDict()
		out := make(map[string]interface{}, len(dict.Entries))
		for key, entry := range dict.Entries {
			converted, err := valueToPlain(entry)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case value.StructKind:
		s := v.AsStruct()
		out := make(map[string]interface{}, len(s.Fields))
		for i, field := range s.Fields {
			converted, err := valueToPlain(field)
			if err != nil {
				return nil, err
			}
			out[s.Template.FieldNames[i]] = converted
		}
		return out, nil
	case value.EnumKind:
		e := v.AsEnum()
		return e.EnumName + "." + e.VariantName, nil
	default:
		return nil, fmt.Errorf("cannot encode %s", v.TypeName())
	}
}

// plainToValue converts decoder output back into runtime values.
func plainToValue(plain interface{}) value.Value {
	switch p := plain.(type) {
	case nil:
		return value.Nil()
	case bool:
		return value.Bool(p)
	case float64:
		if p == float64(int64(p)) {
			return value.Int(int64(p))
		}
		return value.Float(p)
	case int:
		return value.Int(int64(p))
	case int64:
		return value.Int(p)
	case string:
		return value.String(p)
	case []interface{}:
		elements := make([]value.Value, len(p))
		for i, element := range p {
			elements[i] = plainToValue(element)
		}
		return value.NewList(&value.List{Elements: elements})
	case map[string]interface{}:
		entries := make(map[string]value.Value, len(p))
		for key, entry := range p {
			entries[key] = plainToValue(entry)
		}
		return value.NewDict(&value.Dict{Entries: entries})
	case map[interface{}]interface{}:
		entries := make(map[string]value.Value, len(p))
		for key, entry := range p {
			entries[fmt.Sprintf("%v", key)] = plainToValue(entry)
		}
		return value.NewDict(&value.Dict{Entries: entries})
	default:
		return value.String(fmt.Sprintf("%v", p))
	}
}
