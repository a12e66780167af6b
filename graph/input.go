package graph

import (
	"encoding/json"
	"fmt"

	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/vektah/gqlparser/v2/ast"
)

// decodeInput turns a GraphQL input object into one of the models' New* structs,
// which are keyed by snake_case json names.
func decodeInput[T any](typeName string, raw interface{}) (*T, error) {
	return decode[T](typeName, raw, camelToSnake)
}

// decodeFilter fills a filter struct; those carry no json tags, so the camelCase
// names match the Go field names case-insensitively.
func decodeFilter[T any](typeName string, raw interface{}) (*T, error) {
	if raw == nil {
		return new(T), nil
	}
	return decode[T](typeName, raw, func(s string) string { return s })
}

func decode[T any](typeName string, raw interface{}, key func(string) string) (*T, error) {
	def := parsedSchema.Types[typeName]
	if def == nil || def.Kind != ast.InputObject {
		return nil, fmt.Errorf("unknown input %s", typeName)
	}
	normalized, err := normalizeObject(def, raw, key)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, utils.NewValidationError("", "invalid %s: %s", typeName, err.Error())
	}
	return out, nil
}

func normalizeObject(def *ast.Definition, raw interface{}, key func(string) string) (map[string]interface{}, error) {
	in, ok := raw.(map[string]interface{})
	if !ok {
		return nil, utils.NewValidationError("", "%s must be an object", def.Name)
	}
	out := make(map[string]interface{}, len(in))
	for _, f := range def.Fields {
		v, ok := in[f.Name]
		if !ok || v == nil {
			continue
		}
		nv, err := normalizeValue(f, f.Type, v, key)
		if err != nil {
			return nil, err
		}
		out[key(f.Name)] = nv
	}
	return out, nil
}

func normalizeValue(f *ast.FieldDefinition, typ *ast.Type, v interface{}, key func(string) string) (interface{}, error) {
	field := camelToSnake(f.Name)
	if typ.Elem != nil {
		list, ok := v.([]interface{})
		if !ok {
			list = []interface{}{v}
		}
		out := make([]interface{}, 0, len(list))
		for _, item := range list {
			if item == nil {
				continue
			}
			nv, err := normalizeValue(f, typ.Elem, item, key)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	}
	def := parsedSchema.Types[typ.NamedType]
	switch {
	case def == nil:
		return v, nil
	case def.Kind == ast.InputObject:
		return normalizeObject(def, v, key)
	case def.Name == "Decimal":
		d, err := UnmarshalDecimal(v)
		if err != nil {
			return nil, utils.NewValidationError(field, "invalid amount %v", v)
		}
		return d.String(), nil
	case def.Name == "Time":
		t, dateOnly, err := parseTime(field, v)
		if err != nil {
			return nil, err
		}
		// a plain end date includes that whole day
		if dateOnly && f.Name == "endDate" {
			t = endOfDay(t)
		}
		return t, nil
	}
	return v, nil
}
