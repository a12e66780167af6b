package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/shopspring/decimal"
	"github.com/vektah/gqlparser/v2/ast"
)

// addressOf returns a pointer to rv so pointer-receiver methods are reachable.
func addressOf(rv reflect.Value) reflect.Value {
	if rv.CanAddr() {
		return rv.Addr()
	}
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	return ptr
}

type memberKey struct {
	t    reflect.Type
	name string
}

// member is how a schema field maps onto a Go type: a struct field path or a method.
type member struct {
	index  []int
	method int
	found  bool
}

var members sync.Map

// lookupMember matches a schema field to an exported struct field (embedded structs
// included) or, failing that, a method of the pointer type. Names compare case-insensitively.
func lookupMember(ptrType reflect.Type, name string) member {
	key := memberKey{ptrType, name}
	if m, ok := members.Load(key); ok {
		return m.(member)
	}
	m := member{method: -1}
	if sf, ok := ptrType.Elem().FieldByNameFunc(func(s string) bool { return strings.EqualFold(s, name) }); ok && sf.IsExported() {
		m.index, m.found = sf.Index, true
	} else {
		for i := 0; i < ptrType.NumMethod(); i++ {
			if strings.EqualFold(ptrType.Method(i).Name, name) {
				m.method, m.found = i, true
				break
			}
		}
	}
	members.Store(key, m)
	return m
}

func readField(ptr reflect.Value, def *ast.FieldDefinition, args map[string]interface{}) (interface{}, error) {
	if ptr.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not an object", ptr.Elem().Type())
	}
	m := lookupMember(ptr.Type(), def.Name)
	if !m.found {
		return nil, fmt.Errorf("%s has no field %s", ptr.Elem().Type(), def.Name)
	}
	if m.index != nil {
		f, err := ptr.Elem().FieldByIndexErr(m.index)
		if err != nil {
			return nil, nil
		}
		return f.Interface(), nil
	}
	return callMethod(ptr.Method(m.method), def, args)
}

// callMethod passes the field's arguments in declaration order. Methods may return (T) or (T, error).
func callMethod(fn reflect.Value, def *ast.FieldDefinition, args map[string]interface{}) (interface{}, error) {
	ft := fn.Type()
	if ft.NumIn() != len(def.Arguments) || ft.NumOut() == 0 || ft.NumOut() > 2 {
		return nil, fmt.Errorf("field %s does not match method %s", def.Name, ft)
	}
	in := make([]reflect.Value, ft.NumIn())
	for i, arg := range def.Arguments {
		v, err := convertArg(args[arg.Name], ft.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", arg.Name, err)
		}
		in[i] = v
	}
	out := fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func convertArg(v interface{}, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if f, err := n.Float64(); err == nil {
			v = f
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if t.Kind() == reflect.String && rv.Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("cannot use %v as %s", v, t)
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %v as %s", v, t)
}

func marshalScalar(name string, rv reflect.Value) (graphql.Marshaler, error) {
	switch name {
	case "Decimal":
		if d, ok := rv.Interface().(decimal.Decimal); ok {
			return MarshalDecimal(d), nil
		}
	case "Time":
		if t, ok := rv.Interface().(time.Time); ok {
			return graphql.MarshalTime(t), nil
		}
	case "JSON":
		if raw, ok := rv.Interface().(json.RawMessage); ok {
			if len(raw) == 0 {
				return graphql.Null, nil
			}
			return graphql.WriterFunc(func(w io.Writer) { w.Write(raw) }), nil
		}
	case "Int":
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return graphql.MarshalInt64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return graphql.MarshalInt64(int64(rv.Uint())), nil
		}
	case "Float":
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return graphql.MarshalFloat(rv.Float()), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return graphql.MarshalFloat(float64(rv.Int())), nil
		}
	case "Boolean":
		if rv.Kind() == reflect.Bool {
			return graphql.MarshalBoolean(rv.Bool()), nil
		}
	case "String", "ID":
		if rv.Kind() == reflect.String {
			return graphql.MarshalString(rv.String()), nil
		}
		return graphql.MarshalString(fmt.Sprint(rv.Interface())), nil
	}
	return nil, fmt.Errorf("cannot marshal %s as %s", rv.Type(), name)
}
