package graph

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"reflect"
	"sync"

	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphqls
var sourceData string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: sourceData, BuiltIn: false})

// Config wires the resolvers into the executable schema.
type Config struct {
	Resolvers *Resolver
}

type rootResolver func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// fieldResolver computes a field of obj, which is always a pointer to the Go value.
type fieldResolver func(ctx context.Context, obj interface{}, args map[string]interface{}) (interface{}, error)

type executableSchema struct {
	roots  map[string]rootResolver
	fields map[string]fieldResolver
}

// NewExecutableSchema serves the POS schema. Root fields go to the resolvers, object
// fields are read from the Go value by name unless a field resolver is registered.
func NewExecutableSchema(cfg Config) graphql.ExecutableSchema {
	r := cfg.Resolvers
	if r == nil {
		r = &Resolver{}
	}
	return &executableSchema{roots: r.rootFields(), fields: r.objectFields()}
}

func (e *executableSchema) Schema() *ast.Schema {
	return parsedSchema
}

func (e *executableSchema) Complexity(typeName, field string, childComplexity int, rawArgs map[string]interface{}) (int, bool) {
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	rc := graphql.GetOperationContext(ctx)
	var object string
	switch rc.Operation.Operation {
	case ast.Query:
		object = "Query"
	case ast.Mutation:
		object = "Mutation"
	default:
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}
	ec := &executionContext{rc: rc, schema: e}
	first := true
	return func(ctx context.Context) *graphql.Response {
		if !first {
			return nil
		}
		first = false
		data := ec.root(ctx, object, rc.Operation.SelectionSet)
		var buf bytes.Buffer
		data.MarshalGQL(&buf)
		return &graphql.Response{Data: buf.Bytes()}
	}
}

type executionContext struct {
	rc     *graphql.OperationContext
	schema *executableSchema
}

// root resolves top level fields one after another, so mutations run in document order.
func (ec *executionContext) root(ctx context.Context, object string, sel ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(ec.rc, sel, []string{object})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		out.Values[i] = ec.rootField(ctx, object, field)
	}
	return out
}

func (ec *executionContext) rootField(ctx context.Context, object string, field graphql.CollectedField) (ret graphql.Marshaler) {
	if field.Name == "__typename" {
		return graphql.MarshalString(object)
	}
	args := field.ArgumentMap(ec.rc.Variables)
	fc := &graphql.FieldContext{Object: object, Field: field, Args: args, IsMethod: true, IsResolver: true}
	ctx = graphql.WithFieldContext(ctx, fc)
	defer func() {
		if r := recover(); r != nil {
			graphql.AddError(ctx, ec.rc.Recover(ctx, r))
			ret = graphql.Null
		}
	}()

	var resolve rootResolver
	switch field.Name {
	case "__schema", "__type":
		resolve = ec.introspect(field.Name)
	default:
		resolve = ec.schema.roots[object+"."+field.Name]
	}
	if resolve == nil {
		graphql.AddErrorf(ctx, "%s.%s is not implemented", object, field.Name)
		return graphql.Null
	}
	res, err := ec.middleware(ctx, func(ctx context.Context) (interface{}, error) {
		if field.Definition.Directives.ForName("admin") != nil && !utils.IsAdmin(ctx) {
			return nil, utils.ErrForbidden
		}
		return resolve(ctx, args)
	})
	if err != nil {
		graphql.AddError(ctx, err)
		return graphql.Null
	}
	fc.Result = res
	return ec.completeValue(ctx, field.Definition.Type, field.Selections, res)
}

// middleware runs a resolver through the handler's field interceptors (tracing).
func (ec *executionContext) middleware(ctx context.Context, next graphql.Resolver) (interface{}, error) {
	if ec.rc.ResolverMiddleware == nil {
		return next(ctx)
	}
	return ec.rc.ResolverMiddleware(ctx, next)
}

func (ec *executionContext) introspect(name string) rootResolver {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if ec.rc.DisableIntrospection {
			return nil, fmt.Errorf("introspection disabled")
		}
		if name == "__schema" {
			return introspection.WrapSchema(parsedSchema), nil
		}
		typeName, _ := args["name"].(string)
		def := parsedSchema.Types[typeName]
		if def == nil {
			return nil, nil
		}
		return introspection.WrapTypeFromDef(parsedSchema, def), nil
	}
}

func (ec *executionContext) completeValue(ctx context.Context, typ *ast.Type, sel ast.SelectionSet, v interface{}) graphql.Marshaler {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return ec.null(ctx, typ)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ec.null(ctx, typ)
	}
	if typ.Elem != nil {
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			graphql.AddErrorf(ctx, "expected a list, got %s", rv.Type())
			return graphql.Null
		}
		return ec.completeList(ctx, typ.Elem, sel, rv)
	}
	def := parsedSchema.Types[typ.NamedType]
	if def == nil {
		graphql.AddErrorf(ctx, "unknown type %s", typ.NamedType)
		return graphql.Null
	}
	switch def.Kind {
	case ast.Scalar:
		m, err := marshalScalar(def.Name, rv)
		if err != nil {
			graphql.AddError(ctx, err)
			return graphql.Null
		}
		return m
	case ast.Enum:
		return graphql.MarshalString(fmt.Sprint(rv.Interface()))
	case ast.Object:
		return ec.completeObject(ctx, def, sel, rv)
	}
	graphql.AddErrorf(ctx, "cannot complete %s values", def.Kind)
	return graphql.Null
}

func (ec *executionContext) null(ctx context.Context, typ *ast.Type) graphql.Marshaler {
	if typ.NonNull {
		graphql.AddErrorf(ctx, "must not be null")
	}
	return graphql.Null
}

// completeList resolves object elements concurrently so their field resolvers share loader batches.
func (ec *executionContext) completeList(ctx context.Context, elem *ast.Type, sel ast.SelectionSet, rv reflect.Value) graphql.Marshaler {
	n := rv.Len()
	out := make(graphql.Array, n)
	complete := func(i int) {
		index := i
		item := rv.Index(i)
		if item.Kind() == reflect.Struct && item.CanAddr() {
			item = item.Addr()
		}
		value := item.Interface()
		ctx := graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: &index, Result: value})
		defer func() {
			if r := recover(); r != nil {
				graphql.AddError(ctx, ec.rc.Recover(ctx, r))
				out[i] = graphql.Null
			}
		}()
		out[i] = ec.completeValue(ctx, elem, sel, value)
	}

	def := parsedSchema.Types[elem.Name()]
	if n < 2 || def == nil || def.Kind != ast.Object {
		for i := 0; i < n; i++ {
			complete(i)
		}
		return out
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			complete(i)
		}(i)
	}
	wg.Wait()
	return out
}

func (ec *executionContext) completeObject(ctx context.Context, def *ast.Definition, sel ast.SelectionSet, rv reflect.Value) graphql.Marshaler {
	ptr := addressOf(rv)
	fields := graphql.CollectFields(ec.rc, sel, []string{def.Name})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		out.Values[i] = ec.objectField(ctx, def, ptr, field)
	}
	return out
}

func (ec *executionContext) objectField(ctx context.Context, def *ast.Definition, ptr reflect.Value, field graphql.CollectedField) graphql.Marshaler {
	if field.Name == "__typename" {
		return graphql.MarshalString(def.Name)
	}
	args := field.ArgumentMap(ec.rc.Variables)
	resolve, custom := ec.schema.fields[def.Name+"."+field.Name]
	fc := &graphql.FieldContext{Object: def.Name, Field: field, Args: args, IsMethod: custom, IsResolver: custom}
	ctx = graphql.WithFieldContext(ctx, fc)

	var res interface{}
	var err error
	if custom {
		res, err = ec.middleware(ctx, func(ctx context.Context) (interface{}, error) {
			return resolve(ctx, ptr.Interface(), args)
		})
	} else {
		res, err = readField(ptr, field.Definition, args)
	}
	if err != nil {
		graphql.AddError(ctx, err)
		return graphql.Null
	}
	fc.Result = res
	return ec.completeValue(ctx, field.Definition.Type, field.Selections, res)
}
