package graphql

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql/language/ast"
)

// literalValue converts a GraphQL literal into its Go value. Objects and
// lists convert element-wise; variables are not supported at this layer.
func literalValue(v ast.Value) any {
	switch value := v.(type) {
	case *ast.IntValue:
		n, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return value.Value
		}
		return n
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return value.Value
		}
		return f
	case *ast.StringValue:
		return value.Value
	case *ast.BooleanValue:
		return value.Value
	case *ast.EnumValue:
		return value.Value
	case *ast.ListValue:
		out := make([]any, len(value.Values))
		for i, el := range value.Values {
			out[i] = literalValue(el)
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]any, len(value.Fields))
		for _, f := range value.Fields {
			out[f.Name.Value] = literalValue(f.Value)
		}
		return out
	default:
		return nil
	}
}

// literalList converts a GraphQL list literal into a value slice. A single
// value wraps into a one-element list.
func literalList(v ast.Value) ([]any, error) {
	if list, ok := v.(*ast.ListValue); ok {
		out := make([]any, len(list.Values))
		for i, el := range list.Values {
			out[i] = literalValue(el)
		}
		return out, nil
	}
	if v == nil {
		return nil, fmt.Errorf("expected a list value")
	}
	return []any{literalValue(v)}, nil
}

// asList yields the elements of a list value, or the value itself as a
// one-element list. The write syntax accepts both forms.
func asList(v ast.Value) []ast.Value {
	if list, ok := v.(*ast.ListValue); ok {
		return list.Values
	}
	if v == nil {
		return nil
	}
	return []ast.Value{v}
}

// argumentMap indexes a field's arguments by name.
func argumentMap(field *ast.Field) map[string]ast.Value {
	out := make(map[string]ast.Value, len(field.Arguments))
	for _, arg := range field.Arguments {
		out[arg.Name.Value] = arg.Value
	}
	return out
}

// objectFields indexes an object value's fields by name.
func objectFields(object *ast.ObjectValue) map[string]ast.Value {
	out := make(map[string]ast.Value, len(object.Fields))
	for _, f := range object.Fields {
		out[f.Name.Value] = f.Value
	}
	return out
}

// whereAndData splits an {where, data} operation item.
func whereAndData(v ast.Value) (where, data ast.Value) {
	object, ok := v.(*ast.ObjectValue)
	if !ok {
		return nil, nil
	}
	fields := objectFields(object)
	return fields["where"], fields["data"]
}

// intValue reads an integer literal.
func intValue(v ast.Value) (int64, error) {
	value, ok := v.(*ast.IntValue)
	if !ok {
		return 0, fmt.Errorf("expected an integer")
	}
	return strconv.ParseInt(value.Value, 10, 64)
}
