package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"

	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

func (t *Translator) recordQuery(model *datamodel.Model, field *ast.Field) (*query.RecordQuery, error) {
	finder, err := t.finderFromArguments(model, field)
	if err != nil {
		return nil, err
	}

	selected, order, nested, err := t.selection(model, field.SelectionSet)
	if err != nil {
		return nil, err
	}

	return &query.RecordQuery{
		Name:           responseName(field),
		Finder:         finder,
		SelectedFields: selected,
		Nested:         nested,
		SelectionOrder: order,
	}, nil
}

func (t *Translator) manyRecordsQuery(model *datamodel.Model, field *ast.Field) (*query.ManyRecordsQuery, error) {
	args, err := t.queryArguments(model, field)
	if err != nil {
		return nil, err
	}

	selected, order, nested, err := t.selection(model, field.SelectionSet)
	if err != nil {
		return nil, err
	}

	return &query.ManyRecordsQuery{
		Name:           responseName(field),
		Model:          model,
		Args:           args,
		SelectedFields: selected,
		Nested:         nested,
		SelectionOrder: order,
	}, nil
}

func (t *Translator) relatedRecordsQuery(rf *datamodel.RelationField, field *ast.Field) (*query.RelatedRecordsQuery, error) {
	related := rf.RelatedModel()

	args, err := t.queryArguments(related, field)
	if err != nil {
		return nil, err
	}

	selected, order, nested, err := t.selection(related, field.SelectionSet)
	if err != nil {
		return nil, err
	}

	return &query.RelatedRecordsQuery{
		Name:           responseName(field),
		ParentField:    rf,
		Args:           args,
		SelectedFields: selected,
		Nested:         nested,
		SelectionOrder: order,
	}, nil
}

// selection splits a selection set into scalar field names and nested
// relation reads, preserving the response order.
func (t *Translator) selection(model *datamodel.Model, set *ast.SelectionSet) ([]string, []string, []query.ReadQuery, error) {
	if set == nil {
		return nil, nil, nil, fmt.Errorf("model %s: a selection set is required", model.Name)
	}

	var selected, order []string
	var nested []query.ReadQuery

	for _, sel := range set.Selections {
		astField, ok := sel.(*ast.Field)
		if !ok {
			return nil, nil, nil, fmt.Errorf("unsupported selection kind %T", sel)
		}

		name := astField.Name.Value
		order = append(order, responseName(astField))

		field := model.FindField(name)
		if field == nil {
			return nil, nil, nil, fmt.Errorf("unknown field %s on model %s", name, model.Name)
		}

		if field.RelationInfo() != nil {
			rf, err := t.dm.RelationFieldFor(model.Name, name)
			if err != nil {
				return nil, nil, nil, err
			}
			child, err := t.relatedRecordsQuery(rf, astField)
			if err != nil {
				return nil, nil, nil, err
			}
			nested = append(nested, child)
			continue
		}

		selected = append(selected, name)
	}

	return selected, order, nested, nil
}

// followUpRead builds the dependent record query re-reading a mutation's
// selection set; its finder is seeded with the write's resulting id.
func (t *Translator) followUpRead(model *datamodel.Model, field *ast.Field) (*query.QueryPair, error) {
	selected, order, nested, err := t.selection(model, field.SelectionSet)
	if err != nil {
		return nil, err
	}

	idField, err := model.IDField()
	if err != nil {
		return nil, err
	}

	return &query.QueryPair{
		Query: &query.RecordQuery{
			Name:           responseName(field),
			Finder:         &query.RecordFinder{Model: model, Field: idField},
			SelectedFields: selected,
			Nested:         nested,
			SelectionOrder: order,
		},
		Strategy: query.Serialize{OutputType: responseName(field)},
	}, nil
}

// queryArguments reads where/orderBy/skip/first/last/after/before.
func (t *Translator) queryArguments(model *datamodel.Model, field *ast.Field) (query.Arguments, error) {
	var out query.Arguments
	args := argumentMap(field)

	if where, ok := args["where"]; ok {
		filter, err := t.filterFromWhere(model, where)
		if err != nil {
			return out, err
		}
		out.Filter = filter
	}

	if orderBy, ok := args["orderBy"]; ok {
		order, err := orderFromEnum(model, orderBy)
		if err != nil {
			return out, err
		}
		out.OrderBy = []query.OrderBy{order}
	}

	if skip, ok := args["skip"]; ok {
		n, err := intValue(skip)
		if err != nil {
			return out, fmt.Errorf("skip: %w", err)
		}
		out.Skip = n
	}

	if first, ok := args["first"]; ok {
		n, err := intValue(first)
		if err != nil {
			return out, fmt.Errorf("first: %w", err)
		}
		out.Take = &n
	}

	if last, ok := args["last"]; ok {
		n, err := intValue(last)
		if err != nil {
			return out, fmt.Errorf("last: %w", err)
		}
		out.Take = &n
		out.Reverse = true
	}

	idField, err := model.IDField()
	if err == nil {
		if after, ok := args["after"]; ok {
			out.Cursor = &query.Cursor{Field: idField, Value: literalValue(after)}
		}
		if before, ok := args["before"]; ok {
			out.Cursor = &query.Cursor{Field: idField, Value: literalValue(before)}
			out.Reverse = true
		}
	}

	return out, nil
}

// finderFromArguments builds a finder from a singular field's arguments,
// e.g. user(id: 1) or user(email: "..."). Exactly one unique argument is
// expected.
func (t *Translator) finderFromArguments(model *datamodel.Model, field *ast.Field) (*query.RecordFinder, error) {
	for _, arg := range field.Arguments {
		f := model.FindField(arg.Name.Value)
		if f == nil {
			return nil, fmt.Errorf("unknown field %s on model %s", arg.Name.Value, model.Name)
		}
		return &query.RecordFinder{Model: model, Field: f, Value: literalValue(arg.Value)}, nil
	}
	return nil, fmt.Errorf("%s: a unique argument is required", model.Name)
}

// finderFromWhere converts a {uniqueField: value} object into a finder.
func (t *Translator) finderFromWhere(model *datamodel.Model, where ast.Value) (*query.RecordFinder, error) {
	finder, err := t.optionalFinder(model, where)
	if err != nil {
		return nil, err
	}
	if finder == nil {
		return nil, fmt.Errorf("model %s: where must name exactly one unique field", model.Name)
	}
	return finder, nil
}

func (t *Translator) optionalFinder(model *datamodel.Model, where ast.Value) (*query.RecordFinder, error) {
	object, ok := where.(*ast.ObjectValue)
	if !ok || len(object.Fields) == 0 {
		return nil, nil
	}
	if len(object.Fields) != 1 {
		return nil, fmt.Errorf("model %s: where must name exactly one unique field", model.Name)
	}

	name := object.Fields[0].Name.Value
	field := model.FindField(name)
	if field == nil {
		return nil, fmt.Errorf("unknown field %s on model %s", name, model.Name)
	}

	return &query.RecordFinder{Model: model, Field: field, Value: literalValue(object.Fields[0].Value)}, nil
}

// filterFromWhere converts a where object into a filter tree. Suffixed keys
// select the operator: _not, _in, _lt, _lte, _gt, _gte, _contains,
// _starts_with, _ends_with. AND/OR/NOT nest.
func (t *Translator) filterFromWhere(model *datamodel.Model, where ast.Value) (query.Filter, error) {
	if where == nil {
		return nil, nil
	}
	object, ok := where.(*ast.ObjectValue)
	if !ok {
		return nil, fmt.Errorf("model %s: where must be an object", model.Name)
	}

	var filters []query.Filter
	for _, objField := range object.Fields {
		name := objField.Name.Value

		switch name {
		case "AND", "OR", "NOT":
			var children []query.Filter
			for _, item := range asList(objField.Value) {
				child, err := t.filterFromWhere(model, item)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			switch name {
			case "AND":
				filters = append(filters, &query.AndFilter{Filters: children})
			case "OR":
				filters = append(filters, &query.OrFilter{Filters: children})
			case "NOT":
				filters = append(filters, &query.NotFilter{Filters: children})
			}
			continue
		}

		fieldName, condition := splitCondition(name)
		field := model.FindField(fieldName)
		if field == nil {
			return nil, fmt.Errorf("unknown field %s on model %s", fieldName, model.Name)
		}

		value := literalValue(objField.Value)
		if condition == query.ConditionIn || condition == query.ConditionNotIn {
			list, err := literalList(objField.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fieldName, err)
			}
			value = list
		}

		filters = append(filters, &query.ScalarFilter{Field: field, Condition: condition, Value: value})
	}

	switch len(filters) {
	case 0:
		return nil, nil
	case 1:
		return filters[0], nil
	default:
		return &query.AndFilter{Filters: filters}, nil
	}
}

func splitCondition(name string) (string, query.ScalarCondition) {
	suffixes := []struct {
		suffix    string
		condition query.ScalarCondition
	}{
		{"_not_in", query.ConditionNotIn},
		{"_in", query.ConditionIn},
		{"_not", query.ConditionNotEquals},
		{"_contains", query.ConditionContains},
		{"_starts_with", query.ConditionStartsWith},
		{"_ends_with", query.ConditionEndsWith},
		{"_lte", query.ConditionLessThanOrEquals},
		{"_lt", query.ConditionLessThan},
		{"_gte", query.ConditionGreaterThanOrEquals},
		{"_gt", query.ConditionGreaterThan},
	}

	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return strings.TrimSuffix(name, s.suffix), s.condition
		}
	}
	return name, query.ConditionEquals
}

// orderFromEnum reads a field_ASC / field_DESC ordering value.
func orderFromEnum(model *datamodel.Model, value ast.Value) (query.OrderBy, error) {
	enum, ok := value.(*ast.EnumValue)
	if !ok {
		return query.OrderBy{}, fmt.Errorf("orderBy must be an enum value")
	}

	name := enum.Value
	descending := false
	switch {
	case strings.HasSuffix(name, "_DESC"):
		name = strings.TrimSuffix(name, "_DESC")
		descending = true
	case strings.HasSuffix(name, "_ASC"):
		name = strings.TrimSuffix(name, "_ASC")
	}

	field := model.FindField(name)
	if field == nil {
		return query.OrderBy{}, fmt.Errorf("unknown order field %s on model %s", name, model.Name)
	}
	return query.OrderBy{Field: field, Descending: descending}, nil
}

// modelForSingularField resolves e.g. "user" to the User model.
func (t *Translator) modelForSingularField(name string) (*datamodel.Model, bool) {
	for _, model := range t.dm.Models() {
		if lowerFirst(model.Name) == name {
			return model, true
		}
	}
	return nil, false
}

// modelForPluralField resolves e.g. "users" to the User model.
func (t *Translator) modelForPluralField(name string) (*datamodel.Model, bool) {
	singular, ok := strings.CutSuffix(name, "s")
	if !ok {
		return nil, false
	}
	return t.modelForSingularField(singular)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func responseName(field *ast.Field) string {
	if field.Alias != nil {
		return field.Alias.Value
	}
	return field.Name.Value
}
