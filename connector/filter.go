package connector

import (
	"fmt"
	"strings"

	"github.com/zoosky/prisma-engine/query"
)

// params accumulates statement arguments and renders the matching
// dialect-specific placeholders.
type params struct {
	dialect Dialect
	args    []any
}

func (p *params) add(v any) string {
	p.args = append(p.args, v)
	return p.dialect.Placeholder(len(p.args))
}

func (p *params) addAll(vs []any) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = p.add(v)
	}
	return out
}

// renderFilter translates a filter tree into a WHERE fragment. The table
// qualifier may be empty.
func renderFilter(p *params, table string, f query.Filter) (string, error) {
	switch filter := f.(type) {
	case *query.ScalarFilter:
		return renderScalarFilter(p, table, filter)
	case *query.AndFilter:
		return renderJunction(p, table, filter.Filters, " AND ", "1=1")
	case *query.OrFilter:
		return renderJunction(p, table, filter.Filters, " OR ", "1=0")
	case *query.NotFilter:
		inner, err := renderJunction(p, table, filter.Filters, " OR ", "1=0")
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		return "", &InternalError{Message: fmt.Sprintf("unknown filter type %T", f)}
	}
}

func renderJunction(p *params, table string, filters []query.Filter, sep, empty string) (string, error) {
	if len(filters) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		part, err := renderFilter(p, table, f)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+part+")")
	}
	return strings.Join(parts, sep), nil
}

func renderScalarFilter(p *params, table string, f *query.ScalarFilter) (string, error) {
	col := p.dialect.QuoteIdentifier(f.Field.DBName())
	if table != "" {
		col = p.dialect.QuoteIdentifier(table) + "." + col
	}

	switch f.Condition {
	case query.ConditionEquals:
		if f.Value == nil {
			return col + " IS NULL", nil
		}
		return fmt.Sprintf("%s = %s", col, p.add(f.Value)), nil
	case query.ConditionNotEquals:
		if f.Value == nil {
			return col + " IS NOT NULL", nil
		}
		return fmt.Sprintf("%s <> %s", col, p.add(f.Value)), nil
	case query.ConditionContains:
		return fmt.Sprintf("%s LIKE %s", col, p.add("%"+fmt.Sprint(f.Value)+"%")), nil
	case query.ConditionStartsWith:
		return fmt.Sprintf("%s LIKE %s", col, p.add(fmt.Sprint(f.Value)+"%")), nil
	case query.ConditionEndsWith:
		return fmt.Sprintf("%s LIKE %s", col, p.add("%"+fmt.Sprint(f.Value))), nil
	case query.ConditionLessThan:
		return fmt.Sprintf("%s < %s", col, p.add(f.Value)), nil
	case query.ConditionLessThanOrEquals:
		return fmt.Sprintf("%s <= %s", col, p.add(f.Value)), nil
	case query.ConditionGreaterThan:
		return fmt.Sprintf("%s > %s", col, p.add(f.Value)), nil
	case query.ConditionGreaterThanOrEquals:
		return fmt.Sprintf("%s >= %s", col, p.add(f.Value)), nil
	case query.ConditionIn, query.ConditionNotIn:
		values, ok := f.Value.([]any)
		if !ok {
			return "", &ConversionError{From: fmt.Sprintf("%T", f.Value), To: "value list"}
		}
		if len(values) == 0 {
			if f.Condition == query.ConditionIn {
				return "1=0", nil
			}
			return "1=1", nil
		}
		op := "IN"
		if f.Condition == query.ConditionNotIn {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, op, strings.Join(p.addAll(values), ", ")), nil
	default:
		return "", &InternalError{Message: fmt.Sprintf("unknown scalar condition %d", f.Condition)}
	}
}
