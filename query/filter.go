package query

import (
	"github.com/zoosky/prisma-engine/datamodel"
)

// Filter is a predicate tree over scalar fields. The concrete types form a
// closed set.
type Filter interface {
	isFilter()
}

// ScalarCondition is a comparison operator.
type ScalarCondition int

const (
	ConditionEquals ScalarCondition = iota
	ConditionNotEquals
	ConditionContains
	ConditionStartsWith
	ConditionEndsWith
	ConditionLessThan
	ConditionLessThanOrEquals
	ConditionGreaterThan
	ConditionGreaterThanOrEquals
	ConditionIn
	ConditionNotIn
)

// ScalarFilter compares one field against a value.
type ScalarFilter struct {
	Field     *datamodel.Field
	Condition ScalarCondition
	Value     any
}

// AndFilter matches when every child matches.
type AndFilter struct {
	Filters []Filter
}

// OrFilter matches when any child matches.
type OrFilter struct {
	Filters []Filter
}

// NotFilter matches when no child matches.
type NotFilter struct {
	Filters []Filter
}

func (*ScalarFilter) isFilter() {}
func (*AndFilter) isFilter()    {}
func (*OrFilter) isFilter()     {}
func (*NotFilter) isFilter()    {}

// Equals is a convenience constructor for equality filters.
func Equals(field *datamodel.Field, value any) Filter {
	return &ScalarFilter{Field: field, Condition: ConditionEquals, Value: value}
}
