package query

import (
	"github.com/zoosky/prisma-engine/datamodel"
)

// OrderBy is one ordering criterion.
type OrderBy struct {
	Field      *datamodel.Field
	Descending bool
}

// Cursor positions a paginated query at a unique record.
type Cursor struct {
	Field *datamodel.Field
	Value any
}

// Arguments carries filtering, ordering and pagination of a read.
type Arguments struct {
	Filter  Filter
	OrderBy []OrderBy
	Skip    int64
	Take    *int64
	Cursor  *Cursor
	// Reverse flips the ordering, used for take-from-the-end pagination.
	Reverse bool
}

// HasPagination reports whether skip or take is set.
func (a Arguments) HasPagination() bool {
	return a.Skip > 0 || a.Take != nil
}

// IsEmpty reports whether the arguments add no constraint at all.
func (a Arguments) IsEmpty() bool {
	return a.Filter == nil && len(a.OrderBy) == 0 && a.Skip == 0 &&
		a.Take == nil && a.Cursor == nil && !a.Reverse
}

// ResultResolutionStrategy describes how a query's result becomes the
// caller's response.
type ResultResolutionStrategy interface {
	isResolutionStrategy()
}

// Serialize renders the result directly with the named output type.
type Serialize struct {
	OutputType string
}

// Dependent feeds the result's id into a follow-up query's record finder.
type Dependent struct {
	Inner *QueryPair
}

func (Serialize) isResolutionStrategy() {}
func (Dependent) isResolutionStrategy() {}

// QueryPair is a query together with its result resolution strategy.
type QueryPair struct {
	Query    Query
	Strategy ResultResolutionStrategy
}
