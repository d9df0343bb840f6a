// Package query holds the read and write query trees, the filters and
// arguments they carry, and the result resolution strategies.
package query

import (
	"github.com/zoosky/prisma-engine/datamodel"
)

// Query is a read or write request. The concrete types form a closed set.
type Query interface {
	isQuery()
}

// ReadQuery is a node of the read tree.
type ReadQuery interface {
	Query
	isReadQuery()
}

// RecordQuery fetches a single record by finder.
type RecordQuery struct {
	Name           string
	Finder         *RecordFinder
	SelectedFields []string
	Nested         []ReadQuery
	SelectionOrder []string
}

// ManyRecordsQuery fetches records of a model, filtered and paginated.
type ManyRecordsQuery struct {
	Name           string
	Model          *datamodel.Model
	Args           Arguments
	SelectedFields []string
	Nested         []ReadQuery
	SelectionOrder []string
}

// RelatedRecordsQuery fetches records related to a set of parent records.
type RelatedRecordsQuery struct {
	Name           string
	ParentField    *datamodel.RelationField
	Args           Arguments
	SelectedFields []string
	Nested         []ReadQuery
	SelectionOrder []string
}

// AggregateRecordsQuery counts records of a model.
type AggregateRecordsQuery struct {
	Name  string
	Model *datamodel.Model
	Args  Arguments
}

func (*RecordQuery) isQuery()               {}
func (*RecordQuery) isReadQuery()           {}
func (*ManyRecordsQuery) isQuery()          {}
func (*ManyRecordsQuery) isReadQuery()      {}
func (*RelatedRecordsQuery) isQuery()       {}
func (*RelatedRecordsQuery) isReadQuery()   {}
func (*AggregateRecordsQuery) isQuery()     {}
func (*AggregateRecordsQuery) isReadQuery() {}

// WriteQuery is a root node of the write tree.
type WriteQuery interface {
	Query
	isWriteQuery()
}

// CreateRecord inserts one record plus its nested writes.
type CreateRecord struct {
	Model    *datamodel.Model
	Args     RecordArgs
	ListArgs []ListArg
	Nested   NestedWrites
}

// UpdateRecord updates one record identified by finder.
type UpdateRecord struct {
	Finder   *RecordFinder
	Args     RecordArgs
	ListArgs []ListArg
	Nested   NestedWrites
}

// UpsertRecord updates the record if the finder matches, creates otherwise.
type UpsertRecord struct {
	Finder *RecordFinder
	Create *CreateRecord
	Update *UpdateRecord
}

// UpdateManyRecords updates every record matching the filter.
type UpdateManyRecords struct {
	Model    *datamodel.Model
	Filter   Filter
	Args     RecordArgs
	ListArgs []ListArg
}

// DeleteRecord deletes one record identified by finder.
type DeleteRecord struct {
	Finder *RecordFinder
}

// DeleteManyRecords deletes every record matching the filter.
type DeleteManyRecords struct {
	Model  *datamodel.Model
	Filter Filter
}

// ResetData truncates every table of the datamodel.
type ResetData struct {
	Datamodel *datamodel.Datamodel
}

func (*CreateRecord) isQuery()           {}
func (*CreateRecord) isWriteQuery()      {}
func (*UpdateRecord) isQuery()           {}
func (*UpdateRecord) isWriteQuery()      {}
func (*UpsertRecord) isQuery()           {}
func (*UpsertRecord) isWriteQuery()      {}
func (*UpdateManyRecords) isQuery()      {}
func (*UpdateManyRecords) isWriteQuery() {}
func (*DeleteRecord) isQuery()           {}
func (*DeleteRecord) isWriteQuery()      {}
func (*DeleteManyRecords) isQuery()      {}
func (*DeleteManyRecords) isWriteQuery() {}
func (*ResetData) isQuery()              {}
func (*ResetData) isWriteQuery()         {}

// WriteModel returns the model a write query acts on, or nil for ResetData.
func WriteModel(w WriteQuery) *datamodel.Model {
	switch q := w.(type) {
	case *CreateRecord:
		return q.Model
	case *UpdateRecord:
		return q.Finder.Model
	case *UpsertRecord:
		return q.Finder.Model
	case *UpdateManyRecords:
		return q.Model
	case *DeleteRecord:
		return q.Finder.Model
	case *DeleteManyRecords:
		return q.Model
	case *ResetData:
		return nil
	default:
		return nil
	}
}

// NestedWrites is the bag of write sub-operations attached to a parent
// write. Execution order across the slices is fixed: creates, updates,
// upserts, deletes, connects, sets, disconnects, update-manys, delete-manys.
type NestedWrites struct {
	Creates     []*NestedCreate
	Updates     []*NestedUpdate
	Upserts     []*NestedUpsert
	Deletes     []*NestedDelete
	Connects    []*NestedConnect
	Sets        []*NestedSet
	Disconnects []*NestedDisconnect
	UpdateManys []*NestedUpdateMany
	DeleteManys []*NestedDeleteMany
}

// IsEmpty reports whether no nested operation is present.
func (n *NestedWrites) IsEmpty() bool {
	return len(n.Creates) == 0 && len(n.Updates) == 0 && len(n.Upserts) == 0 &&
		len(n.Deletes) == 0 && len(n.Connects) == 0 && len(n.Sets) == 0 &&
		len(n.Disconnects) == 0 && len(n.UpdateManys) == 0 && len(n.DeleteManys) == 0
}

// NestedCreate creates a child record connected to the parent.
type NestedCreate struct {
	RelationField *datamodel.RelationField
	Args          RecordArgs
	ListArgs      []ListArg
	Nested        NestedWrites
	// TopIsCreate relaxes connection checks when the parent itself was just
	// created in this transaction.
	TopIsCreate bool
}

// NestedUpdate updates a child record of the parent.
type NestedUpdate struct {
	RelationField *datamodel.RelationField
	Finder        *RecordFinder // nil targets the single connected child
	Args          RecordArgs
	ListArgs      []ListArg
	Nested        NestedWrites
}

// NestedUpsert updates the connected child matching the finder, or creates
// one when no child is connected.
type NestedUpsert struct {
	RelationField *datamodel.RelationField
	Finder        *RecordFinder
	Create        *NestedCreate
	Update        *NestedUpdate
}

// NestedDelete deletes a child record of the parent.
type NestedDelete struct {
	RelationField *datamodel.RelationField
	Finder        *RecordFinder // nil targets the single connected child
}

// NestedConnect links an existing record to the parent.
type NestedConnect struct {
	RelationField *datamodel.RelationField
	Finder        *RecordFinder
	TopIsCreate   bool
}

// NestedSet replaces all links of the parent with the given records.
type NestedSet struct {
	RelationField *datamodel.RelationField
	Finders       []*RecordFinder
}

// NestedDisconnect removes the link between the parent and a child.
type NestedDisconnect struct {
	RelationField *datamodel.RelationField
	Finder        *RecordFinder // nil targets the single connected child
}

// NestedUpdateMany updates all children matching the filter.
type NestedUpdateMany struct {
	RelationField *datamodel.RelationField
	Filter        Filter
	Args          RecordArgs
	ListArgs      []ListArg
}

// NestedDeleteMany deletes all children matching the filter.
type NestedDeleteMany struct {
	RelationField *datamodel.RelationField
	Filter        Filter
}

// RecordFinder is a predicate uniquely identifying one record: a unique
// field together with the value to match.
type RecordFinder struct {
	Model *datamodel.Model
	Field *datamodel.Field
	Value any
}

// IDFinder builds a finder over the model's id field.
func IDFinder(model *datamodel.Model, id any) (*RecordFinder, error) {
	idField, err := model.IDField()
	if err != nil {
		return nil, err
	}
	return &RecordFinder{Model: model, Field: idField, Value: id}, nil
}

// RecordArgs carries scalar field assignments of a write, in input order.
type RecordArgs struct {
	pairs []fieldValue
}

type fieldValue struct {
	field string
	value any
}

// Set adds or replaces a field assignment.
func (a *RecordArgs) Set(field string, value any) {
	for i := range a.pairs {
		if a.pairs[i].field == field {
			a.pairs[i].value = value
			return
		}
	}
	a.pairs = append(a.pairs, fieldValue{field: field, value: value})
}

// Get returns the value assigned to the field.
func (a *RecordArgs) Get(field string) (any, bool) {
	for _, p := range a.pairs {
		if p.field == field {
			return p.value, true
		}
	}
	return nil, false
}

// Has reports whether the field has an assignment.
func (a *RecordArgs) Has(field string) bool {
	_, ok := a.Get(field)
	return ok
}

// Fields returns assigned field names in input order.
func (a *RecordArgs) Fields() []string {
	out := make([]string, len(a.pairs))
	for i, p := range a.pairs {
		out[i] = p.field
	}
	return out
}

// Len returns the number of assignments.
func (a *RecordArgs) Len() int {
	return len(a.pairs)
}

// ListArg carries the full replacement value of one scalar-list field.
type ListArg struct {
	Field  string
	Values []any
}
