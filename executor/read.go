package executor

import (
	"context"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// ReadExecutor recursively resolves a read-query tree against a connection.
type ReadExecutor struct {
	Conn connector.Queryable
}

// Execute resolves one read node. parentIDs seed related-record queries.
func (r ReadExecutor) Execute(ctx context.Context, rq query.ReadQuery, parentIDs []connector.RecordID) (*RecordSelection, error) {
	switch q := rq.(type) {
	case *query.RecordQuery:
		return r.readOne(ctx, q)
	case *query.ManyRecordsQuery:
		return r.readMany(ctx, q)
	case *query.RelatedRecordsQuery:
		return r.readRelated(ctx, q, parentIDs)
	case *query.AggregateRecordsQuery:
		return r.aggregate(ctx, q)
	default:
		return nil, &connector.InternalError{Message: "unknown read query type"}
	}
}

func (r ReadExecutor) readOne(ctx context.Context, q *query.RecordQuery) (*RecordSelection, error) {
	model := q.Finder.Model
	idField, err := model.IDField()
	if err != nil {
		return nil, &connector.InternalError{Message: err.Error()}
	}

	fields := injectRequiredFields(model, q.SelectedFields)
	scalarFields, columns, idents, err := selectionColumns(model, fields)
	if err != nil {
		return nil, err
	}

	builder := connector.ReadBuilder{D: r.Conn.Dialect(), Strategy: r.Conn.Strategy()}
	rows, err := r.Conn.Filter(ctx, builder.GetRecord(q.Finder, columns), idents)
	if err != nil {
		return nil, err
	}

	selection := &RecordSelection{
		Name:        q.Name,
		FieldsOrder: q.SelectionOrder,
		IDField:     idField.Name,
	}
	if len(rows) == 0 {
		return selection, nil
	}

	selection.Scalars = []Record{rowToRecord(scalarFields, rows[0], nil)}
	return r.resolveChildren(ctx, selection, model, fields, q.Nested)
}

func (r ReadExecutor) readMany(ctx context.Context, q *query.ManyRecordsQuery) (*RecordSelection, error) {
	idField, err := q.Model.IDField()
	if err != nil {
		return nil, &connector.InternalError{Message: err.Error()}
	}

	fields := injectRequiredFields(q.Model, q.SelectedFields)
	scalarFields, columns, idents, err := selectionColumns(q.Model, fields)
	if err != nil {
		return nil, err
	}

	builder := connector.ReadBuilder{D: r.Conn.Dialect(), Strategy: r.Conn.Strategy()}
	stmt, err := builder.GetRecords(q.Model, columns, q.Args)
	if err != nil {
		return nil, err
	}
	rows, err := r.Conn.Filter(ctx, stmt, idents)
	if err != nil {
		return nil, err
	}

	selection := &RecordSelection{
		Name:        q.Name,
		FieldsOrder: q.SelectionOrder,
		IDField:     idField.Name,
	}
	for _, row := range rows {
		selection.Scalars = append(selection.Scalars, rowToRecord(scalarFields, row, nil))
	}

	return r.resolveChildren(ctx, selection, q.Model, fields, q.Nested)
}

func (r ReadExecutor) readRelated(ctx context.Context, q *query.RelatedRecordsQuery, parentIDs []connector.RecordID) (*RecordSelection, error) {
	related := q.ParentField.RelatedModel()
	idField, err := related.IDField()
	if err != nil {
		return nil, &connector.InternalError{Message: err.Error()}
	}

	selection := &RecordSelection{
		Name:        q.Name,
		FieldsOrder: q.SelectionOrder,
		IDField:     idField.Name,
	}
	if len(parentIDs) == 0 {
		return selection, nil
	}

	fields := injectRequiredFields(related, q.SelectedFields)
	scalarFields, columns, idents, err := selectionColumns(related, fields)
	if err != nil {
		return nil, err
	}
	// the realizing-table join appends the parent id as the last column
	idents = append(idents, datamodel.IdentGraphQLID)

	builder := connector.ReadBuilder{D: r.Conn.Dialect(), Strategy: r.Conn.Strategy()}
	stmt, err := builder.GetRelatedRecords(q.ParentField, parentIDs, columns, q.Args)
	if err != nil {
		return nil, err
	}
	rows, err := r.Conn.Filter(ctx, stmt, idents)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if len(row.Values) != len(scalarFields)+1 {
			return nil, &connector.InternalError{Message: "related row has unexpected width"}
		}
		parentID := row.Values[len(row.Values)-1]
		trimmed := connector.Row{Values: row.Values[:len(row.Values)-1]}
		selection.Scalars = append(selection.Scalars, rowToRecord(scalarFields, trimmed, parentID))
	}

	return r.resolveChildren(ctx, selection, related, fields, q.Nested)
}

func (r ReadExecutor) aggregate(ctx context.Context, q *query.AggregateRecordsQuery) (*RecordSelection, error) {
	builder := connector.ReadBuilder{D: r.Conn.Dialect(), Strategy: r.Conn.Strategy()}
	stmt, err := builder.CountRecords(q.Model, q.Args)
	if err != nil {
		return nil, err
	}

	rows, err := r.Conn.Filter(ctx, stmt, []datamodel.TypeIdentifier{datamodel.IdentInt})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0].Values) == 0 {
		return nil, &connector.InternalError{Message: "count query returned no rows"}
	}

	return &RecordSelection{
		Name:        q.Name,
		FieldsOrder: []string{"count"},
		Scalars:     []Record{{Values: map[string]any{"count": rows[0].Values[0]}}},
	}, nil
}

// resolveChildren batch-loads scalar lists and recurses into nested reads
// with the selection's ids as the parent set.
func (r ReadExecutor) resolveChildren(ctx context.Context, selection *RecordSelection, model *datamodel.Model, fields []string, nested []query.ReadQuery) (*RecordSelection, error) {
	ids := selection.IDs()

	lists, err := r.resolveScalarLists(ctx, model, fields, ids)
	if err != nil {
		return nil, err
	}
	selection.Lists = lists

	for _, child := range nested {
		childSelection, err := r.Execute(ctx, child, ids)
		if err != nil {
			return nil, err
		}
		selection.Nested = append(selection.Nested, childSelection)
	}

	return selection, nil
}

// resolveScalarLists loads every selected scalar-list field keyed by the
// fetched record ids.
func (r ReadExecutor) resolveScalarLists(ctx context.Context, model *datamodel.Model, fields []string, ids []connector.RecordID) (map[string][]ScalarListValue, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	selected := make(map[string]bool, len(fields))
	for _, f := range fields {
		selected[f] = true
	}

	var out map[string][]ScalarListValue
	builder := connector.ReadBuilder{D: r.Conn.Dialect(), Strategy: r.Conn.Strategy()}

	for _, listField := range model.ScalarListFields() {
		if !selected[listField.Name] {
			continue
		}

		stmt := builder.GetScalarListValues(model, listField, ids)
		rows, err := r.Conn.Filter(ctx, stmt, []datamodel.TypeIdentifier{
			datamodel.IdentGraphQLID,
			listField.TypeIdentifier(),
		})
		if err != nil {
			return nil, err
		}

		var values []ScalarListValue
		for _, row := range rows {
			recordID := row.Values[0]
			if n := len(values); n > 0 && values[n-1].RecordID == recordID {
				values[n-1].Values = append(values[n-1].Values, row.Values[1])
			} else {
				values = append(values, ScalarListValue{RecordID: recordID, Values: []any{row.Values[1]}})
			}
		}

		if out == nil {
			out = make(map[string][]ScalarListValue)
		}
		out[listField.Name] = values
	}

	return out, nil
}

// injectRequiredFields adds the id field to a selection when absent; nested
// resolution is driven by it.
func injectRequiredFields(model *datamodel.Model, fields []string) []string {
	idField, err := model.IDField()
	if err != nil {
		return fields
	}
	for _, f := range fields {
		if f == idField.Name {
			return fields
		}
	}
	return append(append([]string(nil), fields...), idField.Name)
}

// selectionColumns maps selected scalar field names to database columns and
// decoding identifiers. Relation and list fields are resolved separately and
// never fetched as columns; the returned field names cover exactly the
// fetched columns, in order.
func selectionColumns(model *datamodel.Model, fields []string) ([]string, []string, []datamodel.TypeIdentifier, error) {
	var names []string
	var columns []string
	var idents []datamodel.TypeIdentifier

	for _, name := range fields {
		field := model.FindField(name)
		if field == nil {
			return nil, nil, nil, &connector.InternalError{Message: "unknown field " + name + " on model " + model.Name}
		}
		if !field.IsScalar() || field.IsList() {
			continue
		}
		names = append(names, field.Name)
		columns = append(columns, field.DBName())
		idents = append(idents, field.TypeIdentifier())
	}

	return names, columns, idents, nil
}

// rowToRecord zips selected fields and decoded values into a record. Fields
// skipped by selectionColumns (relations, lists) stay absent.
func rowToRecord(fields []string, row connector.Row, parentID connector.RecordID) Record {
	record := Record{Values: make(map[string]any, len(row.Values)), ParentID: parentID}
	i := 0
	for _, name := range fields {
		if i >= len(row.Values) {
			break
		}
		record.Values[name] = row.Values[i]
		i++
	}
	return record
}
