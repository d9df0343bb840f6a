package executor

import (
	"context"
	"errors"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// writeExecutor runs one root write inside a single transaction. On any
// error the transaction rolls back and nothing is applied.
type writeExecutor struct {
	tx connector.Transaction
	dm *datamodel.Datamodel
}

func (w writeExecutor) builder() connector.WriteBuilder {
	return connector.WriteBuilder{D: w.tx.Dialect()}
}

func (w writeExecutor) execute(ctx context.Context, wq query.WriteQuery) (WriteResult, error) {
	switch q := wq.(type) {
	case *query.CreateRecord:
		id, err := w.create(ctx, q)
		return WriteResult{Kind: WriteResultID, ID: id}, err

	case *query.UpdateRecord:
		id, err := w.update(ctx, q)
		return WriteResult{Kind: WriteResultID, ID: id}, err

	case *query.UpsertRecord:
		return w.upsert(ctx, q)

	case *query.UpdateManyRecords:
		count, err := w.updateMany(ctx, q)
		return WriteResult{Kind: WriteResultCount, Count: count}, err

	case *query.DeleteRecord:
		id, err := w.delete(ctx, q)
		return WriteResult{Kind: WriteResultID, ID: id}, err

	case *query.DeleteManyRecords:
		count, err := w.deleteMany(ctx, q)
		return WriteResult{Kind: WriteResultCount, Count: count}, err

	case *query.ResetData:
		return WriteResult{Kind: WriteResultNone}, w.resetData(ctx, q)

	default:
		return WriteResult{}, &connector.InternalError{Message: "unknown write query type"}
	}
}

func (w writeExecutor) create(ctx context.Context, q *query.CreateRecord) (connector.RecordID, error) {
	id, err := w.createRecord(ctx, q.Model, &q.Args, q.ListArgs)
	if err != nil {
		return nil, err
	}
	if err := w.executeNested(ctx, &q.Nested, id); err != nil {
		return nil, err
	}
	return id, nil
}

func (w writeExecutor) update(ctx context.Context, q *query.UpdateRecord) (connector.RecordID, error) {
	id, err := w.tx.FindID(ctx, q.Finder)
	if err != nil {
		return nil, err
	}
	if err := w.updateRecord(ctx, q.Finder.Model, id, &q.Args, q.ListArgs); err != nil {
		return nil, err
	}
	if err := w.executeNested(ctx, &q.Nested, id); err != nil {
		return nil, err
	}
	return id, nil
}

// upsert routes on the outcome of the finder lookup: a missing record means
// create, a present one means update. Only RecordNotFoundError routes; any
// other error aborts.
func (w writeExecutor) upsert(ctx context.Context, q *query.UpsertRecord) (WriteResult, error) {
	_, err := w.tx.FindID(ctx, q.Finder)

	var notFound *connector.RecordNotFoundError
	switch {
	case err == nil:
		id, err := w.update(ctx, q.Update)
		return WriteResult{Kind: WriteResultID, ID: id}, err
	case errors.As(err, &notFound):
		id, err := w.create(ctx, q.Create)
		return WriteResult{Kind: WriteResultID, ID: id}, err
	default:
		return WriteResult{}, err
	}
}

func (w writeExecutor) updateMany(ctx context.Context, q *query.UpdateManyRecords) (int64, error) {
	ids, err := w.tx.FilterIDs(ctx, q.Model, q.Filter)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	stmts, err := w.builder().UpdateMany(q.Model, ids, &q.Args)
	if err != nil {
		return 0, err
	}
	for _, stmt := range stmts {
		if _, err := w.tx.Execute(ctx, stmt); err != nil {
			return 0, err
		}
	}

	if err := w.writeScalarLists(ctx, q.Model, ids, q.ListArgs); err != nil {
		return 0, err
	}

	return int64(len(ids)), nil
}

func (w writeExecutor) delete(ctx context.Context, q *query.DeleteRecord) (connector.RecordID, error) {
	id, err := w.tx.FindID(ctx, q.Finder)
	if err != nil {
		return nil, err
	}
	if err := w.deleteByIDs(ctx, q.Finder.Model, []connector.RecordID{id}); err != nil {
		return nil, err
	}
	return id, nil
}

func (w writeExecutor) deleteMany(ctx context.Context, q *query.DeleteManyRecords) (int64, error) {
	ids, err := w.tx.FilterIDs(ctx, q.Model, q.Filter)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := w.deleteByIDs(ctx, q.Model, ids); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (w writeExecutor) deleteByIDs(ctx context.Context, model *datamodel.Model, ids []connector.RecordID) error {
	if err := w.checkRelationViolations(ctx, model, ids); err != nil {
		return err
	}

	stmts, err := w.builder().DeleteMany(model, ids)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := w.tx.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (w writeExecutor) resetData(ctx context.Context, q *query.ResetData) error {
	for _, stmt := range w.builder().TruncateTables(q.Datamodel) {
		if _, err := w.tx.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// createRecord inserts one record and fills its scalar-list side tables.
// The id comes from the builder (generated string ids), RETURNING, or the
// driver's last-insert id, in that order of preference.
func (w writeExecutor) createRecord(ctx context.Context, model *datamodel.Model, args *query.RecordArgs, listArgs []query.ListArg) (connector.RecordID, error) {
	stmt, generated, err := w.builder().CreateRecord(model, args)
	if err != nil {
		return nil, err
	}

	var id connector.RecordID
	if w.tx.Dialect().SupportsReturning() {
		rows, err := w.tx.Filter(ctx, stmt, []datamodel.TypeIdentifier{datamodel.IdentGraphQLID})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(rows[0].Values) > 0 {
			id = rows[0].Values[0]
		}
	} else {
		res, err := w.tx.Execute(ctx, stmt)
		if err != nil {
			return nil, err
		}
		id = res.LastInsertID
	}
	if generated != nil {
		id = generated
	}
	if id == nil {
		return nil, &connector.InternalError{Message: "create produced no record id"}
	}

	for _, la := range listArgs {
		field := model.FindField(la.Field)
		if field == nil {
			return nil, &connector.InternalError{Message: "unknown list field " + la.Field}
		}
		if stmt, ok := w.builder().CreateScalarListValues(model, field, id, la.Values); ok {
			if _, err := w.tx.Execute(ctx, stmt); err != nil {
				return nil, err
			}
		}
	}

	return id, nil
}

// updateRecord applies scalar changes and replaces scalar-list values for
// one record.
func (w writeExecutor) updateRecord(ctx context.Context, model *datamodel.Model, id connector.RecordID, args *query.RecordArgs, listArgs []query.ListArg) error {
	if args.Len() > 0 {
		stmt, err := w.builder().UpdateByID(model, id, args)
		if err != nil {
			return err
		}
		if stmt.SQL != "" {
			if _, err := w.tx.Execute(ctx, stmt); err != nil {
				return err
			}
		}
	}

	return w.writeScalarLists(ctx, model, []connector.RecordID{id}, listArgs)
}

// writeScalarLists replaces the stored list values for each record: delete
// everything, then re-insert the new values in order.
func (w writeExecutor) writeScalarLists(ctx context.Context, model *datamodel.Model, ids []connector.RecordID, listArgs []query.ListArg) error {
	for _, la := range listArgs {
		field := model.FindField(la.Field)
		if field == nil {
			return &connector.InternalError{Message: "unknown list field " + la.Field}
		}

		for _, stmt := range w.builder().DeleteScalarListValues(model, field, ids) {
			if _, err := w.tx.Execute(ctx, stmt); err != nil {
				return err
			}
		}

		for _, id := range ids {
			if stmt, ok := w.builder().CreateScalarListValues(model, field, id, la.Values); ok {
				if _, err := w.tx.Execute(ctx, stmt); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
