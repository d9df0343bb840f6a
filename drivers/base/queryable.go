package base

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// runner is the subset of database/sql shared by *sql.Conn and *sql.Tx.
type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryable implements connector.Queryable over a connection or transaction.
type Queryable struct {
	runner   runner
	dialect  connector.Dialect
	strategy connector.ManyRelatedStrategy
	log      zerolog.Logger
}

// NewQueryable wires a raw runner to a dialect and strategy.
func NewQueryable(r runner, dialect connector.Dialect, strategy connector.ManyRelatedStrategy, log zerolog.Logger) Queryable {
	return Queryable{runner: r, dialect: dialect, strategy: strategy, log: log}
}

// Dialect returns the backend's SQL dialect.
func (q Queryable) Dialect() connector.Dialect {
	return q.dialect
}

// Strategy returns the backend's many-related read strategy.
func (q Queryable) Strategy() connector.ManyRelatedStrategy {
	return q.strategy
}

// Query runs a statement and returns its raw result set.
func (q Queryable) Query(ctx context.Context, stmt connector.Statement) (*connector.ResultSet, error) {
	q.log.Debug().Str("sql", stmt.SQL).Interface("args", stmt.Args).Msg("query")

	rows, err := q.runner.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, &connector.ConnectionError{Cause: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &connector.ConnectionError{Cause: err}
	}

	result := &connector.ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, &connector.ConnectionError{Cause: err}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, &connector.ConnectionError{Cause: err}
	}
	return result, nil
}

// Execute runs a statement and returns affected rows and, where the driver
// reports one, the last inserted id.
func (q Queryable) Execute(ctx context.Context, stmt connector.Statement) (connector.Result, error) {
	q.log.Debug().Str("sql", stmt.SQL).Interface("args", stmt.Args).Msg("execute")

	res, err := q.runner.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return connector.Result{}, &connector.ConnectionError{Cause: err}
	}

	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	return connector.Result{RowsAffected: affected, LastInsertID: lastID}, nil
}

// RawJSON runs a raw statement: selects return an array of objects, every
// other statement returns its affected-row count.
func (q Queryable) RawJSON(ctx context.Context, stmt connector.Statement) (any, error) {
	if isSelect(stmt.SQL) {
		rs, err := q.Query(ctx, stmt)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(rs.Rows))
		for _, row := range rs.Rows {
			object := make(map[string]any, len(rs.Columns))
			for i, col := range rs.Columns {
				object[col] = normalizeRaw(row[i])
			}
			out = append(out, object)
		}
		return out, nil
	}

	res, err := q.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return res.RowsAffected, nil
}

func isSelect(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT")
}

func normalizeRaw(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Filter runs a select and decodes each row per the type identifiers.
func (q Queryable) Filter(ctx context.Context, stmt connector.Statement, idents []datamodel.TypeIdentifier) ([]connector.Row, error) {
	rs, err := q.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	rows := make([]connector.Row, 0, len(rs.Rows))
	for _, raw := range rs.Rows {
		values := make([]any, len(raw))
		for i, v := range raw {
			ident := datamodel.IdentString
			if i < len(idents) {
				ident = idents[i]
			}
			decoded, err := DecodeValue(v, ident)
			if err != nil {
				return nil, err
			}
			values[i] = decoded
		}
		rows = append(rows, connector.Row{Values: values})
	}

	return rows, nil
}

// FindID resolves a record finder to the record's id.
func (q Queryable) FindID(ctx context.Context, finder *query.RecordFinder) (connector.RecordID, error) {
	ids, err := q.FilterIDs(ctx, finder.Model, query.Equals(finder.Field, finder.Value))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, &connector.RecordNotFoundError{
			Model: finder.Model.Name,
			Field: finder.Field.Name,
			Value: finder.Value,
		}
	}
	return ids[0], nil
}

// FilterIDs returns ids of all records of the model matching the filter.
func (q Queryable) FilterIDs(ctx context.Context, model *datamodel.Model, filter query.Filter) ([]connector.RecordID, error) {
	stmt, err := connector.ReadBuilder{D: q.dialect, Strategy: q.strategy}.SelectIDsByFilter(model, filter)
	if err != nil {
		return nil, err
	}
	return q.SelectIDs(ctx, stmt)
}

// SelectIDs runs a single-column id select.
func (q Queryable) SelectIDs(ctx context.Context, stmt connector.Statement) ([]connector.RecordID, error) {
	rows, err := q.Filter(ctx, stmt, []datamodel.TypeIdentifier{datamodel.IdentGraphQLID})
	if err != nil {
		return nil, err
	}

	ids := make([]connector.RecordID, 0, len(rows))
	for _, row := range rows {
		for _, v := range row.Values {
			ids = append(ids, v)
		}
	}
	return ids, nil
}

// FindIDByParent finds the id of a child connected to parentID. Returns
// RecordsNotConnectedError when the records are not linked.
func (q Queryable) FindIDByParent(ctx context.Context, parentField *datamodel.RelationField, parentID connector.RecordID, selector *query.RecordFinder) (connector.RecordID, error) {
	var filter query.Filter
	if selector != nil {
		filter = query.Equals(selector.Field, selector.Value)
	}

	ids, err := q.FilterIDsByParents(ctx, parentField, []connector.RecordID{parentID}, filter)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, &connector.RecordsNotConnectedError{
			Relation: parentField.Relation.Name,
			Parent:   parentField.Model.Name,
			Child:    parentField.RelatedModel().Name,
		}
	}
	return ids[0], nil
}

// FilterIDsByParents finds ids of all children connected to any parent id.
func (q Queryable) FilterIDsByParents(ctx context.Context, parentField *datamodel.RelationField, parentIDs []connector.RecordID, filter query.Filter) ([]connector.RecordID, error) {
	stmt, err := connector.ReadBuilder{D: q.dialect, Strategy: q.strategy}.SelectIDsByParents(parentField, parentIDs, filter)
	if err != nil {
		return nil, err
	}
	return q.SelectIDs(ctx, stmt)
}
