package connector

import (
	"fmt"
	"strings"

	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// Aliases used when related records are read through their realizing table.
const (
	BaseTableAlias      = "BaseTable"
	RelationTableAlias  = "RelationTable"
	RowNumberTableAlias = "RowNumberTable"
	RowNumberAlias      = "__RowNumber"
	ParentIDAlias       = "__ParentID"
)

// ReadBuilder translates read-tree nodes into parameterized statements.
type ReadBuilder struct {
	D        Dialect
	Strategy ManyRelatedStrategy
}

// GetRecord builds the single-record select for a finder.
func (b ReadBuilder) GetRecord(finder *query.RecordFinder, columns []string) Statement {
	p := &params{dialect: b.D}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s LIMIT 1",
		b.columnList("", columns),
		b.D.QuoteIdentifier(finder.Model.DBName()),
		b.D.QuoteIdentifier(finder.Field.DBName()),
		p.add(finder.Value))
	return Statement{SQL: sql, Args: p.args}
}

// GetRecords builds the filtered, ordered, paginated select over a model.
func (b ReadBuilder) GetRecords(model *datamodel.Model, columns []string, args query.Arguments) (Statement, error) {
	p := &params{dialect: b.D}

	where, err := b.whereClause(p, "", model, args)
	if err != nil {
		return Statement{}, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s%s%s",
		b.columnList("", columns),
		b.D.QuoteIdentifier(model.DBName()),
		where,
		b.orderClause("", model, args),
		b.limitClause(args))

	return Statement{SQL: sql, Args: p.args}, nil
}

// CountRecords builds the aggregate count over a model.
func (b ReadBuilder) CountRecords(model *datamodel.Model, args query.Arguments) (Statement, error) {
	p := &params{dialect: b.D}

	where, err := b.whereClause(p, "", model, args)
	if err != nil {
		return Statement{}, err
	}

	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s%s",
		b.D.QuoteIdentifier(model.DBName()), where)
	return Statement{SQL: sql, Args: p.args}, nil
}

// SelectIDsByFilter builds the id-only select for a filter.
func (b ReadBuilder) SelectIDsByFilter(model *datamodel.Model, filter query.Filter) (Statement, error) {
	idField, err := model.IDField()
	if err != nil {
		return Statement{}, &InternalError{Message: err.Error()}
	}

	p := &params{dialect: b.D}
	where := ""
	if filter != nil {
		cond, err := renderFilter(p, "", filter)
		if err != nil {
			return Statement{}, err
		}
		where = " WHERE " + cond
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s",
		b.D.QuoteIdentifier(idField.DBName()),
		b.D.QuoteIdentifier(model.DBName()),
		where)
	return Statement{SQL: sql, Args: p.args}, nil
}

// SelectIDsByParents builds the select returning ids of children connected
// to any of the given parents, optionally narrowed by an extra filter.
func (b ReadBuilder) SelectIDsByParents(rf *datamodel.RelationField, parentIDs []RecordID, filter query.Filter) (Statement, error) {
	related := rf.RelatedModel()
	relatedID, err := related.IDField()
	if err != nil {
		return Statement{}, &InternalError{Message: err.Error()}
	}

	p := &params{dialect: b.D}

	subselect := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		b.D.QuoteIdentifier(rf.OppositeColumn()),
		b.D.QuoteIdentifier(rf.Relation.TableName()),
		b.D.QuoteIdentifier(rf.RelationColumn()),
		strings.Join(p.addAll(parentIDs), ", "))

	conditions := fmt.Sprintf("%s IN (%s)", b.D.QuoteIdentifier(relatedID.DBName()), subselect)
	if filter != nil {
		extra, err := renderFilter(p, "", filter)
		if err != nil {
			return Statement{}, err
		}
		conditions += " AND (" + extra + ")"
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		b.D.QuoteIdentifier(relatedID.DBName()),
		b.D.QuoteIdentifier(related.DBName()),
		conditions)
	return Statement{SQL: sql, Args: p.args}, nil
}

// GetRelatedRecords builds the join fetching children of a set of parents.
// Every row carries the parent id under ParentIDAlias. With pagination the
// backend strategy decides between window functions and per-parent unions;
// without pagination both degrade to a plain IN-selection.
func (b ReadBuilder) GetRelatedRecords(rf *datamodel.RelationField, parentIDs []RecordID, columns []string, args query.Arguments) (Statement, error) {
	if !args.HasPagination() {
		return b.relatedWithoutPagination(rf, parentIDs, columns, args)
	}

	switch b.Strategy {
	case StrategyRowNumber:
		return b.relatedWithRowNumber(rf, parentIDs, columns, args)
	case StrategyUnionAll:
		return b.relatedWithUnionAll(rf, parentIDs, columns, args)
	default:
		return Statement{}, &InternalError{Message: "unknown many-related strategy"}
	}
}

func (b ReadBuilder) relatedBase(p *params, rf *datamodel.RelationField, columns []string, args query.Arguments, parentCondition string) (string, error) {
	related := rf.RelatedModel()
	relatedID, err := related.IDField()
	if err != nil {
		return "", &InternalError{Message: err.Error()}
	}

	selectList := fmt.Sprintf("%s, %s.%s AS %s",
		b.columnList(BaseTableAlias, columns),
		b.D.QuoteIdentifier(RelationTableAlias),
		b.D.QuoteIdentifier(rf.RelationColumn()),
		b.D.QuoteIdentifier(ParentIDAlias))

	join := fmt.Sprintf("%s AS %s INNER JOIN %s AS %s ON %s.%s = %s.%s",
		b.D.QuoteIdentifier(related.DBName()),
		b.D.QuoteIdentifier(BaseTableAlias),
		b.D.QuoteIdentifier(rf.Relation.TableName()),
		b.D.QuoteIdentifier(RelationTableAlias),
		b.D.QuoteIdentifier(BaseTableAlias),
		b.D.QuoteIdentifier(relatedID.DBName()),
		b.D.QuoteIdentifier(RelationTableAlias),
		b.D.QuoteIdentifier(rf.OppositeColumn()))

	conditions := parentCondition
	if args.Filter != nil {
		extra, err := renderFilter(p, BaseTableAlias, args.Filter)
		if err != nil {
			return "", err
		}
		conditions += " AND (" + extra + ")"
	}
	if cursor, err := b.cursorCondition(p, BaseTableAlias, rf.RelatedModel(), args); err != nil {
		return "", err
	} else if cursor != "" {
		conditions += " AND " + cursor
	}

	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", selectList, join, conditions), nil
}

func (b ReadBuilder) parentInCondition(p *params, rf *datamodel.RelationField, parentIDs []RecordID) string {
	return fmt.Sprintf("%s.%s IN (%s)",
		b.D.QuoteIdentifier(RelationTableAlias),
		b.D.QuoteIdentifier(rf.RelationColumn()),
		strings.Join(p.addAll(parentIDs), ", "))
}

func (b ReadBuilder) relatedWithoutPagination(rf *datamodel.RelationField, parentIDs []RecordID, columns []string, args query.Arguments) (Statement, error) {
	p := &params{dialect: b.D}
	base, err := b.relatedBase(p, rf, columns, args, b.parentInCondition(p, rf, parentIDs))
	if err != nil {
		return Statement{}, err
	}
	sql := base + b.orderClause(BaseTableAlias, rf.RelatedModel(), args)
	return Statement{SQL: sql, Args: p.args}, nil
}

func (b ReadBuilder) relatedWithRowNumber(rf *datamodel.RelationField, parentIDs []RecordID, columns []string, args query.Arguments) (Statement, error) {
	p := &params{dialect: b.D}

	base, err := b.relatedBase(p, rf, columns, args, b.parentInCondition(p, rf, parentIDs))
	if err != nil {
		return Statement{}, err
	}

	order := strings.TrimPrefix(b.orderClause(BaseTableAlias, rf.RelatedModel(), args), " ORDER BY ")
	if order == "" {
		relatedID, err := rf.RelatedModel().IDField()
		if err != nil {
			return Statement{}, &InternalError{Message: err.Error()}
		}
		order = b.D.QuoteIdentifier(BaseTableAlias) + "." + b.D.QuoteIdentifier(relatedID.DBName())
	}

	windowed := strings.Replace(base, " FROM ",
		fmt.Sprintf(", ROW_NUMBER() OVER (PARTITION BY %s.%s ORDER BY %s) AS %s FROM ",
			b.D.QuoteIdentifier(RelationTableAlias),
			b.D.QuoteIdentifier(rf.RelationColumn()),
			order,
			b.D.QuoteIdentifier(RowNumberAlias)), 1)

	rowCond := fmt.Sprintf("%s.%s > %d",
		b.D.QuoteIdentifier(RowNumberTableAlias), b.D.QuoteIdentifier(RowNumberAlias), args.Skip)
	if args.Take != nil {
		rowCond = fmt.Sprintf("%s.%s BETWEEN %d AND %d",
			b.D.QuoteIdentifier(RowNumberTableAlias), b.D.QuoteIdentifier(RowNumberAlias),
			args.Skip+1, args.Skip+*args.Take)
	}

	sql := fmt.Sprintf("SELECT * FROM (%s) AS %s WHERE %s",
		windowed, b.D.QuoteIdentifier(RowNumberTableAlias), rowCond)
	return Statement{SQL: sql, Args: p.args}, nil
}

func (b ReadBuilder) relatedWithUnionAll(rf *datamodel.RelationField, parentIDs []RecordID, columns []string, args query.Arguments) (Statement, error) {
	p := &params{dialect: b.D}

	var selects []string
	for _, parentID := range parentIDs {
		parentCond := fmt.Sprintf("%s.%s = %s",
			b.D.QuoteIdentifier(RelationTableAlias),
			b.D.QuoteIdentifier(rf.RelationColumn()),
			p.add(parentID))

		base, err := b.relatedBase(p, rf, columns, args, parentCond)
		if err != nil {
			return Statement{}, err
		}
		sub := base + b.orderClause(BaseTableAlias, rf.RelatedModel(), args) + b.limitClause(args)
		selects = append(selects, "("+sub+")")
	}

	return Statement{SQL: strings.Join(selects, " UNION ALL "), Args: p.args}, nil
}

// GetScalarListValues batch-loads a scalar-list side table for a set of
// record ids, ordered by record and position.
func (b ReadBuilder) GetScalarListValues(model *datamodel.Model, field *datamodel.Field, ids []RecordID) Statement {
	p := &params{dialect: b.D}
	sql := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s) ORDER BY %s, %s",
		b.D.QuoteIdentifier("nodeId"),
		b.D.QuoteIdentifier("value"),
		b.D.QuoteIdentifier(scalarListTableName(model, field)),
		b.D.QuoteIdentifier("nodeId"),
		strings.Join(p.addAll(ids), ", "),
		b.D.QuoteIdentifier("nodeId"),
		b.D.QuoteIdentifier("position"))
	return Statement{SQL: sql, Args: p.args}
}

func (b ReadBuilder) columnList(table string, columns []string) string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if table != "" {
			out[i] = b.D.QuoteIdentifier(table) + "." + b.D.QuoteIdentifier(c)
		} else {
			out[i] = b.D.QuoteIdentifier(c)
		}
	}
	return strings.Join(out, ", ")
}

func (b ReadBuilder) whereClause(p *params, table string, model *datamodel.Model, args query.Arguments) (string, error) {
	var conds []string

	if args.Filter != nil {
		cond, err := renderFilter(p, table, args.Filter)
		if err != nil {
			return "", err
		}
		conds = append(conds, "("+cond+")")
	}

	cursor, err := b.cursorCondition(p, table, model, args)
	if err != nil {
		return "", err
	}
	if cursor != "" {
		conds = append(conds, cursor)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

// cursorCondition positions the query at the cursor record, deriving the
// predicate from the ordering columns. Order-column values of the cursor
// record come from scalar subselects, so no pre-fetch is needed.
func (b ReadBuilder) cursorCondition(p *params, table string, model *datamodel.Model, args query.Arguments) (string, error) {
	if args.Cursor == nil {
		return "", nil
	}

	idField, err := model.IDField()
	if err != nil {
		return "", &InternalError{Message: err.Error()}
	}

	qualify := func(col string) string {
		q := b.D.QuoteIdentifier(col)
		if table != "" {
			return b.D.QuoteIdentifier(table) + "." + q
		}
		return q
	}

	cursorSelect := func(col string) string {
		return fmt.Sprintf("(SELECT %s FROM %s WHERE %s = %s)",
			b.D.QuoteIdentifier(col),
			b.D.QuoteIdentifier(model.DBName()),
			b.D.QuoteIdentifier(args.Cursor.Field.DBName()),
			p.add(args.Cursor.Value))
	}

	gte, gt := ">=", ">"
	if args.Reverse {
		gte, gt = "<=", "<"
	}

	if len(args.OrderBy) == 0 {
		return fmt.Sprintf("%s %s %s", qualify(idField.DBName()), gte, cursorSelect(idField.DBName())), nil
	}

	order := args.OrderBy[0]
	cmp, cmpEq := gt, gte
	if order.Descending != args.Reverse {
		cmp, cmpEq = "<", "<="
		if args.Reverse {
			cmp, cmpEq = ">", ">="
		}
	}

	orderCol := order.Field.DBName()
	return fmt.Sprintf("(%s %s %s OR (%s = %s AND %s %s %s))",
		qualify(orderCol), cmp, cursorSelect(orderCol),
		qualify(orderCol), cursorSelect(orderCol),
		qualify(idField.DBName()), cmpEq, cursorSelect(idField.DBName())), nil
}

func (b ReadBuilder) orderClause(table string, model *datamodel.Model, args query.Arguments) string {
	orderings := args.OrderBy
	if len(orderings) == 0 {
		if !args.HasPagination() && args.Cursor == nil {
			return ""
		}
		if idField, err := model.IDField(); err == nil {
			orderings = []query.OrderBy{{Field: idField}}
		}
	}

	parts := make([]string, 0, len(orderings))
	for _, o := range orderings {
		col := b.D.QuoteIdentifier(o.Field.DBName())
		if table != "" {
			col = b.D.QuoteIdentifier(table) + "." + col
		}
		dir := "ASC"
		if o.Descending != args.Reverse {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}

	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (b ReadBuilder) limitClause(args query.Arguments) string {
	switch {
	case args.Take != nil:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", *args.Take, args.Skip)
	case args.Skip > 0:
		return fmt.Sprintf(" LIMIT %s OFFSET %d", b.D.NoLimit(), args.Skip)
	default:
		return ""
	}
}
