package connector

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucsky/cuid"

	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// ParameterLimit caps the number of ids per statement so drivers with
// bounded parameter counts keep working.
const ParameterLimit = 10000

// WriteBuilder translates write-tree nodes into parameterized statements.
type WriteBuilder struct {
	D Dialect
}

// CreateRecord builds the INSERT for a new record. When the model's id is a
// string with a cuid()/uuid() default and no id was supplied, an id is
// generated here and returned; for auto-incrementing integer ids the
// returned id is nil and the driver supplies the value.
func (b WriteBuilder) CreateRecord(model *datamodel.Model, args *query.RecordArgs) (Statement, RecordID, error) {
	idField, err := model.IDField()
	if err != nil {
		return Statement{}, nil, &InternalError{Message: err.Error()}
	}

	var returnID RecordID
	if supplied, ok := args.Get(idField.Name); ok && supplied != nil {
		returnID = supplied
	} else if generated := generateID(idField); generated != nil {
		args.Set(idField.Name, generated)
		returnID = generated
	}

	applyWriteDefaults(model, args, true)

	p := &params{dialect: b.D}
	var cols, values []string
	for _, name := range args.Fields() {
		field := model.FindField(name)
		if field == nil {
			return Statement{}, nil, &InternalError{Message: fmt.Sprintf("unknown field %s on model %s", name, model.Name)}
		}
		value, _ := args.Get(name)
		cols = append(cols, b.D.QuoteIdentifier(field.DBName()))
		values = append(values, p.add(value))
	}

	var sql string
	if len(cols) == 0 {
		sql = fmt.Sprintf("INSERT INTO %s %s", b.D.QuoteIdentifier(model.DBName()), b.D.EmptyValuesClause())
	} else {
		sql = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			b.D.QuoteIdentifier(model.DBName()),
			strings.Join(cols, ", "),
			strings.Join(values, ", "))
	}

	if b.D.SupportsReturning() {
		sql += " RETURNING " + b.D.QuoteIdentifier(idField.DBName())
	}

	return Statement{SQL: sql, Args: p.args}, returnID, nil
}

// UpdateByID builds the UPDATE for a single record. Setting a required
// column to null is rejected before any SQL is emitted.
func (b WriteBuilder) UpdateByID(model *datamodel.Model, id RecordID, args *query.RecordArgs) (Statement, error) {
	stmts, err := b.UpdateMany(model, []RecordID{id}, args)
	if err != nil {
		return Statement{}, err
	}
	if len(stmts) == 0 {
		return Statement{}, nil
	}
	return stmts[0], nil
}

// UpdateMany builds chunked UPDATEs applying the same SET clause to every
// id. No statement carries more than ParameterLimit ids.
func (b WriteBuilder) UpdateMany(model *datamodel.Model, ids []RecordID, args *query.RecordArgs) ([]Statement, error) {
	if args.Len() == 0 || len(ids) == 0 {
		return nil, nil
	}

	applyWriteDefaults(model, args, false)

	for _, name := range args.Fields() {
		field := model.FindField(name)
		if field == nil {
			return nil, &InternalError{Message: fmt.Sprintf("unknown field %s on model %s", name, model.Name)}
		}
		if value, _ := args.Get(name); value == nil && field.IsRequired() {
			return nil, &FieldCannotBeNullError{Field: field.Name}
		}
	}

	idField, err := model.IDField()
	if err != nil {
		return nil, &InternalError{Message: err.Error()}
	}

	var stmts []Statement
	for _, chunk := range chunkIDs(ids) {
		p := &params{dialect: b.D}
		var sets []string
		for _, name := range args.Fields() {
			field := model.FindField(name)
			value, _ := args.Get(name)
			sets = append(sets, fmt.Sprintf("%s = %s", b.D.QuoteIdentifier(field.DBName()), p.add(value)))
		}

		sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s IN (%s)",
			b.D.QuoteIdentifier(model.DBName()),
			strings.Join(sets, ", "),
			b.D.QuoteIdentifier(idField.DBName()),
			strings.Join(p.addAll(chunk), ", "))
		stmts = append(stmts, Statement{SQL: sql, Args: p.args})
	}

	return stmts, nil
}

// DeleteMany builds chunked DELETEs for the given ids. For each chunk the
// model's scalar-list side tables are cleared before the model rows so
// foreign keys stay satisfied.
func (b WriteBuilder) DeleteMany(model *datamodel.Model, ids []RecordID) ([]Statement, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idField, err := model.IDField()
	if err != nil {
		return nil, &InternalError{Message: err.Error()}
	}

	var stmts []Statement
	for _, chunk := range chunkIDs(ids) {
		for _, listField := range model.ScalarListFields() {
			p := &params{dialect: b.D}
			sql := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
				b.D.QuoteIdentifier(scalarListTableName(model, listField)),
				b.D.QuoteIdentifier("nodeId"),
				strings.Join(p.addAll(chunk), ", "))
			stmts = append(stmts, Statement{SQL: sql, Args: p.args})
		}

		p := &params{dialect: b.D}
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
			b.D.QuoteIdentifier(model.DBName()),
			b.D.QuoteIdentifier(idField.DBName()),
			strings.Join(p.addAll(chunk), ", "))
		stmts = append(stmts, Statement{SQL: sql, Args: p.args})
	}

	return stmts, nil
}

// CreateScalarListValues builds the INSERT filling a scalar-list side table
// for one record. Returns false when there is nothing to insert.
func (b WriteBuilder) CreateScalarListValues(model *datamodel.Model, field *datamodel.Field, id RecordID, values []any) (Statement, bool) {
	if len(values) == 0 {
		return Statement{}, false
	}

	p := &params{dialect: b.D}
	rows := make([]string, len(values))
	for i, v := range values {
		position := int64(i+1) * 1000
		rows[i] = fmt.Sprintf("(%s, %s, %s)", p.add(position), p.add(v), p.add(id))
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES %s",
		b.D.QuoteIdentifier(scalarListTableName(model, field)),
		b.D.QuoteIdentifier("position"),
		b.D.QuoteIdentifier("value"),
		b.D.QuoteIdentifier("nodeId"),
		strings.Join(rows, ", "))

	return Statement{SQL: sql, Args: p.args}, true
}

// DeleteScalarListValues clears a scalar-list side table for the given ids,
// chunked like every other id-bound statement.
func (b WriteBuilder) DeleteScalarListValues(model *datamodel.Model, field *datamodel.Field, ids []RecordID) []Statement {
	var stmts []Statement
	for _, chunk := range chunkIDs(ids) {
		p := &params{dialect: b.D}
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
			b.D.QuoteIdentifier(scalarListTableName(model, field)),
			b.D.QuoteIdentifier("nodeId"),
			strings.Join(p.addAll(chunk), ", "))
		stmts = append(stmts, Statement{SQL: sql, Args: p.args})
	}
	return stmts
}

// CreateRelation links parent and child. Join tables take an insert with
// conflicting rows ignored; inline relations update the holding column.
func (b WriteBuilder) CreateRelation(rf *datamodel.RelationField, parentID, childID RecordID) Statement {
	rel := rf.Relation

	switch m := rel.Manifestation.(type) {
	case datamodel.RelationTable:
		idA, idB := parentID, childID
		if rf.Side == datamodel.SideB {
			idA, idB = childID, parentID
		}

		p := &params{dialect: b.D}
		cols := []string{b.D.QuoteIdentifier(m.ColumnA), b.D.QuoteIdentifier(m.ColumnB)}
		values := []string{p.add(idA), p.add(idB)}
		if m.IDColumn != "" {
			cols = append(cols, b.D.QuoteIdentifier(m.IDColumn))
			values = append(values, p.add(cuid.New()))
		}

		sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			b.D.QuoteIdentifier(m.Table),
			strings.Join(cols, ", "),
			strings.Join(values, ", "))
		return Statement{SQL: sql, Args: p.args}

	case datamodel.Inline:
		holder := rel.InlineHolderSide()
		holderID, referencedID := parentID, childID
		if holder != rf.Side {
			holderID, referencedID = childID, parentID
		}
		holderModel := rel.ModelForSide(holder)
		holderIDField, _ := holderModel.IDField()

		p := &params{dialect: b.D}
		sql := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
			b.D.QuoteIdentifier(rel.TableName()),
			b.D.QuoteIdentifier(m.ReferencingColumn),
			p.add(referencedID),
			b.D.QuoteIdentifier(holderIDField.DBName()),
			p.add(holderID))
		return Statement{SQL: sql, Args: p.args}

	default:
		return Statement{}
	}
}

// RelationTableInsert builds the CreateRelation statement and, for join-table
// relations, wraps the insert so conflicting rows are skipped. Inline
// relations get the plain UPDATE.
func (b WriteBuilder) RelationTableInsert(rf *datamodel.RelationField, parentID, childID RecordID) Statement {
	stmt := b.CreateRelation(rf, parentID, childID)
	if _, isTable := rf.Relation.Manifestation.(datamodel.RelationTable); isTable {
		stmt.SQL = b.D.OnConflictDoNothing(stmt.SQL)
	}
	return stmt
}

// RemoveRelationByParent unlinks every child of the parent.
func (b WriteBuilder) RemoveRelationByParent(rf *datamodel.RelationField, parentID RecordID) Statement {
	return b.removeRelation(rf.Relation, []sideID{{rf.Side, parentID}})
}

// RemoveRelationByChild unlinks the child from whichever parent holds it.
func (b WriteBuilder) RemoveRelationByChild(rf *datamodel.RelationField, childID RecordID) Statement {
	return b.removeRelation(rf.Relation, []sideID{{rf.Side.Opposite(), childID}})
}

// RemoveRelationByParentAndChild unlinks one specific pair.
func (b WriteBuilder) RemoveRelationByParentAndChild(rf *datamodel.RelationField, parentID, childID RecordID) Statement {
	return b.removeRelation(rf.Relation, []sideID{
		{rf.Side, parentID},
		{rf.Side.Opposite(), childID},
	})
}

type sideID struct {
	side datamodel.RelationSide
	id   RecordID
}

func (b WriteBuilder) removeRelation(rel *datamodel.Relation, conds []sideID) Statement {
	p := &params{dialect: b.D}
	var where []string
	for _, c := range conds {
		where = append(where, fmt.Sprintf("%s = %s",
			b.D.QuoteIdentifier(rel.ColumnForSide(c.side)), p.add(c.id)))
	}

	switch m := rel.Manifestation.(type) {
	case datamodel.RelationTable:
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s",
			b.D.QuoteIdentifier(m.Table), strings.Join(where, " AND "))
		return Statement{SQL: sql, Args: p.args}
	case datamodel.Inline:
		sql := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s",
			b.D.QuoteIdentifier(rel.TableName()),
			b.D.QuoteIdentifier(m.ReferencingColumn),
			strings.Join(where, " AND "))
		return Statement{SQL: sql, Args: p.args}
	default:
		return Statement{}
	}
}

// TruncateTables builds the statements emptying every table of the
// datamodel: join tables and scalar-list side tables first, then model
// tables in reverse declaration order.
func (b WriteBuilder) TruncateTables(dm *datamodel.Datamodel) []Statement {
	var stmts []Statement

	for _, rel := range dm.Relations() {
		if m, ok := rel.Manifestation.(datamodel.RelationTable); ok {
			stmts = append(stmts, Statement{SQL: "DELETE FROM " + b.D.QuoteIdentifier(m.Table)})
		}
	}

	models := dm.Models()
	for _, model := range models {
		for _, field := range model.ScalarListFields() {
			stmts = append(stmts, Statement{
				SQL: "DELETE FROM " + b.D.QuoteIdentifier(scalarListTableName(model, field)),
			})
		}
	}

	for i := len(models) - 1; i >= 0; i-- {
		stmts = append(stmts, Statement{SQL: "DELETE FROM " + b.D.QuoteIdentifier(models[i].DBName())})
	}

	return stmts
}

func scalarListTableName(model *datamodel.Model, field *datamodel.Field) string {
	return fmt.Sprintf("%s_%s", model.DBName(), field.DBName())
}

func chunkIDs(ids []RecordID) [][]any {
	var chunks [][]any
	for len(ids) > ParameterLimit {
		chunks = append(chunks, ids[:ParameterLimit])
		ids = ids[ParameterLimit:]
	}
	return append(chunks, ids)
}

// generateID produces an id value for string ids with a cuid() or uuid()
// default. Integer ids auto-increment on the driver side and return nil.
func generateID(idField *datamodel.Field) RecordID {
	expr, ok := idField.DefaultValue.(datamodel.Expression)
	if !ok {
		return nil
	}
	switch expr.Name {
	case "cuid":
		return cuid.New()
	case "uuid":
		return uuid.NewString()
	default:
		return nil
	}
}

// applyWriteDefaults fills expression defaults and @updatedAt stamps for
// fields the caller did not set.
func applyWriteDefaults(model *datamodel.Model, args *query.RecordArgs, isCreate bool) {
	now := time.Now().UTC()

	for _, field := range model.Fields {
		if field.IsID() || !field.IsScalar() || field.IsList() {
			continue
		}
		if field.IsUpdatedAt && !args.Has(field.Name) {
			args.Set(field.Name, now)
			continue
		}
		if !isCreate || args.Has(field.Name) {
			continue
		}
		if expr, ok := field.DefaultValue.(datamodel.Expression); ok {
			switch expr.Name {
			case "now":
				args.Set(field.Name, now)
			case "cuid":
				args.Set(field.Name, cuid.New())
			case "uuid":
				args.Set(field.Name, uuid.NewString())
			}
		}
	}
}
