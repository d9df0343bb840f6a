package sqlschema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zoosky/prisma-engine/datamodel"
)

// Calculate derives the target SQL schema from a datamodel. The result is
// deterministic: the same datamodel always produces the same schema,
// byte for byte, including column order.
func Calculate(dm *datamodel.Datamodel) (*SqlSchema, error) {
	c := &calculator{dm: dm}
	return c.calculate()
}

type calculator struct {
	dm *datamodel.Datamodel
}

type modelTable struct {
	model *datamodel.Model
	table Table
}

func (c *calculator) calculate() (*SqlSchema, error) {
	modelTables, err := c.calculateModelTables()
	if err != nil {
		return nil, err
	}

	tables, err := c.addInlineRelations(modelTables)
	if err != nil {
		return nil, err
	}

	scalarListTables, err := c.calculateScalarListTables()
	if err != nil {
		return nil, err
	}

	relationTables, err := c.calculateRelationTables()
	if err != nil {
		return nil, err
	}

	tables = append(tables, scalarListTables...)
	tables = append(tables, relationTables...)

	// Sort columns within each table so output is byte-stable across runs.
	for i := range tables {
		cols := tables[i].Columns
		sort.SliceStable(cols, func(a, b int) bool { return cols[a].Name < cols[b].Name })
	}

	return &SqlSchema{Tables: tables}, nil
}

// calculateModelTables emits one table per model, without inline relation
// columns.
func (c *calculator) calculateModelTables() ([]modelTable, error) {
	var result []modelTable

	for _, model := range c.dm.Models() {
		var columns []Column
		for _, f := range model.Fields {
			if !f.IsScalar() || f.Arity == datamodel.List {
				continue
			}

			family, err := columnType(f)
			if err != nil {
				return nil, err
			}

			col := Column{
				Name:          f.DBName(),
				Type:          family,
				Arity:         columnArity(f.Arity),
				AutoIncrement: family == FamilyInt && f.IsID(),
			}
			col.Default, col.HasDefault = migrationValue(c.dm, f)
			columns = append(columns, col)
		}

		idField, err := model.IDField()
		var primaryKey *PrimaryKey
		switch {
		case err == nil:
			primaryKey = &PrimaryKey{Columns: []string{idField.DBName()}}
		case len(model.IDFields) > 0:
			pk := &PrimaryKey{}
			for _, name := range model.IDFields {
				f := model.FindField(name)
				if f == nil {
					return nil, fmt.Errorf("unknown field %s in composite id of model %s", name, model.Name)
				}
				pk.Columns = append(pk.Columns, f.DBName())
			}
			primaryKey = pk
		case model.IsRelationTable:
			// join-table models have no primary key of their own
		default:
			return nil, err
		}

		var indexes []Index
		for _, f := range model.Fields {
			if f.IsUnique {
				indexes = append(indexes, Index{
					Name:    fmt.Sprintf("%s.%s", model.DBName(), f.DBName()),
					Columns: []string{f.DBName()},
					Kind:    IndexUnique,
				})
			}
		}
		for _, def := range model.Indexes {
			var cols []string
			for _, name := range def.Fields {
				f := model.FindField(name)
				if f == nil {
					return nil, fmt.Errorf("unknown field %s in index on model %s", name, model.Name)
				}
				cols = append(cols, f.DBName())
			}
			index := Index{Name: def.Name, Columns: cols}
			if index.Name == "" {
				index.Name = fmt.Sprintf("%s.%s", model.DBName(), strings.Join(cols, "_"))
			}
			if def.Unique {
				index.Kind = IndexUnique
			}
			indexes = append(indexes, index)
		}

		result = append(result, modelTable{
			model: model,
			table: Table{
				Name:       model.DBName(),
				Columns:    columns,
				Indexes:    indexes,
				PrimaryKey: primaryKey,
			},
		})
	}

	return result, nil
}

// addInlineRelations adds one column plus a foreign key per inline relation
// to its holding table.
func (c *calculator) addInlineRelations(modelTables []modelTable) ([]Table, error) {
	relations := c.dm.Relations()
	result := make([]Table, 0, len(modelTables))

	for _, mt := range modelTables {
		for _, rel := range relations {
			inline, ok := rel.Manifestation.(datamodel.Inline)
			if !ok || inline.InTableOfModel != mt.model.Name {
				continue
			}

			holder := rel.InlineHolderSide()
			field := rel.FieldForSide(holder)
			related := rel.ModelForSide(holder.Opposite())

			relatedID, err := related.IDField()
			if err != nil {
				return nil, err
			}
			family, err := columnType(relatedID)
			if err != nil {
				return nil, err
			}

			col := Column{
				Name:  inline.ReferencingColumn,
				Type:  family,
				Arity: columnArity(field.Arity),
			}

			onDelete := ActionSetNull
			if col.IsRequired() {
				onDelete = ActionRestrict
			}

			mt.table.Columns = append(mt.table.Columns, col)
			mt.table.ForeignKeys = append(mt.table.ForeignKeys, ForeignKey{
				Columns:           []string{inline.ReferencingColumn},
				ReferencedTable:   related.DBName(),
				ReferencedColumns: []string{relatedID.DBName()},
				OnDelete:          onDelete,
			})
		}
		result = append(result, mt.table)
	}

	return result, nil
}

// calculateScalarListTables emits one side table per list-typed scalar field.
func (c *calculator) calculateScalarListTables() ([]Table, error) {
	var result []Table

	for _, model := range c.dm.Models() {
		for _, field := range model.ScalarListFields() {
			idField, err := model.IDField()
			if err != nil {
				return nil, err
			}
			idType, err := columnType(idField)
			if err != nil {
				return nil, err
			}
			valueType, err := columnType(field)
			if err != nil {
				return nil, err
			}

			result = append(result, Table{
				Name: fmt.Sprintf("%s_%s", model.DBName(), field.DBName()),
				Columns: []Column{
					{Name: "nodeId", Type: idType, Arity: ColumnRequired},
					{Name: "position", Type: FamilyInt, Arity: ColumnRequired},
					{Name: "value", Type: valueType, Arity: ColumnRequired},
				},
				PrimaryKey: &PrimaryKey{Columns: []string{"nodeId", "position"}},
				ForeignKeys: []ForeignKey{{
					Columns:           []string{"nodeId"},
					ReferencedTable:   model.DBName(),
					ReferencedColumns: []string{idField.DBName()},
					OnDelete:          ActionCascade,
				}},
			})
		}
	}

	return result, nil
}

// calculateRelationTables emits one join table per table-manifested relation.
func (c *calculator) calculateRelationTables() ([]Table, error) {
	var result []Table

	for _, rel := range c.dm.Relations() {
		manifestation, ok := rel.Manifestation.(datamodel.RelationTable)
		if !ok {
			continue
		}

		idA, err := rel.ModelA().IDField()
		if err != nil {
			return nil, err
		}
		idB, err := rel.ModelB().IDField()
		if err != nil {
			return nil, err
		}
		typeA, err := columnType(idA)
		if err != nil {
			return nil, err
		}
		typeB, err := columnType(idB)
		if err != nil {
			return nil, err
		}

		columns := []Column{
			{Name: manifestation.ColumnA, Type: typeA, Arity: ColumnRequired},
			{Name: manifestation.ColumnB, Type: typeB, Arity: ColumnRequired},
		}
		if manifestation.IDColumn != "" {
			columns = append(columns, Column{
				Name:  manifestation.IDColumn,
				Type:  FamilyString,
				Arity: ColumnRequired,
			})
		}

		result = append(result, Table{
			Name:    manifestation.Table,
			Columns: columns,
			Indexes: []Index{{
				Name:    fmt.Sprintf("%s_AB_unique", manifestation.Table),
				Columns: []string{manifestation.ColumnA, manifestation.ColumnB},
				Kind:    IndexUnique,
			}},
			ForeignKeys: []ForeignKey{
				{
					Columns:           []string{manifestation.ColumnA},
					ReferencedTable:   rel.ModelA().DBName(),
					ReferencedColumns: []string{idA.DBName()},
					OnDelete:          ActionCascade,
				},
				{
					Columns:           []string{manifestation.ColumnB},
					ReferencedTable:   rel.ModelB().DBName(),
					ReferencedColumns: []string{idB.DBName()},
					OnDelete:          ActionCascade,
				},
			},
		})
	}

	return result, nil
}

func columnArity(arity datamodel.FieldArity) ColumnArity {
	switch arity {
	case datamodel.Required:
		return ColumnRequired
	case datamodel.Optional:
		return ColumnNullable
	case datamodel.List:
		return ColumnList
	default:
		return ColumnRequired
	}
}

func columnType(f *datamodel.Field) (ColumnTypeFamily, error) {
	switch t := f.Type.(type) {
	case datamodel.BaseType:
		return columnTypeForScalar(t.Scalar, f.Name)
	case datamodel.EnumType:
		return FamilyString, nil
	case datamodel.RelationType:
		return 0, fmt.Errorf("field %s: relation fields have no column type of their own", f.Name)
	default:
		return 0, fmt.Errorf("field %s: unknown field type", f.Name)
	}
}

func columnTypeForScalar(scalar datamodel.ScalarType, fieldName string) (ColumnTypeFamily, error) {
	switch scalar {
	case datamodel.TypeInt:
		return FamilyInt, nil
	case datamodel.TypeFloat:
		return FamilyFloat, nil
	case datamodel.TypeBoolean:
		return FamilyBoolean, nil
	case datamodel.TypeString:
		return FamilyString, nil
	case datamodel.TypeDateTime:
		return FamilyDateTime, nil
	case datamodel.TypeDecimal:
		// No SQL family mapping has been defined for decimals yet.
		return 0, fmt.Errorf("field %s: decimal columns are not supported", fieldName)
	default:
		return 0, fmt.Errorf("field %s: unknown scalar type", fieldName)
	}
}
