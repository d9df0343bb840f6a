// Package sqlschema holds the relational schema description derived from a
// datamodel, and the calculator producing it.
package sqlschema

// SqlSchema is the full relational target schema.
type SqlSchema struct {
	Tables    []Table
	Enums     []Enum
	Sequences []Sequence
}

// Table returns the named table, or nil.
func (s *SqlSchema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Table is a single relational table.
type Table struct {
	Name        string
	Columns     []Column
	Indexes     []Index
	PrimaryKey  *PrimaryKey
	ForeignKeys []ForeignKey
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnTypeFamily is the portable type family of a column.
type ColumnTypeFamily int

const (
	FamilyInt ColumnTypeFamily = iota
	FamilyFloat
	FamilyBoolean
	FamilyString
	FamilyDateTime
)

func (f ColumnTypeFamily) String() string {
	switch f {
	case FamilyInt:
		return "Int"
	case FamilyFloat:
		return "Float"
	case FamilyBoolean:
		return "Boolean"
	case FamilyString:
		return "String"
	case FamilyDateTime:
		return "DateTime"
	default:
		return "Unknown"
	}
}

// ColumnArity describes the nullability of a column.
type ColumnArity int

const (
	ColumnRequired ColumnArity = iota
	ColumnNullable
	ColumnList
)

// Column is a single table column.
type Column struct {
	Name          string
	Type          ColumnTypeFamily
	Arity         ColumnArity
	Default       string // literal default; meaningful only when HasDefault is set
	HasDefault    bool
	AutoIncrement bool
}

// IsRequired reports whether the column rejects NULL.
func (c *Column) IsRequired() bool {
	return c.Arity == ColumnRequired
}

// IndexKind distinguishes unique from plain indexes.
type IndexKind int

const (
	IndexNormal IndexKind = iota
	IndexUnique
)

// Index is an index over one or more columns.
type Index struct {
	Name    string
	Columns []string
	Kind    IndexKind
}

// PrimaryKey is the table's primary key.
type PrimaryKey struct {
	Columns  []string
	Sequence *Sequence
}

// ForeignKeyAction is a referential action on delete.
type ForeignKeyAction int

const (
	ActionNoAction ForeignKeyAction = iota
	ActionRestrict
	ActionCascade
	ActionSetNull
)

func (a ForeignKeyAction) String() string {
	switch a {
	case ActionNoAction:
		return "NO ACTION"
	case ActionRestrict:
		return "RESTRICT"
	case ActionCascade:
		return "CASCADE"
	case ActionSetNull:
		return "SET NULL"
	default:
		return "NO ACTION"
	}
}

// ForeignKey is a foreign-key constraint.
type ForeignKey struct {
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ForeignKeyAction
}

// Enum is a database enum type (emitted for connectors that support them).
type Enum struct {
	Name   string
	Values []string
}

// Sequence backs auto-incrementing ids on connectors that use sequences.
type Sequence struct {
	Name         string
	InitialValue int
	Allocation   int
}
