package sqlschema

import (
	"fmt"
	"strings"
)

// Flavor selects the SQL dialect for DDL rendering.
type Flavor int

const (
	FlavorPostgres Flavor = iota
	FlavorMySQL
	FlavorSQLite
)

// FlavorFromConnector maps a connector type string to a DDL flavor.
func FlavorFromConnector(connectorType string) (Flavor, error) {
	switch connectorType {
	case "postgresql":
		return FlavorPostgres, nil
	case "mysql":
		return FlavorMySQL, nil
	case "sqlite":
		return FlavorSQLite, nil
	default:
		return 0, fmt.Errorf("unknown connector type %q", connectorType)
	}
}

// Renderer turns a SqlSchema into executable DDL statements for one dialect.
type Renderer struct {
	Flavor Flavor
}

// RenderCreate returns the CREATE TABLE and CREATE INDEX statements that
// materialize the schema, tables first, in schema order.
func (r Renderer) RenderCreate(schema *SqlSchema) []string {
	var stmts []string
	for i := range schema.Tables {
		stmts = append(stmts, r.renderTable(&schema.Tables[i]))
	}
	for i := range schema.Tables {
		stmts = append(stmts, r.renderIndexes(&schema.Tables[i])...)
	}
	return stmts
}

func (r Renderer) renderTable(t *Table) string {
	var parts []string

	for i := range t.Columns {
		parts = append(parts, r.renderColumn(t, &t.Columns[i]))
	}

	if t.PrimaryKey != nil && !r.pkInlined(t) {
		cols := r.quoteAll(t.PrimaryKey.Columns)
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(cols, ", ")))
	}

	for _, fk := range t.ForeignKeys {
		parts = append(parts, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			strings.Join(r.quoteAll(fk.Columns), ", "),
			r.quote(fk.ReferencedTable),
			strings.Join(r.quoteAll(fk.ReferencedColumns), ", "),
			fk.OnDelete))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", r.quote(t.Name), strings.Join(parts, ",\n  "))
}

// pkInlined reports whether the primary key is rendered on the column
// itself. SQLite requires INTEGER PRIMARY KEY AUTOINCREMENT inline.
func (r Renderer) pkInlined(t *Table) bool {
	if r.Flavor != FlavorSQLite || len(t.PrimaryKey.Columns) != 1 {
		return false
	}
	col := t.Column(t.PrimaryKey.Columns[0])
	return col != nil && col.AutoIncrement
}

func (r Renderer) renderColumn(t *Table, c *Column) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "%s %s", r.quote(c.Name), r.sqlType(c))

	if r.Flavor == FlavorSQLite && c.AutoIncrement && t.PrimaryKey != nil && r.pkInlined(t) {
		sb.WriteString(" PRIMARY KEY AUTOINCREMENT")
		return sb.String()
	}

	if c.IsRequired() {
		sb.WriteString(" NOT NULL")
	}
	if c.HasDefault && !c.AutoIncrement {
		fmt.Fprintf(sb, " DEFAULT %s", r.defaultLiteral(c))
	}
	if r.Flavor == FlavorMySQL && c.AutoIncrement {
		sb.WriteString(" AUTO_INCREMENT")
	}

	return sb.String()
}

func (r Renderer) renderIndexes(t *Table) []string {
	var stmts []string
	for _, idx := range t.Indexes {
		unique := ""
		if idx.Kind == IndexUnique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
			unique, r.quote(idx.Name), r.quote(t.Name), strings.Join(r.quoteAll(idx.Columns), ", ")))
	}
	return stmts
}

func (r Renderer) sqlType(c *Column) string {
	switch r.Flavor {
	case FlavorPostgres:
		switch c.Type {
		case FamilyInt:
			if c.AutoIncrement {
				return "serial"
			}
			return "integer"
		case FamilyFloat:
			return "double precision"
		case FamilyBoolean:
			return "boolean"
		case FamilyDateTime:
			return "timestamp(3)"
		default:
			return "text"
		}
	case FlavorMySQL:
		switch c.Type {
		case FamilyInt:
			return "int"
		case FamilyFloat:
			return "double"
		case FamilyBoolean:
			return "boolean"
		case FamilyDateTime:
			return "datetime(3)"
		default:
			return "varchar(191)"
		}
	default: // SQLite
		switch c.Type {
		case FamilyInt:
			return "INTEGER"
		case FamilyFloat:
			return "REAL"
		case FamilyBoolean:
			return "BOOLEAN"
		case FamilyDateTime:
			return "DATE"
		default:
			return "TEXT"
		}
	}
}

func (r Renderer) defaultLiteral(c *Column) string {
	switch c.Type {
	case FamilyInt, FamilyFloat:
		return c.Default
	case FamilyBoolean:
		if r.Flavor == FlavorSQLite {
			if c.Default == "true" {
				return "1"
			}
			return "0"
		}
		return c.Default
	default:
		return "'" + strings.ReplaceAll(c.Default, "'", "''") + "'"
	}
}

func (r Renderer) quote(name string) string {
	if r.Flavor == FlavorMySQL {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func (r Renderer) quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = r.quote(n)
	}
	return out
}
