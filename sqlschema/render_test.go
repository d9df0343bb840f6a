package sqlschema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *SqlSchema {
	return &SqlSchema{
		Tables: []Table{
			{
				Name: "User",
				Columns: []Column{
					{Name: "id", Type: FamilyInt, Arity: ColumnRequired, AutoIncrement: true},
					{Name: "name", Type: FamilyString, Arity: ColumnRequired, Default: "anon", HasDefault: true},
					{Name: "age", Type: FamilyInt, Arity: ColumnNullable},
				},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
				Indexes: []Index{
					{Name: "User.name", Columns: []string{"name"}, Kind: IndexUnique},
				},
			},
			{
				Name: "Post",
				Columns: []Column{
					{Name: "id", Type: FamilyInt, Arity: ColumnRequired, AutoIncrement: true},
					{Name: "author", Type: FamilyInt, Arity: ColumnRequired},
				},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []ForeignKey{
					{Columns: []string{"author"}, ReferencedTable: "User", ReferencedColumns: []string{"id"}, OnDelete: ActionRestrict},
				},
			},
		},
	}
}

func TestRenderCreate_SQLite(t *testing.T) {
	stmts := Renderer{Flavor: FlavorSQLite}.RenderCreate(testSchema())
	require.Len(t, stmts, 3)

	user := stmts[0]
	assert.Contains(t, user, `CREATE TABLE "User"`)
	assert.Contains(t, user, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
	assert.Contains(t, user, `"name" TEXT NOT NULL DEFAULT 'anon'`)
	assert.Contains(t, user, `"age" INTEGER`)
	assert.NotContains(t, user, `PRIMARY KEY ("id")`)

	post := stmts[1]
	assert.Contains(t, post, `FOREIGN KEY ("author") REFERENCES "User" ("id") ON DELETE RESTRICT`)

	index := stmts[2]
	assert.Equal(t, `CREATE UNIQUE INDEX "User.name" ON "User" ("name")`, index)
}

func TestRenderCreate_Postgres(t *testing.T) {
	stmts := Renderer{Flavor: FlavorPostgres}.RenderCreate(testSchema())

	user := stmts[0]
	assert.Contains(t, user, `"id" serial NOT NULL`)
	assert.Contains(t, user, `PRIMARY KEY ("id")`)
	assert.Contains(t, user, `"name" text NOT NULL DEFAULT 'anon'`)
}

func TestRenderCreate_MySQL(t *testing.T) {
	stmts := Renderer{Flavor: FlavorMySQL}.RenderCreate(testSchema())

	user := stmts[0]
	assert.Contains(t, user, "CREATE TABLE `User`")
	assert.Contains(t, user, "`id` int NOT NULL AUTO_INCREMENT")
	assert.Contains(t, user, "PRIMARY KEY (`id`)")
	assert.True(t, strings.Contains(user, "`name` varchar(191) NOT NULL DEFAULT 'anon'"))
}

func TestFlavorFromConnector(t *testing.T) {
	for name, want := range map[string]Flavor{
		"postgresql": FlavorPostgres,
		"mysql":      FlavorMySQL,
		"sqlite":     FlavorSQLite,
	} {
		got, err := FlavorFromConnector(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := FlavorFromConnector("mssql")
	assert.Error(t, err)
}
