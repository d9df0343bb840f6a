package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/parser"
	"github.com/zoosky/prisma-engine/query"
)

func translator(t *testing.T) *Translator {
	t.Helper()

	ast, err := parser.Parse(`
model User {
    id    String @id @default(cuid())
    email String @unique
    name  String?
    posts Post[]
}

model Post {
    id     Int    @id
    title  String
    author User
}
`)
	require.NoError(t, err)
	dm, err := datamodel.Convert(ast)
	require.NoError(t, err)
	require.NoError(t, datamodel.Validate(ast, dm))
	return NewTranslator(dm)
}

func TestTranslate_SingleRecordQuery(t *testing.T) {
	pairs, err := translator(t).Translate(`
query {
    user(email: "ada@example.com") {
        id
        email
    }
}
`)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	record, ok := pairs[0].Query.(*query.RecordQuery)
	require.True(t, ok)
	assert.Equal(t, "user", record.Name)
	assert.Equal(t, "email", record.Finder.Field.Name)
	assert.Equal(t, "ada@example.com", record.Finder.Value)
	assert.Equal(t, []string{"id", "email"}, record.SelectedFields)
	assert.Equal(t, []string{"id", "email"}, record.SelectionOrder)
	assert.Empty(t, record.Nested)

	_, ok = pairs[0].Strategy.(query.Serialize)
	assert.True(t, ok)
}

func TestTranslate_ManyRecordsWithArguments(t *testing.T) {
	pairs, err := translator(t).Translate(`
query {
    posts(where: { title_contains: "go", id_gt: 10 }, orderBy: title_DESC, skip: 2, first: 5) {
        id
        title
    }
}
`)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	many, ok := pairs[0].Query.(*query.ManyRecordsQuery)
	require.True(t, ok)
	assert.Equal(t, "Post", many.Model.Name)
	assert.EqualValues(t, 2, many.Args.Skip)
	require.NotNil(t, many.Args.Take)
	assert.EqualValues(t, 5, *many.Args.Take)

	require.Len(t, many.Args.OrderBy, 1)
	assert.Equal(t, "title", many.Args.OrderBy[0].Field.Name)
	assert.True(t, many.Args.OrderBy[0].Descending)

	and, ok := many.Args.Filter.(*query.AndFilter)
	require.True(t, ok)
	require.Len(t, and.Filters, 2)

	contains := and.Filters[0].(*query.ScalarFilter)
	assert.Equal(t, "title", contains.Field.Name)
	assert.Equal(t, query.ConditionContains, contains.Condition)

	gt := and.Filters[1].(*query.ScalarFilter)
	assert.Equal(t, "id", gt.Field.Name)
	assert.Equal(t, query.ConditionGreaterThan, gt.Condition)
	assert.Equal(t, int64(10), gt.Value)
}

func TestTranslate_NestedRead(t *testing.T) {
	pairs, err := translator(t).Translate(`
query {
    users {
        id
        posts(first: 3) {
            id
            title
        }
    }
}
`)
	require.NoError(t, err)

	many := pairs[0].Query.(*query.ManyRecordsQuery)
	assert.Equal(t, []string{"id"}, many.SelectedFields)
	assert.Equal(t, []string{"id", "posts"}, many.SelectionOrder)
	require.Len(t, many.Nested, 1)

	related, ok := many.Nested[0].(*query.RelatedRecordsQuery)
	require.True(t, ok)
	assert.Equal(t, "posts", related.ParentField.Field.Name)
	require.NotNil(t, related.Args.Take)
	assert.EqualValues(t, 3, *related.Args.Take)
}

func TestTranslate_CreateMutationWithNestedWrites(t *testing.T) {
	pairs, err := translator(t).Translate(`
mutation {
    createUser(data: {
        email: "ada@example.com",
        posts: {
            create: [{ title: "a" }, { title: "b" }],
            connect: [{ id: 7 }]
        }
    }) {
        id
        email
    }
}
`)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	create, ok := pairs[0].Query.(*query.CreateRecord)
	require.True(t, ok)
	assert.Equal(t, "User", create.Model.Name)

	email, ok := create.Args.Get("email")
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", email)

	require.Len(t, create.Nested.Creates, 2)
	title, _ := create.Nested.Creates[0].Args.Get("title")
	assert.Equal(t, "a", title)
	assert.True(t, create.Nested.Creates[0].TopIsCreate)

	require.Len(t, create.Nested.Connects, 1)
	assert.Equal(t, int64(7), create.Nested.Connects[0].Finder.Value)
	assert.True(t, create.Nested.Connects[0].TopIsCreate)

	dependent, ok := pairs[0].Strategy.(query.Dependent)
	require.True(t, ok)
	require.NotNil(t, dependent.Inner)

	followUp, ok := dependent.Inner.Query.(*query.RecordQuery)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "email"}, followUp.SelectionOrder)
	// the finder's value is seeded by the executor after the write
	assert.Equal(t, "id", followUp.Finder.Field.Name)
	assert.Nil(t, followUp.Finder.Value)
}

func TestTranslate_UpdateAndDeleteMutations(t *testing.T) {
	pairs, err := translator(t).Translate(`
mutation {
    updateUser(where: { id: "u1" }, data: { name: "Ada" }) { id }
    deleteUser(where: { id: "u2" }) { id }
    updateManyPosts(where: { title: "old" }, data: { title: "new" })
    deleteManyPosts(where: { title_contains: "spam" })
}
`)
	require.NoError(t, err)
	require.Len(t, pairs, 4)

	update, ok := pairs[0].Query.(*query.UpdateRecord)
	require.True(t, ok)
	assert.Equal(t, "u1", update.Finder.Value)
	name, _ := update.Args.Get("name")
	assert.Equal(t, "Ada", name)

	del, ok := pairs[1].Query.(*query.DeleteRecord)
	require.True(t, ok)
	assert.Equal(t, "u2", del.Finder.Value)

	updateMany, ok := pairs[2].Query.(*query.UpdateManyRecords)
	require.True(t, ok)
	assert.Equal(t, "Post", updateMany.Model.Name)
	_, ok = pairs[2].Strategy.(query.Serialize)
	assert.True(t, ok)

	deleteMany, ok := pairs[3].Query.(*query.DeleteManyRecords)
	require.True(t, ok)
	filter, ok := deleteMany.Filter.(*query.ScalarFilter)
	require.True(t, ok)
	assert.Equal(t, query.ConditionContains, filter.Condition)
}

func TestTranslate_UpsertMutation(t *testing.T) {
	pairs, err := translator(t).Translate(`
mutation {
    upsertUser(
        where: { email: "ada@example.com" },
        create: { email: "ada@example.com", name: "Ada" },
        update: { name: "Ada L." }
    ) { id }
}
`)
	require.NoError(t, err)

	upsert, ok := pairs[0].Query.(*query.UpsertRecord)
	require.True(t, ok)
	assert.Equal(t, "email", upsert.Finder.Field.Name)

	created, _ := upsert.Create.Args.Get("name")
	assert.Equal(t, "Ada", created)
	updated, _ := upsert.Update.Args.Get("name")
	assert.Equal(t, "Ada L.", updated)
}

func TestTranslate_BooleanOperators(t *testing.T) {
	pairs, err := translator(t).Translate(`
query {
    posts(where: { OR: [{ title: "a" }, { title: "b" }] }) { id }
}
`)
	require.NoError(t, err)

	many := pairs[0].Query.(*query.ManyRecordsQuery)
	or, ok := many.Args.Filter.(*query.OrFilter)
	require.True(t, ok)
	assert.Len(t, or.Filters, 2)
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown query field", "query { ghosts { id } }"},
		{"unknown mutation", "mutation { renameUser(where: { id: 1 }) { id } }"},
		{"unknown selected field", "query { users { id ghost } }"},
		{"missing selection set", "query { users }"},
		{"syntax error", "query { users { id "},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := translator(t).Translate(test.doc)
			assert.Error(t, err)
		})
	}
}

func TestTranslate_ScalarListInData(t *testing.T) {
	ast, err := parser.Parse(`
model Post {
    id   Int      @id
    tags String[]
}
`)
	require.NoError(t, err)
	dm, err := datamodel.Convert(ast)
	require.NoError(t, err)

	pairs, err := NewTranslator(dm).Translate(`
mutation {
    createPost(data: { tags: ["go", "sql"] }) { id }
}
`)
	require.NoError(t, err)

	create := pairs[0].Query.(*query.CreateRecord)
	require.Len(t, create.ListArgs, 1)
	assert.Equal(t, "tags", create.ListArgs[0].Field)
	assert.Equal(t, []any{"go", "sql"}, create.ListArgs[0].Values)
}
