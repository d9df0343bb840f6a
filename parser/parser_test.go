package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleModel(t *testing.T) {
	schema, err := Parse(`
model Post {
    id    Int    @id
    title String
}
`)
	require.NoError(t, err)
	require.Len(t, schema.Models, 1)

	model := schema.Models[0]
	assert.Equal(t, "Post", model.Name)
	require.Len(t, model.Fields, 2)

	id := model.Fields[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "Int", id.Type.Name)
	assert.False(t, id.Type.Optional)
	assert.False(t, id.Type.List)
	require.Len(t, id.Attributes, 1)
	assert.Equal(t, "id", id.Attributes[0].Name)

	title := model.Fields[1]
	assert.Equal(t, "title", title.Name)
	assert.Equal(t, "String", title.Type.Name)
	assert.Empty(t, title.Attributes)
}

func TestParse_Arities(t *testing.T) {
	schema, err := Parse(`
model User {
    id    Int      @id
    email String?
    tags  String[]
}
`)
	require.NoError(t, err)

	model := schema.Models[0]
	assert.False(t, model.Fields[0].Type.Optional)
	assert.True(t, model.Fields[1].Type.Optional)
	assert.True(t, model.Fields[2].Type.List)
}

func TestParse_AttributeArguments(t *testing.T) {
	schema, err := Parse(`
model User {
    id        String   @id @default(cuid())
    email     String   @unique
    name      String   @default("anonymous") @map("full_name")
    age       Int      @default(30)
    active    Boolean  @default(true)
    createdAt DateTime @default(now())
    role      Role     @default(USER)
}

enum Role {
    USER
    ADMIN
}
`)
	require.NoError(t, err)

	model := schema.Models[0]

	def := model.Fields[0].Attribute("default")
	require.NotNil(t, def)
	fn, ok := def.Positional(0).(*FunctionValue)
	require.True(t, ok)
	assert.Equal(t, "cuid", fn.Name)
	assert.Empty(t, fn.Args)

	require.NotNil(t, model.Fields[1].Attribute("unique"))

	name := model.Fields[2]
	str, ok := name.Attribute("default").Positional(0).(*StringValue)
	require.True(t, ok)
	assert.Equal(t, "anonymous", str.Value)
	mapped, ok := name.Attribute("map").Positional(0).(*StringValue)
	require.True(t, ok)
	assert.Equal(t, "full_name", mapped.Value)

	num, ok := model.Fields[3].Attribute("default").Positional(0).(*NumberValue)
	require.True(t, ok)
	assert.Equal(t, "30", num.Raw)

	b, ok := model.Fields[4].Attribute("default").Positional(0).(*BoolValue)
	require.True(t, ok)
	assert.True(t, b.Value)

	now, ok := model.Fields[5].Attribute("default").Positional(0).(*FunctionValue)
	require.True(t, ok)
	assert.Equal(t, "now", now.Name)

	constant, ok := model.Fields[6].Attribute("default").Positional(0).(*ConstantValue)
	require.True(t, ok)
	assert.Equal(t, "USER", constant.Name)

	require.Len(t, schema.Enums, 1)
	assert.Equal(t, []string{"USER", "ADMIN"}, schema.Enums[0].Values)
}

func TestParse_RelationAttribute(t *testing.T) {
	schema, err := Parse(`
model Post {
    id     Int  @id
    author User @relation("WrittenPosts", references: [id], onDelete: Cascade)
}

model User {
    id    Int    @id
    posts Post[] @relation("WrittenPosts")
}
`)
	require.NoError(t, err)

	author := schema.FindField("Post", "author")
	require.NotNil(t, author)

	rel := author.Attribute("relation")
	require.NotNil(t, rel)

	name, ok := rel.Positional(0).(*StringValue)
	require.True(t, ok)
	assert.Equal(t, "WrittenPosts", name.Value)

	refs, ok := rel.Named("references").(*ListValue)
	require.True(t, ok)
	require.Len(t, refs.Elements, 1)
	assert.Equal(t, "id", refs.Elements[0].(*ConstantValue).Name)

	onDelete, ok := rel.Named("onDelete").(*ConstantValue)
	require.True(t, ok)
	assert.Equal(t, "Cascade", onDelete.Name)
}

func TestParse_BlockAttributes(t *testing.T) {
	schema, err := Parse(`
model Person {
    firstName String
    lastName  String
    email     String

    @@id([firstName, lastName])
    @@index([email], name: "person_email")
    @@map("people")
}
`)
	require.NoError(t, err)

	model := schema.Models[0]

	id := model.Attribute("id")
	require.NotNil(t, id)
	list, ok := id.Positional(0).(*ListValue)
	require.True(t, ok)
	assert.Len(t, list.Elements, 2)

	index := model.Attribute("index")
	require.NotNil(t, index)
	indexName, ok := index.Named("name").(*StringValue)
	require.True(t, ok)
	assert.Equal(t, "person_email", indexName.Value)

	require.NotNil(t, model.Attribute("map"))
}

func TestParse_Spans(t *testing.T) {
	schema, err := Parse(`model User {
    id   Int @id
    name String
}`)
	require.NoError(t, err)

	model := schema.Models[0]
	assert.Equal(t, 1, model.Span.Line)

	name := schema.FindField("User", "name")
	require.NotNil(t, name)
	assert.Equal(t, 3, name.Span.Line)
	assert.Equal(t, 5, name.Span.Column)
}

func TestParse_SkipsConfigBlocksAndComments(t *testing.T) {
	schema, err := Parse(`
// a leading comment
datasource db {
    provider = "sqlite"
    url      = "file:dev.db"
}

generator client {
    provider = "prisma-client-js"
}

model Item {
    id Int @id // trailing comment
}
`)
	require.NoError(t, err)
	require.Len(t, schema.Sources, 2)
	assert.Equal(t, "datasource", schema.Sources[0].Kind)
	assert.Equal(t, "db", schema.Sources[0].Name)
	require.Len(t, schema.Models, 1)
	require.Len(t, schema.Models[0].Fields, 1)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing model name", "model { id Int }"},
		{"missing brace", "model User id Int @id }"},
		{"stray token", "= model User { id Int @id }"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.source)
			assert.Error(t, err)
		})
	}
}

func TestFindLookups(t *testing.T) {
	schema, err := Parse(`
model A {
    id Int @id
}

model B {
    id Int @id
}
`)
	require.NoError(t, err)

	assert.NotNil(t, schema.FindModel("A"))
	assert.Nil(t, schema.FindModel("C"))
	assert.NotNil(t, schema.FindField("B", "id"))
	assert.Nil(t, schema.FindField("B", "missing"))
	assert.Nil(t, schema.FindField("C", "id"))
}
