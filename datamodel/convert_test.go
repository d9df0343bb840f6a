package datamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoosky/prisma-engine/parser"
)

func convertSchema(t *testing.T, source string) (*parser.Schema, *Datamodel) {
	t.Helper()
	ast, err := parser.Parse(source)
	require.NoError(t, err)
	dm, err := Convert(ast)
	require.NoError(t, err)
	return ast, dm
}

func TestConvert_ScalarFields(t *testing.T) {
	_, dm := convertSchema(t, `
model Post {
    id        Int      @id
    title     String
    rating    Float?
    published Boolean  @default(false)
    createdAt DateTime @default(now())
    tags      String[]
}
`)

	model, ok := dm.FindModel("Post")
	require.True(t, ok)

	id := model.FindField("id")
	require.NotNil(t, id)
	assert.True(t, id.IsID())
	assert.Equal(t, Required, id.Arity)
	assert.Equal(t, BaseType{Scalar: TypeInt}, id.Type)

	rating := model.FindField("rating")
	assert.Equal(t, Optional, rating.Arity)
	assert.Equal(t, BaseType{Scalar: TypeFloat}, rating.Type)

	published := model.FindField("published")
	assert.Equal(t, BooleanValue(false), published.DefaultValue)

	createdAt := model.FindField("createdAt")
	expr, ok := createdAt.DefaultValue.(Expression)
	require.True(t, ok)
	assert.Equal(t, "now", expr.Name)
	assert.Equal(t, TypeDateTime, expr.ReturnType)

	tags := model.FindField("tags")
	assert.Equal(t, List, tags.Arity)
	assert.True(t, tags.IsScalar())
	assert.Equal(t, []*Field{tags}, model.ScalarListFields())
}

func TestConvert_EnumAndMap(t *testing.T) {
	_, dm := convertSchema(t, `
model User {
    id        Int    @id
    role      Role   @default(ADMIN)
    firstName String @map("First_Name")

    @@map("Users")
}

enum Role {
    USER
    ADMIN
}
`)

	model, _ := dm.FindModel("User")
	assert.Equal(t, "users", model.DBName())

	role := model.FindField("role")
	assert.Equal(t, EnumType{Name: "Role"}, role.Type)
	assert.Equal(t, ConstantLiteral("ADMIN"), role.DefaultValue)

	firstName := model.FindField("firstName")
	assert.Equal(t, "first_name", firstName.DBName())

	enum, ok := dm.FindEnum("Role")
	require.True(t, ok)
	assert.Equal(t, []string{"USER", "ADMIN"}, enum.Values)
}

func TestConvert_RelationInfo(t *testing.T) {
	_, dm := convertSchema(t, `
model Post {
    id     Int  @id
    author User @relation("Written", references: [id], onDelete: Cascade)
}

model User {
    id    Int    @id
    posts Post[] @relation("Written")
}
`)

	post, _ := dm.FindModel("Post")
	info := post.FindField("author").RelationInfo()
	require.NotNil(t, info)
	assert.Equal(t, "User", info.To)
	assert.Equal(t, "Written", info.Name)
	assert.Equal(t, []string{"id"}, info.ToFields)
	assert.True(t, info.OnDelete.IsCascade())

	user, _ := dm.FindModel("User")
	back := user.FindField("posts").RelationInfo()
	require.NotNil(t, back)
	assert.True(t, back.OnDelete.IsSetNull())
}

func TestConvert_GeneratesMissingBackRelation(t *testing.T) {
	_, dm := convertSchema(t, `
model Post {
    id     Int  @id
    author User
}

model User {
    id Int @id
}
`)

	user, _ := dm.FindModel("User")
	generated := user.FindField("posts")
	require.NotNil(t, generated)
	assert.True(t, generated.IsGenerated)
	assert.Equal(t, List, generated.Arity)
	assert.Equal(t, "Post", generated.RelationInfo().To)
}

func TestConvert_UnknownTypeFails(t *testing.T) {
	ast, err := parser.Parse(`
model Post {
    id   Int @id
    body Markdown
}
`)
	require.NoError(t, err)

	_, err = Convert(ast)
	assert.ErrorContains(t, err, "unknown type")
}

func TestConvert_ModelFlags(t *testing.T) {
	_, dm := convertSchema(t, `
model Address {
    id Int @id

    @@embedded
}

model FriendLink {
    a Int
    b Int

    @@relationTable
}
`)

	address, _ := dm.FindModel("Address")
	assert.True(t, address.IsEmbedded)

	link, _ := dm.FindModel("FriendLink")
	assert.True(t, link.IsRelationTable)
}

func TestConvert_CompositeIDAndIndexes(t *testing.T) {
	_, dm := convertSchema(t, `
model Person {
    firstName String
    lastName  String
    email     String @unique

    @@id([firstName, lastName])
    @@index([lastName, email])
    @@unique([firstName, email])
}
`)

	person, _ := dm.FindModel("Person")
	assert.Equal(t, []string{"firstName", "lastName"}, person.IDFields)
	require.Len(t, person.Indexes, 2)
	assert.False(t, person.Indexes[0].Unique)
	assert.True(t, person.Indexes[1].Unique)
	assert.True(t, person.FindField("email").IsUnique)
}
