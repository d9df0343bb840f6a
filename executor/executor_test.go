package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/parser"
	"github.com/zoosky/prisma-engine/query"
)

// testDialect is a question-mark dialect without RETURNING, so created ids
// flow through the generated-id and last-insert-id paths.
type testDialect struct{}

func (testDialect) Placeholder(n int) string           { return "?" }
func (testDialect) QuoteIdentifier(name string) string { return `"` + name + `"` }
func (testDialect) SupportsReturning() bool            { return false }
func (testDialect) OnConflictDoNothing(i string) string {
	return i + " ON CONFLICT DO NOTHING"
}
func (testDialect) NoLimit() string           { return "-1" }
func (testDialect) EmptyValuesClause() string { return "DEFAULT VALUES" }

// fakeTx records every statement and serves programmable lookup results.
type fakeTx struct {
	stmts []connector.Statement

	committed  bool
	rolledBack bool

	nextInsertID int64

	// finder.Value -> id for FindID and FindIDByParent
	idsByValue map[any]connector.RecordID
	// child id served when FindIDByParent runs without a selector
	singleChild connector.RecordID
	// queued results for FilterIDsByParents calls with a filter
	byParentsQueue [][]connector.RecordID
	// result served by SelectIDs (relation link probes)
	selectIDsResult []connector.RecordID
	// queued decoded rows served by Filter, one entry per call
	rowsQueue [][]connector.Row

	failOnSQL string
}

func newFakeTx() *fakeTx {
	return &fakeTx{nextInsertID: 100, idsByValue: map[any]connector.RecordID{}}
}

func (f *fakeTx) record(stmt connector.Statement) error {
	f.stmts = append(f.stmts, stmt)
	if f.failOnSQL != "" && argsContain(stmt.Args, f.failOnSQL) {
		return &connector.ConnectionError{Cause: errors.New("induced failure")}
	}
	return nil
}

func argsContain(args []any, marker string) bool {
	for _, a := range args {
		if s, ok := a.(string); ok && s == marker {
			return true
		}
	}
	return false
}

func (f *fakeTx) Query(ctx context.Context, stmt connector.Statement) (*connector.ResultSet, error) {
	if err := f.record(stmt); err != nil {
		return nil, err
	}
	return &connector.ResultSet{}, nil
}

func (f *fakeTx) Execute(ctx context.Context, stmt connector.Statement) (connector.Result, error) {
	if err := f.record(stmt); err != nil {
		return connector.Result{}, err
	}
	f.nextInsertID++
	return connector.Result{RowsAffected: 1, LastInsertID: f.nextInsertID}, nil
}

func (f *fakeTx) RawJSON(ctx context.Context, stmt connector.Statement) (any, error) {
	return nil, nil
}

func (f *fakeTx) Filter(ctx context.Context, stmt connector.Statement, idents []datamodel.TypeIdentifier) ([]connector.Row, error) {
	if err := f.record(stmt); err != nil {
		return nil, err
	}
	if len(f.rowsQueue) == 0 {
		return nil, nil
	}
	head := f.rowsQueue[0]
	f.rowsQueue = f.rowsQueue[1:]
	return head, nil
}

func (f *fakeTx) FindID(ctx context.Context, finder *query.RecordFinder) (connector.RecordID, error) {
	if id, ok := f.idsByValue[finder.Value]; ok {
		return id, nil
	}
	return nil, &connector.RecordNotFoundError{Model: finder.Model.Name, Field: finder.Field.Name, Value: finder.Value}
}

func (f *fakeTx) FilterIDs(ctx context.Context, model *datamodel.Model, filter query.Filter) ([]connector.RecordID, error) {
	if len(f.byParentsQueue) > 0 {
		head := f.byParentsQueue[0]
		f.byParentsQueue = f.byParentsQueue[1:]
		return head, nil
	}
	return nil, nil
}

func (f *fakeTx) SelectIDs(ctx context.Context, stmt connector.Statement) ([]connector.RecordID, error) {
	if err := f.record(stmt); err != nil {
		return nil, err
	}
	return f.selectIDsResult, nil
}

func (f *fakeTx) FindIDByParent(ctx context.Context, parentField *datamodel.RelationField, parentID connector.RecordID, selector *query.RecordFinder) (connector.RecordID, error) {
	if selector == nil {
		if f.singleChild != nil {
			return f.singleChild, nil
		}
		return nil, &connector.RecordsNotConnectedError{
			Relation: parentField.Relation.Name,
			Parent:   parentField.Model.Name,
			Child:    parentField.RelatedModel().Name,
		}
	}
	if id, ok := f.idsByValue[selector.Value]; ok {
		return id, nil
	}
	return nil, &connector.RecordsNotConnectedError{
		Relation: parentField.Relation.Name,
		Parent:   parentField.Model.Name,
		Child:    parentField.RelatedModel().Name,
	}
}

func (f *fakeTx) FilterIDsByParents(ctx context.Context, parentField *datamodel.RelationField, parentIDs []connector.RecordID, filter query.Filter) ([]connector.RecordID, error) {
	if filter == nil {
		return nil, nil
	}
	if len(f.byParentsQueue) == 0 {
		return nil, nil
	}
	head := f.byParentsQueue[0]
	f.byParentsQueue = f.byParentsQueue[1:]
	return head, nil
}

func (f *fakeTx) Dialect() connector.Dialect              { return testDialect{} }
func (f *fakeTx) Strategy() connector.ManyRelatedStrategy { return connector.StrategyRowNumber }
func (f *fakeTx) Commit() error                           { f.committed = true; return nil }
func (f *fakeTx) Rollback() error                         { f.rolledBack = true; return nil }

// fakeConn adapts fakeTx into a pooled connection.
type fakeConn struct {
	*fakeTx
	released bool
}

func (c *fakeConn) StartTransaction(ctx context.Context) (connector.Transaction, error) {
	return c.fakeTx, nil
}

func (c *fakeConn) Release() error {
	c.released = true
	return nil
}

// fakeBackend hands out the same transaction for every checkout.
type fakeBackend struct {
	conn *fakeConn
}

func (b *fakeBackend) GetConnection(ctx context.Context, dbName string) (connector.Connection, error) {
	return b.conn, nil
}

func writeFixture(t *testing.T) *datamodel.Datamodel {
	t.Helper()

	ast, err := parser.Parse(`
model User {
    id    String @id @default(cuid())
    email String @unique
    posts Post[]
}

model Post {
    id     Int    @id
    title  String
    author User?
}
`)
	require.NoError(t, err)
	dm, err := datamodel.Convert(ast)
	require.NoError(t, err)
	require.NoError(t, datamodel.Validate(ast, dm))
	return dm
}

func relationField(t *testing.T, dm *datamodel.Datamodel, model, field string) *datamodel.RelationField {
	t.Helper()
	rf, err := dm.RelationFieldFor(model, field)
	require.NoError(t, err)
	return rf
}

func findStmt(t *testing.T, stmts []connector.Statement, pred func(connector.Statement) bool) int {
	t.Helper()
	for i, stmt := range stmts {
		if pred(stmt) {
			return i
		}
	}
	return -1
}

func sqlContains(sub string) func(connector.Statement) bool {
	return func(s connector.Statement) bool { return strings.Contains(s.SQL, sub) }
}

func argMarker(marker string) func(connector.Statement) bool {
	return func(s connector.Statement) bool { return argsContain(s.Args, marker) }
}

func TestNestedCreate_InsertsChildrenWithParentID(t *testing.T) {
	dm := writeFixture(t)
	tx := newFakeTx()
	rf := relationField(t, dm, "User", "posts")

	var userArgs query.RecordArgs
	userArgs.Set("email", "ada@example.com")

	var postA, postB query.RecordArgs
	postA.Set("title", "a")
	postB.Set("title", "b")

	root := &query.CreateRecord{
		Model: mustModel(t, dm, "User"),
		Args:  userArgs,
		Nested: query.NestedWrites{
			Creates: []*query.NestedCreate{
				{RelationField: rf, Args: postA, TopIsCreate: true},
				{RelationField: rf, Args: postB, TopIsCreate: true},
			},
		},
	}

	result, err := writeExecutor{tx: tx, dm: dm}.execute(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, WriteResultID, result.Kind)
	userID := result.ID.(string)
	assert.NotEmpty(t, userID)

	// exactly one user insert, then one insert per post carrying the new
	// user id through the inline author column
	require.Len(t, tx.stmts, 3)
	assert.Contains(t, tx.stmts[0].SQL, `INSERT INTO "User"`)

	for i, marker := range []string{"a", "b"} {
		stmt := tx.stmts[i+1]
		assert.Contains(t, stmt.SQL, `INSERT INTO "Post"`)
		assert.Contains(t, stmt.SQL, `"author"`)
		assert.Contains(t, stmt.Args, marker)
		assert.Contains(t, stmt.Args, userID)
	}
}

func TestNestedWrites_FixedExecutionOrder(t *testing.T) {
	dm := writeFixture(t)
	tx := newFakeTx()
	rf := relationField(t, dm, "User", "posts")

	tx.idsByValue["u-root"] = "u1"
	for _, n := range []int64{11, 12, 13, 14, 15, 16} {
		tx.idsByValue[n] = n
	}
	tx.byParentsQueue = [][]connector.RecordID{{int64(17)}, {int64(18)}}

	user := mustModel(t, dm, "User")
	post := mustModel(t, dm, "Post")
	idField := func(m *datamodel.Model) *datamodel.Field {
		f, err := m.IDField()
		require.NoError(t, err)
		return f
	}
	finder := func(v int64) *query.RecordFinder {
		return &query.RecordFinder{Model: post, Field: idField(post), Value: v}
	}
	args := func(title string) query.RecordArgs {
		var a query.RecordArgs
		a.Set("title", title)
		return a
	}

	root := &query.UpdateRecord{
		Finder: &query.RecordFinder{Model: user, Field: idField(user), Value: "u-root"},
		Nested: query.NestedWrites{
			Creates:     []*query.NestedCreate{{RelationField: rf, Args: args("t-create")}},
			Updates:     []*query.NestedUpdate{{RelationField: rf, Finder: finder(11), Args: args("t-update")}},
			Upserts:     []*query.NestedUpsert{{RelationField: rf, Finder: finder(12), Update: &query.NestedUpdate{RelationField: rf, Finder: finder(12), Args: args("t-upsert")}}},
			Deletes:     []*query.NestedDelete{{RelationField: rf, Finder: finder(13)}},
			Connects:    []*query.NestedConnect{{RelationField: rf, Finder: finder(14)}},
			Sets:        []*query.NestedSet{{RelationField: rf, Finders: []*query.RecordFinder{finder(15)}}},
			Disconnects: []*query.NestedDisconnect{{RelationField: rf, Finder: finder(16)}},
			UpdateManys: []*query.NestedUpdateMany{{RelationField: rf, Filter: query.Equals(post.FindField("title"), "x"), Args: args("t-updatemany")}},
			DeleteManys: []*query.NestedDeleteMany{{RelationField: rf, Filter: query.Equals(post.FindField("title"), "y")}},
		},
	}

	_, err := writeExecutor{tx: tx, dm: dm}.execute(context.Background(), root)
	require.NoError(t, err)

	deleteOf := func(id int64) func(connector.Statement) bool {
		return func(s connector.Statement) bool {
			return strings.Contains(s.SQL, `DELETE FROM "Post"`) && len(s.Args) == 1 && s.Args[0] == id
		}
	}
	connectOf := func(id int64) func(connector.Statement) bool {
		return func(s connector.Statement) bool {
			return strings.Contains(s.SQL, `SET "author" = ?`) && len(s.Args) == 2 && s.Args[1] == id
		}
	}
	disconnectOf := func(id int64) func(connector.Statement) bool {
		return func(s connector.Statement) bool {
			return strings.Contains(s.SQL, `SET "author" = NULL`) && len(s.Args) == 2 && s.Args[1] == id
		}
	}

	positions := []int{
		findStmt(t, tx.stmts, argMarker("t-create")),
		findStmt(t, tx.stmts, argMarker("t-update")),
		findStmt(t, tx.stmts, argMarker("t-upsert")),
		findStmt(t, tx.stmts, deleteOf(13)),
		findStmt(t, tx.stmts, connectOf(14)),
		findStmt(t, tx.stmts, connectOf(15)),
		findStmt(t, tx.stmts, disconnectOf(16)),
		findStmt(t, tx.stmts, argMarker("t-updatemany")),
		findStmt(t, tx.stmts, deleteOf(18)),
	}

	for i, pos := range positions {
		require.GreaterOrEqual(t, pos, 0, "step %d not found in statement trace", i)
		if i > 0 {
			assert.Greater(t, pos, positions[i-1], "step %d executed out of order", i)
		}
	}
}

func TestUpsert_RoutesOnRecordNotFound(t *testing.T) {
	dm := writeFixture(t)
	user := mustModel(t, dm, "User")
	idField, err := user.IDField()
	require.NoError(t, err)

	var createArgs query.RecordArgs
	createArgs.Set("email", "new@example.com")
	var updateArgs query.RecordArgs
	updateArgs.Set("email", "updated@example.com")

	upsert := func(finderValue any) *query.UpsertRecord {
		finder := &query.RecordFinder{Model: user, Field: idField, Value: finderValue}
		return &query.UpsertRecord{
			Finder: finder,
			Create: &query.CreateRecord{Model: user, Args: createArgs},
			Update: &query.UpdateRecord{Finder: finder, Args: updateArgs},
		}
	}

	t.Run("missing record routes to create", func(t *testing.T) {
		tx := newFakeTx()
		_, err := writeExecutor{tx: tx, dm: dm}.execute(context.Background(), upsert("ghost"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, findStmt(t, tx.stmts, sqlContains(`INSERT INTO "User"`)), 0)
		assert.Equal(t, -1, findStmt(t, tx.stmts, sqlContains(`UPDATE "User"`)))
	})

	t.Run("present record routes to update", func(t *testing.T) {
		tx := newFakeTx()
		tx.idsByValue["u-present"] = "u1"
		_, err := writeExecutor{tx: tx, dm: dm}.execute(context.Background(), upsert("u-present"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, findStmt(t, tx.stmts, sqlContains(`UPDATE "User"`)), 0)
		assert.Equal(t, -1, findStmt(t, tx.stmts, sqlContains(`INSERT INTO "User"`)))
	})
}

func TestNestedUpsert_RoutesOnRecordsNotConnected(t *testing.T) {
	dm := writeFixture(t)
	rf := relationField(t, dm, "User", "posts")
	post := mustModel(t, dm, "Post")
	idField, err := post.IDField()
	require.NoError(t, err)

	var createArgs query.RecordArgs
	createArgs.Set("title", "created")
	var updateArgs query.RecordArgs
	updateArgs.Set("title", "updated")

	finder := &query.RecordFinder{Model: post, Field: idField, Value: int64(42)}
	root := func() *query.CreateRecord {
		var userArgs query.RecordArgs
		userArgs.Set("email", "x@example.com")
		return &query.CreateRecord{
			Model: mustModel(t, dm, "User"),
			Args:  userArgs,
			Nested: query.NestedWrites{
				Upserts: []*query.NestedUpsert{{
					RelationField: rf,
					Finder:        finder,
					Create:        &query.NestedCreate{RelationField: rf, Args: createArgs},
					Update:        &query.NestedUpdate{RelationField: rf, Finder: finder, Args: updateArgs},
				}},
			},
		}
	}

	t.Run("not connected routes to create", func(t *testing.T) {
		tx := newFakeTx()
		_, err := writeExecutor{tx: tx, dm: dm}.execute(context.Background(), root())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, findStmt(t, tx.stmts, argMarker("created")), 0)
	})

	t.Run("connected routes to update", func(t *testing.T) {
		tx := newFakeTx()
		tx.idsByValue[int64(42)] = int64(42)
		_, err := writeExecutor{tx: tx, dm: dm}.execute(context.Background(), root())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, findStmt(t, tx.stmts, argMarker("updated")), 0)
		assert.Equal(t, -1, findStmt(t, tx.stmts, argMarker("created")))
	})
}

func TestExecutor_CommitsOnSuccessAndRollsBackOnFailure(t *testing.T) {
	dm := writeFixture(t)
	rf := relationField(t, dm, "User", "posts")

	build := func() *query.CreateRecord {
		var userArgs query.RecordArgs
		userArgs.Set("email", "ada@example.com")
		var okPost, badPost query.RecordArgs
		okPost.Set("title", "fine")
		badPost.Set("title", "boom")
		return &query.CreateRecord{
			Model: mustModel(t, dm, "User"),
			Args:  userArgs,
			Nested: query.NestedWrites{
				Creates: []*query.NestedCreate{
					{RelationField: rf, Args: okPost, TopIsCreate: true},
					{RelationField: rf, Args: badPost, TopIsCreate: true},
				},
			},
		}
	}

	t.Run("success commits", func(t *testing.T) {
		conn := &fakeConn{fakeTx: newFakeTx()}
		exec := New(&fakeBackend{conn: conn}, dm, "db")

		_, err := exec.Execute(context.Background(), []query.QueryPair{
			{Query: build(), Strategy: query.Serialize{OutputType: "createUser"}},
		})
		require.NoError(t, err)
		assert.True(t, conn.committed)
		assert.False(t, conn.rolledBack)
		assert.True(t, conn.released)
	})

	t.Run("failure rolls back", func(t *testing.T) {
		conn := &fakeConn{fakeTx: newFakeTx()}
		conn.failOnSQL = "boom"
		exec := New(&fakeBackend{conn: conn}, dm, "db")

		_, err := exec.Execute(context.Background(), []query.QueryPair{
			{Query: build(), Strategy: query.Serialize{OutputType: "createUser"}},
		})
		require.Error(t, err)
		assert.False(t, conn.committed)
		assert.True(t, conn.rolledBack)
		assert.True(t, conn.released)
	})
}

func TestDisconnectWithoutSelector(t *testing.T) {
	dm := writeFixture(t)
	rf := relationField(t, dm, "User", "posts")

	t.Run("disconnects the single linked child", func(t *testing.T) {
		tx := newFakeTx()
		tx.idsByValue["u-root"] = "u1"
		tx.singleChild = int64(9)

		user := mustModel(t, dm, "User")
		idField, err := user.IDField()
		require.NoError(t, err)

		root := &query.UpdateRecord{
			Finder: &query.RecordFinder{Model: user, Field: idField, Value: "u-root"},
			Nested: query.NestedWrites{
				Disconnects: []*query.NestedDisconnect{{RelationField: rf}},
			},
		}

		_, err = writeExecutor{tx: tx, dm: dm}.execute(context.Background(), root)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, findStmt(t, tx.stmts, sqlContains(`SET "author" = NULL WHERE "author" = ?`)), 0)
	})

	t.Run("fails when nothing is linked", func(t *testing.T) {
		tx := newFakeTx()
		tx.idsByValue["u-root"] = "u1"

		user := mustModel(t, dm, "User")
		idField, err := user.IDField()
		require.NoError(t, err)

		root := &query.UpdateRecord{
			Finder: &query.RecordFinder{Model: user, Field: idField, Value: "u-root"},
			Nested: query.NestedWrites{
				Disconnects: []*query.NestedDisconnect{{RelationField: rf}},
			},
		}

		_, err = writeExecutor{tx: tx, dm: dm}.execute(context.Background(), root)
		var notConnected *connector.RecordsNotConnectedError
		require.ErrorAs(t, err, &notConnected)
	})
}

func TestDisconnect_RequiredRelationViolates(t *testing.T) {
	ast, err := parser.Parse(`
model User {
    id    String @id @default(cuid())
    posts Post[]
}

model Post {
    id     Int  @id
    author User
}
`)
	require.NoError(t, err)
	dm, err := datamodel.Convert(ast)
	require.NoError(t, err)

	rf := relationField(t, dm, "User", "posts")
	tx := newFakeTx()
	tx.idsByValue["u-root"] = "u1"

	user := mustModel(t, dm, "User")
	idField, err := user.IDField()
	require.NoError(t, err)

	root := &query.UpdateRecord{
		Finder: &query.RecordFinder{Model: user, Field: idField, Value: "u-root"},
		Nested: query.NestedWrites{
			Disconnects: []*query.NestedDisconnect{{RelationField: rf}},
		},
	}

	_, err = writeExecutor{tx: tx, dm: dm}.execute(context.Background(), root)
	var violation *connector.RelationViolationError
	require.ErrorAs(t, err, &violation)
}

func TestDeleteMany_ChecksRelationViolations(t *testing.T) {
	ast, err := parser.Parse(`
model User {
    id    String @id @default(cuid())
    posts Post[]
}

model Post {
    id     Int  @id
    author User
}
`)
	require.NoError(t, err)
	dm, err := datamodel.Convert(ast)
	require.NoError(t, err)

	user := mustModel(t, dm, "User")

	// deleting users that still have required posts pointing at them: the
	// link probe returns a row, so the delete aborts
	tx := newFakeTx()
	tx.byParentsQueue = [][]connector.RecordID{{"u1"}}
	tx.selectIDsResult = []connector.RecordID{"u1"}

	_, err = writeExecutor{tx: tx, dm: dm}.execute(context.Background(),
		&query.DeleteManyRecords{Model: user, Filter: query.Equals(user.FindField("id"), "u1")})
	var violation *connector.RelationViolationError
	require.ErrorAs(t, err, &violation)
}

func mustModel(t *testing.T, dm *datamodel.Datamodel, name string) *datamodel.Model {
	t.Helper()
	m, ok := dm.FindModel(name)
	require.True(t, ok)
	return m
}
