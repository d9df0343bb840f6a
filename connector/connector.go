// Package connector defines the capability a database backend exposes to the
// query core, and the SQL builders shared by all SQL backends.
package connector

import (
	"context"

	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// RecordID is a primary-key value: an int64 or a string.
type RecordID = any

// Statement is one parameterized SQL statement.
type Statement struct {
	SQL  string
	Args []any
}

// Result is the outcome of a write statement.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Row is one decoded result row, values in column order.
type Row struct {
	Values []any
}

// ResultSet is the raw outcome of a query statement.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Dialect abstracts per-backend SQL syntax differences used by the builders.
type Dialect interface {
	// Placeholder renders the n-th (1-based) statement parameter.
	Placeholder(n int) string
	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string
	// SupportsReturning reports whether INSERT ... RETURNING works.
	SupportsReturning() bool
	// OnConflictDoNothing wraps an INSERT so conflicting rows are skipped.
	OnConflictDoNothing(insert string) string
	// NoLimit is the LIMIT token meaning "no limit", for offsets without a
	// take value.
	NoLimit() string
	// EmptyValuesClause completes an INSERT that sets no column at all.
	EmptyValuesClause() string
}

// ManyRelatedStrategy selects how related-record reads paginate per parent.
type ManyRelatedStrategy int

const (
	// StrategyRowNumber partitions with a window function (Postgres, SQLite).
	StrategyRowNumber ManyRelatedStrategy = iota
	// StrategyUnionAll emits one subquery per parent id (MySQL).
	StrategyUnionAll
)

// Transactional is the capability a backend exposes: checking out a pooled
// connection to a named database. Checkout suspends while the pool is
// exhausted.
type Transactional interface {
	GetConnection(ctx context.Context, dbName string) (Connection, error)
}

// Connection is an exclusively checked-out pooled connection.
type Connection interface {
	Queryable

	// StartTransaction begins a transaction on the connection.
	StartTransaction(ctx context.Context) (Transaction, error)

	// Release returns the connection to the pool.
	Release() error
}

// Transaction is an open database transaction. Statements issued through it
// are serialized in program order. A transaction dropped without Commit is
// rolled back by the driver.
type Transaction interface {
	Queryable

	Commit() error
	Rollback() error
}

// Queryable runs statements and the id-centric helpers the write engine is
// built on.
type Queryable interface {
	// Query runs a statement and returns its raw result set.
	Query(ctx context.Context, stmt Statement) (*ResultSet, error)

	// Execute runs a statement and returns affected rows.
	Execute(ctx context.Context, stmt Statement) (Result, error)

	// RawJSON runs a raw statement and returns a JSON-shaped value: an array
	// of objects for selects, an affected-row count otherwise.
	RawJSON(ctx context.Context, stmt Statement) (any, error)

	// Filter runs a select and decodes each row per the type identifiers.
	Filter(ctx context.Context, stmt Statement, idents []datamodel.TypeIdentifier) ([]Row, error)

	// FindID resolves a record finder to the record's id.
	FindID(ctx context.Context, finder *query.RecordFinder) (RecordID, error)

	// FilterIDs returns the ids of all records of the model matching filter.
	FilterIDs(ctx context.Context, model *datamodel.Model, filter query.Filter) ([]RecordID, error)

	// SelectIDs runs a single-column id select.
	SelectIDs(ctx context.Context, stmt Statement) ([]RecordID, error)

	// FindIDByParent finds the id of a child connected to parentID,
	// optionally narrowed by a selector. Returns RecordsNotConnectedError
	// when no such child exists.
	FindIDByParent(ctx context.Context, parentField *datamodel.RelationField, parentID RecordID, selector *query.RecordFinder) (RecordID, error)

	// FilterIDsByParents finds ids of all children connected to any of the
	// parent ids, optionally narrowed by a filter.
	FilterIDsByParents(ctx context.Context, parentField *datamodel.RelationField, parentIDs []RecordID, filter query.Filter) ([]RecordID, error)

	// Dialect returns the backend's SQL dialect.
	Dialect() Dialect

	// Strategy returns the backend's many-related read strategy.
	Strategy() ManyRelatedStrategy
}
