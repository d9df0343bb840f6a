// Package base carries the connection pool and the Queryable implementation
// shared by every SQL driver.
package base

import (
	"context"
	"database/sql"

	"github.com/zoosky/prisma-engine/connector"
)

// DefaultPoolSize is the connection count used when the URL does not set one.
const DefaultPoolSize = 10

// Pool is a fixed-size connection pool with back-pressure: Get suspends
// while every connection is checked out. It never grows past its size.
type Pool struct {
	db   *sql.DB
	size int
}

// NewPool caps the database handle at a fixed number of connections.
func NewPool(db *sql.DB, size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	return &Pool{db: db, size: size}
}

// Get checks out one connection exclusively. It blocks until a connection
// frees up or the context is done. A connection abandoned mid-statement is
// discarded by the driver rather than reused in an indeterminate state.
func (p *Pool) Get(ctx context.Context) (*sql.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, &connector.ConnectionError{Cause: err}
	}
	return conn, nil
}

// Size returns the fixed pool size.
func (p *Pool) Size() int {
	return p.size
}

// Close closes the underlying handle and all pooled connections.
func (p *Pool) Close() error {
	return p.db.Close()
}
