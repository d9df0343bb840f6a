package base

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/zoosky/prisma-engine/connector"
)

// Connection is an exclusively checked-out pooled connection.
type Connection struct {
	Queryable
	conn *sql.Conn
}

// NewConnection wraps a checked-out connection.
func NewConnection(conn *sql.Conn, dialect connector.Dialect, strategy connector.ManyRelatedStrategy, log zerolog.Logger) *Connection {
	return &Connection{
		Queryable: NewQueryable(conn, dialect, strategy, log),
		conn:      conn,
	}
}

// StartTransaction begins a transaction on this connection. Statements on
// the transaction are serialized in program order.
func (c *Connection) StartTransaction(ctx context.Context) (connector.Transaction, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &connector.ConnectionError{Cause: err}
	}
	c.log.Debug().Msg("transaction started")
	return &Tx{
		Queryable: NewQueryable(tx, c.dialect, c.strategy, c.log),
		tx:        tx,
	}, nil
}

// Release returns the connection to the pool.
func (c *Connection) Release() error {
	return c.conn.Close()
}

// Tx is an open transaction over a pooled connection.
type Tx struct {
	Queryable
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	t.log.Debug().Msg("transaction committed")
	if err := t.tx.Commit(); err != nil {
		return &connector.ConnectionError{Cause: err}
	}
	return nil
}

// Rollback rolls the transaction back. Rolling back an already-finished
// transaction is a no-op.
func (t *Tx) Rollback() error {
	t.log.Debug().Msg("transaction rolled back")
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return &connector.ConnectionError{Cause: err}
	}
	return nil
}

var (
	_ connector.Connection  = (*Connection)(nil)
	_ connector.Transaction = (*Tx)(nil)
)
