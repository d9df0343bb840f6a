// Package sqlite implements the Transactional capability over
// mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/drivers/base"
	"github.com/zoosky/prisma-engine/registry"
)

func init() {
	registry.Register("sqlite", func(url string) (connector.Transactional, error) {
		return New(url)
	})
}

// Driver is the SQLite backend. It carries the database file path; named
// databases are ATTACHed per checkout.
type Driver struct {
	pool     *base.Pool
	filePath string
	log      zerolog.Logger
}

// New opens a fixed-size pool over the database file.
func New(url string) (*Driver, error) {
	filePath, poolSize, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, &connector.ConnectionError{Cause: err}
	}

	return &Driver{
		pool:     base.NewPool(db, poolSize),
		filePath: filePath,
		log:      zerolog.Nop(),
	}, nil
}

// WithLogger attaches a logger for statement-level debug logging.
func (d *Driver) WithLogger(log zerolog.Logger) *Driver {
	d.log = log
	return d
}

// FilePath returns the database file path.
func (d *Driver) FilePath() string {
	return d.filePath
}

// GetConnection checks a connection out of the pool, attaches the named
// database and turns foreign-key enforcement on. Both run on every checkout
// because the pool hands back arbitrary physical connections.
func (d *Driver) GetConnection(ctx context.Context, dbName string) (connector.Connection, error) {
	conn, err := d.pool.Get(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, &connector.ConnectionError{Cause: err}
	}

	attach := fmt.Sprintf("ATTACH DATABASE '%s' AS %s", d.filePath, quoteIdent(dbName))
	if _, err := conn.ExecContext(ctx, attach); err != nil && !isAlreadyAttached(err) {
		conn.Close()
		return nil, &connector.ConnectionError{Cause: err}
	}

	return base.NewConnection(conn, Dialect{}, connector.StrategyRowNumber, d.log.With().Str("db", dbName).Logger()), nil
}

func isAlreadyAttached(err error) bool {
	return strings.Contains(err.Error(), "already in use")
}

// Close shuts the pool down.
func (d *Driver) Close() error {
	return d.pool.Close()
}

// Dialect is the SQLite SQL dialect.
type Dialect struct{}

func (Dialect) Placeholder(n int) string {
	return "?"
}

func (Dialect) QuoteIdentifier(name string) string {
	return quoteIdent(name)
}

func (Dialect) SupportsReturning() bool {
	return true
}

func (Dialect) OnConflictDoNothing(insert string) string {
	return insert + " ON CONFLICT DO NOTHING"
}

func (Dialect) EmptyValuesClause() string {
	return "DEFAULT VALUES"
}

func (Dialect) NoLimit() string {
	return "-1"
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

var _ connector.Transactional = (*Driver)(nil)
