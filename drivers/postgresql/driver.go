// Package postgresql implements the Transactional capability over lib/pq.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/drivers/base"
	"github.com/zoosky/prisma-engine/registry"
)

func init() {
	registry.Register("postgresql", func(url string) (connector.Transactional, error) {
		return New(url)
	})
}

// Driver is the PostgreSQL backend.
type Driver struct {
	pool *base.Pool
	log  zerolog.Logger
}

// New opens a fixed-size pool against the given connection URL.
func New(url string) (*Driver, error) {
	dsn, poolSize, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &connector.ConnectionError{Cause: err}
	}

	return &Driver{
		pool: base.NewPool(db, poolSize),
		log:  zerolog.Nop(),
	}, nil
}

// WithLogger attaches a logger for statement-level debug logging.
func (d *Driver) WithLogger(log zerolog.Logger) *Driver {
	d.log = log
	return d
}

// GetConnection checks a connection out of the pool. Postgres selects the
// database through the connection URL, so dbName is informational here.
func (d *Driver) GetConnection(ctx context.Context, dbName string) (connector.Connection, error) {
	conn, err := d.pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	return base.NewConnection(conn, Dialect{}, connector.StrategyRowNumber, d.log.With().Str("db", dbName).Logger()), nil
}

// Close shuts the pool down.
func (d *Driver) Close() error {
	return d.pool.Close()
}

// Dialect is the PostgreSQL SQL dialect.
type Dialect struct{}

func (Dialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (Dialect) QuoteIdentifier(name string) string {
	return `"` + name + `"`
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
	return "ALL"
}

var _ connector.Transactional = (*Driver)(nil)
