// Package mysql implements the Transactional capability over
// go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/drivers/base"
	"github.com/zoosky/prisma-engine/registry"
)

func init() {
	registry.Register("mysql", func(url string) (connector.Transactional, error) {
		return New(url)
	})
}

// Driver is the MySQL backend.
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

	db, err := sql.Open("mysql", dsn)
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

// GetConnection checks a connection out of the pool.
func (d *Driver) GetConnection(ctx context.Context, dbName string) (connector.Connection, error) {
	conn, err := d.pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	return base.NewConnection(conn, Dialect{}, connector.StrategyUnionAll, d.log.With().Str("db", dbName).Logger()), nil
}

// Close shuts the pool down.
func (d *Driver) Close() error {
	return d.pool.Close()
}

// Dialect is the MySQL SQL dialect.
type Dialect struct{}

func (Dialect) Placeholder(n int) string {
	return "?"
}

func (Dialect) QuoteIdentifier(name string) string {
	return "`" + name + "`"
}

func (Dialect) SupportsReturning() bool {
	return false
}

func (Dialect) OnConflictDoNothing(insert string) string {
	if strings.HasPrefix(insert, "INSERT ") {
		return "INSERT IGNORE " + strings.TrimPrefix(insert, "INSERT ")
	}
	return insert
}

func (Dialect) EmptyValuesClause() string {
	return "() VALUES ()"
}

func (Dialect) NoLimit() string {
	// MySQL has no LIMIT ALL; the manual suggests a very large row count.
	return "18446744073709551615"
}

var _ connector.Transactional = (*Driver)(nil)
