package mysql

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zoosky/prisma-engine/drivers/base"
)

// ParseURL converts a mysql:// URL into a go-sql-driver DSN and extracts the
// pool size from the connection_limit query parameter. parseTime is always
// enabled so DATETIME columns scan into time.Time.
func ParseURL(raw string) (dsn string, poolSize int, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("invalid mysql URL: %w", err)
	}
	if u.Scheme != "mysql" {
		return "", 0, fmt.Errorf("invalid mysql URL scheme %q", u.Scheme)
	}

	poolSize = base.DefaultPoolSize
	q := u.Query()
	if limit := q.Get("connection_limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return "", 0, fmt.Errorf("invalid connection_limit %q", limit)
		}
		poolSize = n
		q.Del("connection_limit")
	}
	q.Set("parseTime", "true")

	host := u.Host
	if !strings.Contains(host, ":") {
		host += ":3306"
	}

	var credentials string
	if u.User != nil {
		credentials = u.User.Username()
		if password, ok := u.User.Password(); ok {
			credentials += ":" + password
		}
		credentials += "@"
	}

	database := strings.TrimPrefix(u.Path, "/")
	dsn = fmt.Sprintf("%stcp(%s)/%s?%s", credentials, host, database, q.Encode())
	return dsn, poolSize, nil
}
