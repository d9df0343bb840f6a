package postgresql

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/zoosky/prisma-engine/drivers/base"
)

// ParseURL validates a postgresql:// URL and extracts the pool size from the
// connection_limit query parameter. The URL itself is handed to lib/pq
// unchanged, minus the pooling parameter.
func ParseURL(raw string) (dsn string, poolSize int, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("invalid postgresql URL: %w", err)
	}

	switch u.Scheme {
	case "postgresql", "postgres":
	default:
		return "", 0, fmt.Errorf("invalid postgresql URL scheme %q", u.Scheme)
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
		u.RawQuery = q.Encode()
	}

	return u.String(), poolSize, nil
}
