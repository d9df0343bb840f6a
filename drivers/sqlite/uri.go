package sqlite

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zoosky/prisma-engine/drivers/base"
)

// ParseURL extracts the database file path from a sqlite URL. Accepted
// forms: sqlite://path/to.db, file:path/to.db, or a bare path. The
// connection_limit query parameter sets the pool size.
func ParseURL(raw string) (filePath string, poolSize int, err error) {
	poolSize = base.DefaultPoolSize

	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		raw = strings.TrimPrefix(raw, "sqlite://")
	case strings.HasPrefix(raw, "file:"):
		raw = strings.TrimPrefix(raw, "file:")
	}

	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		q, parseErr := url.ParseQuery(raw[idx+1:])
		if parseErr != nil {
			return "", 0, fmt.Errorf("invalid sqlite URL query: %w", parseErr)
		}
		if limit := q.Get("connection_limit"); limit != "" {
			n, convErr := strconv.Atoi(limit)
			if convErr != nil || n <= 0 {
				return "", 0, fmt.Errorf("invalid connection_limit %q", limit)
			}
			poolSize = n
		}
		raw = raw[:idx]
	}

	if raw == "" {
		return "", 0, fmt.Errorf("sqlite URL is missing a file path")
	}
	return raw, poolSize, nil
}
