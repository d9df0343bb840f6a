package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoosky/prisma-engine/drivers/base"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		path string
	}{
		{"sqlite scheme", "sqlite://data/dev.db", "data/dev.db"},
		{"file scheme", "file:dev.db", "dev.db"},
		{"bare path", "/tmp/dev.db", "/tmp/dev.db"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path, poolSize, err := ParseURL(test.url)
			require.NoError(t, err)
			assert.Equal(t, test.path, path)
			assert.Equal(t, base.DefaultPoolSize, poolSize)
		})
	}
}

func TestParseURL_ConnectionLimit(t *testing.T) {
	path, poolSize, err := ParseURL("sqlite://dev.db?connection_limit=1")
	require.NoError(t, err)
	assert.Equal(t, "dev.db", path)
	assert.Equal(t, 1, poolSize)
}

func TestParseURL_Errors(t *testing.T) {
	_, _, err := ParseURL("")
	assert.Error(t, err)

	_, _, err = ParseURL("sqlite://dev.db?connection_limit=-1")
	assert.Error(t, err)
}

func TestDialect(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, "?", d.Placeholder(1))
	assert.Equal(t, `"User"`, d.QuoteIdentifier("User"))
	assert.True(t, d.SupportsReturning())
	assert.Equal(t, "-1", d.NoLimit())
}
