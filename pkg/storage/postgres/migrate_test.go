package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		assert.Regexp(t, `^\d{5}_.+\.sql$`, entry.Name())

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "-- +goose Up")
		assert.Contains(t, string(content), "-- +goose Down")
	}
}
