package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	raw, err := Migrations.ReadFile(name)
	require.NoError(t, err)
	return string(raw)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := Migrations.ReadDir(".")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "00001_create_users.sql")
	assert.Contains(t, names, "00002_create_messages.sql")
}

// Clients may supply their own message ids for idempotent retries, and those
// ids are opaque strings, not necessarily UUIDs. The messages schema must not
// be stricter than the in-memory backend.
func TestMessagesSchema_AcceptsArbitraryMessageIDs(t *testing.T) {
	schema := readMigration(t, "00002_create_messages.sql")

	assert.Contains(t, schema, "id               text NOT NULL")
	assert.NotContains(t, schema, "uuid")
}
