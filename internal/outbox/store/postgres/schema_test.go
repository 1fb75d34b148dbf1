package postgres_test

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// The store's claim and bookkeeping statements reference these columns; a
// migration that drops or renames one breaks every dispatcher tick.
func TestOutboxMigrationDeclaresStoreColumns(t *testing.T) {
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "..", "db", "migrations", "001_init.sql")
	schema, err := os.ReadFile(path)
	require.NoError(t, err)

	table := regexp.MustCompile(`(?s)CREATE TABLE outbox_messages \((.*?)\);`).FindSubmatch(schema)
	require.NotNil(t, table, "outbox_messages table missing from migration")

	for _, column := range []string{
		"id", "aggregate_type", "aggregate_id", "event_type", "payload",
		"correlation_id", "idempotency_key", "status", "retry_count",
		"last_error", "created_at", "claimed_at", "processed_at", "next_retry_at",
	} {
		require.Regexp(t, `(?m)^\s*`+column+`\s`, string(table[1]), "outbox_messages is missing column %q", column)
	}
}
