package mb_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func openRaw(t *testing.T, filePath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filePath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
