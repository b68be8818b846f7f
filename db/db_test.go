package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func mustCreateUser(t *testing.T, database *DB, username string) int64 {
	t.Helper()
	require.NoError(t, database.CreateUser(username, "password123"))
	user, err := database.GetUserByName(username)
	require.NoError(t, err)
	return user.ID
}
