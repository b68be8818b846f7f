package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	database := newTestDB(t)
	id := mustCreateUser(t, database, "alice")

	token, err := database.CreateSession(id)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resolved, err := database.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestVerifyTokenUnknown(t *testing.T) {
	database := newTestDB(t)

	_, err := database.VerifyToken("no-such-token")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

// A fresh login invalidates the previous token.
func TestCreateSessionRotates(t *testing.T) {
	database := newTestDB(t)
	id := mustCreateUser(t, database, "alice")

	first, err := database.CreateSession(id)
	require.NoError(t, err)
	second, err := database.CreateSession(id)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = database.VerifyToken(first)
	require.ErrorIs(t, err, ErrTokenInvalid)

	resolved, err := database.VerifyToken(second)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestDeleteSession(t *testing.T) {
	database := newTestDB(t)
	id := mustCreateUser(t, database, "alice")

	token, err := database.CreateSession(id)
	require.NoError(t, err)

	require.NoError(t, database.DeleteSession(token))
	_, err = database.VerifyToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyTokenExpired(t *testing.T) {
	database := newTestDB(t)
	id := mustCreateUser(t, database, "alice")

	token, err := database.CreateSession(id)
	require.NoError(t, err)

	// Age the session past its TTL directly in the store.
	_, err = database.conn.Exec(
		"UPDATE sessions SET expires_at = '2000-01-01T00:00:00Z' WHERE token = ?", token,
	)
	require.NoError(t, err)

	_, err = database.VerifyToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)

	// The expired row is removed, a retry sees an unknown token.
	_, err = database.VerifyToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestCleanExpiredSessions(t *testing.T) {
	database := newTestDB(t)
	alice := mustCreateUser(t, database, "alice")
	bob := mustCreateUser(t, database, "bob")

	stale, err := database.CreateSession(alice)
	require.NoError(t, err)
	fresh, err := database.CreateSession(bob)
	require.NoError(t, err)

	_, err = database.conn.Exec(
		"UPDATE sessions SET expires_at = '2000-01-01T00:00:00Z' WHERE token = ?", stale,
	)
	require.NoError(t, err)

	removed, err := database.CleanExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = database.VerifyToken(fresh)
	require.NoError(t, err)
}
