package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const sessionTTL = 24 * time.Hour

// CreateSession issues a fresh token for the user. Any previously issued
// session is deleted first, so at most one token per user verifies.
func (db *DB) CreateSession(userID int64) (string, error) {
	token := uuid.NewString()
	expires := time.Now().UTC().Add(sessionTTL).Format(time.RFC3339)

	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return "", err
	}
	if _, err := tx.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expires,
	); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return token, nil
}

// VerifyToken resolves a token to a user id. Expired tokens are rejected
// with ErrTokenExpired and removed.
func (db *DB) VerifyToken(token string) (int64, error) {
	var userID int64
	var expiresStr string
	err := db.conn.QueryRow(
		"SELECT user_id, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&userID, &expiresStr)
	if err == sql.ErrNoRows {
		return 0, ErrTokenInvalid
	}
	if err != nil {
		return 0, err
	}

	expires, err := time.Parse(time.RFC3339, expiresStr)
	if err != nil || time.Now().UTC().After(expires) {
		db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
		return 0, ErrTokenExpired
	}
	return userID, nil
}

func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

func (db *DB) CleanExpiredSessions() (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
