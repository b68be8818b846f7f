package db

import (
	"database/sql"
	"time"

	"chatrelay/models"

	"golang.org/x/crypto/bcrypt"
)

func (db *DB) CreateUser(username, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.conn.Exec(
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, string(hashed), now,
	)
	if isUniqueViolation(err) {
		return ErrUsernameExists
	}
	return err
}

// VerifyUser checks the credentials and returns the user on success.
func (db *DB) VerifyUser(username, password string) (models.User, error) {
	user, err := db.GetUserByName(username)
	if err != nil {
		return models.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (db *DB) GetUserByName(username string) (models.User, error) {
	return db.scanUser(db.conn.QueryRow(
		`SELECT user_id, username, password_hash, is_online, COALESCE(last_login, ''), created_at
		 FROM users WHERE username = ?`, username))
}

func (db *DB) GetUserByID(id int64) (models.User, error) {
	return db.scanUser(db.conn.QueryRow(
		`SELECT user_id, username, password_hash, is_online, COALESCE(last_login, ''), created_at
		 FROM users WHERE user_id = ?`, id))
}

func (db *DB) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	var online int
	var lastLogin, createdAt string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &online, &lastLogin, &createdAt)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	u.IsOnline = online != 0
	if lastLogin != "" {
		u.LastLogin, _ = time.Parse(time.RFC3339, lastLogin)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, nil
}

func (db *DB) SetUserOnline(id int64, online bool) error {
	v := 0
	if online {
		v = 1
	}
	_, err := db.conn.Exec("UPDATE users SET is_online = ? WHERE user_id = ?", v, id)
	return err
}

func (db *DB) UpdateLastLogin(id int64, t time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE users SET last_login = ? WHERE user_id = ?",
		t.UTC().Format(time.RFC3339), id,
	)
	return err
}

// ChangePassword verifies the old password before storing the new hash.
func (db *DB) ChangePassword(id int64, oldPassword, newPassword string) error {
	user, err := db.GetUserByID(id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec("UPDATE users SET password_hash = ? WHERE user_id = ?", string(hashed), id)
	return err
}
