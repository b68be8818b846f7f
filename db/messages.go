package db

import (
	"database/sql"
	"time"

	"chatrelay/models"
)

// SavePrivateMessage persists the message and returns its id. Persistence
// happens before any delivery attempt, so history can never miss a message
// that was sent.
func (db *DB) SavePrivateMessage(fromID, toID int64, text string, sentAt time.Time) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO private_messages (from_user_id, to_user_id, message_text, sent_at)
		 VALUES (?, ?, ?, ?)`,
		fromID, toID, text, sentAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) SaveGroupMessage(groupID, fromID int64, text string, sentAt time.Time) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO group_messages (group_id, from_user_id, message_text, sent_at)
		 VALUES (?, ?, ?, ?)`,
		groupID, fromID, text, sentAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// PrivateHistory returns one page of the conversation between two users,
// newest first, together with the conversation's total message count.
func (db *DB) PrivateHistory(userA, userB int64, offset, limit int) ([]models.PrivateMessage, int, error) {
	var total int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM private_messages
		 WHERE (from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)`,
		userA, userB, userB, userA,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		`SELECT m.message_id, m.from_user_id, u.username, m.to_user_id, m.message_text, m.sent_at, m.is_read
		 FROM private_messages m
		 JOIN users u ON u.user_id = m.from_user_id
		 WHERE (m.from_user_id = ? AND m.to_user_id = ?) OR (m.from_user_id = ? AND m.to_user_id = ?)
		 ORDER BY m.message_id DESC
		 LIMIT ? OFFSET ?`,
		userA, userB, userB, userA, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []models.PrivateMessage
	for rows.Next() {
		var m models.PrivateMessage
		var sentAt string
		var read int
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.FromName, &m.ToUserID, &m.Text, &sentAt, &read); err != nil {
			return nil, 0, err
		}
		m.SentAt, _ = time.Parse(time.RFC3339, sentAt)
		m.IsRead = read != 0
		messages = append(messages, m)
	}
	return messages, total, rows.Err()
}

func (db *DB) GroupHistory(groupID int64, offset, limit int) ([]models.GroupMessage, int, error) {
	var total int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM group_messages WHERE group_id = ?", groupID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		`SELECT m.message_id, m.group_id, m.from_user_id, u.username, m.message_text, m.sent_at
		 FROM group_messages m
		 JOIN users u ON u.user_id = m.from_user_id
		 WHERE m.group_id = ?
		 ORDER BY m.message_id DESC
		 LIMIT ? OFFSET ?`,
		groupID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []models.GroupMessage
	for rows.Next() {
		var m models.GroupMessage
		var sentAt string
		if err := rows.Scan(&m.ID, &m.GroupID, &m.FromUserID, &m.FromName, &m.Text, &sentAt); err != nil {
			return nil, 0, err
		}
		m.SentAt, _ = time.Parse(time.RFC3339, sentAt)
		messages = append(messages, m)
	}
	return messages, total, rows.Err()
}

// MarkMessagesRead flags every unread message from sender to reader and
// returns how many rows changed.
func (db *DB) MarkMessagesRead(readerID, senderID int64) (int64, error) {
	res, err := db.conn.Exec(
		`UPDATE private_messages SET is_read = 1
		 WHERE from_user_id = ? AND to_user_id = ? AND is_read = 0`,
		senderID, readerID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) GetPrivateMessage(id int64) (models.PrivateMessage, error) {
	var m models.PrivateMessage
	var sentAt string
	var read int
	err := db.conn.QueryRow(
		`SELECT message_id, from_user_id, to_user_id, message_text, sent_at, is_read
		 FROM private_messages WHERE message_id = ?`, id,
	).Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Text, &sentAt, &read)
	if err == sql.ErrNoRows {
		return models.PrivateMessage{}, ErrNotFound
	}
	if err != nil {
		return models.PrivateMessage{}, err
	}
	m.SentAt, _ = time.Parse(time.RFC3339, sentAt)
	m.IsRead = read != 0
	return m, nil
}

func (db *DB) GetGroupMessage(id int64) (models.GroupMessage, error) {
	var m models.GroupMessage
	var sentAt string
	err := db.conn.QueryRow(
		`SELECT message_id, group_id, from_user_id, message_text, sent_at
		 FROM group_messages WHERE message_id = ?`, id,
	).Scan(&m.ID, &m.GroupID, &m.FromUserID, &m.Text, &sentAt)
	if err == sql.ErrNoRows {
		return models.GroupMessage{}, ErrNotFound
	}
	if err != nil {
		return models.GroupMessage{}, err
	}
	m.SentAt, _ = time.Parse(time.RFC3339, sentAt)
	return m, nil
}

func (db *DB) DeletePrivateMessage(id int64) error {
	res, err := db.conn.Exec("DELETE FROM private_messages WHERE message_id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteGroupMessage(id int64) error {
	res, err := db.conn.Exec("DELETE FROM group_messages WHERE message_id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
