package db

import (
	"database/sql"

	"chatrelay/models"
)

func orderPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// RequestFriendship inserts a pending row for the pair. It is idempotent:
// if any row already exists for the pair (pending or accepted), or the two
// ids are equal, nothing happens and created is false.
func (db *DB) RequestFriendship(requesterID, targetID int64) (created bool, err error) {
	if requesterID == targetID {
		return false, nil
	}
	id1, id2 := orderPair(requesterID, targetID)

	_, err = db.conn.Exec(
		`INSERT INTO friendships (user_id1, user_id2, requester_id, status)
		 VALUES (?, ?, ?, ?)`,
		id1, id2, requesterID, models.FriendshipPending,
	)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AcceptFriendship flips the pair's row to accepted.
func (db *DB) AcceptFriendship(userA, userB int64) error {
	id1, id2 := orderPair(userA, userB)
	res, err := db.conn.Exec(
		"UPDATE friendships SET status = ? WHERE user_id1 = ? AND user_id2 = ?",
		models.FriendshipAccepted, id1, id2,
	)
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

// DeleteFriendship removes the pair's row. Reject and unfriend share this
// primitive.
func (db *DB) DeleteFriendship(userA, userB int64) error {
	id1, id2 := orderPair(userA, userB)
	res, err := db.conn.Exec(
		"DELETE FROM friendships WHERE user_id1 = ? AND user_id2 = ?", id1, id2,
	)
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

func (db *DB) AreFriends(userA, userB int64) (bool, error) {
	id1, id2 := orderPair(userA, userB)
	var one int
	err := db.conn.QueryRow(
		"SELECT 1 FROM friendships WHERE user_id1 = ? AND user_id2 = ? AND status = ?",
		id1, id2, models.FriendshipAccepted,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListFriends returns the accepted friends of a user.
func (db *DB) ListFriends(userID int64) ([]models.User, error) {
	rows, err := db.conn.Query(
		`SELECT u.user_id, u.username FROM friendships f
		 JOIN users u ON u.user_id = CASE WHEN f.user_id1 = ? THEN f.user_id2 ELSE f.user_id1 END
		 WHERE (f.user_id1 = ? OR f.user_id2 = ?) AND f.status = ?
		 ORDER BY u.username`,
		userID, userID, userID, models.FriendshipAccepted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		friends = append(friends, u)
	}
	return friends, rows.Err()
}

// ListPendingRequesters returns usernames of users who requested friendship
// with userID and have not been answered yet.
func (db *DB) ListPendingRequesters(userID int64) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT u.username FROM friendships f
		 JOIN users u ON u.user_id = f.requester_id
		 WHERE (f.user_id1 = ? OR f.user_id2 = ?)
		   AND f.requester_id != ? AND f.status = ?
		 ORDER BY u.username`,
		userID, userID, userID, models.FriendshipPending,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// HasPendingRequest reports whether requester has an unanswered request
// towards target.
func (db *DB) HasPendingRequest(requesterID, targetID int64) (bool, error) {
	id1, id2 := orderPair(requesterID, targetID)
	var one int
	err := db.conn.QueryRow(
		`SELECT 1 FROM friendships
		 WHERE user_id1 = ? AND user_id2 = ? AND requester_id = ? AND status = ?`,
		id1, id2, requesterID, models.FriendshipPending,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
