package db

import (
	"database/sql"

	"chatrelay/models"
)

// CreateGroup inserts the group and enrolls the creator as its first member
// with the admin role.
func (db *DB) CreateGroup(name string, creatorID int64) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO groups (group_name, creator_id) VALUES (?, ?)", name, creatorID,
	)
	if err != nil {
		return 0, err
	}
	groupID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		"INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, ?)",
		groupID, creatorID, models.RoleAdmin,
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return groupID, nil
}

func (db *DB) AddGroupMember(groupID, userID int64, role string) error {
	_, err := db.conn.Exec(
		"INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, ?)",
		groupID, userID, role,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyMember
	}
	return err
}

func (db *DB) RemoveGroupMember(groupID, userID int64) error {
	res, err := db.conn.Exec(
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID,
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

// DeleteGroup removes the group together with its memberships and messages.
func (db *DB) DeleteGroup(groupID int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM group_members WHERE group_id = ?",
		"DELETE FROM group_messages WHERE group_id = ?",
		"DELETE FROM groups WHERE group_id = ?",
	} {
		if _, err := tx.Exec(q, groupID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (db *DB) IsGroupMember(groupID, userID int64) (bool, error) {
	var one int
	err := db.conn.QueryRow(
		"SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (db *DB) GroupMembers(groupID int64) ([]models.GroupMember, error) {
	rows, err := db.conn.Query(
		`SELECT gm.group_id, gm.user_id, u.username, gm.role
		 FROM group_members gm
		 JOIN users u ON u.user_id = gm.user_id
		 WHERE gm.group_id = ?
		 ORDER BY u.username`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Username, &m.Role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (db *DB) MemberCount(groupID int64) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM group_members WHERE group_id = ?", groupID,
	).Scan(&count)
	return count, err
}

// UserGroups lists the groups a user belongs to.
func (db *DB) UserGroups(userID int64) ([]models.GroupInfo, error) {
	return db.queryGroupInfos(
		`SELECT g.group_id, g.group_name,
			(SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.group_id)
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.group_id
		 WHERE gm.user_id = ?
		 ORDER BY g.group_id`,
		userID,
	)
}

// AllGroups lists every group with its member count, for discovery.
func (db *DB) AllGroups() ([]models.GroupInfo, error) {
	return db.queryGroupInfos(
		`SELECT g.group_id, g.group_name,
			(SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.group_id)
		 FROM groups g
		 ORDER BY g.group_id`,
	)
}

func (db *DB) queryGroupInfos(query string, args ...any) ([]models.GroupInfo, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.GroupInfo
	for rows.Next() {
		var g models.GroupInfo
		if err := rows.Scan(&g.ID, &g.Name, &g.MemberCount); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (db *DB) GroupName(groupID int64) (string, error) {
	var name string
	err := db.conn.QueryRow(
		"SELECT group_name FROM groups WHERE group_id = ?", groupID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return name, err
}
