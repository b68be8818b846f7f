package models

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsOnline     bool
	LastLogin    time.Time
	CreatedAt    time.Time
}

type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
)

// Friendship is stored with the lower user id first so the unordered pair is
// unique. RequesterID records which side initiated the request.
type Friendship struct {
	UserID1     int64
	UserID2     int64
	RequesterID int64
	Status      string
}

type Group struct {
	ID        int64
	Name      string
	CreatorID int64
}

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type GroupMember struct {
	GroupID  int64
	UserID   int64
	Username string
	Role     string
}

// GroupInfo is the listing view of a group.
type GroupInfo struct {
	ID          int64
	Name        string
	MemberCount int
}

type PrivateMessage struct {
	ID         int64
	FromUserID int64
	FromName   string
	ToUserID   int64
	Text       string
	SentAt     time.Time
	IsRead     bool
}

type GroupMessage struct {
	ID         int64
	GroupID    int64
	FromUserID int64
	FromName   string
	Text       string
	SentAt     time.Time
}
