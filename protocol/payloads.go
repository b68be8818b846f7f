package protocol

// Request and response bodies. Field names match the wire contract the
// clients were built against. Every authenticated request carries the bearer
// token in its body.

type LoginRequest struct {
	Username string `json:"username"`
	PassHash string `json:"pass_hash"`
}

type LoginResponse struct {
	Token         string   `json:"token,omitempty"`
	FriendsOnline []string `json:"friends_online,omitempty"`
	Error         string   `json:"error,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	PassHash string `json:"pass_hash"`
}

type ChangePassRequest struct {
	Token       string `json:"token"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// StatusBody is the generic success/error response for commands that carry
// no data beyond the outcome.
type StatusBody struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type PresenceNotify struct {
	Username string `json:"username"`
}

type FriendAddRequest struct {
	Token          string `json:"token"`
	TargetUsername string `json:"target_username"`
}

type FriendReqNotify struct {
	FromUsername string `json:"from_username"`
}

type FriendRespondRequest struct {
	Token        string `json:"token"`
	FromUsername string `json:"from_username"`
	Action       string `json:"action"` // "accept" or "reject"
}

type TokenOnlyRequest struct {
	Token string `json:"token"`
}

type FriendEntry struct {
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

type FriendListResponse struct {
	Friends []FriendEntry `json:"friends"`
}

type PendingResponse struct {
	Requests []string `json:"requests"`
}

type UnfriendRequest struct {
	Token          string `json:"token"`
	FriendUsername string `json:"friend_username"`
}

type PrivateMsgRequest struct {
	Token          string `json:"token"`
	TargetUsername string `json:"target_username"`
	Message        string `json:"message"`
}

type PrivateMsgNotify struct {
	FromUsername string `json:"from_username"`
	Message      string `json:"message"`
	MessageID    int64  `json:"message_id"`
	SentAt       string `json:"sent_at"`
}

type PrivateMsgSentResponse struct {
	MessageID      int64  `json:"message_id"`
	TargetUsername string `json:"target_username"`
}

type GroupCreateRequest struct {
	Token     string `json:"token"`
	GroupName string `json:"group_name"`
}

type GroupCreateResponse struct {
	GroupID   string `json:"group_id,omitempty"`
	GroupName string `json:"group_name,omitempty"`
	Error     string `json:"error,omitempty"`
}

type GroupRequest struct {
	Token   string `json:"token"`
	GroupID string `json:"group_id"`
}

type GroupMemberNotify struct {
	Username string `json:"username"`
	GroupID  string `json:"group_id"`
}

type GroupMsgRequest struct {
	Token   string `json:"token"`
	GroupID string `json:"group_id"`
	Message string `json:"message"`
}

type GroupMsgNotify struct {
	FromUsername string `json:"from_username"`
	GroupID      string `json:"group_id"`
	GroupName    string `json:"group_name"`
	Message      string `json:"message"`
	MessageID    int64  `json:"message_id"`
	SentAt       string `json:"sent_at"`
}

type GroupMsgSentResponse struct {
	MessageID int64  `json:"message_id"`
	GroupID   string `json:"group_id"`
}

type GroupEntry struct {
	GroupID     string `json:"group_id"`
	GroupName   string `json:"group_name"`
	MemberCount int    `json:"member_count,omitempty"`
}

type GroupListResponse struct {
	Groups []GroupEntry `json:"groups"`
}

type MemberEntry struct {
	Username string `json:"username"`
	Online   bool   `json:"online"`
	Role     string `json:"role,omitempty"`
}

type GroupMembersResponse struct {
	GroupID   string        `json:"group_id"`
	GroupName string        `json:"group_name"`
	Members   []MemberEntry `json:"members"`
}

type GroupInviteRequest struct {
	Token    string `json:"token"`
	GroupID  string `json:"group_id"`
	Username string `json:"username"`
}

type GroupInviteNotify struct {
	FromUsername string `json:"from_username"`
	GroupID      string `json:"group_id"`
	GroupName    string `json:"group_name"`
}

type HistoryPrivateRequest struct {
	Token          string `json:"token"`
	TargetUsername string `json:"target_username"`
	Offset         int    `json:"offset"`
	Limit          int    `json:"limit"`
}

type HistoryMessage struct {
	MessageID    int64  `json:"message_id"`
	FromUsername string `json:"from_username"`
	Message      string `json:"message"`
	SentAt       string `json:"sent_at"`
	IsRead       bool   `json:"is_read,omitempty"`
}

type HistoryPrivateResponse struct {
	TargetUsername string           `json:"target_username"`
	TotalCount     int              `json:"total_count"`
	Offset         int              `json:"offset"`
	Messages       []HistoryMessage `json:"messages"`
}

type HistoryGroupRequest struct {
	Token   string `json:"token"`
	GroupID string `json:"group_id"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
}

type HistoryGroupResponse struct {
	GroupID    string           `json:"group_id"`
	GroupName  string           `json:"group_name"`
	TotalCount int              `json:"total_count"`
	Offset     int              `json:"offset"`
	Messages   []HistoryMessage `json:"messages"`
}

type MarkReadRequest struct {
	Token          string `json:"token"`
	SenderUsername string `json:"sender_username"`
}

type MessagesReadNotify struct {
	ReaderUsername string `json:"reader_username"`
}

type DeleteMsgRequest struct {
	Token     string `json:"token"`
	MessageID int64  `json:"message_id,string"`
	ChatType  string `json:"chat_type"` // "private" or "group"
}

type DeleteMsgResponse struct {
	MessageID int64  `json:"message_id,string"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

type MsgDeletedNotify struct {
	MessageID int64  `json:"message_id,string"`
	ChatType  string `json:"chat_type"`
	GroupID   string `json:"group_id,omitempty"`
}

type FileUploadRequest struct {
	Token          string `json:"token"`
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size,string"`
	FileData       string `json:"file_data"` // base64
	TargetUsername string `json:"target_username,omitempty"`
	GroupID        string `json:"group_id,omitempty"`
}

// FileResponse acknowledges an upload (FileData empty) or carries a
// downloaded file (FileData set), mirroring how clients distinguish the two.
type FileResponse struct {
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,string,omitempty"`
	FileData string `json:"file_data,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

type FileDownloadRequest struct {
	Token    string `json:"token"`
	FileName string `json:"file_name"`
}
