package server

import (
	"encoding/json"
	"errors"

	"chatrelay/db"
	"chatrelay/protocol"
)

// authUser is the resolved identity behind a verified token.
type authUser struct {
	id   int64
	name string
}

// route describes one inbound command. respCmd is the command used for
// error replies; zero means fire-and-forget, failures are logged and
// dropped without answering.
type route struct {
	name      string
	needsAuth bool
	respCmd   int32
	handle    func(*Server, *Conn, authUser, *protocol.Frame)
}

func buildRoutes() map[int32]route {
	return map[int32]route{
		protocol.CmdLoginReq:          {"login", false, protocol.CmdLoginResp, (*Server).handleLogin},
		protocol.CmdRegisterReq:       {"register", false, protocol.CmdRegisterResp, (*Server).handleRegister},
		protocol.CmdChangePassReq:     {"change_pass", true, protocol.CmdChangePassResp, (*Server).handleChangePass},
		protocol.CmdFriendAddReq:      {"friend_add", true, 0, (*Server).handleFriendAdd},
		protocol.CmdFriendRespondReq:  {"friend_respond", true, 0, (*Server).handleFriendRespond},
		protocol.CmdFriendListReq:     {"friend_list", true, protocol.CmdFriendListResp, (*Server).handleFriendList},
		protocol.CmdPendingReq:        {"pending_requests", true, protocol.CmdPendingResp, (*Server).handlePending},
		protocol.CmdUnfriendReq:       {"unfriend", true, protocol.CmdUnfriendResp, (*Server).handleUnfriend},
		protocol.CmdMsgPrivateReq:     {"msg_private", true, 0, (*Server).handlePrivateMsg},
		protocol.CmdGroupCreateReq:    {"group_create", true, protocol.CmdGroupCreateResp, (*Server).handleGroupCreate},
		protocol.CmdGroupJoinReq:      {"group_join", true, 0, (*Server).handleGroupJoin},
		protocol.CmdGroupLeaveReq:     {"group_leave", true, 0, (*Server).handleGroupLeave},
		protocol.CmdMsgGroupReq:       {"msg_group", true, 0, (*Server).handleGroupMsg},
		protocol.CmdGroupListReq:      {"group_list", true, protocol.CmdGroupListResp, (*Server).handleGroupList},
		protocol.CmdGroupMembersReq:   {"group_members", true, protocol.CmdGroupMembersResp, (*Server).handleGroupMembers},
		protocol.CmdAllGroupsReq:      {"all_groups", true, protocol.CmdAllGroupsResp, (*Server).handleAllGroups},
		protocol.CmdGroupInviteReq:    {"group_invite", true, protocol.CmdGroupInviteResp, (*Server).handleGroupInvite},
		protocol.CmdFileUploadReq:     {"file_upload", true, protocol.CmdFileResp, (*Server).handleFileUpload},
		protocol.CmdFileDownloadReq:   {"file_download", true, protocol.CmdFileResp, (*Server).handleFileDownload},
		protocol.CmdHistoryPrivateReq: {"history_private", true, protocol.CmdHistoryPrivateResp, (*Server).handleHistoryPrivate},
		protocol.CmdHistoryGroupReq:   {"history_group", true, protocol.CmdHistoryGroupResp, (*Server).handleHistoryGroup},
		protocol.CmdMarkReadReq:       {"mark_read", true, 0, (*Server).handleMarkRead},
		protocol.CmdDeleteMsgReq:      {"delete_message", true, protocol.CmdDeleteMsgResp, (*Server).handleDeleteMsg},
	}
}

func (s *Server) dispatch(conn *Conn, frame *protocol.Frame) {
	rt, ok := s.routes[frame.Command]
	if !ok {
		s.log.Warn("unknown command", "command", frame.Command, "remoteAddr", conn.RemoteAddr())
		return
	}

	var user authUser
	if rt.needsAuth {
		var err error
		user, err = s.authenticate(frame)
		if err != nil {
			s.log.Info("rejected unauthenticated command", "command", rt.name, "remoteAddr", conn.RemoteAddr())
			if rt.respCmd != 0 {
				s.fail(conn, rt.respCmd, protocol.StatusUnauthorized, "Unauthorized")
			}
			return
		}
	}

	rt.handle(s, conn, user, frame)
}

// authenticate pulls the token out of the body and resolves it to a user.
// Every authenticated command carries the token at the top level, so a
// partial decode is enough here; handlers re-decode into their own types.
func (s *Server) authenticate(frame *protocol.Frame) (authUser, error) {
	var probe struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(frame.Body, &probe); err != nil || probe.Token == "" {
		return authUser{}, db.ErrTokenInvalid
	}

	userID, err := s.db.VerifyToken(probe.Token)
	if err != nil {
		return authUser{}, err
	}
	u, err := s.db.GetUserByID(userID)
	if err != nil {
		return authUser{}, err
	}
	return authUser{id: u.ID, name: u.Username}, nil
}

// fail answers a request/response command with an error status.
func (s *Server) fail(conn *Conn, command, status int32, message string) {
	if err := conn.Send(command, status, protocol.StatusBody{Error: message}); err != nil {
		s.log.Warn("failed to send error response", "command", command, "error", err)
	}
}

func (s *Server) reply(conn *Conn, command int32, body any) {
	if err := conn.Send(command, protocol.StatusOK, body); err != nil {
		s.log.Warn("failed to send response", "command", command, "error", err)
	}
}

// statusFor maps store errors onto wire statuses.
func statusFor(err error) int32 {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return protocol.StatusNotFound
	case errors.Is(err, db.ErrUsernameExists), errors.Is(err, db.ErrAlreadyMember):
		return protocol.StatusConflict
	case errors.Is(err, db.ErrInvalidCredentials), errors.Is(err, db.ErrTokenInvalid), errors.Is(err, db.ErrTokenExpired):
		return protocol.StatusUnauthorized
	default:
		return protocol.StatusServerError
	}
}
