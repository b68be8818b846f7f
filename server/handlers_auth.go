package server

import (
	"errors"
	"time"

	"chatrelay/db"
	"chatrelay/protocol"
)

// decode unmarshals a request body into v. On a malformed body the
// request is answered with 400 when respCmd is set, otherwise dropped.
func (s *Server) decode(conn *Conn, frame *protocol.Frame, respCmd int32, v any) bool {
	if err := protocol.DecodeBody(frame, v); err != nil {
		s.log.Warn("malformed request body", "command", frame.Command, "remoteAddr", conn.RemoteAddr(), "error", err)
		if respCmd != 0 {
			s.fail(conn, respCmd, protocol.StatusBadRequest, "Malformed request")
		}
		return false
	}
	return true
}

func (s *Server) handleRegister(conn *Conn, _ authUser, frame *protocol.Frame) {
	var req protocol.RegisterRequest
	if !s.decode(conn, frame, protocol.CmdRegisterResp, &req) {
		return
	}
	if req.Username == "" || req.PassHash == "" {
		s.fail(conn, protocol.CmdRegisterResp, protocol.StatusBadRequest, "Username and password are required")
		return
	}

	if err := s.db.CreateUser(req.Username, req.PassHash); err != nil {
		if errors.Is(err, db.ErrUsernameExists) {
			s.fail(conn, protocol.CmdRegisterResp, protocol.StatusConflict, "Username already exists")
			return
		}
		s.log.Error("failed to create user", "username", req.Username, "error", err)
		s.fail(conn, protocol.CmdRegisterResp, protocol.StatusServerError, "Registration failed")
		return
	}

	s.log.Info("user registered", "username", req.Username)
	if err := conn.Send(protocol.CmdRegisterResp, protocol.StatusCreated, protocol.StatusBody{Message: "Registered"}); err != nil {
		s.log.Warn("failed to send response", "command", protocol.CmdRegisterResp, "error", err)
	}
}

func (s *Server) handleLogin(conn *Conn, _ authUser, frame *protocol.Frame) {
	var req protocol.LoginRequest
	if !s.decode(conn, frame, protocol.CmdLoginResp, &req) {
		return
	}
	if req.Username == "" || req.PassHash == "" {
		s.fail(conn, protocol.CmdLoginResp, protocol.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := s.db.VerifyUser(req.Username, req.PassHash)
	if err != nil {
		// Unknown username and wrong password are indistinguishable to
		// the caller; account existence is not disclosed before auth.
		if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrInvalidCredentials) {
			s.fail(conn, protocol.CmdLoginResp, protocol.StatusUnauthorized, "Invalid username or password")
			return
		}
		s.log.Error("failed to verify user", "username", req.Username, "error", err)
		s.fail(conn, protocol.CmdLoginResp, protocol.StatusServerError, "Login failed")
		return
	}

	token, err := s.db.CreateSession(user.ID)
	if err != nil {
		s.log.Error("failed to create session", "username", user.Username, "error", err)
		s.fail(conn, protocol.CmdLoginResp, protocol.StatusServerError, "Login failed")
		return
	}

	if err := s.db.SetUserOnline(user.ID, true); err != nil {
		s.log.Error("failed to mark user online", "username", user.Username, "error", err)
	}
	if err := s.db.UpdateLastLogin(user.ID, time.Now()); err != nil {
		s.log.Error("failed to update last login", "username", user.Username, "error", err)
	}

	// A connection that re-authenticates as someone else releases its old
	// identity first, or the registry would keep a stale binding for it.
	if prevID, prevName, ok := conn.identity(); ok && prevID != user.ID {
		if s.registry.Unbind(prevID, prevName, conn) {
			if err := s.db.SetUserOnline(prevID, false); err != nil {
				s.log.Error("failed to mark user offline", "username", prevName, "error", err)
			}
			s.notifyFriends(prevID, protocol.CmdFriendOffline, protocol.PresenceNotify{Username: prevName})
		}
	}

	// A second login takes over the identity. The superseded connection
	// is closed outright; its teardown sees the lost race and leaves the
	// presence state alone.
	if evicted := s.registry.Bind(user.ID, user.Username, conn); evicted != nil {
		s.log.Info("duplicate login, closing previous connection", "username", user.Username, "previousAddr", evicted.RemoteAddr())
		evicted.Close()
	}
	conn.bindIdentity(user.ID, user.Username)

	friends, err := s.db.ListFriends(user.ID)
	if err != nil {
		s.log.Error("failed to list friends", "username", user.Username, "error", err)
	}
	var friendsOnline []string
	for _, friend := range friends {
		if s.registry.IsOnline(friend.ID) {
			friendsOnline = append(friendsOnline, friend.Username)
		}
	}

	s.log.Info("user logged in", "username", user.Username, "remoteAddr", conn.RemoteAddr())
	s.reply(conn, protocol.CmdLoginResp, protocol.LoginResponse{Token: token, FriendsOnline: friendsOnline})

	s.notifyFriends(user.ID, protocol.CmdFriendOnline, protocol.PresenceNotify{Username: user.Username})
}

func (s *Server) handleChangePass(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.ChangePassRequest
	if !s.decode(conn, frame, protocol.CmdChangePassResp, &req) {
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		s.fail(conn, protocol.CmdChangePassResp, protocol.StatusBadRequest, "Old and new passwords are required")
		return
	}

	if err := s.db.ChangePassword(user.id, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, db.ErrInvalidCredentials) {
			s.fail(conn, protocol.CmdChangePassResp, protocol.StatusUnauthorized, "Old password is incorrect")
			return
		}
		s.log.Error("failed to change password", "username", user.name, "error", err)
		s.fail(conn, protocol.CmdChangePassResp, protocol.StatusServerError, "Password change failed")
		return
	}

	s.log.Info("password changed", "username", user.name)
	s.reply(conn, protocol.CmdChangePassResp, protocol.StatusBody{Message: "Password changed"})
}
