package server

import (
	"errors"

	"chatrelay/db"
	"chatrelay/protocol"
)

func (s *Server) handleFriendAdd(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.FriendAddRequest
	if !s.decode(conn, frame, 0, &req) {
		return
	}

	target, err := s.db.GetUserByName(req.TargetUsername)
	if err != nil {
		s.log.Info("friend request to unknown user dropped", "from", user.name, "target", req.TargetUsername)
		return
	}
	if target.ID == user.id {
		return
	}

	created, err := s.db.RequestFriendship(user.id, target.ID)
	if err != nil {
		s.log.Error("failed to store friend request", "from", user.name, "target", target.Username, "error", err)
		return
	}
	if !created {
		// Repeat request against an existing row, nothing to do.
		return
	}

	s.log.Info("friend request", "from", user.name, "target", target.Username)
	s.notifyUsername(target.Username, protocol.CmdFriendReqNotify, protocol.FriendReqNotify{FromUsername: user.name})
}

func (s *Server) handleFriendRespond(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.FriendRespondRequest
	if !s.decode(conn, frame, 0, &req) {
		return
	}

	requester, err := s.db.GetUserByName(req.FromUsername)
	if err != nil {
		return
	}

	pending, err := s.db.HasPendingRequest(requester.ID, user.id)
	if err != nil {
		s.log.Error("failed to check pending request", "from", requester.Username, "target", user.name, "error", err)
		return
	}
	if !pending {
		s.log.Info("response to nonexistent friend request dropped", "from", requester.Username, "target", user.name)
		return
	}

	switch req.Action {
	case "accept":
		if err := s.db.AcceptFriendship(requester.ID, user.id); err != nil {
			s.log.Error("failed to accept friendship", "from", requester.Username, "target", user.name, "error", err)
			return
		}
		s.log.Info("friend request accepted", "from", requester.Username, "by", user.name)
		s.notifyUsername(requester.Username, protocol.CmdFriendAcceptNotify, protocol.PresenceNotify{Username: user.name})
	case "reject":
		if err := s.db.DeleteFriendship(requester.ID, user.id); err != nil && !errors.Is(err, db.ErrNotFound) {
			s.log.Error("failed to reject friendship", "from", requester.Username, "target", user.name, "error", err)
		}
		s.log.Info("friend request rejected", "from", requester.Username, "by", user.name)
	default:
		s.log.Warn("unknown friend respond action dropped", "action", req.Action, "username", user.name)
	}
}

func (s *Server) handleFriendList(conn *Conn, user authUser, frame *protocol.Frame) {
	friends, err := s.db.ListFriends(user.id)
	if err != nil {
		s.log.Error("failed to list friends", "username", user.name, "error", err)
		s.fail(conn, protocol.CmdFriendListResp, protocol.StatusServerError, "Failed to load friends")
		return
	}

	entries := make([]protocol.FriendEntry, 0, len(friends))
	for _, friend := range friends {
		entries = append(entries, protocol.FriendEntry{
			Username: friend.Username,
			Online:   s.registry.IsOnline(friend.ID),
		})
	}
	s.reply(conn, protocol.CmdFriendListResp, protocol.FriendListResponse{Friends: entries})
}

func (s *Server) handlePending(conn *Conn, user authUser, frame *protocol.Frame) {
	requesters, err := s.db.ListPendingRequesters(user.id)
	if err != nil {
		s.log.Error("failed to list pending requests", "username", user.name, "error", err)
		s.fail(conn, protocol.CmdPendingResp, protocol.StatusServerError, "Failed to load requests")
		return
	}
	if requesters == nil {
		requesters = []string{}
	}
	s.reply(conn, protocol.CmdPendingResp, protocol.PendingResponse{Requests: requesters})
}

func (s *Server) handleUnfriend(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.UnfriendRequest
	if !s.decode(conn, frame, protocol.CmdUnfriendResp, &req) {
		return
	}

	other, err := s.db.GetUserByName(req.FriendUsername)
	if err != nil {
		s.fail(conn, protocol.CmdUnfriendResp, protocol.StatusNotFound, "User not found")
		return
	}

	if err := s.db.DeleteFriendship(user.id, other.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.fail(conn, protocol.CmdUnfriendResp, protocol.StatusNotFound, "Not friends")
			return
		}
		s.log.Error("failed to delete friendship", "username", user.name, "friend", other.Username, "error", err)
		s.fail(conn, protocol.CmdUnfriendResp, protocol.StatusServerError, "Unfriend failed")
		return
	}

	s.log.Info("unfriended", "username", user.name, "friend", other.Username)
	s.reply(conn, protocol.CmdUnfriendResp, protocol.StatusBody{Message: "Unfriended"})
}
