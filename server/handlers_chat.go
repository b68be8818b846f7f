package server

import (
	"errors"
	"time"

	"chatrelay/db"
	"chatrelay/protocol"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

func clampHistory(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return offset, limit
}

// handlePrivateMsg persists the message, then delivers. The recipient
// only ever sees a message that already has a row behind it, so history
// can never miss something that was delivered live.
func (s *Server) handlePrivateMsg(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.PrivateMsgRequest
	if !s.decode(conn, frame, 0, &req) {
		return
	}
	if req.Message == "" {
		return
	}

	target, err := s.db.GetUserByName(req.TargetUsername)
	if err != nil {
		s.log.Info("message to unknown user dropped", "from", user.name, "target", req.TargetUsername)
		return
	}

	sentAt := time.Now()
	messageID, err := s.db.SavePrivateMessage(user.id, target.ID, req.Message, sentAt)
	if err != nil {
		s.log.Error("failed to save private message", "from", user.name, "target", target.Username, "error", err)
		return
	}

	s.notifyUsername(target.Username, protocol.CmdMsgPrivateNotify, protocol.PrivateMsgNotify{
		FromUsername: user.name,
		Message:      req.Message,
		MessageID:    messageID,
		SentAt:       sentAt.Format(time.RFC3339),
	})
	s.reply(conn, protocol.CmdMsgPrivateResp, protocol.PrivateMsgSentResponse{
		MessageID:      messageID,
		TargetUsername: target.Username,
	})
}

func (s *Server) handleGroupMsg(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.GroupMsgRequest
	if !s.decode(conn, frame, 0, &req) {
		return
	}
	if req.Message == "" {
		return
	}
	groupID, ok := parseGroupID(req.GroupID)
	if !ok {
		return
	}

	isMember, err := s.db.IsGroupMember(groupID, user.id)
	if err != nil || !isMember {
		if err != nil {
			s.log.Error("failed to check group membership", "username", user.name, "groupID", groupID, "error", err)
		} else {
			s.log.Info("message from non-member dropped", "username", user.name, "groupID", groupID)
		}
		return
	}
	groupName, err := s.db.GroupName(groupID)
	if err != nil {
		return
	}

	sentAt := time.Now()
	messageID, err := s.db.SaveGroupMessage(groupID, user.id, req.Message, sentAt)
	if err != nil {
		s.log.Error("failed to save group message", "from", user.name, "groupID", groupID, "error", err)
		return
	}

	// Every member gets the broadcast, the sender included; clients render
	// their own messages from the same notification as everyone else's.
	s.notifyGroup(groupID, protocol.CmdMsgGroupNotify, protocol.GroupMsgNotify{
		FromUsername: user.name,
		GroupID:      req.GroupID,
		GroupName:    groupName,
		Message:      req.Message,
		MessageID:    messageID,
		SentAt:       sentAt.Format(time.RFC3339),
	})
	s.reply(conn, protocol.CmdMsgGroupResp, protocol.GroupMsgSentResponse{
		MessageID: messageID,
		GroupID:   req.GroupID,
	})
}

func (s *Server) handleHistoryPrivate(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.HistoryPrivateRequest
	if !s.decode(conn, frame, protocol.CmdHistoryPrivateResp, &req) {
		return
	}

	peer, err := s.db.GetUserByName(req.TargetUsername)
	if err != nil {
		s.fail(conn, protocol.CmdHistoryPrivateResp, protocol.StatusNotFound, "User not found")
		return
	}

	offset, limit := clampHistory(req.Offset, req.Limit)
	messages, total, err := s.db.PrivateHistory(user.id, peer.ID, offset, limit)
	if err != nil {
		s.log.Error("failed to load private history", "username", user.name, "peer", peer.Username, "error", err)
		s.fail(conn, protocol.CmdHistoryPrivateResp, protocol.StatusServerError, "Failed to load history")
		return
	}

	page := make([]protocol.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		page = append(page, protocol.HistoryMessage{
			MessageID:    m.ID,
			FromUsername: m.FromName,
			Message:      m.Text,
			SentAt:       m.SentAt.Format(time.RFC3339),
			IsRead:       m.IsRead,
		})
	}
	s.reply(conn, protocol.CmdHistoryPrivateResp, protocol.HistoryPrivateResponse{
		TargetUsername: peer.Username,
		TotalCount:     total,
		Offset:         offset,
		Messages:       page,
	})
}

func (s *Server) handleHistoryGroup(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.HistoryGroupRequest
	if !s.decode(conn, frame, protocol.CmdHistoryGroupResp, &req) {
		return
	}
	groupID, ok := parseGroupID(req.GroupID)
	if !ok {
		s.fail(conn, protocol.CmdHistoryGroupResp, protocol.StatusBadRequest, "Invalid group id")
		return
	}

	isMember, err := s.db.IsGroupMember(groupID, user.id)
	if err != nil {
		s.log.Error("failed to check group membership", "username", user.name, "groupID", groupID, "error", err)
		s.fail(conn, protocol.CmdHistoryGroupResp, protocol.StatusServerError, "Failed to load history")
		return
	}
	if !isMember {
		s.fail(conn, protocol.CmdHistoryGroupResp, protocol.StatusForbidden, "Not a group member")
		return
	}
	groupName, err := s.db.GroupName(groupID)
	if err != nil {
		s.fail(conn, protocol.CmdHistoryGroupResp, statusFor(err), "Group not found")
		return
	}

	offset, limit := clampHistory(req.Offset, req.Limit)
	messages, total, err := s.db.GroupHistory(groupID, offset, limit)
	if err != nil {
		s.log.Error("failed to load group history", "groupID", groupID, "error", err)
		s.fail(conn, protocol.CmdHistoryGroupResp, protocol.StatusServerError, "Failed to load history")
		return
	}

	page := make([]protocol.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		page = append(page, protocol.HistoryMessage{
			MessageID:    m.ID,
			FromUsername: m.FromName,
			Message:      m.Text,
			SentAt:       m.SentAt.Format(time.RFC3339),
		})
	}
	s.reply(conn, protocol.CmdHistoryGroupResp, protocol.HistoryGroupResponse{
		GroupID:    req.GroupID,
		GroupName:  groupName,
		TotalCount: total,
		Offset:     offset,
		Messages:   page,
	})
}

func (s *Server) handleMarkRead(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.MarkReadRequest
	if !s.decode(conn, frame, 0, &req) {
		return
	}

	sender, err := s.db.GetUserByName(req.SenderUsername)
	if err != nil {
		return
	}

	updated, err := s.db.MarkMessagesRead(user.id, sender.ID)
	if err != nil {
		s.log.Error("failed to mark messages read", "reader", user.name, "sender", sender.Username, "error", err)
		return
	}
	if updated == 0 {
		return
	}

	s.notifyUsername(sender.Username, protocol.CmdMessagesReadNotify, protocol.MessagesReadNotify{ReaderUsername: user.name})
}

func (s *Server) handleDeleteMsg(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.DeleteMsgRequest
	if !s.decode(conn, frame, protocol.CmdDeleteMsgResp, &req) {
		return
	}

	switch req.ChatType {
	case "private":
		s.deletePrivateMsg(conn, user, req)
	case "group":
		s.deleteGroupMsg(conn, user, req)
	default:
		s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusBadRequest, "Invalid chat type")
	}
}

// Only the author may retract a message. The other party (or the group)
// gets a deletion notice so open conversations drop the bubble.
func (s *Server) deletePrivateMsg(conn *Conn, user authUser, req protocol.DeleteMsgRequest) {
	message, err := s.db.GetPrivateMessage(req.MessageID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusNotFound, "Message not found")
			return
		}
		s.log.Error("failed to load message", "messageID", req.MessageID, "error", err)
		s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusServerError, "Delete failed")
		return
	}
	if message.FromUserID != user.id {
		s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusForbidden, "Not your message")
		return
	}

	if err := s.db.DeletePrivateMessage(req.MessageID); err != nil {
		s.log.Error("failed to delete message", "messageID", req.MessageID, "error", err)
		s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusServerError, "Delete failed")
		return
	}

	if other, err := s.db.GetUserByID(message.ToUserID); err == nil {
		s.notifyUsername(other.Username, protocol.CmdMsgDeletedNotify, protocol.MsgDeletedNotify{
			MessageID: req.MessageID,
			ChatType:  "private",
		})
	}
	s.reply(conn, protocol.CmdDeleteMsgResp, protocol.DeleteMsgResponse{MessageID: req.MessageID, Message: "Deleted"})
}

func (s *Server) deleteGroupMsg(conn *Conn, user authUser, req protocol.DeleteMsgRequest) {
	message, err := s.db.GetGroupMessage(req.MessageID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusNotFound, "Message not found")
			return
		}
		s.log.Error("failed to load message", "messageID", req.MessageID, "error", err)
		s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusServerError, "Delete failed")
		return
	}
	if message.FromUserID != user.id {
		s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusForbidden, "Not your message")
		return
	}

	if err := s.db.DeleteGroupMessage(req.MessageID); err != nil {
		s.log.Error("failed to delete message", "messageID", req.MessageID, "error", err)
		s.fail(conn, protocol.CmdDeleteMsgResp, protocol.StatusServerError, "Delete failed")
		return
	}

	s.notifyGroup(message.GroupID, protocol.CmdMsgDeletedNotify, protocol.MsgDeletedNotify{
		MessageID: req.MessageID,
		ChatType:  "group",
		GroupID:   groupIDString(message.GroupID),
	}, user.name)
	s.reply(conn, protocol.CmdDeleteMsgResp, protocol.DeleteMsgResponse{MessageID: req.MessageID, Message: "Deleted"})
}
