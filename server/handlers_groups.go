package server

import (
	"errors"
	"strconv"

	"chatrelay/db"
	"chatrelay/models"
	"chatrelay/protocol"
)

func parseGroupID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}

func groupIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *Server) handleGroupCreate(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.GroupCreateRequest
	if !s.decode(conn, frame, protocol.CmdGroupCreateResp, &req) {
		return
	}
	if req.GroupName == "" {
		s.fail(conn, protocol.CmdGroupCreateResp, protocol.StatusBadRequest, "Group name is required")
		return
	}

	groupID, err := s.db.CreateGroup(req.GroupName, user.id)
	if err != nil {
		s.log.Error("failed to create group", "username", user.name, "groupName", req.GroupName, "error", err)
		s.fail(conn, protocol.CmdGroupCreateResp, protocol.StatusServerError, "Group creation failed")
		return
	}

	s.log.Info("group created", "groupID", groupID, "groupName", req.GroupName, "creator", user.name)
	if err := conn.Send(protocol.CmdGroupCreateResp, protocol.StatusCreated, protocol.GroupCreateResponse{
		GroupID:   groupIDString(groupID),
		GroupName: req.GroupName,
	}); err != nil {
		s.log.Warn("failed to send response", "command", protocol.CmdGroupCreateResp, "error", err)
	}
}

func (s *Server) handleGroupJoin(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.GroupRequest
	if !s.decode(conn, frame, 0, &req) {
		return
	}
	groupID, ok := parseGroupID(req.GroupID)
	if !ok {
		return
	}
	if _, err := s.db.GroupName(groupID); err != nil {
		s.log.Info("join for unknown group dropped", "username", user.name, "groupID", req.GroupID)
		return
	}

	if err := s.db.AddGroupMember(groupID, user.id, models.RoleMember); err != nil {
		if !errors.Is(err, db.ErrAlreadyMember) {
			s.log.Error("failed to add group member", "username", user.name, "groupID", groupID, "error", err)
		}
		return
	}

	s.log.Info("user joined group", "username", user.name, "groupID", groupID)
	s.notifyGroup(groupID, protocol.CmdGroupJoinNotify, protocol.GroupMemberNotify{
		Username: user.name,
		GroupID:  req.GroupID,
	})
}

func (s *Server) handleGroupLeave(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.GroupRequest
	if !s.decode(conn, frame, 0, &req) {
		return
	}
	groupID, ok := parseGroupID(req.GroupID)
	if !ok {
		return
	}

	if err := s.db.RemoveGroupMember(groupID, user.id); err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Error("failed to remove group member", "username", user.name, "groupID", groupID, "error", err)
		}
		return
	}

	remaining, err := s.db.MemberCount(groupID)
	if err != nil {
		s.log.Error("failed to count group members", "groupID", groupID, "error", err)
		return
	}
	if remaining == 0 {
		if err := s.db.DeleteGroup(groupID); err != nil {
			s.log.Error("failed to delete empty group", "groupID", groupID, "error", err)
			return
		}
		s.log.Info("empty group deleted", "groupID", groupID)
		return
	}

	s.log.Info("user left group", "username", user.name, "groupID", groupID)
	s.notifyGroup(groupID, protocol.CmdGroupLeaveNotify, protocol.GroupMemberNotify{
		Username: user.name,
		GroupID:  req.GroupID,
	})
}

func (s *Server) handleGroupList(conn *Conn, user authUser, frame *protocol.Frame) {
	groups, err := s.db.UserGroups(user.id)
	if err != nil {
		s.log.Error("failed to list user groups", "username", user.name, "error", err)
		s.fail(conn, protocol.CmdGroupListResp, protocol.StatusServerError, "Failed to load groups")
		return
	}
	s.reply(conn, protocol.CmdGroupListResp, protocol.GroupListResponse{Groups: groupEntries(groups)})
}

func (s *Server) handleAllGroups(conn *Conn, user authUser, frame *protocol.Frame) {
	groups, err := s.db.AllGroups()
	if err != nil {
		s.log.Error("failed to list groups", "error", err)
		s.fail(conn, protocol.CmdAllGroupsResp, protocol.StatusServerError, "Failed to load groups")
		return
	}
	s.reply(conn, protocol.CmdAllGroupsResp, protocol.GroupListResponse{Groups: groupEntries(groups)})
}

func groupEntries(groups []models.GroupInfo) []protocol.GroupEntry {
	entries := make([]protocol.GroupEntry, 0, len(groups))
	for _, g := range groups {
		entries = append(entries, protocol.GroupEntry{
			GroupID:     groupIDString(g.ID),
			GroupName:   g.Name,
			MemberCount: g.MemberCount,
		})
	}
	return entries
}

func (s *Server) handleGroupMembers(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.GroupRequest
	if !s.decode(conn, frame, protocol.CmdGroupMembersResp, &req) {
		return
	}
	groupID, ok := parseGroupID(req.GroupID)
	if !ok {
		s.fail(conn, protocol.CmdGroupMembersResp, protocol.StatusBadRequest, "Invalid group id")
		return
	}

	isMember, err := s.db.IsGroupMember(groupID, user.id)
	if err != nil {
		s.log.Error("failed to check group membership", "username", user.name, "groupID", groupID, "error", err)
		s.fail(conn, protocol.CmdGroupMembersResp, protocol.StatusServerError, "Failed to load members")
		return
	}
	if !isMember {
		s.fail(conn, protocol.CmdGroupMembersResp, protocol.StatusForbidden, "Not a group member")
		return
	}

	groupName, err := s.db.GroupName(groupID)
	if err != nil {
		s.fail(conn, protocol.CmdGroupMembersResp, statusFor(err), "Group not found")
		return
	}
	members, err := s.db.GroupMembers(groupID)
	if err != nil {
		s.log.Error("failed to list group members", "groupID", groupID, "error", err)
		s.fail(conn, protocol.CmdGroupMembersResp, protocol.StatusServerError, "Failed to load members")
		return
	}

	entries := make([]protocol.MemberEntry, 0, len(members))
	for _, member := range members {
		entries = append(entries, protocol.MemberEntry{
			Username: member.Username,
			Online:   s.registry.IsOnline(member.UserID),
			Role:     member.Role,
		})
	}
	s.reply(conn, protocol.CmdGroupMembersResp, protocol.GroupMembersResponse{
		GroupID:   req.GroupID,
		GroupName: groupName,
		Members:   entries,
	})
}

func (s *Server) handleGroupInvite(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.GroupInviteRequest
	if !s.decode(conn, frame, protocol.CmdGroupInviteResp, &req) {
		return
	}
	groupID, ok := parseGroupID(req.GroupID)
	if !ok {
		s.fail(conn, protocol.CmdGroupInviteResp, protocol.StatusBadRequest, "Invalid group id")
		return
	}

	isMember, err := s.db.IsGroupMember(groupID, user.id)
	if err != nil {
		s.log.Error("failed to check group membership", "username", user.name, "groupID", groupID, "error", err)
		s.fail(conn, protocol.CmdGroupInviteResp, protocol.StatusServerError, "Invite failed")
		return
	}
	if !isMember {
		s.fail(conn, protocol.CmdGroupInviteResp, protocol.StatusForbidden, "Not a group member")
		return
	}

	target, err := s.db.GetUserByName(req.Username)
	if err != nil {
		s.fail(conn, protocol.CmdGroupInviteResp, protocol.StatusNotFound, "User not found")
		return
	}
	targetIsMember, err := s.db.IsGroupMember(groupID, target.ID)
	if err != nil {
		s.log.Error("failed to check group membership", "username", target.Username, "groupID", groupID, "error", err)
		s.fail(conn, protocol.CmdGroupInviteResp, protocol.StatusServerError, "Invite failed")
		return
	}
	if targetIsMember {
		s.fail(conn, protocol.CmdGroupInviteResp, protocol.StatusConflict, "Already a member")
		return
	}

	groupName, err := s.db.GroupName(groupID)
	if err != nil {
		s.fail(conn, protocol.CmdGroupInviteResp, statusFor(err), "Group not found")
		return
	}

	s.log.Info("group invite", "from", user.name, "target", target.Username, "groupID", groupID)
	s.notifyUsername(target.Username, protocol.CmdGroupInviteNotify, protocol.GroupInviteNotify{
		FromUsername: user.name,
		GroupID:      req.GroupID,
		GroupName:    groupName,
	})
	s.reply(conn, protocol.CmdGroupInviteResp, protocol.StatusBody{Message: "Invite sent"})
}
