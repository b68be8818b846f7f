package server

import "chatrelay/protocol"

// Fan-out is best effort and live-only: recipients without a registry
// entry are skipped, send failures are logged and never propagated back
// to the caller. Membership lists come from the store before any sends,
// so no lock is held across the network.

func (s *Server) notifyUsername(username string, command int32, body any) {
	conn, ok := s.registry.Lookup(username)
	if !ok {
		return
	}
	if err := conn.Send(command, protocol.StatusOK, body); err != nil {
		s.log.Warn("notify failed", "username", username, "command", command, "error", err)
	}
}

// notifyFriends pushes a notification to every online friend of userID.
func (s *Server) notifyFriends(userID int64, command int32, body any) {
	friends, err := s.db.ListFriends(userID)
	if err != nil {
		s.log.Error("failed to list friends for notify", "userID", userID, "error", err)
		return
	}
	for _, friend := range friends {
		s.notifyUsername(friend.Username, command, body)
	}
}

// notifyGroup pushes a notification to every online member of groupID,
// except the ones named in skip.
func (s *Server) notifyGroup(groupID int64, command int32, body any, skip ...string) {
	members, err := s.db.GroupMembers(groupID)
	if err != nil {
		s.log.Error("failed to list group members for notify", "groupID", groupID, "error", err)
		return
	}
	for _, member := range members {
		if skipped(member.Username, skip) {
			continue
		}
		s.notifyUsername(member.Username, command, body)
	}
}

func skipped(username string, skip []string) bool {
	for _, name := range skip {
		if name == username {
			return true
		}
	}
	return false
}
