package server

import (
	"encoding/base64"
	"errors"
	"time"

	"chatrelay/filestore"
	"chatrelay/protocol"
)

// MaxFileSize caps the decoded upload size. Base64 inflates the body by
// a third, so this keeps the encoded payload inside the frame limit with
// headroom for the rest of the JSON.
const MaxFileSize = 44 * 1024

const fileMarker = "[FILE]"

// handleFileUpload stores the decoded bytes under a collision-free name,
// then relays a file marker through the regular chat path so the
// transfer lands in history like any other message.
func (s *Server) handleFileUpload(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.FileUploadRequest
	if !s.decode(conn, frame, protocol.CmdFileResp, &req) {
		return
	}
	if req.FileName == "" || req.FileData == "" {
		s.fail(conn, protocol.CmdFileResp, protocol.StatusBadRequest, "File name and data are required")
		return
	}
	if req.TargetUsername == "" && req.GroupID == "" {
		s.fail(conn, protocol.CmdFileResp, protocol.StatusBadRequest, "No recipient")
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		s.fail(conn, protocol.CmdFileResp, protocol.StatusBadRequest, "Invalid file encoding")
		return
	}
	if len(data) == 0 || len(data) > MaxFileSize {
		s.fail(conn, protocol.CmdFileResp, protocol.StatusBadRequest, "File size out of range")
		return
	}
	if req.FileSize > 0 && req.FileSize != int64(len(data)) {
		s.fail(conn, protocol.CmdFileResp, protocol.StatusBadRequest, "File size mismatch")
		return
	}

	storedName := filestore.StoredName(req.FileName)
	if err := s.files.Save(storedName, data); err != nil {
		s.log.Error("failed to store file", "username", user.name, "fileName", req.FileName, "error", err)
		s.fail(conn, protocol.CmdFileResp, protocol.StatusServerError, "Upload failed")
		return
	}

	marker := fileMarker + storedName + "|" + req.FileName
	if req.TargetUsername != "" {
		if !s.relayFilePrivate(conn, user, req.TargetUsername, marker) {
			return
		}
	} else {
		if !s.relayFileGroup(conn, user, req.GroupID, marker) {
			return
		}
	}

	s.log.Info("file uploaded", "username", user.name, "fileName", req.FileName, "storedName", storedName, "size", len(data))
	s.reply(conn, protocol.CmdFileResp, protocol.FileResponse{
		FileName: storedName,
		FileSize: int64(len(data)),
		Message:  "Upload complete",
	})
}

func (s *Server) relayFilePrivate(conn *Conn, user authUser, targetUsername, marker string) bool {
	target, err := s.db.GetUserByName(targetUsername)
	if err != nil {
		s.fail(conn, protocol.CmdFileResp, protocol.StatusNotFound, "User not found")
		return false
	}

	sentAt := time.Now()
	messageID, err := s.db.SavePrivateMessage(user.id, target.ID, marker, sentAt)
	if err != nil {
		s.log.Error("failed to save file message", "from", user.name, "target", target.Username, "error", err)
		s.fail(conn, protocol.CmdFileResp, protocol.StatusServerError, "Upload failed")
		return false
	}

	s.notifyUsername(target.Username, protocol.CmdMsgPrivateNotify, protocol.PrivateMsgNotify{
		FromUsername: user.name,
		Message:      marker,
		MessageID:    messageID,
		SentAt:       sentAt.Format(time.RFC3339),
	})
	return true
}

func (s *Server) relayFileGroup(conn *Conn, user authUser, rawGroupID, marker string) bool {
	groupID, ok := parseGroupID(rawGroupID)
	if !ok {
		s.fail(conn, protocol.CmdFileResp, protocol.StatusBadRequest, "Invalid group id")
		return false
	}
	isMember, err := s.db.IsGroupMember(groupID, user.id)
	if err != nil {
		s.log.Error("failed to check group membership", "username", user.name, "groupID", groupID, "error", err)
		s.fail(conn, protocol.CmdFileResp, protocol.StatusServerError, "Upload failed")
		return false
	}
	if !isMember {
		s.fail(conn, protocol.CmdFileResp, protocol.StatusForbidden, "Not a group member")
		return false
	}
	groupName, err := s.db.GroupName(groupID)
	if err != nil {
		s.fail(conn, protocol.CmdFileResp, statusFor(err), "Group not found")
		return false
	}

	sentAt := time.Now()
	messageID, err := s.db.SaveGroupMessage(groupID, user.id, marker, sentAt)
	if err != nil {
		s.log.Error("failed to save file message", "from", user.name, "groupID", groupID, "error", err)
		s.fail(conn, protocol.CmdFileResp, protocol.StatusServerError, "Upload failed")
		return false
	}

	s.notifyGroup(groupID, protocol.CmdMsgGroupNotify, protocol.GroupMsgNotify{
		FromUsername: user.name,
		GroupID:      rawGroupID,
		GroupName:    groupName,
		Message:      marker,
		MessageID:    messageID,
		SentAt:       sentAt.Format(time.RFC3339),
	})
	return true
}

func (s *Server) handleFileDownload(conn *Conn, user authUser, frame *protocol.Frame) {
	var req protocol.FileDownloadRequest
	if !s.decode(conn, frame, protocol.CmdFileResp, &req) {
		return
	}

	data, err := s.files.Load(req.FileName)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) || errors.Is(err, filestore.ErrInvalidName) {
			s.fail(conn, protocol.CmdFileResp, protocol.StatusNotFound, "File not found")
			return
		}
		s.log.Error("failed to load file", "fileName", req.FileName, "error", err)
		s.fail(conn, protocol.CmdFileResp, protocol.StatusServerError, "Download failed")
		return
	}

	s.log.Info("file downloaded", "username", user.name, "fileName", req.FileName, "size", len(data))
	s.reply(conn, protocol.CmdFileResp, protocol.FileResponse{
		FileName: req.FileName,
		FileSize: int64(len(data)),
		FileData: base64.StdEncoding.EncodeToString(data),
	})
}
