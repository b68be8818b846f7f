package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Wire format: a fixed 20-byte little-endian header followed by a JSON body.
//
//	command     int32
//	status      int32
//	timestamp   int64 (unix seconds, set by the sender)
//	body_length int32
//
// A zero body_length is valid and means no body bytes follow.
const (
	HeaderSize  = 20
	MaxBodySize = 64 * 1024
)

var ErrBodyTooLarge = errors.New("declared body length exceeds limit")

// Command identifiers, grouped by numeric range.
const (
	// Auth (1xx)
	CmdLoginReq       int32 = 101
	CmdLoginResp      int32 = 102
	CmdRegisterReq    int32 = 103
	CmdRegisterResp   int32 = 104
	CmdChangePassReq  int32 = 105
	CmdChangePassResp int32 = 106

	// Presence notifications (2xx)
	CmdFriendOnline  int32 = 201
	CmdFriendOffline int32 = 202

	// Friendship (3xx)
	CmdFriendAddReq       int32 = 301
	CmdFriendReqNotify    int32 = 302
	CmdFriendRespondReq   int32 = 303
	CmdFriendAcceptNotify int32 = 304
	CmdFriendListReq      int32 = 305
	CmdFriendListResp     int32 = 306
	CmdPendingReq         int32 = 307
	CmdPendingResp        int32 = 308
	CmdUnfriendReq        int32 = 309
	CmdUnfriendResp       int32 = 310

	// Private chat (4xx)
	CmdMsgPrivateReq    int32 = 401
	CmdMsgPrivateNotify int32 = 402
	CmdMsgPrivateResp   int32 = 403

	// Groups (5xx)
	CmdGroupCreateReq    int32 = 501
	CmdGroupCreateResp   int32 = 502
	CmdGroupJoinReq      int32 = 503
	CmdGroupJoinNotify   int32 = 504
	CmdGroupLeaveReq     int32 = 505
	CmdGroupLeaveNotify  int32 = 506
	CmdMsgGroupReq       int32 = 507
	CmdMsgGroupNotify    int32 = 508
	CmdGroupListReq      int32 = 509
	CmdGroupListResp     int32 = 510
	CmdGroupMembersReq   int32 = 511
	CmdGroupMembersResp  int32 = 512
	CmdAllGroupsReq      int32 = 513
	CmdAllGroupsResp     int32 = 514
	CmdGroupInviteReq    int32 = 515
	CmdGroupInviteResp   int32 = 516
	CmdGroupInviteNotify int32 = 517
	CmdMsgGroupResp      int32 = 518

	// File transfer (6xx), whole-file inline only
	CmdFileUploadReq   int32 = 601
	CmdFileResp        int32 = 602
	CmdFileDownloadReq int32 = 606

	// Chat history (7xx)
	CmdHistoryPrivateReq  int32 = 701
	CmdHistoryPrivateResp int32 = 702
	CmdHistoryGroupReq    int32 = 703
	CmdHistoryGroupResp   int32 = 704
	CmdMarkReadReq        int32 = 705
	CmdMessagesReadNotify int32 = 706

	// Message deletion (8xx)
	CmdDeleteMsgReq     int32 = 801
	CmdDeleteMsgResp    int32 = 802
	CmdMsgDeletedNotify int32 = 803
)

// Status codes (HTTP-like).
const (
	StatusOK           int32 = 200
	StatusCreated      int32 = 201
	StatusBadRequest   int32 = 400
	StatusUnauthorized int32 = 401
	StatusForbidden    int32 = 403
	StatusNotFound     int32 = 404
	StatusConflict     int32 = 409
	StatusServerError  int32 = 500
)

type Header struct {
	Command    int32
	Status     int32
	Timestamp  int64
	BodyLength int32
}

type Frame struct {
	Header
	Body []byte
}

// Encode builds a complete frame. A nil body produces a header-only frame.
func Encode(command, status int32, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body for command %d: %w", command, err)
		}
	}
	if len(payload) > MaxBodySize {
		return nil, fmt.Errorf("command %d: %w (%d bytes)", command, ErrBodyTooLarge, len(payload))
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(command))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(status))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(time.Now().Unix()))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// ReadFrame reads exactly one frame, blocking until the declared number of
// body bytes has arrived. A connection closing before a frame has started
// returns io.EOF; closing mid-frame returns io.ErrUnexpectedEOF. Both mean
// disconnect, not protocol violation. A declared body length outside
// [0, MaxBodySize] returns ErrBodyTooLarge and the caller should drop the
// connection.
func ReadFrame(r io.Reader) (*Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	f := &Frame{
		Header: Header{
			Command:    int32(binary.LittleEndian.Uint32(hdr[0:4])),
			Status:     int32(binary.LittleEndian.Uint32(hdr[4:8])),
			Timestamp:  int64(binary.LittleEndian.Uint64(hdr[8:16])),
			BodyLength: int32(binary.LittleEndian.Uint32(hdr[16:20])),
		},
	}

	if f.BodyLength < 0 || f.BodyLength > MaxBodySize {
		return nil, fmt.Errorf("command %d: %w (%d bytes)", f.Command, ErrBodyTooLarge, f.BodyLength)
	}
	if f.BodyLength == 0 {
		return f, nil
	}

	f.Body = make([]byte, f.BodyLength)
	if _, err := io.ReadFull(r, f.Body); err != nil {
		return nil, err
	}
	return f, nil
}

// DecodeBody unmarshals the frame body into v. An empty body is reported as
// an error so handlers can treat it as a validation failure.
func DecodeBody(f *Frame, v any) error {
	if len(f.Body) == 0 {
		return fmt.Errorf("command %d: empty body", f.Command)
	}
	if err := json.Unmarshal(f.Body, v); err != nil {
		return fmt.Errorf("command %d: malformed body: %w", f.Command, err)
	}
	return nil
}
