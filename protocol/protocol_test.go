package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeaderLayout(t *testing.T) {
	before := time.Now().Unix()
	buf, err := Encode(CmdLoginReq, StatusOK, LoginRequest{Username: "alice", PassHash: "secret"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf), HeaderSize)

	assert.Equal(t, uint32(CmdLoginReq), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint32(StatusOK), binary.LittleEndian.Uint32(buf[4:8]))

	ts := int64(binary.LittleEndian.Uint64(buf[8:16]))
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, time.Now().Unix())

	bodyLen := binary.LittleEndian.Uint32(buf[16:20])
	assert.Equal(t, int(bodyLen), len(buf)-HeaderSize)
}

func TestRoundTrip(t *testing.T) {
	buf, err := Encode(CmdMsgPrivateReq, StatusOK, PrivateMsgRequest{
		Token:          "tok",
		TargetUsername: "bob",
		Message:        "hello",
	})
	require.NoError(t, err)

	frame, err := ReadFrame(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, CmdMsgPrivateReq, frame.Command)
	assert.Equal(t, StatusOK, frame.Status)

	var req PrivateMsgRequest
	require.NoError(t, DecodeBody(frame, &req))
	assert.Equal(t, "tok", req.Token)
	assert.Equal(t, "bob", req.TargetUsername)
	assert.Equal(t, "hello", req.Message)
}

func TestHeaderOnlyFrame(t *testing.T) {
	buf, err := Encode(CmdFriendListReq, StatusOK, nil)
	require.NoError(t, err)
	assert.Len(t, buf, HeaderSize)

	frame, err := ReadFrame(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, CmdFriendListReq, frame.Command)
	assert.Empty(t, frame.Body)
}

func TestEncodeRejectsOversizeBody(t *testing.T) {
	big := make([]byte, MaxBodySize+1)
	for i := range big {
		big[i] = 'a'
	}
	_, err := Encode(CmdMsgPrivateReq, StatusOK, PrivateMsgRequest{Message: string(big)})
	require.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestReadFrameRejectsOversizeDeclaredLength(t *testing.T) {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(CmdMsgPrivateReq))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(MaxBodySize+1))

	_, err := ReadFrame(bytes.NewReader(hdr[:]))
	require.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestReadFrameRejectsNegativeDeclaredLength(t *testing.T) {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(CmdMsgPrivateReq))
	binary.LittleEndian.PutUint32(hdr[16:20], 0xFFFFFFFF)

	_, err := ReadFrame(bytes.NewReader(hdr[:]))
	require.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameEOFBetweenFrames(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrameTruncatedBody(t *testing.T) {
	buf, err := Encode(CmdMsgPrivateReq, StatusOK, PrivateMsgRequest{Message: "hello"})
	require.NoError(t, err)

	_, err = ReadFrame(bytes.NewReader(buf[:len(buf)-2]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameConsumesExactlyOneFrame(t *testing.T) {
	first, err := Encode(CmdFriendListReq, StatusOK, TokenOnlyRequest{Token: "a"})
	require.NoError(t, err)
	second, err := Encode(CmdPendingReq, StatusOK, TokenOnlyRequest{Token: "b"})
	require.NoError(t, err)

	r := bytes.NewReader(append(first, second...))

	f1, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, CmdFriendListReq, f1.Command)

	f2, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, CmdPendingReq, f2.Command)
}

func TestDecodeBodyEmpty(t *testing.T) {
	frame := &Frame{Header: Header{Command: CmdLoginReq}}
	var req LoginRequest
	require.Error(t, DecodeBody(frame, &req))
}

func TestDecodeBodyMalformed(t *testing.T) {
	frame := &Frame{Header: Header{Command: CmdLoginReq}, Body: []byte("{not json")}
	var req LoginRequest
	require.Error(t, DecodeBody(frame, &req))
}
