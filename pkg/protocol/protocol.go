// Package protocol defines the binary wire format shared by the server and
// its clients.
//
// Every websocket message is a single binary frame whose first byte is a tag;
// the payload length is implied by the frame.
//
//	Server -> Client:
//	  1 GAME_DATA  full GameData snapshot (see codec.go)
//	  2 NOTIFY     u16 snake id assigned to this connection
//	  3 PING       i64 server unix nanos
//	Client -> Server:
//	  4 DIRECTION  u8 0=Left 1=Up 2=Right 3=Down
//	  5 PONG       echoed PING payload
//	  6 QUIT       no payload, explicit disconnect
//	  7 RESPAWN    no payload, re-join after the snake was eliminated
//
// All integers are big endian and fixed width.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Message tags
const (
	TagGameData  byte = 1
	TagNotify    byte = 2
	TagPing      byte = 3
	TagDirection byte = 4
	TagPong      byte = 5
	TagQuit      byte = 6
	TagRespawn   byte = 7
)

// Direction codes carried by DIRECTION frames and inside snapshots.
const (
	DirLeft  byte = 0
	DirUp    byte = 1
	DirRight byte = 2
	DirDown  byte = 3
)

var (
	ErrEmptyFrame   = errors.New("protocol: empty frame")
	ErrShortPayload = errors.New("protocol: short payload")
	ErrUnknownTag   = errors.New("protocol: unknown tag")
	ErrBadVersion   = errors.New("protocol: unsupported snapshot version")
	ErrBadDirection = errors.New("protocol: invalid direction code")
)

// Frame prefixes payload with tag.
func Frame(tag byte, payload []byte) []byte {
	buf := make([]byte, 1+len(payload))
	buf[0] = tag
	copy(buf[1:], payload)
	return buf
}

// Split returns the tag and payload of a frame.
func Split(frame []byte) (byte, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, ErrEmptyFrame
	}
	return frame[0], frame[1:], nil
}

// NotifyFrame builds the NOTIFY message carrying the assigned snake id.
func NotifyFrame(id uint16) []byte {
	buf := []byte{TagNotify, 0, 0}
	binary.BigEndian.PutUint16(buf[1:], id)
	return buf
}

// DecodeNotify reads the snake id out of a NOTIFY payload.
func DecodeNotify(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("notify: %w", ErrShortPayload)
	}
	return binary.BigEndian.Uint16(payload), nil
}

// PingFrame builds a PING message stamped with t.
func PingFrame(t time.Time) []byte {
	buf := make([]byte, 9)
	buf[0] = TagPing
	binary.BigEndian.PutUint64(buf[1:], uint64(t.UnixNano()))
	return buf
}

// PongFrame echoes a PING payload back to the server.
func PongFrame(pingPayload []byte) []byte {
	return Frame(TagPong, pingPayload)
}

// DecodeStamp reads the timestamp out of a PING or PONG payload.
func DecodeStamp(payload []byte) (time.Time, error) {
	if len(payload) < 8 {
		return time.Time{}, fmt.Errorf("stamp: %w", ErrShortPayload)
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(payload))), nil
}

// DirectionFrame builds a DIRECTION message.
func DirectionFrame(code byte) []byte {
	return []byte{TagDirection, code}
}

// DecodeDirection validates the one byte DIRECTION payload.
func DecodeDirection(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, fmt.Errorf("direction: %w", ErrShortPayload)
	}
	if payload[0] > DirDown {
		return 0, fmt.Errorf("direction %d: %w", payload[0], ErrBadDirection)
	}
	return payload[0], nil
}
