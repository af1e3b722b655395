package peer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"example.com/peerwire/lib/core/domain"
)

type MessageID uint8

const (
	MsgChoke MessageID = iota
	MsgUnchoke
	MsgInterested
	MsgNotInterested
	MsgHave
	MsgBitfield
	MsgRequest
	MsgPiece
	MsgCancel
)

var errShortPayload = errors.New("short payload")

func (id MessageID) String() string {
	switch id {
	case MsgChoke:
		return "choke"
	case MsgUnchoke:
		return "unchoke"
	case MsgInterested:
		return "interested"
	case MsgNotInterested:
		return "not-interested"
	case MsgHave:
		return "have"
	case MsgBitfield:
		return "bitfield"
	case MsgRequest:
		return "request"
	case MsgPiece:
		return "piece"
	case MsgCancel:
		return "cancel"
	}
	return fmt.Sprintf("unknown(%d)", uint8(id))
}

func buildMessage(id MessageID, payload []byte) []byte {
	b := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(b, uint32(1+len(payload)))
	b[4] = byte(id)
	copy(b[5:], payload)
	return b
}

func BuildKeepAlive() []byte {
	return make([]byte, 4)
}

func BuildChoke() []byte         { return buildMessage(MsgChoke, nil) }
func BuildUnchoke() []byte       { return buildMessage(MsgUnchoke, nil) }
func BuildInterested() []byte    { return buildMessage(MsgInterested, nil) }
func BuildNotInterested() []byte { return buildMessage(MsgNotInterested, nil) }

func BuildRequest(index, begin, length uint32) []byte {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:], index)
	binary.BigEndian.PutUint32(payload[4:], begin)
	binary.BigEndian.PutUint32(payload[8:], length)
	return buildMessage(MsgRequest, payload)
}

func BuildHave(index uint32) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, index)
	return buildMessage(MsgHave, payload)
}

func BuildBitfield(pieces domain.PieceList) []byte {
	return buildMessage(MsgBitfield, pieces)
}

func BuildPiece(index, begin uint32, block []byte) []byte {
	payload := make([]byte, 8+len(block))
	binary.BigEndian.PutUint32(payload[0:], index)
	binary.BigEndian.PutUint32(payload[4:], begin)
	copy(payload[8:], block)
	return buildMessage(MsgPiece, payload)
}

// ReadMessageLength returns the length prefix, or 0 when fewer than 4 bytes
// are buffered.
func ReadMessageLength(buf []byte) uint32 {
	if len(buf) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(buf)
}

// ReadMessageID returns the id byte, or 0 when fewer than 5 bytes are
// buffered. Callers must check availability first.
func ReadMessageID(buf []byte) MessageID {
	if len(buf) < 5 {
		return 0
	}
	return MessageID(buf[4])
}

func ParsePiece(payload []byte) (index, begin uint32, block []byte, err error) {
	if len(payload) < 8 {
		return 0, 0, nil, fmt.Errorf("%w: piece payload of %d bytes", errShortPayload, len(payload))
	}
	index = binary.BigEndian.Uint32(payload[0:])
	begin = binary.BigEndian.Uint32(payload[4:])
	return index, begin, payload[8:], nil
}

func ParseHave(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("%w: have payload of %d bytes", errShortPayload, len(payload))
	}
	return binary.BigEndian.Uint32(payload), nil
}

func ParseRequest(payload []byte) (index, begin, length uint32, err error) {
	if len(payload) < 12 {
		return 0, 0, 0, fmt.Errorf("%w: request payload of %d bytes", errShortPayload, len(payload))
	}
	return binary.BigEndian.Uint32(payload[0:]),
		binary.BigEndian.Uint32(payload[4:]),
		binary.BigEndian.Uint32(payload[8:]), nil
}

// BitfieldHas reads bit i of a bitfield payload, most significant bit first.
func BitfieldHas(payload []byte, i int) bool {
	return domain.PieceList(payload).ContainPiece(i)
}
