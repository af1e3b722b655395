package peer

import (
	"bytes"
	"strconv"
	"testing"

	"example.com/peerwire/lib/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHandshake(t *testing.T) {
	var infoHash [20]byte
	copy(infoHash[:], bytes.Repeat([]byte{0xab}, 20))
	peerID := PadPeerID("-PW0001-123456789012")

	b, err := BuildHandshake(infoHash, peerID)
	require.NoError(t, err)

	assert.Len(t, b, HandshakeLen)
	assert.Equal(t, byte(19), b[0])
	assert.Equal(t, "BitTorrent protocol", string(b[1:20]))
	assert.Equal(t, make([]byte, 8), b[20:28])
	assert.Equal(t, infoHash[:], b[28:48])
	assert.Equal(t, peerID, b[48:68])

	h, err := ParseHandshake(b)
	require.NoError(t, err)
	assert.Equal(t, infoHash, h.InfoHash)
	assert.Equal(t, peerID, h.PeerID[:])

	_, err = BuildHandshake(infoHash, []byte("short"))
	assert.ErrorIs(t, err, ErrBadPeerID)
}

func TestParseHandshakeRejects(t *testing.T) {
	var infoHash [20]byte
	b, err := BuildHandshake(infoHash, PadPeerID("x"))
	require.NoError(t, err)

	_, err = ParseHandshake(b[:67])
	assert.ErrorIs(t, err, errShortPayload)

	bad := append([]byte{}, b...)
	bad[0] = 18
	_, err = ParseHandshake(bad)
	assert.ErrorIs(t, err, ErrHandshakeMismatch)

	other := infoHash
	other[0] = 1
	_, err = isHandshakeFor(b, other)
	assert.ErrorIs(t, err, ErrHandshakeMismatch)
}

func TestHandshakeAcceptsEmptyPeerID(t *testing.T) {
	infoHash := [20]byte{9}
	b, err := BuildHandshake(infoHash, make([]byte, 20))
	require.NoError(t, err)

	remote, err := isHandshakeFor(b, infoHash)
	require.NoError(t, err)
	assert.Equal(t, [20]byte{}, remote.PeerID)
	assert.Equal(t, infoHash, remote.InfoHash)
}

func TestPadPeerID(t *testing.T) {
	assert.Len(t, PadPeerID("abc"), 20)
	assert.Equal(t, []byte("0123456789abcdefghij"), PadPeerID("0123456789abcdefghijKLMN"))
}

func TestSimpleMessages(t *testing.T) {
	testCases := []struct {
		msg []byte
		id  MessageID
	}{
		{BuildChoke(), MsgChoke},
		{BuildUnchoke(), MsgUnchoke},
		{BuildInterested(), MsgInterested},
		{BuildNotInterested(), MsgNotInterested},
	}
	for i, tc := range testCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			assert.Equal(t, []byte{0, 0, 0, 1, byte(tc.id)}, tc.msg)
			assert.Equal(t, uint32(1), ReadMessageLength(tc.msg))
			assert.Equal(t, tc.id, ReadMessageID(tc.msg))
		})
	}
	assert.Equal(t, []byte{0, 0, 0, 0}, BuildKeepAlive())
	assert.Equal(t, uint32(0), ReadMessageLength(BuildKeepAlive()))
}

func TestRequestRoundTrip(t *testing.T) {
	msg := BuildRequest(3, 16384, 16384)
	assert.Equal(t, []byte{0, 0, 0, 13, 6, 0, 0, 0, 3, 0, 0, 0x40, 0, 0, 0, 0x40, 0}, msg)
	assert.Equal(t, uint32(13), ReadMessageLength(msg))
	assert.Equal(t, MsgRequest, ReadMessageID(msg))

	index, begin, length, err := ParseRequest(msg[5:])
	require.NoError(t, err)
	assert.Equal(t, uint32(3), index)
	assert.Equal(t, uint32(16384), begin)
	assert.Equal(t, uint32(16384), length)
}

func TestPieceAndHaveRoundTrip(t *testing.T) {
	block := []byte("some block data")
	msg := BuildPiece(7, 32, block)
	assert.Equal(t, uint32(9+len(block)), ReadMessageLength(msg))
	assert.Equal(t, MsgPiece, ReadMessageID(msg))

	index, begin, got, err := ParsePiece(msg[5:])
	require.NoError(t, err)
	assert.Equal(t, uint32(7), index)
	assert.Equal(t, uint32(32), begin)
	assert.Equal(t, block, got)

	_, _, _, err = ParsePiece([]byte{0, 0, 0, 1, 0, 0, 0})
	assert.ErrorIs(t, err, errShortPayload)

	have := BuildHave(42)
	assert.Equal(t, MsgHave, ReadMessageID(have))
	n, err := ParseHave(have[5:])
	require.NoError(t, err)
	assert.Equal(t, uint32(42), n)
}

func TestInsufficientBytes(t *testing.T) {
	assert.Equal(t, uint32(0), ReadMessageLength(nil))
	assert.Equal(t, uint32(0), ReadMessageLength([]byte{0, 0, 1}))
	assert.Equal(t, MessageID(0), ReadMessageID([]byte{0, 0, 0, 1}))
}

func TestBitfieldOrder(t *testing.T) {
	for i := 0; i < 8; i++ {
		assert.Equal(t, i == 0, BitfieldHas([]byte{0x80}, i), "0x80 bit %d", i)
		assert.Equal(t, i == 7, BitfieldHas([]byte{0x01}, i), "0x01 bit %d", i)
	}
	assert.False(t, BitfieldHas([]byte{0xff}, 8))

	pl := domain.NewPieceList(10)
	require.NoError(t, pl.SetPiece(9))
	msg := BuildBitfield(pl)
	assert.Equal(t, MsgBitfield, ReadMessageID(msg))
	assert.True(t, BitfieldHas(msg[5:], 9))
	assert.False(t, BitfieldHas(msg[5:], 8))
}
