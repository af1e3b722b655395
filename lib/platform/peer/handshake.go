package peer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	protoBitTorrent = "BitTorrent protocol"
	HandshakeLen    = 1 + len(protoBitTorrent) + 8 + 20 + 20
)

var (
	ErrHandshakeMismatch = errors.New("handshake does not match")
	ErrBadPeerID         = errors.New("peer id must be 20 bytes")
)

// Handshake is the fixed 68-byte greeting that opens every connection.
type Handshake struct {
	Proto        string
	FeatureFlags uint64
	InfoHash     [20]byte
	PeerID       [20]byte
}

func (h Handshake) getBytes() []byte {
	b := make([]byte, 0, HandshakeLen)
	b = append(b, byte(len(h.Proto)))
	b = append(b, h.Proto...)
	b = binary.BigEndian.AppendUint64(b, h.FeatureFlags)
	b = append(b, h.InfoHash[:]...)
	b = append(b, h.PeerID[:]...)
	return b
}

// matches reports whether the remote greeting is for the same torrent.
func (h Handshake) matches(remote Handshake) bool {
	return h.Proto == remote.Proto && h.InfoHash == remote.InfoHash
}

// ParseHandshake reads a greeting from the first HandshakeLen bytes of b.
func ParseHandshake(b []byte) (Handshake, error) {
	var h Handshake
	if len(b) < HandshakeLen {
		return h, fmt.Errorf("%w: %d bytes", errShortPayload, len(b))
	}
	protoLen := int(b[0])
	if protoLen != len(protoBitTorrent) {
		return h, fmt.Errorf("%w: pstrlen %d", ErrHandshakeMismatch, protoLen)
	}
	n := 1
	h.Proto = string(b[n : n+protoLen])
	n += protoLen
	h.FeatureFlags = binary.BigEndian.Uint64(b[n:])
	n += 8
	n += copy(h.InfoHash[:], b[n:])
	copy(h.PeerID[:], b[n:])
	return h, nil
}

// BuildHandshake encodes the greeting for infoHash. peerID must be exactly 20
// bytes; see PadPeerID.
func BuildHandshake(infoHash [20]byte, peerID []byte) ([]byte, error) {
	if len(peerID) != 20 {
		return nil, fmt.Errorf("%w: got %d", ErrBadPeerID, len(peerID))
	}
	h := Handshake{
		Proto:    protoBitTorrent,
		InfoHash: infoHash,
	}
	copy(h.PeerID[:], peerID)
	return h.getBytes(), nil
}

// PadPeerID truncates or zero-pads id to 20 bytes.
func PadPeerID(id string) []byte {
	b := make([]byte, 20)
	copy(b, id)
	return b
}

func isHandshakeFor(b []byte, infoHash [20]byte) (Handshake, error) {
	remote, err := ParseHandshake(b)
	if err != nil {
		return remote, err
	}
	local := Handshake{Proto: protoBitTorrent, InfoHash: infoHash}
	if !local.matches(remote) {
		return remote, fmt.Errorf("%w: info hash %x", ErrHandshakeMismatch, remote.InfoHash[:4])
	}
	if bytes.Equal(remote.PeerID[:], make([]byte, 20)) {
		l_session.Sugar().Debugw("peer sent an empty peer id")
	}
	return remote, nil
}
