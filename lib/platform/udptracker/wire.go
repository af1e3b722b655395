package udptracker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"example.com/peerwire/lib/core/domain"
)

const (
	protocolID     = 0x41727101980
	actionConnect  = 0
	actionAnnounce = 1
	actionError    = 3

	announceRequestLen = 98
)

var ErrBadResponse = errors.New("bad tracker response")

type connectRequest struct {
	protocolId    uint64
	action        uint32
	transactionID uint32
}

func newConnectRequest(txn uint32) connectRequest {
	return connectRequest{
		protocolId:    protocolID,
		action:        actionConnect,
		transactionID: txn,
	}
}

func newConnectRequestFromBytes(b []byte) (connectRequest, error) {
	var r connectRequest
	if len(b) < 16 {
		return r, fmt.Errorf("%w: connect request of %d bytes", ErrBadResponse, len(b))
	}
	r.protocolId = binary.BigEndian.Uint64(b[0:])
	r.action = binary.BigEndian.Uint32(b[8:])
	r.transactionID = binary.BigEndian.Uint32(b[12:])
	return r, nil
}

func (u connectRequest) getBytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:], u.protocolId)
	binary.BigEndian.PutUint32(b[8:], u.action)
	binary.BigEndian.PutUint32(b[12:], u.transactionID)
	return b
}

type connectResponse struct {
	action        uint32
	transactionID uint32
	connID        uint64
}

func (u connectResponse) matchesWithReq(v connectRequest) bool {
	return u.action == v.action && u.transactionID == v.transactionID
}

func (u connectResponse) getBytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint32(b[0:], u.action)
	binary.BigEndian.PutUint32(b[4:], u.transactionID)
	binary.BigEndian.PutUint64(b[8:], u.connID)
	return b
}

func newConnectResponse(b []byte) (connectResponse, error) {
	var u connectResponse
	if len(b) < 16 {
		return u, fmt.Errorf("%w: connect response of %d bytes", ErrBadResponse, len(b))
	}
	u.action = binary.BigEndian.Uint32(b[0:])
	u.transactionID = binary.BigEndian.Uint32(b[4:])
	u.connID = binary.BigEndian.Uint64(b[8:])
	return u, nil
}

type announceRequest struct {
	connID        uint64
	action        uint32
	transactionID uint32
	infoHash      [20]byte
	peerID        [20]byte
	downloaded    uint64
	left          uint64
	uploaded      uint64
	event         uint32
	ip            uint32
	key           uint32
	numWant       uint32
	port          uint16
}

func newAnnounceRequest() announceRequest {
	numWant := -1
	return announceRequest{
		action:  actionAnnounce,
		numWant: uint32(numWant),
	}
}

func (u announceRequest) getBytes() []byte {
	b := make([]byte, announceRequestLen)
	binary.BigEndian.PutUint64(b[0:], u.connID)
	binary.BigEndian.PutUint32(b[8:], u.action)
	binary.BigEndian.PutUint32(b[12:], u.transactionID)
	copy(b[16:36], u.infoHash[:])
	copy(b[36:56], u.peerID[:])
	binary.BigEndian.PutUint64(b[56:], u.downloaded)
	binary.BigEndian.PutUint64(b[64:], u.left)
	binary.BigEndian.PutUint64(b[72:], u.uploaded)
	binary.BigEndian.PutUint32(b[80:], u.event)
	binary.BigEndian.PutUint32(b[84:], u.ip)
	binary.BigEndian.PutUint32(b[88:], u.key)
	binary.BigEndian.PutUint32(b[92:], u.numWant)
	binary.BigEndian.PutUint16(b[96:], u.port)
	return b
}

func newAnnounceRequestFromBytes(b []byte) (announceRequest, error) {
	var u announceRequest
	if len(b) < announceRequestLen {
		return u, fmt.Errorf("%w: announce request of %d bytes", ErrBadResponse, len(b))
	}
	u.connID = binary.BigEndian.Uint64(b[0:])
	u.action = binary.BigEndian.Uint32(b[8:])
	u.transactionID = binary.BigEndian.Uint32(b[12:])
	copy(u.infoHash[:], b[16:36])
	copy(u.peerID[:], b[36:56])
	u.downloaded = binary.BigEndian.Uint64(b[56:])
	u.left = binary.BigEndian.Uint64(b[64:])
	u.uploaded = binary.BigEndian.Uint64(b[72:])
	u.event = binary.BigEndian.Uint32(b[80:])
	u.ip = binary.BigEndian.Uint32(b[84:])
	u.key = binary.BigEndian.Uint32(b[88:])
	u.numWant = binary.BigEndian.Uint32(b[92:])
	u.port = binary.BigEndian.Uint16(b[96:])
	return u, nil
}

type AnnounceResponse struct {
	Action   uint32
	TxnID    uint32
	Interval uint32
	Leechers uint32
	Seeders  uint32
	Hosts    []domain.Host
}

func (u AnnounceResponse) getBytes() []byte {
	b := make([]byte, 20, 20+6*len(u.Hosts))
	binary.BigEndian.PutUint32(b[0:], u.Action)
	binary.BigEndian.PutUint32(b[4:], u.TxnID)
	binary.BigEndian.PutUint32(b[8:], u.Interval)
	binary.BigEndian.PutUint32(b[12:], u.Leechers)
	binary.BigEndian.PutUint32(b[16:], u.Seeders)
	for _, h := range u.Hosts {
		b = append(b, h.IP.To4()...)
		b = binary.BigEndian.AppendUint16(b, h.Port)
	}
	return b
}

func newAnnounceResponse(b []byte) (AnnounceResponse, error) {
	var u AnnounceResponse
	if len(b) >= 8 && binary.BigEndian.Uint32(b) == actionError {
		return u, fmt.Errorf("%w: tracker error %q", ErrBadResponse, string(b[8:]))
	}
	if len(b) < 20 {
		return u, fmt.Errorf("%w: announce response of %d bytes", ErrBadResponse, len(b))
	}
	u.Action = binary.BigEndian.Uint32(b[0:])
	u.TxnID = binary.BigEndian.Uint32(b[4:])
	u.Interval = binary.BigEndian.Uint32(b[8:])
	u.Leechers = binary.BigEndian.Uint32(b[12:])
	u.Seeders = binary.BigEndian.Uint32(b[16:])

	peers := b[20:]
	if len(peers)%6 != 0 {
		return u, fmt.Errorf("%w: %d bytes of compact peers", ErrBadResponse, len(peers))
	}
	u.Hosts = ParseCompactPeers(peers)
	return u, nil
}

// ParseCompactPeers reads 6-byte ip:port entries. Entries with port 0 are
// skipped; some trackers list the announcing client that way.
func ParseCompactPeers(b []byte) []domain.Host {
	var hosts []domain.Host
	for i := 0; i+6 <= len(b); i += 6 {
		ip := make(net.IP, 4)
		copy(ip, b[i:i+4])
		port := binary.BigEndian.Uint16(b[i+4:])
		if port == 0 {
			continue
		}
		hosts = append(hosts, domain.Host{IP: ip, Port: port})
	}
	return hosts
}
