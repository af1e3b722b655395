package udptracker

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"example.com/peerwire/lib/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time                         { return c.t }
func (c fixedClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

var testTime = time.Date(2020, time.February, 12, 17, 18, 10, 0, time.UTC)

// serveTracker answers one connect and one announce.
func serveTracker(conn net.PacketConn, hosts []domain.Host, got chan<- announceRequest) {
	b := make([]byte, 2048)
	n, addr, err := conn.ReadFrom(b)
	if err != nil {
		return
	}
	req, err := newConnectRequestFromBytes(b[:n])
	if err != nil || req.protocolId != protocolID {
		return
	}
	resp := connectResponse{action: actionConnect, transactionID: req.transactionID, connID: 123}
	conn.WriteTo(resp.getBytes(), addr)

	n, addr, err = conn.ReadFrom(b)
	if err != nil {
		return
	}
	announce, err := newAnnounceRequestFromBytes(b[:n])
	if err != nil {
		return
	}
	got <- announce
	reply := AnnounceResponse{
		Action:   actionAnnounce,
		TxnID:    announce.transactionID,
		Interval: 1800,
		Seeders:  uint32(len(hosts)),
		Hosts:    hosts,
	}
	conn.WriteTo(reply.getBytes(), addr)
}

func TestGetPeers(t *testing.T) {
	conn, err := nettest.NewLocalPacketListener("udp4")
	require.NoError(t, err)
	defer conn.Close()

	hosts := []domain.Host{
		{IP: net.IPv4(10, 0, 0, 1).To4(), Port: 6881},
		{IP: net.IPv4(10, 0, 0, 2).To4(), Port: 0},
		{IP: net.IPv4(10, 0, 0, 3).To4(), Port: 51413},
	}
	got := make(chan announceRequest, 1)
	go serveTracker(conn, hosts, got)

	tracker, err := url.Parse(fmt.Sprintf("udp://%s/announce", conn.LocalAddr().String()))
	require.NoError(t, err)
	u := UdpPeerList{
		InfoHash: [20]byte{1, 2, 3},
		PeerID:   []byte("-PW0001-123456789012"),
		Port:     6881,
		Left:     1000,
		Trackers: []*url.URL{tracker},
		Clock:    fixedClock{testTime},
		Timeout:  2 * time.Second,
	}

	peers, err := u.GetPeers(context.Background())
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.True(t, peers[0].Equal(hosts[0]))
	assert.True(t, peers[1].Equal(hosts[2]))

	req := <-got
	assert.Equal(t, uint64(123), req.connID)
	assert.Equal(t, uint32(actionAnnounce), req.action)
	assert.Equal(t, u.InfoHash, req.infoHash)
	assert.Equal(t, "-PW0001-123456789012", string(req.peerID[:]))
	assert.Equal(t, uint64(1000), req.left)
	assert.Equal(t, uint16(6881), req.port)
	assert.Equal(t, uint32(0xffffffff), req.numWant)
}

func TestGetPeersTimeout(t *testing.T) {
	conn, err := nettest.NewLocalPacketListener("udp4")
	require.NoError(t, err)
	defer conn.Close()

	tracker, err := url.Parse(fmt.Sprintf("udp://%s/announce", conn.LocalAddr().String()))
	require.NoError(t, err)
	u := UdpPeerList{
		Trackers: []*url.URL{tracker},
		Clock:    fixedClock{testTime},
		Timeout:  50 * time.Millisecond,
		Retries:  2,
	}
	_, err = u.GetPeers(context.Background())
	assert.Error(t, err)

	_, err = UdpPeerList{Clock: fixedClock{testTime}}.GetPeers(context.Background())
	assert.ErrorIs(t, err, ErrNoPeers)
}

func TestConnectRequestBytes(t *testing.T) {
	req := newConnectRequest(0xdeadbeef)
	b := req.getBytes()
	assert.Len(t, b, 16)
	back, err := newConnectRequestFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, req, back)

	_, err = newConnectResponse(b[:10])
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestNewAnnounceResponse(t *testing.T) {
	b := AnnounceResponse{
		Action: actionAnnounce,
		TxnID:  7,
		Hosts:  []domain.Host{{IP: net.IPv4(1, 2, 3, 4), Port: 80}},
	}.getBytes()
	resp, err := newAnnounceResponse(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), resp.TxnID)
	require.Len(t, resp.Hosts, 1)
	assert.Equal(t, "1.2.3.4:80", resp.Hosts[0].String())

	_, err = newAnnounceResponse(append(b, 1))
	assert.ErrorIs(t, err, ErrBadResponse)
	_, err = newAnnounceResponse(b[:12])
	assert.ErrorIs(t, err, ErrBadResponse)

	errMsg := append([]byte{0, 0, 0, 3, 0, 0, 0, 7}, "torrent not registered"...)
	_, err = newAnnounceResponse(errMsg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "torrent not registered")
}

func TestGetTimeout(t *testing.T) {
	assert.Equal(t, 15*time.Second, getTimeout(0, 0))
	assert.Equal(t, 30*time.Second, getTimeout(0, 1))
	assert.Equal(t, time.Second<<8, getTimeout(time.Second, 12))
}
