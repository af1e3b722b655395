package udptracker

/*
 * BEP 15 UDPTracker
 */
import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"example.com/peerwire/lib/core/adapter/clock"
	"example.com/peerwire/lib/core/adapter/peerlist"
	"example.com/peerwire/lib/core/adapter/transport"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/logger"
	udp "example.com/peerwire/lib/platform/transport"

	"go.uber.org/multierr"
)

var l_udptracker = logger.Named("udptracker")

var ErrNoPeers = errors.New("trackers returned no peers")

const maxDatagram = 4096

type UdpPeerList struct {
	InfoHash [20]byte
	PeerID   []byte
	Port     uint16
	Left     int64
	Trackers []*url.URL
	Clock    clock.Clock
	// Timeout is the first attempt's wait; each retry doubles it.
	Timeout time.Duration
	Retries int
	Dial    func(ctx context.Context, addr string) (transport.Conn, error)
}

var _ peerlist.PeerRepo = UdpPeerList{}

func dialUDP(ctx context.Context, addr string) (transport.Conn, error) {
	return udp.DialUDP(ctx, addr)
}

func (peerList UdpPeerList) GetPeers(ctx context.Context) ([]domain.Host, error) {
	var (
		hosts []domain.Host
		errs  error
	)
	for _, t := range peerList.Trackers {
		resp, err := peerList.Announce(ctx, t)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", t.Host, err))
			continue
		}
		hosts = appendNew(hosts, resp.Hosts...)
	}
	if len(hosts) == 0 {
		if errs != nil {
			return nil, errs
		}
		return nil, ErrNoPeers
	}
	return hosts, nil
}

// Announce runs connect and announce against one tracker, retrying with a
// doubling timeout.
func (peerList UdpPeerList) Announce(ctx context.Context, u *url.URL) (AnnounceResponse, error) {
	l := logger.Ctx(l_udptracker, ctx).Sugar()
	attempts := peerList.Retries
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for n := 0; n < attempts; n++ {
		var resp AnnounceResponse
		resp, err = peerList.announce(ctx, u, getTimeout(peerList.Timeout, n))
		if err == nil {
			l.Infow("announced", "tracker", u.Host, "peers", len(resp.Hosts), "interval", resp.Interval)
			return resp, nil
		}
		if ctx.Err() != nil {
			return AnnounceResponse{}, ctx.Err()
		}
		l.Warnw("announce failed", "tracker", u.Host, "attempt", n, "err", err)
	}
	return AnnounceResponse{}, err
}

func getTimeout(base time.Duration, retryN int) time.Duration {
	if base <= 0 {
		base = 15 * time.Second
	}
	n := retryN
	if n >= 8 {
		n = 8
	}
	return base << n
}

func (peerList UdpPeerList) announce(ctx context.Context, u *url.URL, timeout time.Duration) (AnnounceResponse, error) {
	dial := peerList.Dial
	if dial == nil {
		dial = dialUDP
	}
	c, err := dial(ctx, u.Host)
	if err != nil {
		return AnnounceResponse{}, err
	}
	defer c.Close()
	if err := c.SetTimeout(timeout); err != nil {
		return AnnounceResponse{}, err
	}

	txn := uint32(peerList.Clock.Now().UnixNano() ^ 0xdeadbeef)
	connReq := newConnectRequest(txn)
	if err := c.Send(connReq.getBytes()); err != nil {
		return AnnounceResponse{}, err
	}
	b, err := c.Receive(maxDatagram)
	if err != nil {
		return AnnounceResponse{}, err
	}
	connResp, err := newConnectResponse(b)
	if err != nil {
		return AnnounceResponse{}, err
	}
	if !connResp.matchesWithReq(connReq) {
		return AnnounceResponse{}, fmt.Errorf("%w: connect reply does not match request", ErrBadResponse)
	}

	announceReq := newAnnounceRequest()
	announceReq.connID = connResp.connID
	announceReq.transactionID = txn + 1
	announceReq.infoHash = peerList.InfoHash
	copy(announceReq.peerID[:], peerList.PeerID)
	announceReq.left = uint64(peerList.Left)
	announceReq.port = peerList.Port

	if err := c.Send(announceReq.getBytes()); err != nil {
		return AnnounceResponse{}, err
	}
	b, err = c.Receive(maxDatagram)
	if err != nil {
		return AnnounceResponse{}, err
	}
	resp, err := newAnnounceResponse(b)
	if err != nil {
		return AnnounceResponse{}, err
	}
	if resp.Action != actionAnnounce || resp.TxnID != announceReq.transactionID {
		return AnnounceResponse{}, fmt.Errorf("%w: announce reply does not match request", ErrBadResponse)
	}
	return resp, nil
}

func appendNew(hosts []domain.Host, more ...domain.Host) []domain.Host {
NextHost:
	for _, h := range more {
		for _, existing := range hosts {
			if existing.Equal(h) {
				continue NextHost
			}
		}
		hosts = append(hosts, h)
	}
	return hosts
}
