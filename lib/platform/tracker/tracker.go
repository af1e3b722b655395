package tracker

import (
	"fmt"
	"net/url"
	"time"

	"example.com/peerwire/lib/core/adapter/clock"
	"example.com/peerwire/lib/core/adapter/peerlist"
	"example.com/peerwire/lib/platform/httptracker"
	"example.com/peerwire/lib/platform/udptracker"
)

type Options struct {
	InfoHash [20]byte
	PeerID   []byte
	Port     uint16
	Left     int64
	Timeout  time.Duration
	Clock    clock.Clock
}

// New picks a tracker client for announce by URL scheme.
func New(announce string, opts Options) (peerlist.PeerRepo, error) {
	u, err := url.Parse(announce)
	if err != nil {
		return nil, fmt.Errorf("parse announce url: %w", err)
	}
	switch u.Scheme {
	case "udp":
		return udptracker.UdpPeerList{
			InfoHash: opts.InfoHash,
			PeerID:   opts.PeerID,
			Port:     opts.Port,
			Left:     opts.Left,
			Trackers: []*url.URL{u},
			Clock:    opts.Clock,
			Timeout:  opts.Timeout,
			Retries:  2,
		}, nil
	case "http", "https":
		return httptracker.PeerList{
			Announce: u,
			InfoHash: opts.InfoHash,
			PeerID:   opts.PeerID,
			Port:     opts.Port,
			Left:     opts.Left,
		}, nil
	}
	return nil, fmt.Errorf("unsupported tracker scheme %q", u.Scheme)
}
