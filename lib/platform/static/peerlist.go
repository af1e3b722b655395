package static

import (
	"context"
	"errors"

	"example.com/peerwire/lib/core/adapter/peerlist"
	"example.com/peerwire/lib/core/domain"
)

var ErrNoHosts = errors.New("no hosts configured")

// PeerList hands out a fixed set of hosts, e.g. from the command line.
type PeerList struct {
	Hosts []domain.Host
}

var _ peerlist.PeerRepo = PeerList{}

func (p PeerList) GetPeers(ctx context.Context) ([]domain.Host, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.Hosts) == 0 {
		return nil, ErrNoHosts
	}
	return append([]domain.Host(nil), p.Hosts...), nil
}
