package peer

import (
	"example.com/peerwire/lib/core/adapter/clock"
	"example.com/peerwire/lib/core/adapter/peer"
	"example.com/peerwire/lib/core/domain"
)

// NewFactory builds sessions that share one configuration and piece source.
func NewFactory(cfg SessionConfig, dial Dialer, source peer.PieceSource, clk clock.Clock) peer.PeerFactory {
	return peer.PeerFactoryFn(func(h domain.Host) peer.Peer {
		return NewSession(h, cfg, dial, source, clk)
	})
}
