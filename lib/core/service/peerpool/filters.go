package peerpool

import "example.com/peerwire/lib/core/adapter/peer"

func FilterOpen(peers []peer.Peer) []peer.Peer {
	return filter(peers, func(p peer.Peer) bool {
		return !p.Closed()
	})
}

func FilterClosed(peers []peer.Peer) []peer.Peer {
	return filter(peers, func(p peer.Peer) bool {
		return p.Closed()
	})
}

func filter(peers []peer.Peer, filterFunc func(peer.Peer) bool) []peer.Peer {
	var res []peer.Peer
	for _, p := range peers {
		if filterFunc(p) {
			res = append(res, p)
		}
	}
	return res
}

type PeerFilter func([]peer.Peer) []peer.Peer

func FilterPool(src []peer.Peer, filters ...PeerFilter) []peer.Peer {
	dst := src
	for _, f := range filters {
		dst = f(dst)
	}
	return dst
}
