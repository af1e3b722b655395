package peer

import (
	"time"

	"example.com/peerwire/lib/core/domain"
)

// Peer is one connection as seen by the reactor. All methods are called from
// the reactor goroutine.
type Peer interface {
	Connect() error
	Fd() int
	OnReadable()
	OnWritable()
	OnTick(now time.Time)
	Closed() bool
	Close()
}

type Pick int

const (
	PickAssigned Pick = iota
	// PickNoneEligible means pieces remain but this peer has none of them.
	PickNoneEligible
	PickExhausted
)

// PieceSource hands out pieces and receives their blocks.
type PieceSource interface {
	NextPiece(has func(index int) bool) (int, Pick)
	PieceSize(index int) int64
	OnBlockReceived(index, begin int, data []byte)
	// Release gives back an assigned piece that will not be finished.
	Release(index int)
}

type PeerFactory interface {
	New(h domain.Host) Peer
}

type PeerFactoryFn func(h domain.Host) Peer

func (p PeerFactoryFn) New(h domain.Host) Peer {
	return p(h)
}
