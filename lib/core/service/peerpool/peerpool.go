package peerpool

import (
	"context"
	"errors"
	"time"

	"example.com/peerwire/lib/core/adapter/clock"
	"example.com/peerwire/lib/core/adapter/peer"
	"example.com/peerwire/lib/core/adapter/poller"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/logger"
)

var l_peerpool = logger.Named("peerpool")

var ErrNoPeers = errors.New("no live peers left")

// PeerPool runs every session on one goroutine, dispatching readiness events
// from the poller.
type PeerPool interface {
	// AddHosts connects to hosts not seen before, up to MaxPeers in total.
	// It returns how many sessions were started.
	AddHosts(newHosts ...domain.Host) int
	AddPeer(newPeers ...peer.Peer)
	// Run loops until stop reports true, ctx is done or every session closed.
	Run(ctx context.Context, stop func() bool) error
	Live() int
	Close() error
}

type Factory struct {
	PeerFactory peer.PeerFactory
	Poller      poller.Poller
	Clock       clock.Clock
	MaxPeers    int
	PollTimeout time.Duration
}

func (b Factory) New() PeerPool {
	return &peerPoolImpl{
		Factory: b,
		byFd:    make(map[int]peer.Peer),
	}
}

type peerPoolImpl struct {
	Factory

	hosts []domain.Host
	peers []peer.Peer
	byFd  map[int]peer.Peer
}

func (impl *peerPoolImpl) AddHosts(newHosts ...domain.Host) int {
	started := 0
NextHost:
	for _, newHost := range newHosts {
		if impl.MaxPeers > 0 && len(impl.hosts) >= impl.MaxPeers {
			break
		}
		for _, existingHost := range impl.hosts {
			if newHost.Equal(existingHost) {
				continue NextHost
			}
		}
		impl.hosts = append(impl.hosts, newHost)
		before := len(impl.peers)
		impl.AddPeer(impl.PeerFactory.New(newHost))
		if len(impl.peers) > before {
			started++
		}
	}
	return started
}

func (impl *peerPoolImpl) AddPeer(newPeers ...peer.Peer) {
	for _, p := range newPeers {
		if err := p.Connect(); err != nil {
			l_peerpool.Sugar().Infow("connect failed", "err", err)
			continue
		}
		fd := p.Fd()
		if err := impl.Poller.Add(fd); err != nil {
			l_peerpool.Sugar().Warnw("cannot watch peer", "fd", fd, "err", err)
			p.Close()
			continue
		}
		impl.byFd[fd] = p
		impl.peers = append(impl.peers, p)
	}
}

func (impl *peerPoolImpl) Live() int {
	return len(FilterPool(impl.peers, FilterOpen))
}

func (impl *peerPoolImpl) Run(ctx context.Context, stop func() bool) error {
	l := logger.Ctx(l_peerpool, ctx).Sugar()
	l.Infow("starting peerpool", "peers", len(impl.peers))

	for {
		if stop() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		impl.prune()
		if len(impl.peers) == 0 {
			return ErrNoPeers
		}

		events, err := impl.Poller.Wait(impl.PollTimeout)
		if err != nil {
			return err
		}
		for _, ev := range events {
			p, ok := impl.byFd[ev.Fd]
			if !ok || p.Closed() {
				continue
			}
			if ev.Writable {
				p.OnWritable()
			}
			// A hangup without data still needs a read to notice EOF.
			if (ev.Readable || ev.Hangup) && !p.Closed() {
				p.OnReadable()
			}
		}

		now := impl.Clock.Now()
		for _, p := range impl.peers {
			if !p.Closed() {
				p.OnTick(now)
			}
		}
	}
}

func (impl *peerPoolImpl) prune() {
	closed := FilterPool(impl.peers, FilterClosed)
	if len(closed) == 0 {
		return
	}
	for fd, p := range impl.byFd {
		if p.Closed() {
			delete(impl.byFd, fd)
		}
	}
	impl.peers = FilterPool(impl.peers, FilterOpen)
	l_peerpool.Sugar().Debugw("pruned sessions", "closed", len(closed), "live", len(impl.peers))
}

func (impl *peerPoolImpl) Close() error {
	for _, p := range impl.peers {
		p.Close()
	}
	impl.peers = nil
	impl.byFd = make(map[int]peer.Peer)
	return impl.Poller.Close()
}
