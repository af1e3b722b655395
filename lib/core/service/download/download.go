package download

import (
	"context"
	"errors"
	"fmt"
	"io"

	"example.com/peerwire/lib/core/adapter/clock"
	"example.com/peerwire/lib/core/adapter/peer"
	"example.com/peerwire/lib/core/adapter/peerlist"
	"example.com/peerwire/lib/core/adapter/poller"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/core/service/peerpool"
	"example.com/peerwire/lib/files"
	"example.com/peerwire/lib/logger"
	"example.com/peerwire/lib/progress"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

var l_download = logger.Named("download")

var (
	ErrNoPeers    = peerpool.ErrNoPeers
	ErrIncomplete = errors.New("download incomplete")
)

// Service downloads one torrent into OutDir.
type Service struct {
	Config  Config
	Torrent domain.Torrent
	Fs      afero.Fs
	OutDir  string
	Peers   peerlist.PeerRepo
	Clock   clock.Clock
	// Progress receives the progress line; nil disables it.
	Progress io.Writer

	NewPoller      func() (poller.Poller, error)
	NewPeerFactory func(cfg Config, t domain.Torrent, source peer.PieceSource) peer.PeerFactory
}

func (s Service) Files() files.Files {
	return files.Files{Fs: s.Fs, BasePath: s.OutDir, Torrent: s.Torrent}
}

// Run fetches peers, downloads until every piece is verified and written,
// and returns ErrIncomplete if the sessions ran out first.
func (s Service) Run(ctx context.Context) (err error) {
	ctx = logger.NewContextid(ctx)
	l := logger.Ctx(l_download, ctx).Sugar()

	hosts, err := s.Peers.GetPeers(ctx)
	if err != nil {
		return fmt.Errorf("get peers: %w", err)
	}
	if len(hosts) == 0 {
		return ErrNoPeers
	}
	l.Infow("got peers", "count", len(hosts), "torrent", s.Torrent.Name)

	fd, err := s.Files().CreateFile()
	if err != nil {
		return err
	}
	writer := files.NewWriter(fd, s.Torrent.Length)
	defer func() {
		err = multierr.Append(err, writer.Close())
	}()

	counters := &progress.Counters{}
	coord := NewCoordinator(s.Torrent, writer, counters)

	p, err := s.NewPoller()
	if err != nil {
		return fmt.Errorf("create poller: %w", err)
	}
	pool := peerpool.Factory{
		PeerFactory: s.NewPeerFactory(s.Config, s.Torrent, coord),
		Poller:      p,
		Clock:       s.Clock,
		MaxPeers:    s.Config.MaxPeers,
		PollTimeout: s.Config.PollTimeout,
	}.New()
	defer func() {
		err = multierr.Append(err, pool.Close())
	}()

	if started := pool.AddHosts(hosts...); started == 0 {
		return ErrNoPeers
	}

	if s.Progress != nil {
		sampler := progress.NewSampler(counters, s.Torrent.Length, s.Config.SampleInterval, s.Clock, s.Progress)
		sampler.Start()
		defer sampler.Stop()
	}

	runErr := pool.Run(ctx, coord.IsComplete)
	if coord.IsComplete() {
		l.Infow("download complete", "bytes", coord.Confirmed())
		return nil
	}
	l.Warnw("download stopped", "confirmed", coord.Confirmed(), "total", s.Torrent.Length, "err", runErr)
	if runErr != nil {
		return fmt.Errorf("%w: %w", ErrIncomplete, runErr)
	}
	return ErrIncomplete
}
