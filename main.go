package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	peerAdapter "example.com/peerwire/lib/core/adapter/peer"
	"example.com/peerwire/lib/core/adapter/peerlist"
	"example.com/peerwire/lib/core/adapter/persistentmetadata"
	"example.com/peerwire/lib/core/adapter/poller"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/core/service/download"
	peerlistService "example.com/peerwire/lib/core/service/peerlist"
	"example.com/peerwire/lib/logger"
	"example.com/peerwire/lib/platform/epoll"
	"example.com/peerwire/lib/platform/gcache"
	"example.com/peerwire/lib/platform/mem"
	"example.com/peerwire/lib/platform/peer"
	"example.com/peerwire/lib/platform/realclock"
	"example.com/peerwire/lib/platform/static"
	"example.com/peerwire/lib/platform/tracker"
	"example.com/peerwire/lib/platform/transport"

	"github.com/rapidloop/skv"
	"github.com/spf13/afero"
)

const peerIDPrefix = "-PW0001-"

var l_main = logger.Named("main")

type hostsFlag []domain.Host

func (h *hostsFlag) String() string {
	var parts []string
	for _, host := range *h {
		parts = append(parts, host.String())
	}
	return strings.Join(parts, ",")
}

func (h *hostsFlag) Set(s string) error {
	host, err := domain.ParseHost(s)
	if err != nil {
		return err
	}
	*h = append(*h, host)
	return nil
}

type options struct {
	torrentPath    string
	outDir         string
	peers          hostsFlag
	cachePath      string
	logRule        string
	maxPeers       int
	port           uint
	trackerTimeout time.Duration
	verify         bool
	quiet          bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("peerwire", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.outDir, "o", ".", "output directory")
	fs.Var(&opts.peers, "peer", "peer `ip:port` to use instead of the tracker, repeatable")
	fs.StringVar(&opts.cachePath, "cache", "", "skv file remembering tracker replies between runs")
	fs.StringVar(&opts.logRule, "log", "warn+:*", "zapfilter rule")
	fs.IntVar(&opts.maxPeers, "peers", download.DefaultConfig().MaxPeers, "max concurrent peers")
	fs.UintVar(&opts.port, "port", 6881, "port reported to the tracker")
	fs.DurationVar(&opts.trackerTimeout, "timeout", 15*time.Second, "tracker timeout")
	fs.BoolVar(&opts.verify, "verify", false, "re-hash the file after downloading")
	fs.BoolVar(&opts.quiet, "q", false, "no progress bar")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: peerwire [flags] file.torrent\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("expected one torrent file")
	}
	if opts.maxPeers < 1 {
		return opts, fmt.Errorf("-peers must be positive, got %d", opts.maxPeers)
	}
	if opts.port > 65535 {
		return opts, fmt.Errorf("-port out of range: %d", opts.port)
	}
	opts.torrentPath = fs.Arg(0)
	return opts, nil
}

func newPeerID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return download.DefaultConfig().PeerID
	}
	return peerIDPrefix + hex.EncodeToString(b)
}

func sessionFactory(cfg download.Config, t domain.Torrent, source peerAdapter.PieceSource) peerAdapter.PeerFactory {
	return peer.NewFactory(peer.SessionConfig{
		InfoHash:       t.InfoHash,
		PeerID:         peer.PadPeerID(cfg.PeerID),
		PieceCount:     t.PieceCount(),
		BlockSize:      cfg.BlockSize,
		RecvSize:       cfg.RecvSize,
		ConnectTimeout: cfg.ConnectTimeout,
		MinBackoff:     cfg.MinBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	}, transport.Dial, source, realclock.Clock{})
}

func newPoller() (poller.Poller, error) {
	return epoll.New()
}

func peerRepo(opts options, tor domain.Torrent, cfg download.Config) (peerlist.PeerRepo, func(), error) {
	if len(opts.peers) > 0 {
		return static.PeerList{Hosts: opts.peers}, func() {}, nil
	}

	tr, err := tracker.New(tor.Announce, tracker.Options{
		InfoHash: tor.InfoHash,
		PeerID:   peer.PadPeerID(cfg.PeerID),
		Port:     uint16(opts.port),
		Left:     tor.Length,
		Timeout:  opts.trackerTimeout,
		Clock:    realclock.Clock{},
	})
	if err != nil {
		return nil, nil, err
	}

	var store persistentmetadata.PersistentMetadata = mem.NewMetadata()
	closeStore := func() {}
	if opts.cachePath != "" {
		skvStore, err := skv.Open(opts.cachePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		store = skvStore
		closeStore = func() { skvStore.Close() }
	}

	return peerlistService.Impl{
		Cache:              gcache.NewCache(10, 0),
		PersistentMetadata: store,
		PeerList:           tr,
		Clock:              realclock.Clock{},
		Namespace:          hex.EncodeToString(tor.InfoHash[:]),
	}, closeStore, nil
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if err := logger.SetRule(opts.logRule); err != nil {
		return fmt.Errorf("bad -log rule: %w", err)
	}

	fd, err := os.Open(opts.torrentPath)
	if err != nil {
		return err
	}
	tor, err := domain.ParseTorrent(fd)
	fd.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", opts.torrentPath, err)
	}

	cfg := download.DefaultConfig()
	cfg.MaxPeers = opts.maxPeers
	cfg.PeerID = newPeerID()

	repo, closeRepo, err := peerRepo(opts, tor, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc := download.Service{
		Config:         cfg,
		Torrent:        tor,
		Fs:             afero.NewOsFs(),
		OutDir:         opts.outDir,
		Peers:          repo,
		Clock:          realclock.Clock{},
		NewPoller:      newPoller,
		NewPeerFactory: sessionFactory,
	}
	if !opts.quiet {
		svc.Progress = stdout
	}

	l_main.Sugar().Infow("starting download", "name", tor.Name, "length", tor.Length, "pieces", tor.PieceCount())
	if err := svc.Run(ctx); err != nil {
		return err
	}

	if opts.verify {
		bad, err := svc.Files().CheckFiles()
		if err != nil {
			return err
		}
		if len(bad) > 0 {
			return fmt.Errorf("%d pieces failed verification, first %d", len(bad), bad[0])
		}
	}
	fmt.Fprintf(stdout, "saved %s\n", svc.Files().Path())
	return nil
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
