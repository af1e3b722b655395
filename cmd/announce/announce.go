// Command announce asks the tracker of a torrent for peers once and prints them.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"time"

	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/platform/peer"
	"example.com/peerwire/lib/platform/realclock"
	"example.com/peerwire/lib/platform/tracker"
)

func main() {
	port := flag.Uint("port", 6881, "port reported to the tracker")
	timeout := flag.Duration("timeout", 15*time.Second, "tracker timeout")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: announce [flags] file.torrent")
		os.Exit(2)
	}

	fd, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tor, err := domain.ParseTorrent(fd)
	fd.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	peerID := make([]byte, 20)
	copy(peerID, "-PW0001-")
	rand.Read(peerID[8:])

	tr, err := tracker.New(tor.Announce, tracker.Options{
		InfoHash: tor.InfoHash,
		PeerID:   peer.PadPeerID(string(peerID)),
		Port:     uint16(*port),
		Left:     tor.Length,
		Timeout:  *timeout,
		Clock:    realclock.Clock{},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4 * *timeout)
	defer cancel()
	hosts, err := tr.GetPeers(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("%s %x: %d peers\n", tor.Announce, tor.InfoHash, len(hosts))
	for _, h := range hosts {
		fmt.Println(h)
	}
}
