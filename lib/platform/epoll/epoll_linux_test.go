//go:build linux

package epoll

import (
	"io"
	"net"
	"testing"
	"time"

	"example.com/peerwire/lib/core/adapter/poller"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/platform/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func TestEpollConnectAndRead(t *testing.T) {
	ln, err := nettest.NewLocalListener("tcp4")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	conn, err := transport.DialTCP(domain.Host{IP: addr.IP, Port: uint16(addr.Port)})
	require.NoError(t, err)
	defer conn.Close()

	ep, err := New()
	require.NoError(t, err)
	defer ep.Close()
	require.NoError(t, ep.Add(conn.Fd()))

	waitFor := func(pred func(ev []poller.Event) bool) {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			evs, err := ep.Wait(100 * time.Millisecond)
			require.NoError(t, err)
			if pred(evs) {
				return
			}
		}
		t.Fatal("timed out waiting for readiness")
	}

	waitFor(func(evs []poller.Event) bool {
		for _, ev := range evs {
			if ev.Fd == conn.Fd() && ev.Writable {
				return true
			}
		}
		return false
	})
	assert.NoError(t, conn.ConnectError())

	var remote net.Conn
	select {
	case remote = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("no accept")
	}
	defer remote.Close()

	_, err = remote.Write([]byte("hello"))
	require.NoError(t, err)

	waitFor(func(evs []poller.Event) bool {
		for _, ev := range evs {
			if ev.Fd == conn.Fd() && ev.Readable {
				return true
			}
		}
		return false
	})
	b, err := conn.Receive(8192)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	b, err = conn.Receive(8192)
	assert.NoError(t, err)
	assert.Empty(t, b)

	require.NoError(t, conn.Send([]byte("world")))
	got := make([]byte, 5)
	require.NoError(t, remote.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = io.ReadFull(remote, got)
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}
