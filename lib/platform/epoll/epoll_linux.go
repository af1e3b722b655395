//go:build linux

package epoll

import (
	"fmt"
	"time"

	"example.com/peerwire/lib/core/adapter/poller"

	"golang.org/x/sys/unix"
)

const maxEvents = 64

// Epoll is an edge-triggered poller watching for both directions.
type Epoll struct {
	fd     int
	events []unix.EpollEvent
}

var _ poller.Poller = &Epoll{}

func New() (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Epoll{fd: fd, events: make([]unix.EpollEvent, maxEvents)}, nil
}

func (e *Epoll) Add(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add %d: %w", fd, err)
	}
	return nil
}

// Wait blocks up to timeout. An interrupted wait returns no events.
func (e *Epoll) Wait(timeout time.Duration) ([]poller.Event, error) {
	n, err := unix.EpollWait(e.fd, e.events, int(timeout/time.Millisecond))
	if err == unix.EINTR {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}
	out := make([]poller.Event, 0, n)
	for _, ev := range e.events[:n] {
		out = append(out, poller.Event{
			Fd:       int(ev.Fd),
			Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Hangup:   ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}
	return out, nil
}

func (e *Epoll) Close() error {
	return unix.Close(e.fd)
}
