//go:build !linux

package epoll

import (
	"errors"
	"time"

	"example.com/peerwire/lib/core/adapter/poller"
)

var ErrUnsupported = errors.New("epoll needs linux")

type Epoll struct{}

var _ poller.Poller = &Epoll{}

func New() (*Epoll, error) {
	return nil, ErrUnsupported
}

func (*Epoll) Add(int) error                               { return ErrUnsupported }
func (*Epoll) Wait(time.Duration) ([]poller.Event, error) { return nil, ErrUnsupported }
func (*Epoll) Close() error                                { return nil }
