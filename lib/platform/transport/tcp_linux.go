//go:build linux

package transport

import (
	"fmt"
	"io"
	"time"

	"example.com/peerwire/lib/core/adapter/transport"
	"example.com/peerwire/lib/core/domain"

	"golang.org/x/sys/unix"
)

// TCPConn is a non-blocking TCP socket meant to be driven by a readiness
// poller. Bytes the socket does not accept yet are kept until Flush.
type TCPConn struct {
	fd      int
	pending []byte
}

var _ transport.Pollable = &TCPConn{}

// DialTCP starts a non-blocking connect. The result is known once the socket
// becomes writable; see ConnectError.
func DialTCP(h domain.Host) (*TCPConn, error) {
	var (
		family int
		sa     unix.Sockaddr
	)
	if ip4 := h.IP.To4(); ip4 != nil {
		addr := &unix.SockaddrInet4{Port: int(h.Port)}
		copy(addr.Addr[:], ip4)
		family, sa = unix.AF_INET, addr
	} else if ip6 := h.IP.To16(); ip6 != nil {
		addr := &unix.SockaddrInet6{Port: int(h.Port)}
		copy(addr.Addr[:], ip6)
		family, sa = unix.AF_INET6, addr
	} else {
		return nil, fmt.Errorf("bad address %q", h.IP)
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, fmt.Errorf("connect %s: %w", h, err)
	}
	return &TCPConn{fd: fd}, nil
}

// Dial matches the session dialer signature.
func Dial(h domain.Host) (transport.Pollable, error) {
	c, err := DialTCP(h)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *TCPConn) Fd() int {
	return c.fd
}

func (c *TCPConn) Send(b []byte) error {
	if c.fd < 0 {
		return ErrClosed
	}
	c.pending = append(c.pending, b...)
	return c.Flush()
}

func (c *TCPConn) Flush() error {
	if c.fd < 0 {
		return ErrClosed
	}
	for len(c.pending) > 0 {
		n, err := unix.Write(c.fd, c.pending)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return nil
		case err != nil:
			return err
		}
		c.pending = c.pending[n:]
	}
	c.pending = nil
	return nil
}

// Receive reads at most max bytes. It returns no data and no error when the
// socket has nothing buffered, and io.EOF when the peer closed.
func (c *TCPConn) Receive(max int) ([]byte, error) {
	if c.fd < 0 {
		return nil, ErrClosed
	}
	buf := make([]byte, max)
	for {
		n, err := unix.Read(c.fd, buf)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return nil, nil
		case err != nil:
			return nil, err
		case n == 0:
			return nil, io.EOF
		}
		return buf[:n], nil
	}
}

// SetTimeout sets SO_RCVTIMEO and SO_SNDTIMEO. They only matter if the socket
// is switched to blocking mode; sessions enforce their own connect deadline.
func (c *TCPConn) SetTimeout(d time.Duration) error {
	if c.fd < 0 {
		return ErrClosed
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if err := unix.SetsockoptTimeval(c.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return err
	}
	return unix.SetsockoptTimeval(c.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
}

func (c *TCPConn) ConnectError() error {
	if c.fd < 0 {
		return ErrClosed
	}
	v, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// Close releases the descriptor, which also drops it from any epoll set.
func (c *TCPConn) Close() error {
	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	c.pending = nil
	return err
}
