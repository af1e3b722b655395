package transport

import (
	"context"
	"net"
	"time"

	"example.com/peerwire/lib/core/adapter/transport"
)

// UDPConn is a blocking datagram transport with a per-call deadline.
type UDPConn struct {
	conn    net.Conn
	timeout time.Duration
}

var _ transport.Conn = &UDPConn{}

func DialUDP(ctx context.Context, addr string) (*UDPConn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, err
	}
	u := &UDPConn{conn: c}
	if deadline, ok := ctx.Deadline(); ok {
		u.timeout = time.Until(deadline)
	}
	return u, nil
}

func (u *UDPConn) Send(b []byte) error {
	if u.timeout > 0 {
		if err := u.conn.SetWriteDeadline(time.Now().Add(u.timeout)); err != nil {
			return err
		}
	}
	_, err := u.conn.Write(b)
	return err
}

// Receive reads one datagram, truncated to max bytes.
func (u *UDPConn) Receive(max int) ([]byte, error) {
	if u.timeout > 0 {
		if err := u.conn.SetReadDeadline(time.Now().Add(u.timeout)); err != nil {
			return nil, err
		}
	}
	buf := make([]byte, max)
	n, err := u.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (u *UDPConn) SetTimeout(d time.Duration) error {
	u.timeout = d
	return nil
}

func (u *UDPConn) Close() error {
	return u.conn.Close()
}
