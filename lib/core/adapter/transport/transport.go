package transport

import "time"

// Conn is a byte transport. Receive returns at most max bytes; a zero-length
// result with a nil error means nothing is available right now.
type Conn interface {
	Send(b []byte) error
	Receive(max int) ([]byte, error)
	SetTimeout(d time.Duration) error
	Close() error
}

// Pollable is a non-blocking Conn driven by a readiness poller.
type Pollable interface {
	Conn
	Fd() int
	// Flush writes as much of the pending send buffer as the socket accepts.
	Flush() error
	// ConnectError reports the result of the asynchronous connect.
	ConnectError() error
}
