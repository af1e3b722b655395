package poller

import "time"

type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Hangup   bool
}

// Poller waits for readiness on registered descriptors. Closing a descriptor
// unregisters it.
type Poller interface {
	Add(fd int) error
	Wait(timeout time.Duration) ([]Event, error)
	Close() error
}
