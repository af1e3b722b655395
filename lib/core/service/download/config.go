package download

import "time"

type Config struct {
	// MaxPeers bounds concurrent sessions.
	MaxPeers  int
	BlockSize int
	// RecvSize is the most read from a socket in one call.
	RecvSize       int
	PollTimeout    time.Duration
	SampleInterval time.Duration
	ConnectTimeout time.Duration
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
	PeerID         string
}

func DefaultConfig() Config {
	return Config{
		MaxPeers:       5,
		BlockSize:      16 * 1024,
		RecvSize:       8192,
		PollTimeout:    time.Second,
		SampleInterval: 200 * time.Millisecond,
		ConnectTimeout: 2 * time.Second,
		MinBackoff:     250 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		PeerID:         "-PW0001-000000000000",
	}
}
