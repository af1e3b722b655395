package domain

import (
	"net"
	"strconv"
)

// Host is a peer as handed out by a tracker. PeerID is only known for
// non-compact tracker replies and may be nil.
type Host struct {
	IP     net.IP
	Port   uint16
	PeerID []byte
}

func (h Host) Equal(another Host) bool {
	return h.Port == another.Port && h.IP.Equal(another.IP)
}

func (h Host) String() string {
	return net.JoinHostPort(h.IP.String(), strconv.Itoa(int(h.Port)))
}

// ParseHost reads "ip:port".
func ParseHost(s string) (Host, error) {
	ipStr, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Host{}, err
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		addrs, err := net.LookupIP(ipStr)
		if err != nil {
			return Host{}, err
		}
		ip = addrs[0]
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Host{}, err
	}
	return Host{IP: ip, Port: uint16(port)}, nil
}
