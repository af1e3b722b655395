package httptracker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"example.com/peerwire/lib/core/adapter/peerlist"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/logger"
	"example.com/peerwire/lib/platform/udptracker"

	"github.com/jackpal/bencode-go"
)

var l_httptracker = logger.Named("httptracker")

var ErrTrackerFailure = errors.New("tracker failure")

// PeerList announces over HTTP(S) and reads the bencoded reply.
type PeerList struct {
	Announce *url.URL
	InfoHash [20]byte
	PeerID   []byte
	Port     uint16
	Left     int64
	Client   *http.Client
}

var _ peerlist.PeerRepo = PeerList{}

func (p PeerList) announceURL() string {
	q := p.Announce.Query()
	q.Set("info_hash", string(p.InfoHash[:]))
	q.Set("peer_id", string(p.PeerID))
	q.Set("port", strconv.Itoa(int(p.Port)))
	q.Set("uploaded", "0")
	q.Set("downloaded", "0")
	q.Set("left", strconv.FormatInt(p.Left, 10))
	q.Set("compact", "1")
	q.Set("event", "started")

	u := *p.Announce
	u.RawQuery = q.Encode()
	return u.String()
}

func (p PeerList) GetPeers(ctx context.Context) ([]domain.Host, error) {
	l := logger.Ctx(l_httptracker, ctx).Sugar()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.announceURL(), nil)
	if err != nil {
		return nil, err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %s", ErrTrackerFailure, resp.Status)
	}

	raw, err := bencode.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode tracker reply: %w", err)
	}
	hosts, err := parseReply(raw)
	if err != nil {
		return nil, err
	}
	l.Infow("announced", "tracker", p.Announce.Host, "peers", len(hosts))
	return hosts, nil
}

// parseReply accepts both the compact string form and the list of
// dictionaries form of "peers".
func parseReply(raw interface{}) ([]domain.Host, error) {
	dict, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: reply is not a dictionary", ErrTrackerFailure)
	}
	if reason, ok := dict["failure reason"].(string); ok {
		return nil, fmt.Errorf("%w: %s", ErrTrackerFailure, reason)
	}

	switch peers := dict["peers"].(type) {
	case string:
		if len(peers)%6 != 0 {
			return nil, fmt.Errorf("%w: %d bytes of compact peers", ErrTrackerFailure, len(peers))
		}
		return udptracker.ParseCompactPeers([]byte(peers)), nil
	case []interface{}:
		var hosts []domain.Host
		for _, entry := range peers {
			e, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			ipStr, _ := e["ip"].(string)
			port, _ := e["port"].(int64)
			ip := net.ParseIP(ipStr)
			if ip == nil || port <= 0 || port > 65535 {
				continue
			}
			h := domain.Host{IP: ip, Port: uint16(port)}
			if id, ok := e["peer id"].(string); ok {
				h.PeerID = []byte(id)
			}
			hosts = append(hosts, h)
		}
		return hosts, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unexpected peers type %T", ErrTrackerFailure, peers)
	}
}
