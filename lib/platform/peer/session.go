package peer

import (
	"errors"
	"fmt"
	"time"

	"example.com/peerwire/lib/core/adapter/clock"
	"example.com/peerwire/lib/core/adapter/peer"
	"example.com/peerwire/lib/core/adapter/transport"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/logger"

	"github.com/boljen/go-bitmap"
)

var l_session = logger.Named("session")

const maxMessageLen = 1 << 20

var ErrConnectTimeout = errors.New("connect timed out")

type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateDownloading
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateDownloading:
		return "downloading"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Dialer starts a non-blocking connection to h.
type Dialer func(h domain.Host) (transport.Pollable, error)

type SessionConfig struct {
	InfoHash   [20]byte
	PeerID     []byte
	PieceCount int
	BlockSize  int
	RecvSize   int
	// ConnectTimeout bounds the time from Connect to a received handshake.
	ConnectTimeout time.Duration
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
}

// Session is one peer connection. It is driven by the reactor goroutine only.
type Session struct {
	host   domain.Host
	cfg    SessionConfig
	dial   Dialer
	source peer.PieceSource
	clock  clock.Clock

	state    State
	conn     transport.Pollable
	recvBuf  []byte
	choked   bool
	peerHas  bitmap.Bitmap
	remoteID [20]byte

	curPiece    int
	blockOffset int64
	// outstanding counts requested but undelivered bytes per piece.
	outstanding map[int]int64
	// pending holds requests sent and not answered yet. A choking peer
	// drops them, so they are sent again on unchoke.
	pending []blockRequest

	connectBy time.Time
	backoff   time.Duration
	retryAt   time.Time
}

type blockRequest struct {
	index  int
	begin  int64
	length int64
}

var _ peer.Peer = &Session{}

func NewSession(h domain.Host, cfg SessionConfig, dial Dialer, source peer.PieceSource, clk clock.Clock) *Session {
	return &Session{
		host:        h,
		cfg:         cfg,
		dial:        dial,
		source:      source,
		clock:       clk,
		state:       StateConnecting,
		choked:      true,
		peerHas:     bitmap.New(cfg.PieceCount),
		curPiece:    -1,
		outstanding: make(map[int]int64),
	}
}

func (s *Session) Host() domain.Host    { return s.host }
func (s *Session) State() State         { return s.state }
func (s *Session) Choked() bool         { return s.choked }
func (s *Session) RemotePeerID() []byte { return s.remoteID[:] }

func (s *Session) Connect() error {
	conn, err := s.dial(s.host)
	if err != nil {
		s.state = StateClosed
		l_session.Sugar().Debugw("dial failed", "peer", s.host.String(), "err", err)
		return err
	}
	s.conn = conn
	s.state = StateConnecting
	if s.cfg.ConnectTimeout > 0 {
		s.connectBy = s.clock.Now().Add(s.cfg.ConnectTimeout)
	}
	return nil
}

func (s *Session) Fd() int {
	if s.conn == nil {
		return -1
	}
	return s.conn.Fd()
}

func (s *Session) Closed() bool {
	return s.state == StateClosed
}

func (s *Session) OnWritable() {
	if s.conn == nil {
		return
	}
	if s.state != StateConnecting {
		if err := s.conn.Flush(); err != nil {
			s.fail("flush", err)
		}
		return
	}

	if err := s.conn.ConnectError(); err != nil {
		s.fail("connect", err)
		return
	}
	hs, err := BuildHandshake(s.cfg.InfoHash, s.cfg.PeerID)
	if err != nil {
		s.fail("handshake", err)
		return
	}
	if !s.send(hs) {
		return
	}
	s.state = StateHandshaking
	l_session.Sugar().Debugw("connected", "peer", s.host.String())
}

func (s *Session) OnReadable() {
	for s.conn != nil {
		b, err := s.conn.Receive(s.cfg.RecvSize)
		if err != nil {
			s.fail("receive", err)
			return
		}
		if len(b) == 0 {
			break
		}
		s.recvBuf = append(s.recvBuf, b...)
	}
	s.process()
}

// OnTick closes sessions that did not finish the handshake in time and
// retries a piece request that was deferred because the peer had nothing
// left to offer.
func (s *Session) OnTick(now time.Time) {
	if s.conn == nil {
		return
	}
	if s.state != StateDownloading && !s.connectBy.IsZero() && !now.Before(s.connectBy) {
		s.fail("connect", ErrConnectTimeout)
		return
	}
	if s.retryAt.IsZero() || now.Before(s.retryAt) {
		return
	}
	s.retryAt = time.Time{}
	s.RequestNextBlock()
}

func (s *Session) process() {
	if s.state == StateHandshaking {
		if len(s.recvBuf) < HandshakeLen {
			return
		}
		remote, err := isHandshakeFor(s.recvBuf[:HandshakeLen], s.cfg.InfoHash)
		if err != nil {
			s.fail("handshake", err)
			return
		}
		s.remoteID = remote.PeerID
		s.recvBuf = s.recvBuf[HandshakeLen:]
		s.connectBy = time.Time{}
		if !s.send(BuildInterested()) {
			return
		}
		s.state = StateDownloading
	}
	if s.state != StateDownloading {
		return
	}

	for s.conn != nil && len(s.recvBuf) >= 4 {
		length := ReadMessageLength(s.recvBuf)
		if length == 0 {
			s.recvBuf = s.recvBuf[4:]
			continue
		}
		if length > maxMessageLen {
			s.fail("framing", fmt.Errorf("message of %d bytes", length))
			return
		}
		total := 4 + int(length)
		if len(s.recvBuf) < total {
			return
		}
		id := ReadMessageID(s.recvBuf)
		payload := s.recvBuf[5:total]
		s.recvBuf = s.recvBuf[total:]
		s.handleMessage(id, payload)
	}
}

func (s *Session) handleMessage(id MessageID, payload []byte) {
	switch id {
	case MsgChoke:
		s.choked = true
	case MsgUnchoke:
		wasChoked := s.choked
		s.choked = false
		if wasChoked && len(s.pending) > 0 {
			s.resendPending()
			return
		}
		s.RequestNextBlock()
	case MsgBitfield:
		s.peerHas = bitmap.New(s.cfg.PieceCount)
		for i := 0; i < s.cfg.PieceCount; i++ {
			if BitfieldHas(payload, i) {
				s.peerHas.Set(i, true)
			}
		}
		s.retryNow()
	case MsgHave:
		index, err := ParseHave(payload)
		if err != nil {
			s.fail("have", err)
			return
		}
		if int(index) < s.cfg.PieceCount {
			s.peerHas.Set(int(index), true)
		}
		s.retryNow()
	case MsgPiece:
		index, begin, block, err := ParsePiece(payload)
		if err != nil {
			s.fail("piece", err)
			return
		}
		s.delivered(int(index), int64(begin), len(block))
		s.source.OnBlockReceived(int(index), int(begin), block)
		s.RequestNextBlock()
	default:
		l_session.Sugar().Debugw("ignored message", "peer", s.host.String(), "id", id.String())
	}
}

// RequestNextBlock asks for the next block of the current piece, picking a
// new piece first when none is assigned. One request is in flight at a time.
func (s *Session) RequestNextBlock() {
	if s.conn == nil || s.choked || len(s.pending) > 0 {
		return
	}
	if s.curPiece < 0 {
		index, pick := s.source.NextPiece(s.has)
		switch pick {
		case peer.PickExhausted:
			return
		case peer.PickNoneEligible:
			s.deferRequest()
			return
		}
		s.curPiece, s.blockOffset = index, 0
		s.backoff, s.retryAt = 0, time.Time{}
	}

	size := s.source.PieceSize(s.curPiece)
	length := size - s.blockOffset
	if length > int64(s.cfg.BlockSize) {
		length = int64(s.cfg.BlockSize)
	}
	if !s.send(BuildRequest(uint32(s.curPiece), uint32(s.blockOffset), uint32(length))) {
		return
	}
	s.outstanding[s.curPiece] += length
	s.pending = append(s.pending, blockRequest{s.curPiece, s.blockOffset, length})
	s.blockOffset += length
	if s.blockOffset >= size {
		s.curPiece = -1
	}
}

func (s *Session) Close() {
	if s.state == StateClosed && s.conn == nil {
		return
	}
	s.state = StateClosed
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	if s.curPiece >= 0 {
		if _, ok := s.outstanding[s.curPiece]; !ok {
			s.outstanding[s.curPiece] = 0
		}
		s.curPiece = -1
	}
	for index := range s.outstanding {
		s.source.Release(index)
		delete(s.outstanding, index)
	}
	s.pending = nil
}

func (s *Session) resendPending() {
	for _, r := range s.pending {
		if !s.send(BuildRequest(uint32(r.index), uint32(r.begin), uint32(r.length))) {
			return
		}
	}
}

func (s *Session) has(index int) bool {
	return index >= 0 && index < s.cfg.PieceCount && s.peerHas.Get(index)
}

func (s *Session) delivered(index int, begin int64, n int) {
	for i, r := range s.pending {
		if r.index == index && r.begin == begin {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	rem, ok := s.outstanding[index]
	if !ok {
		return
	}
	rem -= int64(n)
	if rem <= 0 {
		delete(s.outstanding, index)
		return
	}
	s.outstanding[index] = rem
}

func (s *Session) deferRequest() {
	if s.backoff == 0 {
		s.backoff = s.cfg.MinBackoff
	} else {
		s.backoff *= 2
	}
	if s.backoff > s.cfg.MaxBackoff {
		s.backoff = s.cfg.MaxBackoff
	}
	s.retryAt = s.clock.Now().Add(s.backoff)
}

func (s *Session) retryNow() {
	if s.retryAt.IsZero() {
		return
	}
	s.retryAt = time.Time{}
	s.RequestNextBlock()
}

func (s *Session) send(b []byte) bool {
	if s.conn == nil {
		return false
	}
	if err := s.conn.Send(b); err != nil {
		s.fail("send", err)
		return false
	}
	return true
}

func (s *Session) fail(op string, err error) {
	l_session.Sugar().Infow("closing session", "peer", s.host.String(), "state", s.state.String(), "op", op, "err", err)
	s.Close()
}
