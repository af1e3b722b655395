package download

import (
	"crypto/sha1"
	"sync"
	"sync/atomic"

	"example.com/peerwire/lib/core/adapter/peer"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/files"
	"example.com/peerwire/lib/logger"
	"example.com/peerwire/lib/progress"

	"github.com/boljen/go-bitmap"
)

var l_coordinator = logger.Named("coordinator")

type JobSink interface {
	Add(job files.Job)
}

// assembly collects the blocks of one piece. Coverage is tracked per byte, so
// re-delivered or overlapping blocks never count a byte twice.
type assembly struct {
	buf      []byte
	covered  bitmap.Bitmap
	received int
}

func newAssembly(size int64) *assembly {
	return &assembly{
		buf:     make([]byte, size),
		covered: bitmap.New(int(size)),
	}
}

// put copies data at begin and returns how many bytes were new, or false
// when the block does not fit the piece.
func (a *assembly) put(begin int, data []byte) (int, bool) {
	if begin < 0 || begin+len(data) > len(a.buf) {
		return 0, false
	}
	copy(a.buf[begin:], data)
	fresh := 0
	for i := begin; i < begin+len(data); i++ {
		if !a.covered.Get(i) {
			a.covered.Set(i, true)
			fresh++
		}
	}
	a.received += fresh
	return fresh, true
}

func (a *assembly) complete() bool {
	return a.received == len(a.buf)
}

// take hands the buffer over; the assembly is unusable afterwards.
func (a *assembly) take() []byte {
	b := a.buf
	a.buf = nil
	return b
}

// Coordinator decides which piece each session fetches, assembles blocks and
// hands verified pieces to the sink.
type Coordinator struct {
	torrent  domain.Torrent
	sink     JobSink
	counters *progress.Counters

	next      atomic.Int64
	confirmed atomic.Int64

	mu         sync.Mutex
	assemblies map[int]*assembly
	requeue    []int
	verified   domain.PieceList
}

var _ peer.PieceSource = &Coordinator{}

func NewCoordinator(t domain.Torrent, sink JobSink, counters *progress.Counters) *Coordinator {
	if counters == nil {
		counters = &progress.Counters{}
	}
	return &Coordinator{
		torrent:    t,
		sink:       sink,
		counters:   counters,
		assemblies: make(map[int]*assembly),
		verified:   domain.NewPieceList(t.PieceCount()),
	}
}

// GetNextPieceToRequest advances the hand-out cursor.
func (c *Coordinator) GetNextPieceToRequest() (int, bool) {
	index := int(c.next.Add(1) - 1)
	if index >= c.torrent.PieceCount() {
		return -1, false
	}
	return index, true
}

// NextPiece prefers pieces given back earlier, then walks the cursor. Pieces
// the peer does not have are parked for other sessions.
func (c *Coordinator) NextPiece(has func(index int) bool) (int, peer.Pick) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, index := range c.requeue {
		if has(index) {
			c.requeue = append(c.requeue[:i], c.requeue[i+1:]...)
			return index, peer.PickAssigned
		}
	}
	for {
		index, ok := c.GetNextPieceToRequest()
		if !ok {
			break
		}
		if has(index) {
			return index, peer.PickAssigned
		}
		c.requeue = append(c.requeue, index)
	}
	if c.IsComplete() {
		return -1, peer.PickExhausted
	}
	return -1, peer.PickNoneEligible
}

func (c *Coordinator) PieceSize(index int) int64 {
	return c.torrent.PieceSize(index)
}

func (c *Coordinator) OnBlockReceived(index, begin int, data []byte) {
	c.counters.Add(len(data))
	if index < 0 || index >= c.torrent.PieceCount() {
		l_coordinator.Sugar().Debugw("block for unknown piece", "index", index)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.verified.ContainPiece(index) {
		return
	}
	a, ok := c.assemblies[index]
	if !ok {
		a = newAssembly(c.torrent.PieceSize(index))
		c.assemblies[index] = a
	}
	fresh, ok := a.put(begin, data)
	if !ok {
		l_coordinator.Sugar().Debugw("block overruns piece", "index", index, "begin", begin, "len", len(data))
		return
	}
	if fresh != len(data) {
		l_coordinator.Sugar().Debugw("block overlaps received data", "index", index, "begin", begin, "len", len(data), "new", fresh)
	}
	if !a.complete() {
		return
	}

	delete(c.assemblies, index)
	buf := a.take()
	if sha1.Sum(buf) != c.torrent.PieceHashes[index] {
		l_coordinator.Sugar().Warnw("piece hash mismatch, requeued", "index", index)
		c.requeueLocked(index)
		return
	}
	_ = c.verified.SetPiece(index)
	c.sink.Add(files.Job{Data: buf, Offset: c.torrent.PieceOffset(index)})
	c.confirmed.Add(int64(len(buf)))
	l_coordinator.Sugar().Debugw("piece verified", "index", index)
}

// Release returns an unfinished piece to the pool and drops its partial data.
func (c *Coordinator) Release(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= c.torrent.PieceCount() || c.verified.ContainPiece(index) {
		return
	}
	delete(c.assemblies, index)
	c.requeueLocked(index)
}

func (c *Coordinator) requeueLocked(index int) {
	for _, queued := range c.requeue {
		if queued == index {
			return
		}
	}
	c.requeue = append(c.requeue, index)
}

func (c *Coordinator) Confirmed() int64 {
	return c.confirmed.Load()
}

func (c *Coordinator) IsComplete() bool {
	return c.confirmed.Load() >= c.torrent.Length
}
