package download

import (
	"bytes"
	"crypto/sha1"
	"testing"

	"example.com/peerwire/lib/core/adapter/peer"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/files"
	"example.com/peerwire/lib/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Add(job files.Job) {
	m.Called(job)
}

func torrentFor(data []byte, pieceLength int) domain.Torrent {
	t := domain.Torrent{
		Name:        "data.bin",
		Length:      int64(len(data)),
		PieceLength: int64(pieceLength),
	}
	for off := 0; off < len(data); off += pieceLength {
		end := off + pieceLength
		if end > len(data) {
			end = len(data)
		}
		t.PieceHashes = append(t.PieceHashes, sha1.Sum(data[off:end]))
	}
	return t
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func all(int) bool { return true }

func TestPieceAssemblyCompletion(t *testing.T) {
	const pieceLength = 32 * 1024
	data := pattern(3 * pieceLength)
	tor := torrentFor(data, pieceLength)

	sink := &mockSink{}
	piece := data[pieceLength : 2*pieceLength]
	sink.On("Add", files.Job{Data: piece, Offset: pieceLength}).Once()

	counters := &progress.Counters{}
	c := NewCoordinator(tor, sink, counters)
	c.OnBlockReceived(1, 0, piece[:16384])
	sink.AssertNotCalled(t, "Add", mock.Anything)
	c.OnBlockReceived(1, 16384, piece[16384:])

	sink.AssertExpectations(t)
	assert.Equal(t, int64(pieceLength), c.Confirmed())
	assert.Equal(t, int64(pieceLength), counters.Total.Load())
	assert.False(t, c.IsComplete())
}

func TestPieceHashMismatch(t *testing.T) {
	const pieceLength = 32 * 1024
	data := pattern(2 * pieceLength)
	tor := torrentFor(data, pieceLength)

	sink := &mockSink{}
	c := NewCoordinator(tor, sink, nil)

	bad := append([]byte{}, data[:pieceLength]...)
	bad[100] ^= 0x01
	c.OnBlockReceived(0, 0, bad[:16384])
	c.OnBlockReceived(0, 16384, bad[16384:])

	sink.AssertNotCalled(t, "Add", mock.Anything)
	assert.Equal(t, int64(0), c.Confirmed())

	// The bad piece comes back before the cursor moves on.
	index, pick := c.NextPiece(all)
	assert.Equal(t, peer.PickAssigned, pick)
	assert.Equal(t, 0, index)

	sink.On("Add", files.Job{Data: data[:pieceLength], Offset: 0}).Once()
	c.OnBlockReceived(0, 0, data[:16384])
	c.OnBlockReceived(0, 16384, data[16384:pieceLength])
	sink.AssertExpectations(t)
}

func TestOverlappingBlocksNeedFullCoverage(t *testing.T) {
	const pieceLength = 32 * 1024
	data := pattern(pieceLength)
	tor := torrentFor(data, pieceLength)

	sink := &mockSink{}
	c := NewCoordinator(tor, sink, nil)

	// 24 KiB of distinct bytes delivered as 32 KiB of blocks.
	c.OnBlockReceived(0, 0, data[:16384])
	c.OnBlockReceived(0, 8192, data[8192:24576])
	c.OnBlockReceived(0, 0, data[:16384])
	sink.AssertNotCalled(t, "Add", mock.Anything)
	assert.Equal(t, int64(0), c.Confirmed())

	sink.On("Add", files.Job{Data: data, Offset: 0}).Once()
	c.OnBlockReceived(0, 16384, data[16384:])
	sink.AssertExpectations(t)
	assert.True(t, c.IsComplete())
}

func TestAssemblyCountsEachByteOnce(t *testing.T) {
	a := newAssembly(10)
	n, ok := a.put(0, []byte("abcd"))
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	n, ok = a.put(2, []byte("CDEF"))
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, 6, a.received)
	assert.False(t, a.complete())

	_, ok = a.put(8, []byte("xyz"))
	assert.False(t, ok)

	_, ok = a.put(6, []byte("ghij"))
	assert.True(t, ok)
	assert.True(t, a.complete())
	assert.Equal(t, []byte("abCDEFghij"), a.take())
}

func TestLastPieceSizing(t *testing.T) {
	data := pattern(100)
	tor := torrentFor(data, 40)
	require.Equal(t, 3, tor.PieceCount())

	sink := &mockSink{}
	sink.On("Add", mock.Anything)
	c := NewCoordinator(tor, sink, nil)
	assert.Equal(t, int64(20), c.PieceSize(2))
	assert.Equal(t, int64(40), c.PieceSize(0))

	c.OnBlockReceived(2, 0, data[80:])
	sink.AssertCalled(t, "Add", files.Job{Data: data[80:], Offset: 80})

	for i := 0; i < 2; i++ {
		c.OnBlockReceived(i, 0, data[i*40:(i+1)*40])
	}
	assert.True(t, c.IsComplete())
	assert.Equal(t, int64(100), c.Confirmed())
}

func TestHandOutIsMonotonic(t *testing.T) {
	tor := torrentFor(pattern(100), 10)
	c := NewCoordinator(tor, &mockSink{}, nil)

	for want := 0; want < 10; want++ {
		got, ok := c.GetNextPieceToRequest()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := c.GetNextPieceToRequest()
	assert.False(t, ok)
	_, ok = c.GetNextPieceToRequest()
	assert.False(t, ok)
}

func TestNextPieceSkipsMissing(t *testing.T) {
	tor := torrentFor(pattern(40), 10)
	c := NewCoordinator(tor, &mockSink{}, nil)

	odd := func(i int) bool { return i%2 == 1 }
	even := func(i int) bool { return i%2 == 0 }

	index, pick := c.NextPiece(odd)
	assert.Equal(t, peer.PickAssigned, pick)
	assert.Equal(t, 1, index)

	index, pick = c.NextPiece(even)
	assert.Equal(t, peer.PickAssigned, pick)
	assert.Equal(t, 0, index)

	index, pick = c.NextPiece(odd)
	assert.Equal(t, peer.PickAssigned, pick)
	assert.Equal(t, 3, index)

	index, pick = c.NextPiece(even)
	assert.Equal(t, peer.PickAssigned, pick)
	assert.Equal(t, 2, index)

	_, pick = c.NextPiece(even)
	assert.Equal(t, peer.PickNoneEligible, pick)
}

func TestNextPieceExhaustedWhenComplete(t *testing.T) {
	data := pattern(20)
	tor := torrentFor(data, 10)
	sink := &mockSink{}
	sink.On("Add", mock.Anything)
	c := NewCoordinator(tor, sink, nil)

	none := func(int) bool { return false }
	_, pick := c.NextPiece(none)
	assert.Equal(t, peer.PickNoneEligible, pick)

	c.OnBlockReceived(0, 0, data[:10])
	c.OnBlockReceived(1, 0, data[10:])
	_, pick = c.NextPiece(all)
	assert.Equal(t, peer.PickExhausted, pick)
}

func TestBlockEdgeCases(t *testing.T) {
	data := pattern(40)
	tor := torrentFor(data, 20)
	sink := &mockSink{}
	c := NewCoordinator(tor, sink, nil)

	// Overrun and unknown pieces are dropped.
	c.OnBlockReceived(0, 10, make([]byte, 11))
	c.OnBlockReceived(5, 0, data[:10])
	c.OnBlockReceived(-1, 0, data[:10])

	// A repeated block does not count twice.
	c.OnBlockReceived(0, 0, data[:10])
	c.OnBlockReceived(0, 0, data[:10])
	sink.AssertNotCalled(t, "Add", mock.Anything)

	sink.On("Add", files.Job{Data: data[:20], Offset: 0}).Once()
	c.OnBlockReceived(0, 10, data[10:20])
	sink.AssertExpectations(t)

	// Verified pieces ignore late blocks.
	c.OnBlockReceived(0, 0, bytes.Repeat([]byte{0}, 20))
	sink.AssertNumberOfCalls(t, "Add", 1)
}

func TestReleaseRequeues(t *testing.T) {
	data := pattern(40)
	tor := torrentFor(data, 20)
	sink := &mockSink{}
	c := NewCoordinator(tor, sink, nil)

	index, _ := c.NextPiece(all)
	require.Equal(t, 0, index)
	c.OnBlockReceived(0, 0, data[:10])
	c.Release(0)
	c.Release(0)

	index, pick := c.NextPiece(all)
	assert.Equal(t, peer.PickAssigned, pick)
	assert.Equal(t, 0, index)
	index, _ = c.NextPiece(all)
	assert.Equal(t, 1, index)

	// Partial data was dropped, so half a piece is not enough.
	c.OnBlockReceived(0, 10, data[10:20])
	sink.AssertNotCalled(t, "Add", mock.Anything)
}
