package files

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"example.com/peerwire/lib/core/domain"

	"github.com/spf13/afero"
)

// Files maps a single-file torrent onto a directory.
type Files struct {
	Fs       afero.Fs
	BasePath string
	Torrent  domain.Torrent
}

func (f Files) Path() string {
	return filepath.Join(f.BasePath, filepath.Base(f.Torrent.Name))
}

// CreateFile creates the output file pre-sized to the torrent length.
func (f Files) CreateFile() (afero.File, error) {
	if err := f.Fs.MkdirAll(f.BasePath, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create %s: %w", f.BasePath, err)
	}
	fd, err := f.Fs.OpenFile(f.Path(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	if err := fd.Truncate(f.Torrent.Length); err != nil {
		fd.Close()
		return nil, fmt.Errorf("truncate output: %w", err)
	}
	return fd, nil
}

func (f Files) GetLocalPiece(pieceNo int) ([]byte, error) {
	if pieceNo < 0 || pieceNo >= f.Torrent.PieceCount() {
		return nil, fmt.Errorf("invalid piece no %d", pieceNo)
	}
	fd, err := f.Fs.Open(f.Path())
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	piece := make([]byte, f.Torrent.PieceSize(pieceNo))
	if _, err := fd.ReadAt(piece, f.Torrent.PieceOffset(pieceNo)); err != nil && err != io.EOF {
		return nil, err
	}
	return piece, nil
}

// CheckFiles hashes every piece on disk and returns the indices that do not
// match the torrent.
func (f Files) CheckFiles() ([]int, error) {
	var bad []int
	for i := 0; i < f.Torrent.PieceCount(); i++ {
		piece, err := f.GetLocalPiece(i)
		if err != nil {
			return nil, err
		}
		sum := sha1.Sum(piece)
		if !bytes.Equal(sum[:], f.Torrent.PieceHashes[i][:]) {
			bad = append(bad, i)
		}
	}
	return bad, nil
}
