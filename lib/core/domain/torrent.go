package domain

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"

	"github.com/jackpal/bencode-go"
)

const hashLen = 20

var (
	ErrMultiFile   = errors.New("multi-file torrents are not supported")
	ErrBadMetainfo = errors.New("malformed metainfo")
)

// Torrent is the part of a .torrent file the downloader needs.
type Torrent struct {
	Announce    string
	Name        string
	Length      int64
	PieceLength int64
	PieceHashes [][hashLen]byte
	InfoHash    [hashLen]byte
}

func (t Torrent) PieceCount() int {
	return len(t.PieceHashes)
}

// PieceSize is the effective length of piece index. Only the last piece can
// be shorter than PieceLength.
func (t Torrent) PieceSize(index int) int64 {
	if index == t.PieceCount()-1 {
		if rem := t.Length % t.PieceLength; rem != 0 {
			return rem
		}
	}
	return t.PieceLength
}

func (t Torrent) PieceOffset(index int) int64 {
	return int64(index) * t.PieceLength
}

// ParseTorrent decodes a single-file .torrent. The info hash is the SHA-1 of
// the re-encoded info dictionary.
func ParseTorrent(r io.Reader) (Torrent, error) {
	var t Torrent

	raw, err := bencode.Decode(r)
	if err != nil {
		return t, fmt.Errorf("decode metainfo: %w", err)
	}
	root, ok := raw.(map[string]interface{})
	if !ok {
		return t, ErrBadMetainfo
	}
	info, ok := root["info"].(map[string]interface{})
	if !ok {
		return t, fmt.Errorf("%w: missing info dictionary", ErrBadMetainfo)
	}
	if _, ok := info["files"]; ok {
		return t, ErrMultiFile
	}

	var infoBuf bytes.Buffer
	if err := bencode.Marshal(&infoBuf, info); err != nil {
		return t, fmt.Errorf("encode info: %w", err)
	}
	t.InfoHash = sha1.Sum(infoBuf.Bytes())

	t.Announce, _ = root["announce"].(string)
	t.Name, _ = info["name"].(string)
	t.Length, _ = info["length"].(int64)
	t.PieceLength, _ = info["piece length"].(int64)
	pieces, _ := info["pieces"].(string)

	if t.PieceLength <= 0 || t.Length <= 0 {
		return t, fmt.Errorf("%w: bad length %d / piece length %d", ErrBadMetainfo, t.Length, t.PieceLength)
	}
	if len(pieces)%hashLen != 0 {
		return t, fmt.Errorf("%w: pieces is %d bytes", ErrBadMetainfo, len(pieces))
	}
	t.PieceHashes = make([][hashLen]byte, len(pieces)/hashLen)
	for i := range t.PieceHashes {
		copy(t.PieceHashes[i][:], pieces[i*hashLen:])
	}
	if want := (t.Length + t.PieceLength - 1) / t.PieceLength; int64(t.PieceCount()) != want {
		return t, fmt.Errorf("%w: %d piece hashes for %d pieces", ErrBadMetainfo, t.PieceCount(), want)
	}
	return t, nil
}
