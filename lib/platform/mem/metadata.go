package mem

import (
	"bytes"
	"encoding/gob"
	"errors"
	"sync"

	"example.com/peerwire/lib/core/adapter/persistentmetadata"
)

var ErrNotFound = errors.New("mem: not found")

// Metadata keeps gob-encoded values in memory. It behaves like the skv store
// without touching disk.
type Metadata struct {
	SyncMap *sync.Map
}

var _ persistentmetadata.PersistentMetadata = Metadata{}

func NewMetadata() Metadata {
	return Metadata{SyncMap: &sync.Map{}}
}

func (m Metadata) Put(key string, value interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	m.SyncMap.Store(key, buf.Bytes())
	return nil
}

func (m Metadata) Get(key string, value interface{}) error {
	v, ok := m.SyncMap.Load(key)
	if !ok {
		return ErrNotFound
	}
	return gob.NewDecoder(bytes.NewReader(v.([]byte))).Decode(value)
}
