package gcache

import (
	"errors"
	"sync"
	"time"

	"example.com/peerwire/lib/core/adapter/cache"

	"github.com/bluele/gcache"
)

var errNoLoader = errors.New("no loader func")

// NewCache builds an LRU cache of size entries. Values expire after ttl when
// ttl is positive.
func NewCache(size int, ttl time.Duration) cache.Cache {
	c := cacheImpl{
		fallbacks: &sync.Map{},
	}
	b := gcache.New(size).LRU().LoaderFunc(c.loaderFunc)
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	c.gc = b.Build()
	return c
}

type cacheImpl struct {
	gc        gcache.Cache
	fallbacks *sync.Map
}

func (c cacheImpl) loaderFunc(key interface{}) (interface{}, error) {
	v, ok := c.fallbacks.Load(key)
	if !ok {
		return nil, errNoLoader
	}
	return v.(func() (interface{}, error))()
}

// Cached returns the value for key, calling fallback on a miss. Failed
// fallbacks are not cached.
func (c cacheImpl) Cached(key interface{}, fallback func() (interface{}, error)) (interface{}, error) {
	c.fallbacks.Store(key, fallback)
	return c.gc.Get(key)
}
