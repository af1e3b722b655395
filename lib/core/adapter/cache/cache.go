package cache

// Cache memoizes loads by key. A failed fallback is not remembered, so the
// next call for the same key tries again.
type Cache interface {
	Cached(key interface{}, fallback func() (interface{}, error)) (interface{}, error)
}
