// Package stmtstore keeps prepared statements of one session in an LRU keyed
// by SQL text. Evicted statements are released right away, on the calling
// goroutine, since a session is never shared between goroutines.
package stmtstore

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Releaser frees the server side cursor behind a cached statement.
type Releaser interface {
	Release() error
}

type Store[V Releaser] struct {
	cache *lru.Cache[string, V]
	// OnReleaseError is called when releasing an evicted statement fails.
	OnReleaseError func(key string, err error)
}

// New returns a store holding at most size statements. A size of zero or
// less returns nil; every method of a nil *Store is a no-op, so callers can
// keep one code path with caching turned off.
func New[V Releaser](size int) (*Store[V], error) {
	if size <= 0 {
		return nil, nil
	}

	s := &Store[V]{}
	cache, err := lru.NewWithEvict[string, V](size, s.evicted)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

func (s *Store[V]) evicted(key string, v V) {
	if err := v.Release(); err != nil && s.OnReleaseError != nil {
		s.OnReleaseError(key, err)
	}
}

func (s *Store[V]) Get(key string) (v V, ok bool) {
	if s == nil {
		return v, false
	}
	return s.cache.Get(key)
}

// Put caches v under key. A different statement already cached under key is
// released first.
func (s *Store[V]) Put(key string, v V) {
	if s == nil {
		return
	}
	if old, ok := s.cache.Peek(key); ok && Releaser(old) != Releaser(v) {
		s.cache.Remove(key)
	}
	s.cache.Add(key, v)
}

// Remove releases and forgets the statement under key.
func (s *Store[V]) Remove(key string) {
	if s == nil {
		return
	}
	s.cache.Remove(key)
}

func (s *Store[V]) Keys() []string {
	if s == nil {
		return nil
	}
	return s.cache.Keys()
}

func (s *Store[V]) Len() int {
	if s == nil {
		return 0
	}
	return s.cache.Len()
}

// Purge releases every cached statement.
func (s *Store[V]) Purge() {
	if s == nil {
		return
	}
	s.cache.Purge()
}
