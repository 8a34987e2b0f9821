// Package memo provides an in-memory, LRU-evicting store for skyframe cache
// entries. It is a passive Key to Value table for embedders and tests:
// evaluation order, dependency tracking and invalidation policy belong to
// the surrounding graph engine, not to this store.
package memo

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/afbjorklund/bazel/skyframe"
)

// ComputeFunc produces the value for a key on a cache miss.
type ComputeFunc func(ctx context.Context, key skyframe.Key) (skyframe.Value, error)

type entry struct {
	key   skyframe.Key
	value skyframe.Value
}

type call struct {
	key   skyframe.Key
	done  chan struct{}
	value skyframe.Value
	err   error
}

// Store caches values by key. Keys are bucketed by CanonicalHashV1 and
// disambiguated through Equal, so semantically different keys never collide.
// Eviction granularity is the hash bucket. Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	entries  *lru.Cache[uint64, []entry]
	inflight map[uint64][]*call
}

// New creates a Store evicting least recently used entries beyond
// maxEntries.
func New(maxEntries int) (*Store, error) {
	cache, err := lru.New[uint64, []entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memo store: %w", err)
	}
	return &Store{
		entries:  cache,
		inflight: make(map[uint64][]*call),
	}, nil
}

// Get returns the cached value for the key, if any.
func (s *Store) Get(key skyframe.Key) (skyframe.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key)
}

func (s *Store) getLocked(key skyframe.Key) (skyframe.Value, bool) {
	bucket, ok := s.entries.Get(key.CanonicalHashV1())
	if !ok {
		return nil, false
	}
	for _, e := range bucket {
		if e.key.Equal(key) {
			return e.value, true
		}
	}
	return nil, false
}

// Put stores a value for the key, replacing any previous value.
func (s *Store) Put(key skyframe.Key, value skyframe.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(key, value)
}

func (s *Store) putLocked(key skyframe.Key, value skyframe.Value) {
	hash := key.CanonicalHashV1()
	bucket, _ := s.entries.Get(hash)
	for i, e := range bucket {
		if e.key.Equal(key) {
			bucket[i].value = value
			s.entries.Add(hash, bucket)
			return
		}
	}
	s.entries.Add(hash, append(bucket, entry{key: key, value: value}))
}

// GetOrCompute returns the cached value for the key, computing and caching
// it on a miss. Concurrent calls for equal keys share a single computation;
// a failed computation is not cached, and its error is returned to every
// sharing caller.
func (s *Store) GetOrCompute(ctx context.Context, key skyframe.Key, compute ComputeFunc) (skyframe.Value, error) {
	hash := key.CanonicalHashV1()

	s.mu.Lock()
	if value, ok := s.getLocked(key); ok {
		s.mu.Unlock()
		return value, nil
	}
	for _, c := range s.inflight[hash] {
		if c.key.Equal(key) {
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.done:
			}
			return c.value, c.err
		}
	}
	c := &call{key: key, done: make(chan struct{})}
	s.inflight[hash] = append(s.inflight[hash], c)
	s.mu.Unlock()

	c.value, c.err = compute(ctx, key)

	s.mu.Lock()
	if c.err == nil {
		s.putLocked(key, c.value)
	}
	s.removeInflightLocked(hash, c)
	s.mu.Unlock()
	close(c.done)

	return c.value, c.err
}

func (s *Store) removeInflightLocked(hash uint64, c *call) {
	calls := s.inflight[hash]
	for i, other := range calls {
		if other == c {
			calls = append(calls[:i], calls[i+1:]...)
			break
		}
	}
	if len(calls) == 0 {
		delete(s.inflight, hash)
	} else {
		s.inflight[hash] = calls
	}
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, bucket := range s.entries.Values() {
		n += len(bucket)
	}
	return n
}

// Purge drops every cached entry. In-flight computations are unaffected.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Purge()
}
