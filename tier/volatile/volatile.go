// Package volatile is the in-process tier: a bounded map with exact LRU
// eviction and per-entry TTLs. It is the fastest tier and the first one
// probed. Expiry is lazy on read plus an optional periodic sweep; capacity
// eviction removes the entry with the oldest access time. There is no
// pinning: entries with in-flight readers are still evictable.
package volatile

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxEntries = 50
	DefaultTTL        = 30 * time.Minute
	defaultSweep      = 5 * time.Minute
)

// node is one key in the LRU order. Doubly-linked so moves are O(1);
// head is most recently used, tail is the eviction candidate.
type node struct {
	key        string
	value      []byte
	expiresAt  time.Time
	prev, next *node
}

type Store struct {
	mu      sync.Mutex
	nodes   map[string]*node
	head    *node
	tail    *node
	max     int
	closed  bool
	onEvict func(key string)

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type Config struct {
	// MaxEntries caps the store; 0 => DefaultMaxEntries.
	MaxEntries int
	// SweepInterval for eager expiry; 0 => 5m, negative disables the sweep.
	SweepInterval time.Duration
	// OnEvict is called (outside locks are NOT guaranteed; keep it cheap)
	// for every capacity eviction. Optional.
	OnEvict func(key string)
}

func New(cfg Config) *Store {
	s := &Store{
		nodes:   make(map[string]*node),
		max:     cfg.MaxEntries,
		onEvict: cfg.OnEvict,
	}
	if s.max <= 0 {
		s.max = DefaultMaxEntries
	}

	sweep := cfg.SweepInterval
	if sweep == 0 {
		sweep = defaultSweep
	}
	if sweep > 0 {
		s.ticker = time.NewTicker(sweep)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.removeExpired(time.Now())
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Store) Name() string { return "volatile" }

func (s *Store) Ready(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[key]
	if !ok {
		return nil, false, nil
	}
	if !now.Before(n.expiresAt) {
		s.unlink(n)
		delete(s.nodes, key)
		return nil, false, nil
	}
	s.moveToFront(n)
	return n.value, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	exp := time.Now().Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.nodes[key]; ok {
		n.value = value
		n.expiresAt = exp
		s.moveToFront(n)
		return nil
	}

	if len(s.nodes) >= s.max {
		s.evictLRU()
	}
	n := &node{key: key, value: value, expiresAt: exp}
	s.nodes[key] = n
	s.pushFront(n)
	return nil
}

// Has checks presence without bumping recency: a dedup probe is not a read.
func (s *Store) Has(_ context.Context, key string) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[key]
	if !ok {
		return false, nil
	}
	if !now.Before(n.expiresAt) {
		s.unlink(n)
		delete(s.nodes, key)
		return false, nil
	}
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[key]; ok {
		s.unlink(n)
		delete(s.nodes, key)
	}
	return nil
}

func (s *Store) DelPrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, n := range s.nodes {
		if strings.HasPrefix(k, prefix) {
			s.unlink(n)
			delete(s.nodes, k)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[string]*node)
	s.head, s.tail = nil, nil
	return nil
}

func (s *Store) Close(context.Context) error {
	if s.stopCh != nil {
		s.mu.Lock()
		alreadyClosed := s.closed
		s.closed = true
		s.mu.Unlock()
		if !alreadyClosed {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
		return nil
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Len reports the current entry count (tests and capacity introspection).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

func (s *Store) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, n := range s.nodes {
		if !now.Before(n.expiresAt) {
			s.unlink(n)
			delete(s.nodes, k)
		}
	}
}

// evictLRU removes the tail (oldest access). Caller holds s.mu.
func (s *Store) evictLRU() {
	t := s.tail
	if t == nil {
		return
	}
	s.unlink(t)
	delete(s.nodes, t.key)
	if s.onEvict != nil {
		s.onEvict(t.key)
	}
}

// pushFront marks n as most recently used. Caller holds s.mu.
func (s *Store) pushFront(n *node) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// unlink detaches n from the list. Caller holds s.mu.
func (s *Store) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (s *Store) moveToFront(n *node) {
	if s.head == n {
		return
	}
	s.unlink(n)
	s.pushFront(n)
}
