package offline

import (
	"context"
	"fmt"
	"sync"
)

// CacheStorage is the set of named cache partitions.
type CacheStorage interface {
	Open(name string) (Cache, error)
	Keys() ([]string, error)
	Delete(name string) (bool, error)
	// Match searches every partition in creation order.
	Match(url string) (*Response, bool, error)
}

// Cache is one named partition keyed by absolute URL.
type Cache interface {
	Put(url string, resp *Response) error
	Match(url string) (*Response, bool, error)
	AddAll(ctx context.Context, f Fetcher, urls []string) error
}

// addAll fetches every URL before storing any, so a single failure leaves c untouched.
func addAll(ctx context.Context, c Cache, f Fetcher, urls []string) error {
	fetched := make([]*Response, len(urls))
	for i, u := range urls {
		req, err := NewGet(u)
		if err != nil {
			return fmt.Errorf("add %s: %w", u, err)
		}
		resp, err := f.Fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("add %s: %w", u, err)
		}
		if !resp.OK() {
			status := 0
			if resp != nil {
				status = resp.Status
			}
			return fmt.Errorf("add %s: bad status %d", u, status)
		}
		fetched[i] = resp
	}
	for i, u := range urls {
		if err := c.Put(u, fetched[i]); err != nil {
			return err
		}
	}
	return nil
}

// MemoryStorage keeps partitions in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	order  []string
	caches map[string]*memoryCache
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{caches: make(map[string]*memoryCache)}
}

func (s *MemoryStorage) Open(name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[name]; ok {
		return c, nil
	}
	c := &memoryCache{entries: make(map[string]*Response)}
	s.caches[name] = c
	s.order = append(s.order, name)
	return c, nil
}

func (s *MemoryStorage) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

func (s *MemoryStorage) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caches[name]; !ok {
		return false, nil
	}
	delete(s.caches, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryStorage) Match(url string) (*Response, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.order {
		if r, ok, _ := s.caches[name].Match(url); ok {
			return r, true, nil
		}
	}
	return nil, false, nil
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Response
}

func (c *memoryCache) Put(url string, resp *Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = resp.Clone()
	return nil
}

func (c *memoryCache) Match(url string) (*Response, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[url]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (c *memoryCache) AddAll(ctx context.Context, f Fetcher, urls []string) error {
	return addAll(ctx, c, f, urls)
}
