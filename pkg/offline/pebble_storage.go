package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

const (
	partitionPrefix = "cachepart/"
	entryPrefix     = "cache/"
)

type partitionMeta struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

type storedEntry struct {
	Response
	StoredAt time.Time `json:"storedAt"`
}

// PebbleStorage persists partitions as cache/<partition>/<url> keys.
type PebbleStorage struct {
	db *storedb.DB
	mu sync.Mutex // serialises partition create/delete
}

func NewPebbleStorage(db *storedb.DB) *PebbleStorage {
	return &PebbleStorage{db: db}
}

func partitionKey(name string) string { return partitionPrefix + name }

func entryKeyPrefix(name string) string { return entryPrefix + name + "/" }

func validPartition(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid cache name %q", name)
	}
	return nil
}

func (s *PebbleStorage) Open(name string) (Cache, error) {
	if err := validPartition(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.db.Has(partitionKey(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		meta := partitionMeta{Name: name, Created: timeutil.Now().UTC()}
		if err := s.db.SaveJSON(partitionKey(name), meta); err != nil {
			return nil, err
		}
	}
	return &pebbleCache{db: s.db, name: name}, nil
}

func (s *PebbleStorage) partitions() ([]partitionMeta, error) {
	var metas []partitionMeta
	err := s.db.ScanPrefix(partitionPrefix, func(key string, value []byte) error {
		var m partitionMeta
		if err := json.Unmarshal(value, &m); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		metas = append(metas, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(metas, func(i, j int) bool { return metas[i].Created.Before(metas[j].Created) })
	return metas, nil
}

func (s *PebbleStorage) Keys() ([]string, error) {
	metas, err := s.partitions()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(metas))
	for i, m := range metas {
		out[i] = m.Name
	}
	return out, nil
}

func (s *PebbleStorage) Delete(name string) (bool, error) {
	if err := validPartition(name); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.db.Has(partitionKey(name))
	if err != nil || !ok {
		return false, err
	}
	if err := s.db.DeletePrefix(entryKeyPrefix(name)); err != nil {
		return false, err
	}
	if err := s.db.DeleteKey(partitionKey(name)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PebbleStorage) Match(url string) (*Response, bool, error) {
	metas, err := s.partitions()
	if err != nil {
		return nil, false, err
	}
	for _, m := range metas {
		c := &pebbleCache{db: s.db, name: m.Name}
		r, ok, err := c.Match(url)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return r, true, nil
		}
	}
	return nil, false, nil
}

type pebbleCache struct {
	db   *storedb.DB
	name string
}

func (c *pebbleCache) key(url string) string { return entryKeyPrefix(c.name) + url }

func (c *pebbleCache) Put(url string, resp *Response) error {
	if resp == nil {
		return fmt.Errorf("put %s: nil response", url)
	}
	return c.db.SaveJSON(c.key(url), storedEntry{Response: *resp, StoredAt: timeutil.Now().UTC()})
}

func (c *pebbleCache) Match(url string) (*Response, bool, error) {
	var e storedEntry
	if err := c.db.GetJSON(c.key(url), &e); err != nil {
		if storedb.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	r := e.Response
	return &r, true, nil
}

func (c *pebbleCache) AddAll(ctx context.Context, f Fetcher, urls []string) error {
	return addAll(ctx, c, f, urls)
}
