package storedb

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

// GetJSON decodes the value at key into v.
func (d *DB) GetJSON(key string, v any) error {
	b, err := d.GetKey(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SaveJSON encodes v and stores it at key.
func (d *DB) SaveJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return d.SaveKey(key, b)
}

// prefixUpperBound returns the smallest key greater than every key with prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// ScanPrefix calls fn for every key under prefix in key order. Returning a
// non-nil error from fn stops the scan and is returned.
func (d *DB) ScanPrefix(prefix string, fn func(key string, value []byte) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return ErrClosed
	}
	lower := []byte(prefix)
	iter, err := d.client.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: prefixUpperBound(lower)})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		val := make([]byte, len(iter.Value()))
		copy(val, iter.Value())
		if err := fn(string(iter.Key()), val); err != nil {
			return err
		}
	}
	return iter.Error()
}

// DeletePrefix removes every key under prefix with a single range delete.
func (d *DB) DeletePrefix(prefix string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return ErrClosed
	}
	lower := []byte(prefix)
	upper := prefixUpperBound(lower)
	if upper == nil {
		return fmt.Errorf("cannot range delete prefix %q", prefix)
	}
	if err := d.client.DeleteRange(lower, upper, d.WriteOpt(true)); err != nil {
		logger.Error("delete_prefix_failed", "prefix", prefix, "error", err)
		return err
	}
	logger.Debug("delete_prefix_ok", "prefix", prefix)
	return nil
}

// Update runs a read-modify-write on key under a per-key lock. fn receives the
// current value (nil, false when missing) and returns the value to store.
func (d *DB) Update(key string, fn func(old []byte, exists bool) ([]byte, error)) error {
	l := d.locks.get(key)
	l.Lock()
	defer l.Unlock()

	old, err := d.GetKey(key)
	exists := err == nil
	if err != nil && !IsNotFound(err) {
		return err
	}
	next, err := fn(old, exists)
	if err != nil {
		return err
	}
	return d.SaveKey(key, next)
}

// keyLocks hands out one mutex per key.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	if l, ok := k.m[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	k.m[key] = l
	return l
}
