package storedb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

var ErrClosed = errors.New("pebble not opened; call storedb.Open first")

// DB wraps a pebble handle with the key helpers the rest of the app uses.
type DB struct {
	client *pebble.DB
	path   string
	noSync bool
	locks  keyLocks
	mu     sync.RWMutex
}

// Open opens (or creates) a pebble store at path.
func Open(path string) (*DB, error) {
	client, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &DB{client: client, path: path}, nil
}

// OpenInMemory opens a store backed by an in-memory filesystem.
func OpenInMemory() (*DB, error) {
	client, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &DB{client: client, path: ":memory:", noSync: true}, nil
}

func (d *DB) Path() string { return d.path }

func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	if err := d.client.Close(); err != nil {
		return err
	}
	d.client = nil
	return nil
}

func (d *DB) Ready() bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.client != nil
}

// Flush forces memtables to disk before close.
func (d *DB) Flush() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return ErrClosed
	}
	return d.client.Flush()
}

func IsNotFound(err error) bool {
	return errors.Is(err, pebble.ErrNotFound)
}

func (d *DB) WriteOpt(requestSync bool) *pebble.WriteOptions {
	if requestSync && !d.noSync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// GetKey returns a copy of the value stored at key.
func (d *DB) GetKey(key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return nil, ErrClosed
	}
	v, closer, err := d.client.Get([]byte(key))
	if err != nil {
		if IsNotFound(err) {
			logger.Debug("get_key_missing", "key", key)
		} else {
			logger.Error("get_key_failed", "key", key, "error", err)
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	logger.Debug("get_key_ok", "key", key, "len", len(out))
	return out, nil
}

func (d *DB) SaveKey(key string, value []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return ErrClosed
	}
	if err := d.client.Set([]byte(key), value, d.WriteOpt(true)); err != nil {
		logger.Error("save_key_failed", "key", key, "error", err)
		return err
	}
	logger.Debug("save_key_ok", "key", key, "len", len(value))
	return nil
}

func (d *DB) DeleteKey(key string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return ErrClosed
	}
	if err := d.client.Delete([]byte(key), d.WriteOpt(true)); err != nil {
		logger.Error("delete_key_failed", "key", key, "error", err)
		return err
	}
	logger.Debug("delete_key_ok", "key", key)
	return nil
}

// Has reports whether key exists.
func (d *DB) Has(key string) (bool, error) {
	_, err := d.GetKey(key)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("has %s: %w", key, err)
}
