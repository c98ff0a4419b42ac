package storedb

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveGetDelete(t *testing.T) {
	db := openTest(t)
	require.NoError(t, db.SaveKey("a", []byte("1")))

	v, err := db.GetKey("a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))

	require.NoError(t, db.DeleteKey("a"))
	_, err = db.GetKey("a")
	assert.True(t, IsNotFound(err))
}

func TestScanAndDeletePrefix(t *testing.T) {
	db := openTest(t)
	for _, k := range []string{"cache/a/1", "cache/a/2", "cache/b/1", "profiles/x"} {
		require.NoError(t, db.SaveKey(k, []byte(k)))
	}

	var keys []string
	require.NoError(t, db.ScanPrefix("cache/a/", func(k string, _ []byte) error {
		keys = append(keys, k)
		return nil
	}))
	assert.Equal(t, []string{"cache/a/1", "cache/a/2"}, keys)

	require.NoError(t, db.DeletePrefix("cache/a/"))
	keys = nil
	require.NoError(t, db.ScanPrefix("cache/", func(k string, _ []byte) error {
		keys = append(keys, k)
		return nil
	}))
	assert.Equal(t, []string{"cache/b/1"}, keys)
}

func TestScanStopsOnError(t *testing.T) {
	db := openTest(t)
	require.NoError(t, db.SaveKey("p/1", nil))
	require.NoError(t, db.SaveKey("p/2", nil))
	stop := errors.New("stop")
	n := 0
	err := db.ScanPrefix("p/", func(string, []byte) error { n++; return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestUpdateSerialisesWriters(t *testing.T) {
	db := openTest(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.Update("counter", func(old []byte, _ bool) ([]byte, error) {
				return append(old, 'x'), nil
			})
		}()
	}
	wg.Wait()
	v, err := db.GetKey("counter")
	require.NoError(t, err)
	assert.Len(t, v, 20)
}

func TestClosedStore(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.False(t, db.Ready())
	assert.ErrorIs(t, db.SaveKey("a", nil), ErrClosed)
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("cache0"), prefixUpperBound([]byte("cache/")))
	assert.Nil(t, prefixUpperBound([]byte{0xff, 0xff}))
}
