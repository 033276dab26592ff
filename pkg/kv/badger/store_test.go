package badger

import (
	"os"
	"testing"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "bijou-badger-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("a"), []byte("1")))

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get([]byte("missing"))
	require.Error(t, err)
	assert.True(t, bijouerr.Is(err, bijouerr.NotFound))
}

func TestExists(t *testing.T) {
	s := openTestStore(t)
	ok, err := s.Exists([]byte("x"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put([]byte("x"), []byte("y")))
	ok, err = s.Exists([]byte("x"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteRemovesKey(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Delete([]byte("a")))

	ok, err := s.Exists([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRangeRespectsExclusiveUpperBound(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}

	it, err := s.Range([]byte("b"), []byte("d"))
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestRangeUnboundedAbove(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}

	it, err := s.Range([]byte("b"), nil)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestBatchCommitIsAtomic(t *testing.T) {
	s := openTestStore(t)
	b := s.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	b.Delete([]byte("c"))
	require.NoError(t, b.Commit())

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	v, err = s.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}
