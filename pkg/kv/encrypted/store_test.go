package encrypted

import (
	"os"
	"testing"

	bdgkv "github.com/marmos91/bijoufs/pkg/kv/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "bijou-encrypted-kv-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	inner, err := bdgkv.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { inner.Close() })

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	s, err := New(inner, key)
	require.NoError(t, err)
	return s
}

func TestRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("a"), []byte("hello world")))

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), v)
}

func TestEmptyValueRoundTrips(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("a"), []byte{}))

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestRangeDecryptsEachValue(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Put([]byte("b"), []byte("2")))

	it, err := s.Range([]byte("a"), nil)
	require.NoError(t, err)
	defer it.Close()

	var values []string
	for it.Next() {
		v, err := it.Value()
		require.NoError(t, err)
		values = append(values, string(v))
	}
	assert.Equal(t, []string{"1", "2"}, values)
}

func TestBatchRoundTrip(t *testing.T) {
	s := openTestStore(t)
	b := s.NewBatch()
	b.Put([]byte("a"), []byte("x"))
	require.NoError(t, b.Commit())

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), v)
}

func TestWrongKeySizeRejected(t *testing.T) {
	dir, err := os.MkdirTemp("", "bijou-encrypted-kv-badkey-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	inner, err := bdgkv.Open(dir)
	require.NoError(t, err)
	defer inner.Close()

	_, err = New(inner, []byte("too short"))
	assert.Error(t, err)
}
