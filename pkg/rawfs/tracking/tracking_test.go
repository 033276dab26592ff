package tracking

import (
	"os"
	"testing"
	"time"

	"github.com/marmos91/bijoufs/pkg/bijou/types"
	bdgkv "github.com/marmos91/bijoufs/pkg/kv/badger"
	"github.com/marmos91/bijoufs/pkg/rawfs"
	"github.com/marmos91/bijoufs/pkg/rawfs/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) *FileSystem {
	t.Helper()
	dataDir, err := os.MkdirTemp("", "bijou-tracking-data-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dataDir) })

	dbDir, err := os.MkdirTemp("", "bijou-tracking-db-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dbDir) })

	inner, err := local.New(dataDir)
	require.NoError(t, err)

	store, err := bdgkv.Open(dbDir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fs := New(inner, store)
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestCreateTracksZeroSize(t *testing.T) {
	fs := newTestFS(t)
	id := types.FileId(1)
	require.NoError(t, fs.Create(id))

	meta, err := fs.Stat(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), meta.Size)
}

func TestWriteBlockUpdatesTrackedSize(t *testing.T) {
	fs := newTestFS(t)
	id := types.FileId(2)
	require.NoError(t, fs.Create(id))

	h, err := fs.Open(id, rawfs.Write)
	require.NoError(t, err)
	defer h.Close()

	buf := make([]byte, 16)
	copy(buf, "hello world")
	require.NoError(t, h.WriteBlock(buf, 11, 0))

	meta, err := h.Metadata()
	require.NoError(t, err)
	assert.Equal(t, uint64(11), meta.Size)
}

func TestUnlinkDropsTrackedMetadata(t *testing.T) {
	fs := newTestFS(t)
	id := types.FileId(3)
	require.NoError(t, fs.Create(id))
	require.NoError(t, fs.Unlink(id))

	_, err := fs.Stat(id)
	assert.Error(t, err)
}

func TestSetLenUpdatesTrackedSize(t *testing.T) {
	fs := newTestFS(t)
	id := types.FileId(4)
	require.NoError(t, fs.Create(id))

	h, err := fs.Open(id, rawfs.Write)
	require.NoError(t, err)
	defer h.Close()

	buf := make([]byte, 16)
	require.NoError(t, h.WriteBlock(buf, 16, 0))
	require.NoError(t, h.SetLen(8, 16))

	meta, err := h.Metadata()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), meta.Size)
	assert.NotNil(t, meta.Modified)
	assert.WithinDuration(t, time.Now(), meta.Modified.Time(), 5*time.Second)
}
