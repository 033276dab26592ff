// Package tracking wraps a rawfs.FileSystem that cannot cheaply report
// RawFileMeta (remote stores, the Split backend's children), persisting
// size/atime/mtime through the cached metadata store (C6) instead and
// updating them on create/read/truncate/write. The pairing mirrors a
// write-back cache sitting in front of a backing store generally (an
// offloader's relationship to its block store), generalized here to
// per-object metadata rather than block upload state.
package tracking

import (
	"encoding/json"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/kv"
	"github.com/marmos91/bijoufs/pkg/metacache"
	"github.com/marmos91/bijoufs/pkg/rawfs"
)

// metaSuffix is the derived-key suffix under which tracked RawFileMeta
// is persisted: "f" + FileId + "t", reserved for Tracking backends by §3.
const metaSuffix = 't'

func metaKey(id types.FileId) []byte {
	key := make([]byte, 9)
	key[0] = 'f'
	putFileID(key[1:], id)
	return kv.AppendSuffix(key, metaSuffix)
}

func putFileID(dst []byte, id types.FileId) {
	v := uint64(id)
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// FileSystem wraps an inner rawfs.FileSystem, tracking RawFileMeta for
// it in store, itself persisted through a KV-backed metacache.Store.
type FileSystem struct {
	inner rawfs.FileSystem
	meta  *metacache.Store[types.FileId, types.RawFileMeta]
}

// New wraps inner, persisting tracked metadata into store under the
// "t"-suffixed derived key family.
func New(inner rawfs.FileSystem, store kv.Store) *FileSystem {
	load := func(id types.FileId) (types.RawFileMeta, error) {
		raw, err := store.Get(metaKey(id))
		if err != nil {
			return types.RawFileMeta{}, err
		}
		var meta types.RawFileMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return types.RawFileMeta{}, bijouerr.Wrap(bijouerr.DBError, "failed to decode tracked raw metadata", err)
		}
		return meta, nil
	}
	flush := func(id types.FileId, meta types.RawFileMeta) error {
		encoded, err := json.Marshal(meta)
		if err != nil {
			return bijouerr.Wrap(bijouerr.DBError, "failed to encode tracked raw metadata", err)
		}
		return store.Put(metaKey(id), encoded)
	}

	return &FileSystem{
		inner: inner,
		meta:  metacache.New(load, flush, metacache.DefaultFlushDelay),
	}
}

func (fs *FileSystem) Create(id types.FileId) error {
	if err := fs.inner.Create(id); err != nil {
		return err
	}
	now := types.Now()
	fs.meta.Update(id, types.RawFileMeta{Size: 0, Accessed: &now, Modified: &now}, true)
	return nil
}

func (fs *FileSystem) Exists(id types.FileId) (bool, error) {
	return fs.inner.Exists(id)
}

func (fs *FileSystem) Unlink(id types.FileId) error {
	if err := fs.inner.Unlink(id); err != nil {
		return err
	}
	fs.meta.Delete(id)
	return nil
}

func (fs *FileSystem) Stat(id types.FileId) (types.RawFileMeta, error) {
	return fs.meta.Get(id)
}

func (fs *FileSystem) Write(id types.FileId, data []byte) error {
	if err := fs.inner.Write(id, data); err != nil {
		return err
	}
	now := types.Now()
	size := uint64(len(data))
	fs.meta.Update(id, types.RawFileMeta{Size: size, Accessed: &now, Modified: &now}, false)
	return nil
}

func (fs *FileSystem) Open(id types.FileId, flags rawfs.OpenFlag) (rawfs.File, error) {
	inner, err := fs.inner.Open(id, flags)
	if err != nil {
		return nil, err
	}
	return &handle{inner: inner, id: id, meta: fs.meta, writable: flags&rawfs.Write != 0}, nil
}

func (fs *FileSystem) Close() error {
	if err := fs.meta.Close(); err != nil {
		return err
	}
	return fs.inner.Close()
}

type handle struct {
	inner    rawfs.File
	id       types.FileId
	meta     *metacache.Store[types.FileId, types.RawFileMeta]
	writable bool
}

func (h *handle) ReadBlock(buf []byte, blockIdx uint64) (int, error) {
	n, err := h.inner.ReadBlock(buf, blockIdx)
	if err != nil {
		return n, err
	}
	now := types.Now()
	current, _ := h.meta.Get(h.id)
	current.Accessed = &now
	h.meta.Update(h.id, current, false)
	return n, nil
}

func (h *handle) WriteBlock(buf []byte, blockEnd int, blockIdx uint64) error {
	if err := h.inner.WriteBlock(buf, blockEnd, blockIdx); err != nil {
		return err
	}

	current, _ := h.meta.Get(h.id)
	end := blockIdx*uint64(len(buf)) + uint64(blockEnd)
	if end > current.Size {
		current.Size = end
	}
	now := types.Now()
	current.Modified = &now
	h.meta.Update(h.id, current, true)
	return nil
}

func (h *handle) SetLen(newLen uint64, blockSize int) error {
	if err := h.inner.SetLen(newLen, blockSize); err != nil {
		return err
	}
	current, _ := h.meta.Get(h.id)
	current.Size = newLen
	now := types.Now()
	current.Modified = &now
	h.meta.Update(h.id, current, true)
	return nil
}

func (h *handle) Metadata() (types.RawFileMeta, error) {
	return h.meta.Get(h.id)
}

func (h *handle) SetMetadata(meta types.RawFileMeta) error {
	h.meta.Update(h.id, meta, true)
	return nil
}

func (h *handle) Close() error {
	return h.inner.Close()
}

var _ rawfs.FileSystem = (*FileSystem)(nil)
var _ rawfs.File = (*handle)(nil)
