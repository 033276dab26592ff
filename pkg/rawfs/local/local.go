// Package local implements rawfs.FileSystem over plain OS files laid
// out in a two-level tree keyed by the first two hex digits of FileId,
// in the shape of a filesystem-backed block store: same base-directory
// root, same create-parent-dirs-then-write flow, generalized here to
// FileId-addressed positional block I/O rather than whole-blob keys.
package local

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/rawfs"
)

// FileSystem is a Local raw backend rooted at a data directory.
type FileSystem struct {
	root string

	mu    sync.Mutex
	dirty map[string]struct{} // leaf directories already created
}

// New opens (creating if absent) a Local backend rooted at root.
func New(root string) (*FileSystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, bijouerr.Wrap(bijouerr.IOError, "failed to create raw backend root", err)
	}
	return &FileSystem{root: root, dirty: make(map[string]struct{})}, nil
}

func leafDir(root string, id types.FileId) string {
	hex := fmt.Sprintf("%016x", uint64(id))
	return filepath.Join(root, hex[:2])
}

func blobPath(root string, id types.FileId) string {
	hex := fmt.Sprintf("%016x", uint64(id))
	return filepath.Join(leafDir(root, id), hex)
}

func (fs *FileSystem) ensureLeafDir(id types.FileId) error {
	dir := leafDir(fs.root, id)

	fs.mu.Lock()
	_, ok := fs.dirty[dir]
	fs.mu.Unlock()
	if ok {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return bijouerr.Wrap(bijouerr.IOError, "failed to create blob leaf directory", err)
	}

	fs.mu.Lock()
	fs.dirty[dir] = struct{}{}
	fs.mu.Unlock()
	return nil
}

func (fs *FileSystem) Create(id types.FileId) error {
	if err := fs.ensureLeafDir(id); err != nil {
		return err
	}

	path := blobPath(fs.root, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return bijouerr.New(bijouerr.AlreadyExists, "raw blob already exists")
		}
		return bijouerr.Wrap(bijouerr.IOError, "failed to create raw blob", err)
	}
	return f.Close()
}

func (fs *FileSystem) Exists(id types.FileId) (bool, error) {
	_, err := os.Stat(blobPath(fs.root, id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, bijouerr.Wrap(bijouerr.IOError, "failed to stat raw blob", err)
}

func (fs *FileSystem) Unlink(id types.FileId) error {
	err := os.Remove(blobPath(fs.root, id))
	if err != nil && !os.IsNotExist(err) {
		return bijouerr.Wrap(bijouerr.IOError, "failed to unlink raw blob", err)
	}
	return nil
}

func (fs *FileSystem) Stat(id types.FileId) (types.RawFileMeta, error) {
	info, err := os.Stat(blobPath(fs.root, id))
	if err != nil {
		if os.IsNotExist(err) {
			return types.RawFileMeta{}, bijouerr.New(bijouerr.NotFound, "raw blob not found")
		}
		return types.RawFileMeta{}, bijouerr.Wrap(bijouerr.IOError, "failed to stat raw blob", err)
	}
	modified := types.FromTime(info.ModTime())
	return types.RawFileMeta{Size: uint64(info.Size()), Modified: &modified}, nil
}

func (fs *FileSystem) Write(id types.FileId, data []byte) error {
	if err := fs.ensureLeafDir(id); err != nil {
		return err
	}
	if err := os.WriteFile(blobPath(fs.root, id), data, 0o644); err != nil {
		return bijouerr.Wrap(bijouerr.IOError, "failed to write raw blob", err)
	}
	return nil
}

func (fs *FileSystem) Open(id types.FileId, _ rawfs.OpenFlag) (rawfs.File, error) {
	path := blobPath(fs.root, id)
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bijouerr.New(bijouerr.NotFound, "raw blob not found")
		}
		return nil, bijouerr.Wrap(bijouerr.IOError, "failed to open raw blob", err)
	}
	return &handle{f: f}, nil
}

func (fs *FileSystem) Close() error { return nil }

// handle is a positional I/O handle onto a blob. Independent handles to
// the same FileId may coexist since all access goes through ReadAt /
// WriteAt at caller-supplied offsets rather than a shared cursor.
type handle struct {
	f *os.File
}

func (h *handle) ReadBlock(buf []byte, blockIdx uint64) (int, error) {
	off := int64(blockIdx) * int64(len(buf))
	n, err := h.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return n, bijouerr.Wrap(bijouerr.IOError, "block read failed", err)
	}
	return n, nil
}

func (h *handle) WriteBlock(buf []byte, blockEnd int, blockIdx uint64) error {
	off := int64(blockIdx) * int64(len(buf))
	if _, err := h.f.WriteAt(buf[:blockEnd], off); err != nil {
		return bijouerr.Wrap(bijouerr.IOError, "block write failed", err)
	}
	return nil
}

func (h *handle) SetLen(newLen uint64, _ int) error {
	if err := h.f.Truncate(int64(newLen)); err != nil {
		return bijouerr.Wrap(bijouerr.IOError, "truncate failed", err)
	}
	return nil
}

func (h *handle) Metadata() (types.RawFileMeta, error) {
	info, err := h.f.Stat()
	if err != nil {
		return types.RawFileMeta{}, bijouerr.Wrap(bijouerr.IOError, "stat failed", err)
	}
	modified := types.FromTime(info.ModTime())
	return types.RawFileMeta{Size: uint64(info.Size()), Modified: &modified}, nil
}

func (h *handle) SetMetadata(types.RawFileMeta) error {
	// Local reads size/mtime directly from the OS; nothing to track.
	return nil
}

func (h *handle) Close() error {
	if err := h.f.Close(); err != nil {
		return bijouerr.Wrap(bijouerr.IOError, "close failed", err)
	}
	return nil
}

var _ rawfs.FileSystem = (*FileSystem)(nil)
var _ rawfs.File = (*handle)(nil)
