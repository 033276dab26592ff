package bijou

import (
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
)

// Bridge is the contract an external host bridge (e.g. a FUSE adapter,
// out of scope here) binds to, per §6. Vault implements it directly; the
// bridge itself only ever sees FileIds, never plaintext names more than
// one path component at a time.
type Bridge interface {
	Lookup(parent types.FileId, name string) (types.DirItem, error)
	GetAttr(id types.FileId) (Info, error)
	SetAttr(id types.FileId, in SetAttrInput) (Info, error)

	MakeNode(parent types.FileId, name string, kind types.FileKind, symlinkTarget string, perms *types.Perms) (types.FileMeta, error)
	Mkdir(parent types.FileId, name string, perms *types.Perms) (types.FileMeta, error)
	Symlink(parent types.FileId, name, target string, perms *types.Perms) (types.FileMeta, error)

	Unlink(parent types.FileId, name string) (*types.FileId, error)
	Rmdir(parent types.FileId, name string) error
	Rename(p types.FileId, n string, pp types.FileId, nn string) error
	Link(existing, parent types.FileId, name string) error
	Readlink(id types.FileId) (string, error)

	Open(id types.FileId, opts OpenOptions) (*Handle, error)
	Read(h *Handle, offset uint64, buf []byte) (int, error)
	Write(h *Handle, offset uint64, data []byte) (int, error)
	Release(h *Handle) error

	Opendir(id types.FileId) (*DirIterator, error)
	Readdir(id types.FileId) ([]DirEntry, error)

	GetXattr(id types.FileId, name string) ([]byte, error)
	SetXattr(id types.FileId, name string, value []byte) error
	ListXattr(id types.FileId) ([]string, error)
	RemoveXattr(id types.FileId, name string) error

	Statfs() (StatfsInfo, error)
}

var _ Bridge = (*Vault)(nil)

// Mkdir is MakeNode specialised to Directory.
func (v *Vault) Mkdir(parent types.FileId, name string, perms *types.Perms) (types.FileMeta, error) {
	return v.MakeNode(parent, name, types.Directory, "", perms)
}

// Symlink is MakeNode specialised to Symlink.
func (v *Vault) Symlink(parent types.FileId, name, target string, perms *types.Perms) (types.FileMeta, error) {
	return v.MakeNode(parent, name, types.Symlink, target, perms)
}

// Rmdir removes the (necessarily empty) directory named name under
// parent. It is Unlink restricted to the Directory case.
func (v *Vault) Rmdir(parent types.FileId, name string) error {
	item, err := v.Lookup(parent, name)
	if err != nil {
		return err
	}
	if item.Kind != types.Directory {
		return bijouerr.New(bijouerr.NotADirectory, "rmdir: target is not a directory")
	}
	_, err = v.Unlink(parent, name)
	return err
}

// Readlink returns id's symlink target.
func (v *Vault) Readlink(id types.FileId) (string, error) {
	meta, err := v.getMeta(id)
	if err != nil {
		return "", err
	}
	if meta.Kind != types.Symlink {
		return "", bijouerr.New(bijouerr.InvalidInput, "readlink: not a symlink")
	}
	target, err := v.kv.Get(symlinkKey(id))
	if err != nil {
		return "", err
	}
	return string(target), nil
}

// Open opens an already-resolved regular file id directly, for a bridge
// that has already done the lookup. Unlike OpenFile it never creates.
func (v *Vault) Open(id types.FileId, opts OpenOptions) (*Handle, error) {
	meta, err := v.getMeta(id)
	if err != nil {
		return nil, err
	}
	if meta.Kind != types.File {
		return nil, bijouerr.New(bijouerr.InvalidInput, "open: not a regular file")
	}
	h, err := v.openHandle(id, opts)
	if err != nil {
		return nil, err
	}
	if opts.Truncate {
		if err := h.SetLen(0); err != nil {
			h.Release()
			return nil, err
		}
	}
	return h, nil
}

// Read reads len(buf) bytes from h at offset.
func (v *Vault) Read(h *Handle, offset uint64, buf []byte) (int, error) {
	return h.Read(buf, offset)
}

// Write writes data to h at offset.
func (v *Vault) Write(h *Handle, offset uint64, data []byte) (int, error) {
	return h.Write(data, offset)
}

// Release closes h.
func (v *Vault) Release(h *Handle) error {
	return h.Release()
}

// DirIterator is the opendir/readdir-split view over Readdir's result,
// matching §6's opendir(id) -> iterator; readdir(iterator, offset) shape.
type DirIterator struct {
	entries []DirEntry
}

// Readdir returns the entries starting at offset (0-based, in the
// iterator's fixed snapshot order).
func (it *DirIterator) Readdir(offset int) []DirEntry {
	if offset >= len(it.entries) {
		return nil
	}
	return it.entries[offset:]
}

// Len reports the snapshot's total entry count.
func (it *DirIterator) Len() int { return len(it.entries) }

// Opendir snapshots id's directory entries into an offset-addressable
// iterator.
func (v *Vault) Opendir(id types.FileId) (*DirIterator, error) {
	entries, err := v.Readdir(id)
	if err != nil {
		return nil, err
	}
	return &DirIterator{entries: entries}, nil
}

// StatfsInfo is the summary statfs reports.
type StatfsInfo struct {
	BlockSize  uint32
	OpenFiles  uint64
}

// Statfs reports coarse vault-level statistics.
func (v *Vault) Statfs() (StatfsInfo, error) {
	return StatfsInfo{
		BlockSize: uint32(v.algo.Sizes().BlockSize()),
		OpenFiles: uint64(v.counters.Total()),
	}, nil
}
