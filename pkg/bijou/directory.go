package bijou

import (
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/idlock"
	"github.com/marmos91/bijoufs/pkg/kv"
)

func fileIDLess(a, b types.FileId) bool { return a < b }

// Lookup resolves name within parent's directory, per §4.10's
// single-point-get lookup (the queried name is re-encrypted
// deterministically before the get).
func (v *Vault) Lookup(parent types.FileId, name string) (types.DirItem, error) {
	key, err := v.dirItemKey(parent, name)
	if err != nil {
		return types.DirItem{}, err
	}
	raw, err := v.kv.Get(key)
	if err != nil {
		return types.DirItem{}, err
	}
	return decodeDirItem(raw)
}

// DirEntry is one decoded (name, id, kind) triple yielded by Readdir.
type DirEntry struct {
	Name string
	Item types.DirItem
}

// Readdir lists parent's directory entries. Per §4.10, the order is the
// lexicographic order of the (possibly encrypted) key bytes and carries
// no semantic meaning.
func (v *Vault) Readdir(parent types.FileId) ([]DirEntry, error) {
	lower, upper := dirEntryRange(parent)
	it, err := v.kv.Range(lower, upper)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var entries []DirEntry
	for it.Next() {
		suffix := dirEntryNameFromKey(it.Key())
		name, err := v.names.decode(parent, suffix)
		if err != nil {
			return nil, err
		}
		raw, err := it.Value()
		if err != nil {
			return nil, err
		}
		item, err := decodeDirItem(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, DirEntry{Name: name, Item: item})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// MakeNode creates a fresh File, Directory, or Symlink entry named name
// under parent, per §4.10.
func (v *Vault) MakeNode(parent types.FileId, name string, kind types.FileKind, symlinkTarget string, perms *types.Perms) (types.FileMeta, error) {
	if kind == types.Symlink && symlinkTarget == "" {
		return types.FileMeta{}, bijouerr.New(bijouerr.InvalidInput, "symlink requires a target")
	}

	unlock := v.dirLocks.Lock(parent)
	defer unlock()

	childKey, err := v.dirItemKey(parent, name)
	if err != nil {
		return types.FileMeta{}, err
	}
	if exists, err := v.kv.Exists(childKey); err != nil {
		return types.FileMeta{}, err
	} else if exists {
		return types.FileMeta{}, bijouerr.New(bijouerr.AlreadyExists, "directory entry already exists")
	}

	parentMeta, err := v.getMeta(parent)
	if err != nil {
		return types.FileMeta{}, err
	}
	if parentMeta.Kind != types.Directory {
		return types.FileMeta{}, bijouerr.New(bijouerr.NotADirectory, "parent is not a directory")
	}

	id, err := v.allocateFileID()
	if err != nil {
		return types.FileMeta{}, err
	}

	now := types.Now()
	nlinks := uint32(1)
	if kind == types.Directory {
		nlinks = 2
	}
	if !v.config.UnixPerms {
		perms = nil
	}

	meta := types.FileMeta{ID: id, Kind: kind, Accessed: now, Modified: now, NLinks: nlinks, Perms: perms}
	metaBytes, err := encodeFileMeta(meta)
	if err != nil {
		return types.FileMeta{}, err
	}

	childItem, err := encodeDirItem(types.DirItem{ID: id, Kind: kind})
	if err != nil {
		return types.FileMeta{}, err
	}

	batch := v.kv.NewBatch()
	batch.Put(metaKey(id), metaBytes)
	batch.Put(childKey, childItem)

	if kind == types.Directory {
		selfItem, err := encodeDirItem(types.DirItem{ID: id, Kind: types.Directory})
		if err != nil {
			return types.FileMeta{}, err
		}
		parentItem, err := encodeDirItem(types.DirItem{ID: parent, Kind: types.Directory})
		if err != nil {
			return types.FileMeta{}, err
		}
		dotKey, err := v.dirItemKey(id, dotName)
		if err != nil {
			return types.FileMeta{}, err
		}
		dotdotKey, err := v.dirItemKey(id, dotdotName)
		if err != nil {
			return types.FileMeta{}, err
		}
		batch.Put(dotKey, selfItem)
		batch.Put(dotdotKey, parentItem)

		parentMeta.NLinks++
	}

	if kind == types.Symlink {
		batch.Put(symlinkKey(id), []byte(symlinkTarget))
	}

	parentMeta.Modified = now
	parentMetaBytes, err := encodeFileMeta(parentMeta)
	if err != nil {
		return types.FileMeta{}, err
	}
	batch.Put(metaKey(parent), parentMetaBytes)

	if err := batch.Commit(); err != nil {
		return types.FileMeta{}, err
	}

	if kind == types.File {
		if err := v.raw.Create(id); err != nil {
			return types.FileMeta{}, err
		}
	}

	return meta, nil
}

// Link adds a new directory entry under parent pointing at an existing
// non-directory inode, bumping its link count (§4.10).
func (v *Vault) Link(existing, parent types.FileId, name string) error {
	unlock := v.dirLocks.Lock(parent)
	defer unlock()

	meta, err := v.getMeta(existing)
	if err != nil {
		return err
	}
	if meta.Kind == types.Directory {
		return bijouerr.New(bijouerr.InvalidInput, "cannot hard-link a directory")
	}

	childKey, err := v.dirItemKey(parent, name)
	if err != nil {
		return err
	}
	if exists, err := v.kv.Exists(childKey); err != nil {
		return err
	} else if exists {
		return bijouerr.New(bijouerr.AlreadyExists, "directory entry already exists")
	}

	meta.NLinks++
	metaBytes, err := encodeFileMeta(meta)
	if err != nil {
		return err
	}
	childItem, err := encodeDirItem(types.DirItem{ID: existing, Kind: meta.Kind})
	if err != nil {
		return err
	}

	batch := v.kv.NewBatch()
	batch.Put(metaKey(existing), metaBytes)
	batch.Put(childKey, childItem)
	return batch.Commit()
}

// Unlink removes name from parent's directory, per §4.10. Returns the
// FileId whose storage was fully removed, or nil if the target survives
// (a hard-linked file whose nlinks did not reach zero).
func (v *Vault) Unlink(parent types.FileId, name string) (*types.FileId, error) {
	unlock := v.dirLocks.Lock(parent)
	defer unlock()

	childKey, err := v.dirItemKey(parent, name)
	if err != nil {
		return nil, err
	}
	raw, err := v.kv.Get(childKey)
	if err != nil {
		return nil, err
	}
	child, err := decodeDirItem(raw)
	if err != nil {
		return nil, err
	}

	if child.Kind == types.Directory {
		if err := v.requireEmptyDirectory(child.ID); err != nil {
			return nil, err
		}
	}

	batch := v.kv.NewBatch()
	removed, err := v.unlinkInto(batch, parent, name, childKey, child)
	if err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}

	if removed != nil && child.Kind == types.File {
		if err := v.raw.Unlink(*removed); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

// unlinkInto stages name's removal from parent's directory into batch,
// returning the FileId fully removed (nil if a hard link survives).
// Shared between Unlink and Rename's overwrite path.
func (v *Vault) unlinkInto(batch kv.Batch, parent types.FileId, name string, childKey []byte, child types.DirItem) (*types.FileId, error) {
	now := types.Now()
	batch.Delete(childKey)

	parentMeta, err := v.getMeta(parent)
	if err != nil {
		return nil, err
	}
	parentMeta.Modified = now

	if child.Kind == types.Directory {
		parentMeta.NLinks--
		parentMetaBytes, err := encodeFileMeta(parentMeta)
		if err != nil {
			return nil, err
		}
		batch.Put(metaKey(parent), parentMetaBytes)

		dotKey, err := v.dirItemKey(child.ID, dotName)
		if err != nil {
			return nil, err
		}
		dotdotKey, err := v.dirItemKey(child.ID, dotdotName)
		if err != nil {
			return nil, err
		}
		batch.Delete(dotKey)
		batch.Delete(dotdotKey)
		batch.Delete(metaKey(child.ID))
		id := child.ID
		return &id, nil
	}

	parentMetaBytes, err := encodeFileMeta(parentMeta)
	if err != nil {
		return nil, err
	}
	batch.Put(metaKey(parent), parentMetaBytes)

	meta, err := v.getMeta(child.ID)
	if err != nil {
		return nil, err
	}
	meta.NLinks--
	if meta.NLinks > 0 {
		metaBytes, err := encodeFileMeta(meta)
		if err != nil {
			return nil, err
		}
		batch.Put(metaKey(child.ID), metaBytes)
		return nil, nil
	}

	batch.Delete(metaKey(child.ID))
	if child.Kind == types.Symlink {
		batch.Delete(symlinkKey(child.ID))
	}
	lower, upper := xattrRange(child.ID)
	it, err := v.kv.Range(lower, upper)
	if err != nil {
		return nil, err
	}
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	itErr := it.Err()
	it.Close()
	if itErr != nil {
		return nil, itErr
	}

	id := child.ID
	return &id, nil
}

// requireEmptyDirectory fails NotEmpty unless dir contains only "." and
// "..".
func (v *Vault) requireEmptyDirectory(dir types.FileId) error {
	entries, err := v.Readdir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name != dotName && e.Name != dotdotName {
			return bijouerr.New(bijouerr.NotEmpty, "directory is not empty")
		}
	}
	return nil
}

// Rename moves the entry named n under p to be named n' under p', per
// §4.10, replacing any existing (p', n') target first.
func (v *Vault) Rename(p types.FileId, n string, pp types.FileId, nn string) error {
	if p == pp && n == nn {
		return nil
	}

	unlock := idlock.LockOrdered(v.dirLocks, fileIDLess, p, pp)
	defer unlock()

	oldKey, err := v.dirItemKey(p, n)
	if err != nil {
		return err
	}
	raw, err := v.kv.Get(oldKey)
	if err != nil {
		return err
	}
	moved, err := decodeDirItem(raw)
	if err != nil {
		return err
	}

	newKey, err := v.dirItemKey(pp, nn)
	if err != nil {
		return err
	}

	batch := v.kv.NewBatch()

	var overwrittenFile *types.FileId
	if existingRaw, err := v.kv.Get(newKey); err == nil {
		existing, err := decodeDirItem(existingRaw)
		if err != nil {
			return err
		}
		if existing.Kind == types.Directory {
			if err := v.requireEmptyDirectory(existing.ID); err != nil {
				return err
			}
		}
		removed, err := v.unlinkInto(batch, pp, nn, newKey, existing)
		if err != nil {
			return err
		}
		if removed != nil && existing.Kind == types.File {
			overwrittenFile = removed
		}
	} else if !bijouerr.Is(err, bijouerr.NotFound) {
		return err
	}

	batch.Delete(oldKey)
	newItem, err := encodeDirItem(moved)
	if err != nil {
		return err
	}
	batch.Put(newKey, newItem)

	now := types.Now()

	if moved.Kind == types.Directory {
		dotdotKey, err := v.dirItemKey(moved.ID, dotdotName)
		if err != nil {
			return err
		}
		parentItem, err := encodeDirItem(types.DirItem{ID: pp, Kind: types.Directory})
		if err != nil {
			return err
		}
		batch.Put(dotdotKey, parentItem)
	}

	if p != pp {
		oldParentMeta, err := v.getMeta(p)
		if err != nil {
			return err
		}
		oldParentMeta.Modified = now
		if moved.Kind == types.Directory {
			oldParentMeta.NLinks--
		}
		oldParentBytes, err := encodeFileMeta(oldParentMeta)
		if err != nil {
			return err
		}
		batch.Put(metaKey(p), oldParentBytes)

		newParentMeta, err := v.getMeta(pp)
		if err != nil {
			return err
		}
		newParentMeta.Modified = now
		if moved.Kind == types.Directory {
			newParentMeta.NLinks++
		}
		newParentBytes, err := encodeFileMeta(newParentMeta)
		if err != nil {
			return err
		}
		batch.Put(metaKey(pp), newParentBytes)
	} else {
		parentMeta, err := v.getMeta(p)
		if err != nil {
			return err
		}
		parentMeta.Modified = now
		parentBytes, err := encodeFileMeta(parentMeta)
		if err != nil {
			return err
		}
		batch.Put(metaKey(p), parentBytes)
	}

	if err := batch.Commit(); err != nil {
		return err
	}
	if overwrittenFile != nil {
		return v.raw.Unlink(*overwrittenFile)
	}
	return nil
}
