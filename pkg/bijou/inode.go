package bijou

import (
	"encoding/json"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/crypto"
)

// syntheticDirSize is the fixed size reported for directories (§3: "for
// directories, size is a synthetic 512").
const syntheticDirSize = 512

// maxFileIDAttempts bounds the random-id allocation retry loop; a
// collision on every one of this many 64-bit samples would indicate a
// near-full namespace, at which point surfacing DBError is more honest
// than spinning forever.
const maxFileIDAttempts = 64

func decodeFileMeta(raw []byte) (types.FileMeta, error) {
	var meta types.FileMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return types.FileMeta{}, bijouerr.Wrap(bijouerr.DBError, "failed to decode file metadata", err)
	}
	return meta, nil
}

func encodeFileMeta(meta types.FileMeta) ([]byte, error) {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, bijouerr.Wrap(bijouerr.DBError, "failed to encode file metadata", err)
	}
	return encoded, nil
}

func decodeDirItem(raw []byte) (types.DirItem, error) {
	var item types.DirItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return types.DirItem{}, bijouerr.Wrap(bijouerr.DBError, "failed to decode directory entry", err)
	}
	return item, nil
}

func encodeDirItem(item types.DirItem) ([]byte, error) {
	encoded, err := json.Marshal(item)
	if err != nil {
		return nil, bijouerr.Wrap(bijouerr.DBError, "failed to encode directory entry", err)
	}
	return encoded, nil
}

// getMeta reads id's FileMeta from the KV store.
func (v *Vault) getMeta(id types.FileId) (types.FileMeta, error) {
	raw, err := v.kv.Get(metaKey(id))
	if err != nil {
		return types.FileMeta{}, err
	}
	return decodeFileMeta(raw)
}

// allocateFileID draws a fresh, collision-free, non-zero FileId.
func (v *Vault) allocateFileID() (types.FileId, error) {
	for i := 0; i < maxFileIDAttempts; i++ {
		raw, err := crypto.RandomBytes(8)
		if err != nil {
			return 0, err
		}
		id := types.FileId(leUint64(raw))
		if id == types.RootFileId {
			continue
		}
		exists, err := v.kv.Exists(metaKey(id))
		if err != nil {
			return 0, err
		}
		if !exists {
			return id, nil
		}
	}
	return 0, bijouerr.New(bijouerr.DBError, "failed to allocate a fresh file id")
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// ensureRoot creates the root directory's FileMeta and self-referential
// "." / ".." entries on first vault open, per §4.10.
func (v *Vault) ensureRoot() error {
	exists, err := v.kv.Exists(metaKey(types.RootFileId))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	now := types.Now()
	root := types.FileMeta{
		ID:       types.RootFileId,
		Kind:     types.Directory,
		Accessed: now,
		Modified: now,
		NLinks:   2,
	}
	if v.config.UnixPerms {
		root.Perms = &types.Perms{Mode: 0o755}
	}

	batch := v.kv.NewBatch()
	metaBytes, err := encodeFileMeta(root)
	if err != nil {
		return err
	}
	batch.Put(metaKey(types.RootFileId), metaBytes)

	dot, err := encodeDirItem(types.DirItem{ID: types.RootFileId, Kind: types.Directory})
	if err != nil {
		return err
	}
	dotKey, err := v.dirItemKey(types.RootFileId, dotName)
	if err != nil {
		return err
	}
	dotdotKey, err := v.dirItemKey(types.RootFileId, dotdotName)
	if err != nil {
		return err
	}
	batch.Put(dotKey, dot)
	batch.Put(dotdotKey, dot)

	return batch.Commit()
}

// dirItemKey encodes name under parent's codec and builds its full KV key.
func (v *Vault) dirItemKey(parent types.FileId, name string) ([]byte, error) {
	encoded, err := v.names.encode(parent, name)
	if err != nil {
		return nil, err
	}
	return dirEntryKey(parent, encoded), nil
}

// Info is the attribute view the bridge contract's getattr/setattr
// operate on: FileMeta enriched with the live size the raw backend (for
// regular files) or the synthetic constant (for directories) reports.
type Info struct {
	types.FileMeta
	Size uint64
}

// GetAttr returns id's combined attribute view.
func (v *Vault) GetAttr(id types.FileId) (Info, error) {
	meta, err := v.getMeta(id)
	if err != nil {
		return Info{}, err
	}
	return v.infoFor(meta)
}

func (v *Vault) infoFor(meta types.FileMeta) (Info, error) {
	switch meta.Kind {
	case types.Directory:
		return Info{FileMeta: meta, Size: syntheticDirSize}, nil
	case types.Symlink:
		target, err := v.kv.Get(symlinkKey(meta.ID))
		if err != nil {
			return Info{}, err
		}
		return Info{FileMeta: meta, Size: uint64(len(target))}, nil
	default:
		unlock := v.blockLocks.RLock(meta.ID)
		defer unlock()

		exists, err := v.raw.Exists(meta.ID)
		if err != nil {
			return Info{}, err
		}
		if !exists {
			return Info{FileMeta: meta, Size: 0}, nil
		}
		raw, err := v.raw.Stat(meta.ID)
		if err != nil {
			return Info{}, err
		}
		info := Info{FileMeta: meta, Size: v.algo.Sizes().PlaintextSize(raw.Size)}
		if raw.Accessed != nil {
			info.Accessed = *raw.Accessed
		}
		if raw.Modified != nil {
			info.Modified = *raw.Modified
		}
		return info, nil
	}
}

// SetAttrInput carries the optional fields setattr may update, per §6.
type SetAttrInput struct {
	Mode     *uint16
	UID      *uint32
	GID      *uint32
	Size     *uint64
	Accessed *types.Timestamp
	Modified *types.Timestamp
}

// SetAttr updates id's mutable attributes. A Size change truncates or
// extends the file's content via the block pipeline.
func (v *Vault) SetAttr(id types.FileId, in SetAttrInput) (Info, error) {
	unlock := v.dirLocks.Lock(id)
	meta, err := v.getMeta(id)
	if err != nil {
		unlock()
		return Info{}, err
	}

	if in.Mode != nil || in.UID != nil || in.GID != nil {
		if meta.Perms == nil {
			meta.Perms = &types.Perms{}
		}
		if in.Mode != nil {
			meta.Perms.Mode = *in.Mode
		}
		if in.UID != nil {
			meta.Perms.UID = *in.UID
		}
		if in.GID != nil {
			meta.Perms.GID = *in.GID
		}
	}
	if in.Accessed != nil {
		meta.Accessed = *in.Accessed
	}
	if in.Modified != nil {
		meta.Modified = *in.Modified
	}

	metaBytes, err := encodeFileMeta(meta)
	if err != nil {
		unlock()
		return Info{}, err
	}
	if err := v.kv.Put(metaKey(id), metaBytes); err != nil {
		unlock()
		return Info{}, err
	}
	unlock()

	if in.Size != nil && meta.Kind == types.File {
		if err := v.truncateFile(id, *in.Size); err != nil {
			return Info{}, err
		}
	}

	return v.GetAttr(id)
}
