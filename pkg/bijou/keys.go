package bijou

import (
	"encoding/binary"

	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/kv"
)

// Key-family separators, per §3. Chosen so that ":" < ";" brackets the
// directory-entry range and "x" < "y" brackets the xattr range.
const (
	sepDirEntry  = ':'
	sepDirEnd    = ';'
	sepSymlink   = 's'
	sepXattr     = 'x'
	sepXattrEnd  = 'y'
)

// fileIDPrefix returns "f" · FileId(LE) — the 9-byte prefix every
// per-inode key family is built from.
func fileIDPrefix(id types.FileId) []byte {
	key := make([]byte, 9)
	key[0] = 'f'
	binary.LittleEndian.PutUint64(key[1:], uint64(id))
	return key
}

// metaKey is the key FileMeta is stored under.
func metaKey(id types.FileId) []byte {
	return fileIDPrefix(id)
}

// dirEntryKey is the key a directory entry (DirItem) is stored under,
// keyed by the encrypted-or-plaintext name bytes.
func dirEntryKey(parent types.FileId, nameBytes []byte) []byte {
	key := kv.AppendSuffix(fileIDPrefix(parent), sepDirEntry)
	return kv.AppendSuffix(key, nameBytes...)
}

// dirEntryRange returns the [lower, upper) bounds that scan every
// directory entry of parent, per §3's ":" < ";" ordering trick.
func dirEntryRange(parent types.FileId) (lower, upper []byte) {
	prefix := fileIDPrefix(parent)
	lower = kv.AppendSuffix(prefix, sepDirEntry)
	upper = kv.AppendSuffix(prefix, sepDirEnd)
	return lower, upper
}

// symlinkKey is the key a symlink's target string is stored under.
func symlinkKey(id types.FileId) []byte {
	return kv.AppendSuffix(fileIDPrefix(id), sepSymlink)
}

// xattrKey is the key one extended attribute is stored under.
func xattrKey(id types.FileId, name string) []byte {
	key := kv.AppendSuffix(fileIDPrefix(id), sepXattr)
	return kv.AppendSuffix(key, []byte(name)...)
}

// xattrRange returns the [lower, upper) bounds that scan every xattr of
// id, per §3's "x" < "y" ordering trick.
func xattrRange(id types.FileId) (lower, upper []byte) {
	prefix := fileIDPrefix(id)
	lower = kv.AppendSuffix(prefix, sepXattr)
	upper = kv.AppendSuffix(prefix, sepXattrEnd)
	return lower, upper
}

// dirEntryNameFromKey strips the "f"·FileId·":" prefix, returning the
// raw (possibly encrypted) name bytes stored after it.
func dirEntryNameFromKey(key []byte) []byte {
	return key[10:]
}

// xattrNameFromKey strips the "f"·FileId·"x" prefix, returning the
// attribute name.
func xattrNameFromKey(key []byte) string {
	return string(key[10:])
}
