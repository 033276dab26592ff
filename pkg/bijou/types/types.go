// Package types holds the data model shared across every layer of the
// filesystem (§3): the inode identifier, its tagged kind, the metadata
// records the KV store and raw backends exchange, and the directory
// entry value. Kept separate from pkg/bijou so that lower layers
// (pkg/rawfs, pkg/blockio) can depend on the shapes without importing
// the inode layer itself.
package types

import "time"

// FileId is a 64-bit inode identifier. Zero is reserved for the root
// directory; all others are drawn uniformly at random.
type FileId uint64

// RootFileId is the fixed identifier of the vault's root directory.
const RootFileId FileId = 0

// FileKind tags what an inode represents.
type FileKind uint8

const (
	File FileKind = iota
	Directory
	Symlink
)

func (k FileKind) String() string {
	switch k {
	case Directory:
		return "Directory"
	case Symlink:
		return "Symlink"
	default:
		return "File"
	}
}

// Perms is the optional Unix permission/ownership triple. Absent
// (nil *Perms) when unixPerms is disabled in the vault config.
type Perms struct {
	Mode uint16
	UID  uint32
	GID  uint32
}

// Timestamp is a (seconds, nanoseconds) pair serialised per §6's byte
// format, rather than time.Time's platform-dependent internal form.
type Timestamp struct {
	Sec  int64
	Nsec uint32
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime converts a time.Time to a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp{Sec: t.Unix(), Nsec: uint32(t.Nanosecond())}
}

// Time converts back to a time.Time (UTC).
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec)).UTC()
}

// FileMeta is the persisted inode record (§3). Size is derived from the
// raw backend for regular files and is never itself persisted.
type FileMeta struct {
	ID       FileId
	Kind     FileKind
	Accessed Timestamp
	Modified Timestamp
	NLinks   uint32
	Perms    *Perms
}

// DirItem is the value stored under a directory-entry key.
type DirItem struct {
	ID   FileId
	Kind FileKind
}

// RawFileMeta is the raw backend's view of a file object: size and,
// where the backend can report them, access/modify times. Backends
// that cannot self-report these (Split, remote stores, KV-as-blob) are
// wrapped in Tracking, which persists them through the cached metadata
// store instead.
type RawFileMeta struct {
	Size     uint64
	Accessed *Timestamp
	Modified *Timestamp
}
