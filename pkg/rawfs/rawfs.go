// Package rawfs defines the pluggable raw-storage contract (§4.5) that
// sits beneath the block pipeline: a FileId-addressed object store that
// sees only ciphertext blobs and knows nothing about encryption,
// directories, or names. Concrete backends live in subpackages (local,
// split, tracking, s3), in the same shape as a filesystem- or
// S3-backed block store.
package rawfs

import (
	"github.com/marmos91/bijoufs/pkg/bijou/types"
)

// OpenFlag controls what operations a RawFile handle permits.
type OpenFlag uint8

const (
	Read OpenFlag = 1 << iota
	Write
)

// FileSystem is the contract a raw-storage backend implements. It
// manages whole objects identified by FileId; block-aligned access
// within an object is exposed through the File handle Open returns.
type FileSystem interface {
	// Open returns a handle to id's blob. The blob must already exist
	// (see Create).
	Open(id types.FileId, flags OpenFlag) (File, error)

	// Create allocates an empty blob for id. Fails AlreadyExists if one
	// is already present.
	Create(id types.FileId) error

	// Exists reports whether id has a blob.
	Exists(id types.FileId) (bool, error)

	// Unlink removes id's blob. Not an error if absent.
	Unlink(id types.FileId) error

	// Stat returns the backend's view of id's object.
	Stat(id types.FileId) (types.RawFileMeta, error)

	// Write replaces id's entire blob with data. Used for small,
	// whole-object writes (e.g. symlink targets stored outside the KV
	// layer by a backend that prefers blob storage).
	Write(id types.FileId, data []byte) error

	// Close releases the backend's resources.
	Close() error
}

// File is a handle to a single object's block-aligned ciphertext.
// Independent handles to the same FileId may coexist; all access is
// positional so callers do not need to synchronise among themselves
// (the block pipeline's per-FileId lock, C7, handles that).
type File interface {
	// ReadBlock reads the block at blockIdx (0-based, block_size-wide)
	// into buf, returning the number of bytes actually read. A short
	// read (fewer than len(buf)) signals EOF within that block; zero
	// signals no more data.
	ReadBlock(buf []byte, blockIdx uint64) (int, error)

	// WriteBlock writes buf (the final write to this block may supply
	// fewer than block_size bytes — blockEnd marks where this write
	// should logically end within the block) at blockIdx.
	WriteBlock(buf []byte, blockEnd int, blockIdx uint64) error

	// SetLen truncates or extends the object to newLen bytes, measured
	// in block_size units as supplied by the caller.
	SetLen(newLen uint64, blockSize int) error

	// Metadata returns the backend's current view of this object.
	Metadata() (types.RawFileMeta, error)

	// SetMetadata updates backend-tracked fields (used by Tracking).
	SetMetadata(meta types.RawFileMeta) error

	// Close releases the handle.
	Close() error
}
