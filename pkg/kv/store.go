// Package kv defines the ordered key-value store facade (§4.4) that
// sits beneath the inode layer: point get/put/delete, a presence check,
// bounded range iteration with explicit inclusive-lower/exclusive-upper
// bounds, and atomic write batches. Concrete backends live in
// subpackages (badger, encrypted).
package kv

import "github.com/marmos91/bijoufs/pkg/bijou/bijouerr"

// Store is the ordered byte-key store the inode layer and cached
// metadata store are built on.
type Store interface {
	// Get returns the value for key, or a NotFound error if absent.
	Get(key []byte) ([]byte, error)

	// Put writes key -> value, creating or overwriting it.
	Put(key, value []byte) error

	// Delete removes key. It is not an error if key is absent.
	Delete(key []byte) error

	// Exists reports whether key is present, without returning the
	// value.
	Exists(key []byte) (bool, error)

	// Range returns an iterator over [lower, upper) in key order.
	// A nil upper means unbounded above.
	Range(lower, upper []byte) (Iterator, error)

	// NewBatch returns a write batch for atomic multi-key mutations.
	NewBatch() Batch

	// Close releases the store's resources.
	Close() error
}

// Iterator walks a bounded key range in ascending order.
type Iterator interface {
	// Next advances to the next entry, returning false when exhausted
	// or on error (check Err after a false return).
	Next() bool

	// Key returns the current entry's key. Valid only after a Next
	// that returned true.
	Key() []byte

	// Value returns the current entry's value.
	Value() ([]byte, error)

	// Err returns any error encountered during iteration.
	Err() error

	// Close releases the iterator's resources.
	Close()
}

// Batch accumulates mutations for atomic commit. All multi-key
// invariants (nlinks adjustment, directory-entry insert/remove, parent
// mtime) are expressed as a single Batch so readers never observe a
// partial state.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit() error
}

// AppendSuffix returns a new key formed by concatenating key with
// suffix, without mutating either argument. Used to build the derived
// "f"·FileId·<suffix> key family of §3.
func AppendSuffix(key []byte, suffix ...byte) []byte {
	out := make([]byte, 0, len(key)+len(suffix))
	out = append(out, key...)
	out = append(out, suffix...)
	return out
}

// ErrNotFound is returned by Get for an absent key. Backends should
// return a *bijouerr.Error wrapping this via bijouerr.New(NotFound, ...)
// rather than this sentinel directly; it exists for callers that want a
// plain errors.Is check against the underlying cause.
var ErrNotFound = bijouerr.New(bijouerr.NotFound, "key not found")
