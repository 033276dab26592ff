// Package secretbuf provides a heap-allocated, page-locked, zero-on-drop
// byte buffer for key material and passphrases. Every secret that flows
// through Bijou passes through a Buffer rather than a plain []byte.
package secretbuf

import (
	"golang.org/x/sys/unix"
)

// Buffer owns a locked byte slice. It is not safe for concurrent use
// without external synchronization; callers that share a Buffer across
// goroutines must serialize access themselves.
type Buffer struct {
	b      []byte
	locked bool
}

// New allocates a Buffer of the given length and attempts to page-lock
// it. Locking failures (e.g. insufficient RLIMIT_MEMLOCK) are not fatal:
// the buffer is still usable, just not guaranteed to stay out of swap.
func New(length int) *Buffer {
	buf := &Buffer{b: make([]byte, length)}
	buf.locked = mlock(buf.b) == nil
	return buf
}

// FromSlice moves ownership of src into a new locked Buffer: it copies
// src's contents and zeroes src in place, so the caller is left holding
// no live copy of the secret.
func FromSlice(src []byte) *Buffer {
	buf := New(len(src))
	copy(buf.b, src)
	Zero(src)
	return buf
}

// Clone allocates a fresh locked Buffer and copies this one's contents
// into it. Secrets are never shared by reference between Buffers.
func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}
	clone := New(len(b.b))
	copy(clone.b, b.b)
	return clone
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.b)
}

// Bytes returns the buffer's contents. The returned slice aliases the
// Buffer's storage and must not be retained past the Buffer's lifetime.
func (b *Buffer) Bytes() []byte { return b.b }

// Mutable returns a mutable view over the buffer's contents, for
// in-place derivation (e.g. writing a KDF output directly into it).
func (b *Buffer) Mutable() []byte { return b.b }

// Destroy zeroes the buffer's contents and releases its page lock. The
// Buffer must not be used afterward.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	Zero(b.b)
	if b.locked {
		_ = munlock(b.b)
		b.locked = false
	}
}

// Zero overwrites buf with zero bytes. Used both internally and by
// callers that must scrub a caller-provided slice (e.g. FromSlice's
// source, or a block-pipeline scratch buffer before it is released back
// to a pool).
func Zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

func mlock(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

func munlock(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}
