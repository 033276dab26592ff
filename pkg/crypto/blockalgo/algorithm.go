// Package blockalgo defines the block-algorithm abstraction (§4.3): AEAD
// and stream-cipher variants over fixed-size ciphertext blocks, the
// zero-nonce/hole convention that realizes sparse files, the pure
// plaintext<->ciphertext size mappings, and the deterministic AEAD used
// for filename encryption.
package blockalgo

import (
	"encoding/binary"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
)

// Name identifies a block algorithm variant, persisted in the vault's
// sealed config (fileEncryption field).
type Name string

const (
	AES256GCM          Name = "aes-256-gcm"
	ChaCha20Poly1305   Name = "chacha20-poly1305"
	XChaCha20Poly1305N Name = "xchacha20-poly1305"
	XSalsa20           Name = "xsalsa20"
)

// Algorithm encrypts and decrypts one ciphertext block at a time. A
// ciphertext block is header‖ciphertext‖tag (§4.3); implementations
// embed Sizes to get BlockSize/CiphertextSize/PlaintextSize for free.
type Algorithm interface {
	Name() Name
	KeySize() int
	Sizes() Sizes

	// EncryptBlock encrypts plaintext (1..ContentSize bytes) for the
	// given block index, returning header‖ciphertext‖tag.
	EncryptBlock(key []byte, blockIndex uint64, plaintext []byte) ([]byte, error)

	// DecryptBlock decrypts a header‖ciphertext‖tag block for the given
	// block index. If the block's header is the zero encoding, this is
	// a hole: the cipher is not invoked and plaintext is all zero,
	// length inferred from the block's length.
	DecryptBlock(key []byte, blockIndex uint64, block []byte) (plaintext []byte, hole bool, err error)
}

// Sizes captures (header_size, content_size, tag_size) for an algorithm;
// block_size = header_size + content_size + tag_size and
// metadata_size = header_size + tag_size, per §4.3.
type Sizes struct {
	HeaderSize  int
	ContentSize int
	TagSize     int
}

func (s Sizes) BlockSize() int    { return s.HeaderSize + s.ContentSize + s.TagSize }
func (s Sizes) MetadataSize() int { return s.HeaderSize + s.TagSize }

// CiphertextSize maps a plaintext length to its ciphertext length, per
// §4.3: full blocks at ContentSize each, plus a tail block carrying
// MetadataSize + the remainder when the length isn't block-aligned.
func (s Sizes) CiphertextSize(plaintextLen uint64) uint64 {
	full := plaintextLen / uint64(s.ContentSize)
	tail := plaintextLen % uint64(s.ContentSize)
	out := full * uint64(s.BlockSize())
	if tail != 0 {
		out += uint64(s.MetadataSize()) + tail
	}
	return out
}

// PlaintextSize is the inverse of CiphertextSize.
func (s Sizes) PlaintextSize(ciphertextLen uint64) uint64 {
	full := ciphertextLen / uint64(s.BlockSize())
	rem := ciphertextLen % uint64(s.BlockSize())
	out := full * uint64(s.ContentSize)
	if rem != 0 {
		out += rem - uint64(s.MetadataSize())
	}
	return out
}

// New constructs the Algorithm for the given name and block size (the
// plaintext content width persisted in the vault's config as
// block_size; the on-disk ciphertext block is derived from it as
// blockSize + metadata_size).
func New(name Name, blockSize int) (Algorithm, error) {
	switch name {
	case AES256GCM:
		return newAEADAlgorithm(name, 32, 12, 16, blockSize, newAESGCMAEAD)
	case ChaCha20Poly1305:
		return newAEADAlgorithm(name, 32, 12, 16, blockSize, newChaCha20Poly1305AEAD)
	case XChaCha20Poly1305N:
		return newAEADAlgorithm(name, 32, 24, 16, blockSize, newXChaCha20Poly1305AEAD)
	case XSalsa20:
		return newStreamAlgorithm(blockSize), nil
	default:
		return nil, bijouerr.New(bijouerr.InvalidInput, "unknown block algorithm: "+string(name))
	}
}

// blockIndexAD returns the little-endian 8-byte encoding of a block
// index, used as AEAD associated data so ciphertext blocks cannot be
// reordered or moved between files sharing an algorithm and key.
func blockIndexAD(blockIndex uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], blockIndex)
	return b[:]
}
