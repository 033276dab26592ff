package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// PwHashKeySize is the wrapping-key length produced by HashPassphrase.
const PwHashKeySize = 32

// HashPassphrase derives a wrapping key from a passphrase using Argon2id,
// per the ops/mem limits persisted in the keystore.
func HashPassphrase(passphrase, salt []byte, opsLimit, memLimit uint32) []byte {
	// memLimit is persisted in KiB (Argon2's convention); threads fixed at
	// 1 so the derivation is reproducible regardless of host core count.
	return argon2.IDKey(passphrase, salt, opsLimit, memLimit, 1, PwHashKeySize)
}

// subkeyBlockSize is BLAKE2b-512's native output size; subkey derivation
// expands past it with a counter when a caller asks for more bytes.
const subkeyBlockSize = 64

// DeriveSubkey implements the BLAKE2b-tree KDF used to expand the vault's
// 32-byte master key into domain-separated subkeys (config AEAD key,
// content-key root, filename key, DB page key): master key keyed over
// context || subkeyID || counter, BLAKE2b-512 per 64-byte chunk,
// concatenated and truncated to outLen. outLen is not hashed, so a
// shorter output is a prefix of a longer one for the same subkey id.
func DeriveSubkey(master []byte, context [8]byte, subkeyID uint64, outLen int) ([]byte, error) {
	out := make([]byte, 0, outLen)
	for counter := uint32(0); len(out) < outLen; counter++ {
		var msg [20]byte
		copy(msg[0:8], context[:])
		binary.LittleEndian.PutUint64(msg[8:16], subkeyID)
		binary.LittleEndian.PutUint32(msg[16:20], counter)

		block, err := KeyedHash(master, msg[:], subkeyBlockSize)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out[:outLen], nil
}

// ContentKey derives the per-file content key from the content-key root
// subkey and a FileId, per §4.10: HKDF-Expand(root, FileId-bytes,
// algorithm.key_size), with root treated as an already-suitable PRK
// (HKDF-Extract is skipped).
func ContentKey(root []byte, fileID uint64, keySize int) ([]byte, error) {
	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], fileID)

	out := make([]byte, keySize)
	reader := hkdf.Expand(sha256.New, root, idBytes[:])
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, bijouerr.Wrap(bijouerr.CryptoError, "content key expansion failed", err)
	}
	return out, nil
}

// Subkey ids, per §4.10.
const (
	SubkeyConfig      uint64 = 0
	SubkeyContentRoot uint64 = 1
	SubkeyFilename    uint64 = 2
	SubkeyDBPage      uint64 = 3
)

// Context is the 8-byte domain-separation context for every subkey
// derivation in this vault format.
var Context = [8]byte{'@', 'b', 'i', 'j', 'o', 'u', 'f', 's'}
