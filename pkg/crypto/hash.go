package crypto

import (
	"hash"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"golang.org/x/crypto/blake2b"
)

// NewKeyedHash returns a streaming BLAKE2b hash keyed with key (0 to 64
// bytes), producing outLen bytes (1 to 64) of digest. Used both as the
// generic keyed hash primitive and as the MAC inside the XChaCha20-SIV
// construction (blockalgo.SIV).
func NewKeyedHash(key []byte, outLen int) (hash.Hash, error) {
	h, err := blake2b.New(outLen, key)
	if err != nil {
		return nil, bijouerr.Wrap(bijouerr.CryptoError, "blake2b init failed", err)
	}
	return h, nil
}

// KeyedHash is the one-shot form of NewKeyedHash: hash message under key,
// producing outLen bytes.
func KeyedHash(key, message []byte, outLen int) ([]byte, error) {
	h, err := NewKeyedHash(key, outLen)
	if err != nil {
		return nil, err
	}
	h.Write(message)
	return h.Sum(nil), nil
}
