package crypto

import (
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"golang.org/x/crypto/salsa20"
)

// XSalsa20KeySize and XSalsa20NonceSize match the XSalsa20 variant used
// for the unauthenticated stream-cipher block algorithm (§4.3) and for
// KV page encryption (§4.4).
const (
	XSalsa20KeySize   = 32
	XSalsa20NonceSize = 24
	salsaBlockSize    = 64
)

// XSalsa20XOR XORs src into dst using the XSalsa20 keystream derived from
// key and nonce, starting at the given 64-byte block-counter offset. dst
// and src may overlap only if they are the same slice (in-place XOR).
//
// The counter lets a caller resume a keystream mid-block, e.g. re-encrypting
// only the tail of a partially-rewritten plaintext block without
// recomputing the whole thing from byte zero.
func XSalsa20XOR(dst, src, nonce, key []byte, counter uint64) error {
	if len(key) != XSalsa20KeySize {
		return bijouerr.New(bijouerr.CryptoError, "invalid xsalsa20 key size")
	}
	if len(nonce) != XSalsa20NonceSize {
		return bijouerr.New(bijouerr.CryptoError, "invalid xsalsa20 nonce size")
	}
	if len(dst) < len(src) {
		return bijouerr.New(bijouerr.CryptoError, "destination buffer too small")
	}

	skip := int(counter) * salsaBlockSize
	total := skip + len(src)

	var keyArr [32]byte
	copy(keyArr[:], key)

	keystream := make([]byte, total)
	salsa20.XORKeyStream(keystream, keystream, nonce, &keyArr)

	for i := range src {
		dst[i] = src[i] ^ keystream[skip+i]
	}
	return nil
}
