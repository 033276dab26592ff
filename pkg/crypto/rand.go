package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
)

// RandomBytes fills and returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, bijouerr.Wrap(bijouerr.CryptoError, "failed to read random bytes", err)
	}
	return b, nil
}

// RandomNonzeroNonce returns n random bytes resampled until not all
// zero, per the zero-nonce/hole convention of §4.3: a genuine encrypted
// block must never collide with the all-zero hole encoding.
func RandomNonzeroNonce(n int) ([]byte, error) {
	for {
		b, err := RandomBytes(n)
		if err != nil {
			return nil, err
		}
		if !IsAllZero(b) {
			return b, nil
		}
	}
}

// IsAllZero reports whether every byte in b is zero. Used to detect the
// "hole" encoding of a ciphertext block's header.
func IsAllZero(b []byte) bool {
	var acc byte
	for _, c := range b {
		acc |= c
	}
	return acc == 0
}

// ConstantTimeCompare reports whether a and b are equal, in time
// independent of their contents (but not their lengths).
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
