package blockalgo

import (
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/crypto"
)

// streamAlgorithm implements Algorithm for XSalsa20: no integrity, so
// the block carries only header (nonce) and ciphertext, no tag.
type streamAlgorithm struct {
	sizes Sizes
}

func newStreamAlgorithm(contentSize int) Algorithm {
	return &streamAlgorithm{
		sizes: Sizes{
			HeaderSize:  crypto.XSalsa20NonceSize,
			ContentSize: contentSize,
			TagSize:     0,
		},
	}
}

func (s *streamAlgorithm) Name() Name   { return XSalsa20 }
func (s *streamAlgorithm) KeySize() int { return crypto.XSalsa20KeySize }
func (s *streamAlgorithm) Sizes() Sizes { return s.sizes }

func (s *streamAlgorithm) EncryptBlock(key []byte, blockIndex uint64, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 || len(plaintext) > s.sizes.ContentSize {
		return nil, bijouerr.New(bijouerr.InvalidInput, "plaintext block size out of range")
	}

	nonce, err := crypto.RandomNonzeroNonce(s.sizes.HeaderSize)
	if err != nil {
		return nil, err
	}

	ciphertext := make([]byte, len(plaintext))
	if err := crypto.XSalsa20XOR(ciphertext, plaintext, nonce, key, 0); err != nil {
		return nil, err
	}

	block := make([]byte, 0, s.sizes.HeaderSize+len(ciphertext))
	block = append(block, nonce...)
	block = append(block, ciphertext...)
	return block, nil
}

func (s *streamAlgorithm) DecryptBlock(key []byte, blockIndex uint64, block []byte) ([]byte, bool, error) {
	if len(block) < s.sizes.HeaderSize {
		return nil, false, bijouerr.New(bijouerr.CryptoError, "incomplete block")
	}
	header := block[:s.sizes.HeaderSize]

	if crypto.IsAllZero(header) {
		return make([]byte, len(block)-s.sizes.HeaderSize), true, nil
	}

	ciphertext := block[s.sizes.HeaderSize:]
	plaintext := make([]byte, len(ciphertext))
	if err := crypto.XSalsa20XOR(plaintext, ciphertext, header, key, 0); err != nil {
		return nil, false, err
	}
	return plaintext, false, nil
}
