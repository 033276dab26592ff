package blockalgo

import (
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/crypto"
)

// aeadCtor builds the underlying crypto.AEAD for a given key.
type aeadCtor func(key []byte) (crypto.AEAD, error)

func newAESGCMAEAD(key []byte) (crypto.AEAD, error)    { return crypto.NewAESGCM(key) }
func newChaCha20Poly1305AEAD(key []byte) (crypto.AEAD, error) {
	return crypto.NewChaCha20Poly1305(key)
}
func newXChaCha20Poly1305AEAD(key []byte) (crypto.AEAD, error) {
	return crypto.NewXChaCha20Poly1305(key)
}

// aeadAlgorithm implements Algorithm for the three AEAD block variants;
// they differ only in nonce size and AEAD construction.
type aeadAlgorithm struct {
	name    Name
	keySize int
	sizes   Sizes
	ctor    aeadCtor
}

func newAEADAlgorithm(name Name, keySize, nonceSize, tagSize, contentSize int, ctor aeadCtor) (Algorithm, error) {
	if contentSize <= 0 {
		return nil, bijouerr.New(bijouerr.InvalidInput, "block size must be positive")
	}
	return &aeadAlgorithm{
		name:    name,
		keySize: keySize,
		sizes:   Sizes{HeaderSize: nonceSize, ContentSize: contentSize, TagSize: tagSize},
		ctor:    ctor,
	}, nil
}

func (a *aeadAlgorithm) Name() Name       { return a.name }
func (a *aeadAlgorithm) KeySize() int     { return a.keySize }
func (a *aeadAlgorithm) Sizes() Sizes     { return a.sizes }

func (a *aeadAlgorithm) EncryptBlock(key []byte, blockIndex uint64, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 || len(plaintext) > a.sizes.ContentSize {
		return nil, bijouerr.New(bijouerr.InvalidInput, "plaintext block size out of range")
	}
	aead, err := a.ctor(key)
	if err != nil {
		return nil, err
	}

	nonce, err := crypto.RandomNonzeroNonce(a.sizes.HeaderSize)
	if err != nil {
		return nil, err
	}
	ciphertext, tag := crypto.SealDetached(aead, nonce, blockIndexAD(blockIndex), plaintext)

	block := make([]byte, 0, a.sizes.HeaderSize+len(ciphertext)+a.sizes.TagSize)
	block = append(block, nonce...)
	block = append(block, ciphertext...)
	block = append(block, tag...)
	return block, nil
}

func (a *aeadAlgorithm) DecryptBlock(key []byte, blockIndex uint64, block []byte) ([]byte, bool, error) {
	if len(block) < a.sizes.HeaderSize {
		return nil, false, bijouerr.New(bijouerr.CryptoError, "incomplete block")
	}
	header := block[:a.sizes.HeaderSize]

	if crypto.IsAllZero(header) {
		plaintextLen := len(block) - a.sizes.HeaderSize
		return make([]byte, plaintextLen), true, nil
	}

	if len(block) < a.sizes.MetadataSize() {
		return nil, false, bijouerr.New(bijouerr.CryptoError, "incomplete block")
	}

	aead, err := a.ctor(key)
	if err != nil {
		return nil, false, err
	}

	ciphertext := block[a.sizes.HeaderSize : len(block)-a.sizes.TagSize]
	tag := block[len(block)-a.sizes.TagSize:]

	plaintext, err := crypto.OpenDetached(aead, header, blockIndexAD(blockIndex), ciphertext, tag)
	if err != nil {
		return nil, false, err
	}
	return plaintext, false, nil
}
