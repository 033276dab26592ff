package blockalgo

import (
	"testing"

	"github.com/marmos91/bijoufs/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorithmRoundTripAllVariants(t *testing.T) {
	for _, name := range []Name{AES256GCM, ChaCha20Poly1305, XChaCha20Poly1305N, XSalsa20} {
		t.Run(string(name), func(t *testing.T) {
			algo, err := New(name, 4096)
			require.NoError(t, err)

			key, err := crypto.RandomBytes(algo.KeySize())
			require.NoError(t, err)

			plaintext := make([]byte, algo.Sizes().ContentSize)
			for i := range plaintext {
				plaintext[i] = byte(i)
			}

			block, err := algo.EncryptBlock(key, 7, plaintext)
			require.NoError(t, err)
			assert.Len(t, block, algo.Sizes().BlockSize())

			got, hole, err := algo.DecryptBlock(key, 7, block)
			require.NoError(t, err)
			assert.False(t, hole)
			assert.Equal(t, plaintext, got)
		})
	}
}

func TestHoleRoundTrip(t *testing.T) {
	for _, name := range []Name{AES256GCM, XSalsa20} {
		algo, err := New(name, 4096)
		require.NoError(t, err)
		key, _ := crypto.RandomBytes(algo.KeySize())

		holeBlock := make([]byte, algo.Sizes().BlockSize())
		plaintext, hole, err := algo.DecryptBlock(key, 0, holeBlock)
		require.NoError(t, err)
		assert.True(t, hole)
		assert.Equal(t, make([]byte, algo.Sizes().ContentSize), plaintext)
	}
}

func TestCiphertextSizePlaintextSizeInverse(t *testing.T) {
	sizes := Sizes{HeaderSize: 12, ContentSize: 16, TagSize: 16}
	for _, p := range []uint64{0, 1, 15, 16, 17, 31, 32, 100} {
		ct := sizes.CiphertextSize(p)
		got := sizes.PlaintextSize(ct)
		assert.Equal(t, p, got, "plaintext len %d", p)
	}
}

func TestTailBlockCiphertextSize(t *testing.T) {
	// Block size (content size) 16, AES-GCM (header 12, tag 16): 40
	// plaintext bytes is two full 16-byte blocks plus an 8-byte tail
	// block, so ciphertext_size(40) = 40 + 3*(12+16).
	sizes := Sizes{HeaderSize: 12, ContentSize: 16, TagSize: 16}
	ct := sizes.CiphertextSize(40)
	assert.EqualValues(t, 40+3*(12+16), ct)
}

func TestWrongKeySizeRejected(t *testing.T) {
	algo, err := New(AES256GCM, 4096)
	require.NoError(t, err)
	_, err = algo.EncryptBlock(make([]byte, algo.KeySize()+1), 0, []byte("x"))
	assert.Error(t, err)
}

func TestSIVRoundTrip(t *testing.T) {
	key, err := crypto.RandomBytes(32)
	require.NoError(t, err)
	siv, err := NewSIV(key)
	require.NoError(t, err)

	ad := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	message := []byte("secret")

	ciphertext, tag, err := siv.Encrypt(ad, message)
	require.NoError(t, err)
	assert.Len(t, tag, SIVTagSize)
	assert.Len(t, ciphertext, len(message))

	got, err := siv.Decrypt(ad, ciphertext, tag)
	require.NoError(t, err)
	assert.Equal(t, message, got)
}

func TestSIVDeterministic(t *testing.T) {
	key, _ := crypto.RandomBytes(32)
	siv, _ := NewSIV(key)

	ad := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	c1, t1, err := siv.Encrypt(ad, []byte("secret"))
	require.NoError(t, err)
	c2, t2, err := siv.Encrypt(ad, []byte("secret"))
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
	assert.Equal(t, t1, t2)
}

func TestSIVDifferentParentsDifferentCiphertext(t *testing.T) {
	key, _ := crypto.RandomBytes(32)
	siv, _ := NewSIV(key)

	c1, t1, err := siv.Encrypt([]byte{1, 0, 0, 0, 0, 0, 0, 0}, []byte("secret"))
	require.NoError(t, err)
	c2, t2, err := siv.Encrypt([]byte{2, 0, 0, 0, 0, 0, 0, 0}, []byte("secret"))
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
	assert.NotEqual(t, t1, t2)
}

func TestSIVDecryptRejectsWrongAD(t *testing.T) {
	key, _ := crypto.RandomBytes(32)
	siv, _ := NewSIV(key)

	ciphertext, tag, err := siv.Encrypt([]byte{1, 0, 0, 0, 0, 0, 0, 0}, []byte("secret"))
	require.NoError(t, err)

	_, err = siv.Decrypt([]byte{2, 0, 0, 0, 0, 0, 0, 0}, ciphertext, tag)
	assert.Error(t, err)
}
