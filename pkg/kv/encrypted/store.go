// Package encrypted wraps a kv.Store with the page-level cipher of
// spec §4.4: every value is sealed with XSalsa20 under a per-value
// nonce stored inline as a header, keyed off the vault's DB-page
// subkey (crypto.SubkeyDBPage). Badger does not expose its on-disk
// pages through its public API, so this wraps values rather than raw
// pages; it is the closest faithful approximation and is documented as
// such rather than reimplementing badger's storage engine.
//
// The same zero-nonce <-> zero-plaintext rule used for file content
// blocks applies here: encrypting an all-zero value resamples the
// nonce until it is non-zero, so an all-zero header unambiguously
// means "value absent" to anything inspecting the raw store, and a
// genuinely absent value never collides with a real, encrypted one.
package encrypted

import (
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/crypto"
	"github.com/marmos91/bijoufs/pkg/kv"
)

const nonceSize = crypto.XSalsa20NonceSize

// Store wraps an inner kv.Store, encrypting/decrypting values in place.
// Keys are left in plaintext: the KV key space encodes FileIds and
// derivation tags, not filesystem content, and must stay ordered for
// range iteration to work.
type Store struct {
	inner kv.Store
	key   []byte
}

// New wraps inner with page-level XSalsa20 encryption under key (the
// vault's derived DB-page subkey, crypto.SubkeyDBPage).
func New(inner kv.Store, key []byte) (*Store, error) {
	if len(key) != crypto.XSalsa20KeySize {
		return nil, bijouerr.New(bijouerr.InvalidInput, "encrypted kv store: wrong key size")
	}
	return &Store{inner: inner, key: key}, nil
}

func (s *Store) seal(plaintext []byte) ([]byte, error) {
	nonce, err := crypto.RandomNonzeroNonce(nonceSize)
	if err != nil {
		return nil, bijouerr.Wrap(bijouerr.CryptoError, "failed to sample page nonce", err)
	}
	ciphertext := make([]byte, len(plaintext))
	if err := crypto.XSalsa20XOR(ciphertext, plaintext, nonce, s.key, 0); err != nil {
		return nil, bijouerr.Wrap(bijouerr.CryptoError, "failed to encrypt page", err)
	}
	return append(nonce, ciphertext...), nil
}

func (s *Store) open(value []byte) ([]byte, error) {
	if len(value) < nonceSize {
		return nil, bijouerr.New(bijouerr.CryptoError, "encrypted kv value shorter than nonce header")
	}
	nonce := value[:nonceSize]
	ciphertext := value[nonceSize:]

	if crypto.IsAllZero(nonce) {
		return make([]byte, len(ciphertext)), nil
	}

	plaintext := make([]byte, len(ciphertext))
	if err := crypto.XSalsa20XOR(plaintext, ciphertext, nonce, s.key, 0); err != nil {
		return nil, bijouerr.Wrap(bijouerr.CryptoError, "failed to decrypt page", err)
	}
	return plaintext, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	raw, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	return s.open(raw)
}

func (s *Store) Put(key, value []byte) error {
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	return s.inner.Put(key, sealed)
}

func (s *Store) Delete(key []byte) error {
	return s.inner.Delete(key)
}

func (s *Store) Exists(key []byte) (bool, error) {
	return s.inner.Exists(key)
}

func (s *Store) Range(lower, upper []byte) (kv.Iterator, error) {
	inner, err := s.inner.Range(lower, upper)
	if err != nil {
		return nil, err
	}
	return &iterator{inner: inner, store: s}, nil
}

func (s *Store) NewBatch() kv.Batch {
	return &batch{inner: s.inner.NewBatch(), store: s}
}

func (s *Store) Close() error {
	return s.inner.Close()
}

type iterator struct {
	inner kv.Iterator
	store *Store
}

func (it *iterator) Next() bool  { return it.inner.Next() }
func (it *iterator) Key() []byte { return it.inner.Key() }
func (it *iterator) Err() error  { return it.inner.Err() }
func (it *iterator) Close()      { it.inner.Close() }

func (it *iterator) Value() ([]byte, error) {
	raw, err := it.inner.Value()
	if err != nil {
		return nil, err
	}
	return it.store.open(raw)
}

type batch struct {
	inner kv.Batch
	store *Store
	err   error
}

func (b *batch) Put(key, value []byte) {
	sealed, err := b.store.seal(value)
	if err != nil {
		b.err = err
		return
	}
	b.inner.Put(key, sealed)
}

func (b *batch) Delete(key []byte) {
	b.inner.Delete(key)
}

func (b *batch) Commit() error {
	if b.err != nil {
		return b.err
	}
	return b.inner.Commit()
}
