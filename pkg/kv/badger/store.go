// Package badger implements kv.Store on top of dgraph-io/badger/v4, an
// embedded sorted KV engine. It maps bounded range iteration onto badger's
// Iterator with a seek-to-lower-bound plus a manual upper-bound check
// (badger has no native upper bound), and atomic write batches onto a
// single badger.Txn committed via Update.
package badger

import (
	"bytes"

	bdg "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/kv"
)

// Store wraps a badger.DB.
type Store struct {
	db *bdg.DB
}

// Open opens (creating if absent) a badger database rooted at dir.
func Open(dir string) (*Store, error) {
	opts := bdg.DefaultOptions(dir).WithLogger(nil)
	db, err := bdg.Open(opts)
	if err != nil {
		return nil, bijouerr.Wrap(bijouerr.DBError, "failed to open badger database", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return bijouerr.Wrap(bijouerr.DBError, "failed to close badger database", err)
	}
	return nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *bdg.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == bdg.ErrKeyNotFound {
				return bijouerr.New(bijouerr.NotFound, "key not found")
			}
			return bijouerr.Wrap(bijouerr.DBError, "get failed", err)
		}
		return item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Put(key, value []byte) error {
	err := s.db.Update(func(txn *bdg.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return bijouerr.Wrap(bijouerr.DBError, "put failed", err)
	}
	return nil
}

func (s *Store) Delete(key []byte) error {
	err := s.db.Update(func(txn *bdg.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return bijouerr.Wrap(bijouerr.DBError, "delete failed", err)
	}
	return nil
}

func (s *Store) Exists(key []byte) (bool, error) {
	found := false
	err := s.db.View(func(txn *bdg.Txn) error {
		_, err := txn.Get(key)
		if err == bdg.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, bijouerr.Wrap(bijouerr.DBError, "exists check failed", err)
	}
	return found, nil
}

func (s *Store) Range(lower, upper []byte) (kv.Iterator, error) {
	txn := s.db.NewTransaction(false)
	opts := bdg.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	it.Seek(lower)
	return &rangeIterator{txn: txn, it: it, upper: upper, started: false}, nil
}

// rangeIterator enforces the exclusive upper bound badger's native
// iterator lacks, so adjacent KV namespaces (e.g. one directory's
// entries vs. the next FileId's) never leak into each other.
type rangeIterator struct {
	txn     *bdg.Txn
	it      *bdg.Iterator
	upper   []byte
	started bool
	err     error
}

func (r *rangeIterator) Next() bool {
	if r.err != nil {
		return false
	}
	if r.started {
		r.it.Next()
	}
	r.started = true

	if !r.it.Valid() {
		return false
	}
	if r.upper != nil && bytes.Compare(r.it.Item().KeyCopy(nil), r.upper) >= 0 {
		return false
	}
	return true
}

func (r *rangeIterator) Key() []byte {
	return r.it.Item().KeyCopy(nil)
}

func (r *rangeIterator) Value() ([]byte, error) {
	var value []byte
	err := r.it.Item().Value(func(val []byte) error {
		value = append([]byte(nil), val...)
		return nil
	})
	if err != nil {
		return nil, bijouerr.Wrap(bijouerr.DBError, "iterator value read failed", err)
	}
	return value, nil
}

func (r *rangeIterator) Err() error { return r.err }

func (r *rangeIterator) Close() {
	r.it.Close()
	r.txn.Discard()
}

// batch adapts a single badger.Txn to kv.Batch, committed as one Update.
type batch struct {
	db  *bdg.DB
	ops []func(txn *bdg.Txn) error
}

func (s *Store) NewBatch() kv.Batch {
	return &batch{db: s.db}
}

func (b *batch) Put(key, value []byte) {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	b.ops = append(b.ops, func(txn *bdg.Txn) error { return txn.Set(k, v) })
}

func (b *batch) Delete(key []byte) {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, func(txn *bdg.Txn) error { return txn.Delete(k) })
}

func (b *batch) Commit() error {
	err := b.db.Update(func(txn *bdg.Txn) error {
		for _, op := range b.ops {
			if err := op(txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return bijouerr.Wrap(bijouerr.DBError, "batch commit failed", err)
	}
	return nil
}
