// Package idlock implements the per-id lock table (§4.7): a concurrent
// map from a comparable key (FileId) to a shared read/write lock, with
// helpers for ordered multi-lock acquisition (sorted by key) to avoid
// AB/BA deadlock in rename-like operations that must hold more than one
// id's lock at once, generalized here to any comparable id type.
package idlock

import (
	"sort"
	"sync"
	"time"

	"github.com/marmos91/bijoufs/pkg/metrics"
)

// Table is a concurrent map from K to a *sync.RWMutex guarding whatever
// value the caller associates with that key out-of-band (RawFileMeta for
// the block pipeline, a directory's FileMeta for the inode layer).
type Table[K comparable] struct {
	locks sync.Map // K -> *sync.RWMutex
}

// New returns an empty lock table.
func New[K comparable]() *Table[K] {
	return &Table[K]{}
}

// GetOrInsert returns the lock for id, creating one if absent.
func (t *Table[K]) GetOrInsert(id K) *sync.RWMutex {
	mu, _ := t.locks.LoadOrStore(id, &sync.RWMutex{})
	return mu.(*sync.RWMutex)
}

// Lock acquires the exclusive lock for id and returns an unlock func.
func (t *Table[K]) Lock(id K) func() {
	mu := t.GetOrInsert(id)
	start := time.Now()
	mu.Lock()
	metrics.ObserveLockWait(metrics.NewVaultMetrics(), time.Since(start))
	return mu.Unlock
}

// RLock acquires the shared lock for id and returns an unlock func.
func (t *Table[K]) RLock(id K) func() {
	mu := t.GetOrInsert(id)
	start := time.Now()
	mu.RLock()
	metrics.ObserveLockWait(metrics.NewVaultMetrics(), time.Since(start))
	return mu.RUnlock
}

// LockOrdered acquires exclusive locks on multiple ids in a deterministic
// (ascending, by the given less function) order, preventing the AB/BA
// deadlock that two concurrent operations touching the same pair of ids
// in opposite order would otherwise risk — the pattern rename(p, n, p',
// n') needs when it locks two parent directories. Duplicate ids collapse
// to a single lock. Returns a single unlock func that releases all of
// them in reverse acquisition order.
func LockOrdered[K comparable](t *Table[K], less func(a, b K) bool, ids ...K) func() {
	unique := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	ordered := make([]K, 0, len(unique))
	for id := range unique {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return less(ordered[i], ordered[j]) })

	unlocks := make([]func(), len(ordered))
	for i, id := range ordered {
		unlocks[i] = t.Lock(id)
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
