package blockio

import (
	"sync"
	"sync/atomic"

	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/metrics"
)

// Counters tracks how many open handles exist per FileId (§4.9's handle
// counting), so an external collaborator can tell whether it is safe to
// reclaim an object whose nlinks has already reached zero while a
// handle is still open.
type Counters struct {
	counts sync.Map // types.FileId -> *atomic.Int64
}

// NewCounters returns an empty open-handle counter set.
func NewCounters() *Counters { return &Counters{} }

func (c *Counters) inc(id types.FileId) {
	v, _ := c.counts.LoadOrStore(id, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
	metrics.RecordOpenFiles(metrics.NewVaultMetrics(), uint64(c.Total()))
}

func (c *Counters) dec(id types.FileId) {
	v, ok := c.counts.Load(id)
	if !ok {
		return
	}
	if v.(*atomic.Int64).Add(-1) <= 0 {
		c.counts.Delete(id)
	}
	metrics.RecordOpenFiles(metrics.NewVaultMetrics(), uint64(c.Total()))
}

// Count returns the number of currently open handles for id.
func (c *Counters) Count(id types.FileId) int64 {
	v, ok := c.counts.Load(id)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Total returns the number of currently open handles across every id,
// for statfs-style reporting.
func (c *Counters) Total() int64 {
	var total int64
	c.counts.Range(func(_, v any) bool {
		total += v.(*atomic.Int64).Load()
		return true
	})
	return total
}
