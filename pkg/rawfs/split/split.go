// Package split implements the Split raw backend (§4.5): each logical
// file is divided into fixed-size clusters of cluster_size blocks, and
// each cluster is stored as its own child object (a random FileId) in
// an underlying rawfs.FileSystem. This hides per-object sizes — no
// object in the underlying store is ever larger than cluster_size
// blocks — at the cost of cross-cluster random writes touching
// multiple children.
//
// Uses fixed block size with index arithmetic analogous to a
// chunk/block decomposition's IndexForOffset/OffsetInChunk, generalized
// here from a two-level chunk/block hierarchy with content-addressed
// keys to a cluster/child-FileId hierarchy with randomly allocated ids,
// plus a per-file id-collision retry loop.
package split

import (
	"encoding/binary"
	"encoding/json"
	"sort"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/crypto"
	"github.com/marmos91/bijoufs/pkg/kv"
	"github.com/marmos91/bijoufs/pkg/metacache"
	"github.com/marmos91/bijoufs/pkg/rawfs"
)

const clustersSuffix = 'b'

func clustersKey(id types.FileId) []byte {
	key := make([]byte, 9)
	key[0] = 'f'
	binary.LittleEndian.PutUint64(key[1:], uint64(id))
	return kv.AppendSuffix(key, clustersSuffix)
}

// fileClusters is the persisted {dense ids[], sparse map} record of
// §4.5: a dense, zero-based prefix of contiguously allocated cluster
// ids, plus a sparse map for clusters written out of order (e.g. past
// a hole created by a seek-and-write beyond current size).
type fileClusters struct {
	Dense  []types.FileId          `json:"dense"`
	Sparse map[uint64]types.FileId `json:"sparse,omitempty"`
}

func (fc *fileClusters) get(idx uint64) (types.FileId, bool) {
	if idx < uint64(len(fc.Dense)) {
		id := fc.Dense[idx]
		return id, id != 0
	}
	id, ok := fc.Sparse[idx]
	return id, ok
}

func (fc *fileClusters) set(idx uint64, id types.FileId) {
	switch {
	case idx < uint64(len(fc.Dense)):
		fc.Dense[idx] = id
	case idx == uint64(len(fc.Dense)):
		fc.Dense = append(fc.Dense, id)
		fc.promoteSparse()
	default:
		if fc.Sparse == nil {
			fc.Sparse = make(map[uint64]types.FileId)
		}
		fc.Sparse[idx] = id
	}
}

// promoteSparse folds any sparse entries that have become contiguous
// with the dense prefix back into it.
func (fc *fileClusters) promoteSparse() {
	for {
		next := uint64(len(fc.Dense))
		id, ok := fc.Sparse[next]
		if !ok {
			return
		}
		fc.Dense = append(fc.Dense, id)
		delete(fc.Sparse, next)
	}
}

// retain drops every cluster index >= count, returning their ids so the
// caller can unlink the corresponding children.
func (fc *fileClusters) retain(count uint64) []types.FileId {
	var dropped []types.FileId

	if count < uint64(len(fc.Dense)) {
		dropped = append(dropped, fc.Dense[count:]...)
		fc.Dense = fc.Dense[:count]
	}
	for idx, id := range fc.Sparse {
		if idx >= count {
			dropped = append(dropped, id)
			delete(fc.Sparse, idx)
		}
	}
	return dropped
}

func (fc *fileClusters) allIDs() []types.FileId {
	ids := make([]types.FileId, 0, len(fc.Dense)+len(fc.Sparse))
	ids = append(ids, fc.Dense...)
	for _, id := range fc.Sparse {
		ids = append(ids, id)
	}
	return ids
}

// FileSystem is the Split raw backend.
type FileSystem struct {
	inner       rawfs.FileSystem
	clusterSize int // blocks per cluster
	blockSize   int // bytes per on-disk ciphertext block
	clusters    *metacache.Store[types.FileId, fileClusters]
}

// New wraps inner, splitting each logical file into clusters of
// clusterSize blocks, with FileClusters records persisted into store.
// blockSize is the on-disk ciphertext block width (header+content+tag),
// needed to convert a cluster index into a byte offset for Stat/Metadata.
func New(inner rawfs.FileSystem, store kv.Store, clusterSize, blockSize int) *FileSystem {
	load := func(id types.FileId) (fileClusters, error) {
		raw, err := store.Get(clustersKey(id))
		if err != nil {
			return fileClusters{}, err
		}
		var fc fileClusters
		if err := json.Unmarshal(raw, &fc); err != nil {
			return fileClusters{}, bijouerr.Wrap(bijouerr.DBError, "failed to decode file clusters", err)
		}
		return fc, nil
	}
	flush := func(id types.FileId, fc fileClusters) error {
		encoded, err := json.Marshal(fc)
		if err != nil {
			return bijouerr.Wrap(bijouerr.DBError, "failed to encode file clusters", err)
		}
		return store.Put(clustersKey(id), encoded)
	}

	return &FileSystem{
		inner:       inner,
		clusterSize: clusterSize,
		blockSize:   blockSize,
		clusters:    metacache.New(load, flush, metacache.DefaultFlushDelay),
	}
}

// allocateChild allocates a fresh child FileId in the underlying
// backend, retrying on collision. Random 64-bit ids make collision
// negligible but backends must still retry rather than assume
// uniqueness (open question c).
func (fs *FileSystem) allocateChild() (types.FileId, error) {
	for {
		raw, err := crypto.RandomBytes(8)
		if err != nil {
			return 0, bijouerr.Wrap(bijouerr.CryptoError, "failed to sample child cluster id", err)
		}
		id := types.FileId(binary.LittleEndian.Uint64(raw))
		if id == 0 {
			continue
		}
		exists, err := fs.inner.Exists(id)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}
		if err := fs.inner.Create(id); err != nil {
			if bijouerr.Is(err, bijouerr.AlreadyExists) {
				continue
			}
			return 0, err
		}
		return id, nil
	}
}

func (fs *FileSystem) Create(id types.FileId) error {
	fs.clusters.Update(id, fileClusters{}, true)
	return nil
}

func (fs *FileSystem) Exists(id types.FileId) (bool, error) {
	_, err := fs.clusters.Get(id)
	if err != nil {
		if bijouerr.Is(err, bijouerr.NotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (fs *FileSystem) Unlink(id types.FileId) error {
	fc, err := fs.clusters.Get(id)
	if err != nil {
		if bijouerr.Is(err, bijouerr.NotFound) {
			return nil
		}
		return err
	}
	for _, childID := range fc.allIDs() {
		if err := fs.inner.Unlink(childID); err != nil {
			return err
		}
	}
	fs.clusters.Delete(id)
	return nil
}

func (fs *FileSystem) Stat(id types.FileId) (types.RawFileMeta, error) {
	fc, err := fs.clusters.Get(id)
	if err != nil {
		return types.RawFileMeta{}, err
	}
	return fs.computeSize(fc)
}

func (fs *FileSystem) computeSize(fc fileClusters) (types.RawFileMeta, error) {
	ids := fc.allIDs()
	if len(ids) == 0 {
		return types.RawFileMeta{}, nil
	}

	indices := make([]uint64, 0, len(ids))
	byIndex := make(map[uint64]types.FileId, len(ids))
	for i, id := range fc.Dense {
		indices = append(indices, uint64(i))
		byIndex[uint64(i)] = id
	}
	for i, id := range fc.Sparse {
		indices = append(indices, i)
		byIndex[i] = id
	}
	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })

	last := indices[len(indices)-1]
	childMeta, err := fs.inner.Stat(byIndex[last])
	if err != nil {
		return types.RawFileMeta{}, err
	}

	size := last*fs.clusterBytes() + childMeta.Size
	return types.RawFileMeta{Size: size, Modified: childMeta.Modified}, nil
}

// clusterBytes is a cluster's full byte width: clusterSize blocks at
// blockSize bytes each.
func (fs *FileSystem) clusterBytes() uint64 { return uint64(fs.clusterSize) * uint64(fs.blockSize) }

func (fs *FileSystem) Write(id types.FileId, data []byte) error {
	// Whole-file replace: used only for small out-of-band blobs (e.g. a
	// symlink target stored via Write rather than the KV layer). Store
	// it as a single cluster.
	fc, err := fs.clusters.Get(id)
	if err != nil {
		return err
	}
	childID, ok := fc.get(0)
	if !ok {
		childID, err = fs.allocateChild()
		if err != nil {
			return err
		}
		fc.set(0, childID)
		fs.clusters.Update(id, fc, true)
	}
	return fs.inner.Write(childID, data)
}

func (fs *FileSystem) Open(id types.FileId, flags rawfs.OpenFlag) (rawfs.File, error) {
	return &handle{fs: fs, id: id, flags: flags}, nil
}

func (fs *FileSystem) Close() error {
	if err := fs.clusters.Close(); err != nil {
		return err
	}
	return fs.inner.Close()
}

type handle struct {
	fs    *FileSystem
	id    types.FileId
	flags rawfs.OpenFlag
}

// clusterOf maps a logical block index to (cluster index, block offset
// within the cluster).
func (h *handle) clusterOf(blockIdx uint64) (cluster uint64, blockInCluster uint64) {
	size := uint64(h.fs.clusterSize)
	return blockIdx / size, blockIdx % size
}

func (h *handle) childFor(blockIdx uint64, createIfMissing bool) (types.FileId, uint64, error) {
	cluster, blockInCluster := h.clusterOf(blockIdx)

	fc, err := h.fs.clusters.Get(h.id)
	if err != nil {
		return 0, 0, err
	}

	childID, ok := fc.get(cluster)
	if !ok {
		if !createIfMissing {
			return 0, blockInCluster, nil
		}
		childID, err = h.fs.allocateChild()
		if err != nil {
			return 0, 0, err
		}
		fc.set(cluster, childID)
		h.fs.clusters.Update(h.id, fc, true)
	}
	return childID, blockInCluster, nil
}

func (h *handle) ReadBlock(buf []byte, blockIdx uint64) (int, error) {
	childID, blockInCluster, err := h.childFor(blockIdx, false)
	if err != nil {
		return 0, err
	}
	if childID == 0 {
		return 0, nil // cluster never written: treat as EOF/hole for this block
	}

	child, err := h.fs.inner.Open(childID, rawfs.Read)
	if err != nil {
		return 0, err
	}
	defer child.Close()

	return child.ReadBlock(buf, blockInCluster)
}

func (h *handle) WriteBlock(buf []byte, blockEnd int, blockIdx uint64) error {
	childID, blockInCluster, err := h.childFor(blockIdx, true)
	if err != nil {
		return err
	}

	child, err := h.fs.inner.Open(childID, rawfs.Write)
	if err != nil {
		return err
	}
	defer child.Close()

	return child.WriteBlock(buf, blockEnd, blockInCluster)
}

func (h *handle) SetLen(newLen uint64, blockSize int) error {
	totalBlocks := (newLen + uint64(blockSize) - 1) / uint64(blockSize)
	retainedClusters := (totalBlocks + uint64(h.fs.clusterSize) - 1) / uint64(h.fs.clusterSize)
	if totalBlocks == 0 {
		retainedClusters = 0
	}

	fc, err := h.fs.clusters.Get(h.id)
	if err != nil {
		return err
	}
	dropped := fc.retain(retainedClusters)
	h.fs.clusters.Update(h.id, fc, true)

	for _, childID := range dropped {
		if err := h.fs.inner.Unlink(childID); err != nil {
			return err
		}
	}

	if retainedClusters > 0 {
		lastCluster := retainedClusters - 1
		if childID, ok := fc.get(lastCluster); ok {
			// newLen may fall mid-block; the last retained cluster's child
			// is truncated to the exact byte length, not rounded up to a
			// whole number of blocks.
			blocksBeforeLastCluster := lastCluster * uint64(h.fs.clusterSize)
			fullBlocksInLastCluster := totalBlocks - blocksBeforeLastCluster - 1
			bytesInLastBlock := newLen - (totalBlocks-1)*uint64(blockSize)
			childByteLen := fullBlocksInLastCluster*uint64(blockSize) + bytesInLastBlock

			child, err := h.fs.inner.Open(childID, rawfs.Write)
			if err != nil {
				return err
			}
			defer child.Close()
			if err := child.SetLen(childByteLen, blockSize); err != nil {
				return err
			}
		}
	}

	return nil
}

func (h *handle) Metadata() (types.RawFileMeta, error) {
	fc, err := h.fs.clusters.Get(h.id)
	if err != nil {
		return types.RawFileMeta{}, err
	}
	return h.fs.computeSize(fc)
}

func (h *handle) SetMetadata(types.RawFileMeta) error {
	// Size/time are derived from the child clusters; nothing to track
	// directly (a Tracking wrapper sits below if the inner backend
	// cannot self-report, per §4.5).
	return nil
}

func (h *handle) Close() error { return nil }

var _ rawfs.FileSystem = (*FileSystem)(nil)
var _ rawfs.File = (*handle)(nil)
