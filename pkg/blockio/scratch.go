package blockio

import "sync"

// scratchPool holds reusable block-sized buffers (§4.9's "thread-local
// reusable scratch buffer"), a sync.Pool-backed buffer reuse scheme
// collapsed to a single block-sized tier rather than small/medium/large
// classes since block_size is fixed per vault. Buffers are zeroed
// before release so no plaintext or ciphertext from one block lingers
// for the next borrower.
var scratchPool sync.Pool

func getScratch(size int) []byte {
	if v := scratchPool.Get(); v != nil {
		bufPtr := v.(*[]byte)
		if cap(*bufPtr) >= size {
			return (*bufPtr)[:size]
		}
	}
	buf := make([]byte, size)
	return buf
}

func putScratch(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	scratchPool.Put(&buf)
}
