package writer

import (
	"sync"
	"sync/atomic"
)

// RefBuffer is a sync.Pool-backed byte buffer with explicit refcounting,
// grounded on the teacher's headerSorterPool (hdr/header.go) sync.Pool
// reuse, generalized from single-owner reuse to a refcounted release so a
// buffer can be shared by more than one in-flight copy without returning
// it to the pool twice (spec.md §8 "tryRelease").
type RefBuffer struct {
	buf   []byte
	count int32
}

var segmentPool = sync.Pool{New: func() interface{} { return make([]byte, FileStreamSegment) }}

// acquireBuffer checks out a FileStreamSegment-sized buffer from the pool
// with an initial refcount of 1.
func acquireBuffer() *RefBuffer {
	buf := segmentPool.Get().([]byte)
	return &RefBuffer{buf: buf, count: 1}
}

// Bytes returns the underlying slice, valid until tryRelease drops the
// refcount to zero.
func (r *RefBuffer) Bytes() []byte { return r.buf }

// retain bumps the refcount; used when the same segment buffer is handed
// to a second concurrent consumer (e.g. a retried write of the same
// chunk) before the first has released it.
func (r *RefBuffer) retain() { atomic.AddInt32(&r.count, 1) }

// tryRelease drives the refcount down by one, returning the slice to the
// pool once it reaches zero. Releasing an already-zeroed buffer is a
// no-op rather than a crash (spec.md §8 utility property).
func (r *RefBuffer) tryRelease() bool {
	for {
		cur := atomic.LoadInt32(&r.count)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&r.count, cur, cur-1) {
			if cur-1 == 0 {
				segmentPool.Put(r.buf)
				return true
			}
			return false
		}
	}
}
