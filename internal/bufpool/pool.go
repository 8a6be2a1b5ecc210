// Package bufpool provides size-bucketed byte-slice pools so the read
// and write hot paths never allocate, bucketed to this protocol's
// message and CAS-chunk sizes.
package bufpool

import "sync"

const (
	size4k  = 4 * 1024
	size8k  = 8 * 1024
	size64k = 64 * 1024
)

var global = struct {
	pool4k  sync.Pool
	pool8k  sync.Pool
	pool64k sync.Pool
}{
	pool4k:  sync.Pool{New: func() any { b := make([]byte, size4k); return &b }},
	pool8k:  sync.Pool{New: func() any { b := make([]byte, size8k); return &b }},
	pool64k: sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
}

// Get returns a pooled buffer of at least size bytes. Callers must
// call Put when done with it.
func Get(size uint32) []byte {
	switch {
	case size <= size4k:
		return (*global.pool4k.Get().(*[]byte))[:size]
	case size <= size8k:
		return (*global.pool8k.Get().(*[]byte))[:size]
	case size <= size64k:
		return (*global.pool64k.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns buf to the pool matching its capacity. Buffers whose
// capacity doesn't match a bucket are dropped rather than pooled.
func Put(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size4k:
		global.pool4k.Put(&buf)
	case size8k:
		global.pool8k.Put(&buf)
	case size64k:
		global.pool64k.Put(&buf)
	}
}
