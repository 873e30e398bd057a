package parcel

import "sync"

// maxPooledSize is the largest buffer capacity kept for reuse.
const maxPooledSize = 64 * 1024

var parcelPool = sync.Pool{
	New: func() any {
		return &Parcel{
			buf:  make([]byte, 0, 256),
			opts: DefaultOptions,
		}
	},
}

// Get returns an empty Parcel from the pool with default options.
// Return it with Put when done.
func Get() *Parcel {
	p := parcelPool.Get().(*Parcel)
	p.Reset()
	p.opts = DefaultOptions
	return p
}

// Put returns a Parcel to the pool. The Parcel must not be used afterwards.
func Put(p *Parcel) {
	if p == nil {
		return
	}
	// Don't pool large buffers to avoid memory bloat
	if cap(p.buf) > maxPooledSize {
		return
	}
	p.Reset()
	parcelPool.Put(p)
}

// Size-tiered pools for frame buffers: 256, 4096 and 65536 bytes.
var (
	bufferSizes = [...]int{256, 4096, maxPooledSize}
	bufferPools = [len(bufferSizes)]sync.Pool{
		{New: func() any { return make([]byte, 0, 256) }},
		{New: func() any { return make([]byte, 0, 4096) }},
		{New: func() any { return make([]byte, 0, maxPooledSize) }},
	}
)

func poolIndex(size int) int {
	for i, s := range bufferSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// getBuffer returns an empty buffer with at least sizeHint capacity.
func getBuffer(sizeHint int) []byte {
	idx := poolIndex(sizeHint)
	if idx < 0 {
		return make([]byte, 0, sizeHint)
	}
	return bufferPools[idx].Get().([]byte)[:0]
}

// putBuffer returns buf to the pool matching its capacity.
func putBuffer(buf []byte) {
	c := cap(buf)
	if c > maxPooledSize {
		return
	}
	// Pool by the largest class buf can fully serve.
	for i := len(bufferSizes) - 1; i >= 0; i-- {
		if c >= bufferSizes[i] {
			bufferPools[i].Put(buf[:0])
			return
		}
	}
}
