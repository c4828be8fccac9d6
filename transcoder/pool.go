package transcoder

import "sync"

const (
	poolMaxCap64  = 1024 // max uint64 elements
	poolInitCap64 = 16
)

// uint64 buffer pool for flat words
var buf64Pool = sync.Pool{
	New: func() any {
		buf := make([]uint64, 0, poolInitCap64)
		return &buf
	},
}

// GetFlat returns a zeroed buffer of n flat words. Return it with PutFlat.
func GetFlat(n int) *[]uint64 {
	buf := buf64Pool.Get().(*[]uint64)
	if cap(*buf) < n {
		*buf = make([]uint64, n)
		return buf
	}
	*buf = (*buf)[:n]
	clear(*buf)
	return buf
}

func PutFlat(buf *[]uint64) {
	if buf == nil || cap(*buf) > poolMaxCap64 {
		return // reject oversized
	}
	*buf = (*buf)[:0]
	buf64Pool.Put(buf)
}
