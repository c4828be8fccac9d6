package memory

import (
	"fmt"

	rewriteabi "github.com/wippyai/rewrite-abi"
)

// bumpBase keeps address 0 unused so a zero pointer never names a block.
const bumpBase = 8

// Bump is a bump allocator with realloc semantics over a memory. Blocks
// are never reclaimed except when the most recent block shrinks or grows
// in place.
type Bump struct {
	mem  rewriteabi.Memory
	next uint32
	last uint32 // start of the most recent block

	Calls int // number of Realloc calls
	Frees int // number of blocks released with newSize 0
}

// NewBump allocates out of mem starting just above address zero.
func NewBump(mem rewriteabi.Memory) *Bump {
	return &Bump{mem: mem, next: bumpBase}
}

// Used reports the high-water mark in bytes.
func (b *Bump) Used() uint32 { return b.next }

func (b *Bump) Realloc(oldPtr, oldSize, align, newSize uint32) (uint32, error) {
	b.Calls++
	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("invalid alignment %d", align)
	}
	if newSize == 0 {
		if oldPtr != 0 {
			b.Frees++
		}
		if oldPtr != 0 && oldPtr == b.last && oldPtr+oldSize == b.next {
			b.next = oldPtr
		}
		return 0, nil
	}
	if oldPtr != 0 && newSize <= oldSize {
		if oldPtr == b.last {
			b.next = oldPtr + newSize
		}
		return oldPtr, nil
	}
	if oldPtr != 0 && oldPtr == b.last && oldPtr+oldSize == b.next {
		if err := b.reserve(oldPtr, newSize); err != nil {
			return 0, err
		}
		b.next = oldPtr + newSize
		return oldPtr, nil
	}

	ptr := (b.next + align - 1) &^ (align - 1)
	if err := b.reserve(ptr, newSize); err != nil {
		return 0, err
	}
	if oldPtr != 0 && oldSize > 0 {
		data, err := b.mem.Read(oldPtr, oldSize)
		if err != nil {
			return 0, err
		}
		if err := b.mem.Write(ptr, append([]byte(nil), data...)); err != nil {
			return 0, err
		}
	}
	b.last = ptr
	b.next = ptr + newSize
	return ptr, nil
}

func (b *Bump) reserve(ptr, size uint32) error {
	end := uint64(ptr) + uint64(size)
	if limit, ok := rewriteabi.MemSize(b.mem); ok && end > uint64(limit) {
		return fmt.Errorf("out of memory: need %d bytes at %d, have %d", size, ptr, limit)
	}
	return nil
}
