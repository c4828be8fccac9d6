package transcoder

import (
	"sync"

	rewriteabi "github.com/wippyai/rewrite-abi"
	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
)

type Memory = rewriteabi.Memory
type Realloc = rewriteabi.Realloc

// StringEncoding selects how strings are laid out in linear memory.
type StringEncoding uint8

const (
	UTF8 StringEncoding = iota
	UTF16
	// CompactUTF16 stores Latin-1 when every scalar fits in a byte and
	// falls back to UTF-16, tagging the length with bit 31.
	CompactUTF16
)

func (e StringEncoding) String() string {
	switch e {
	case UTF8:
		return "utf8"
	case UTF16:
		return "utf16"
	case CompactUTF16:
		return "latin1+utf16"
	}
	return "unknown"
}

// Options are the canonical options of the instance on the other side of
// the boundary. Memory must not be accessed concurrently while a lower or
// lift pass runs against it.
type Options struct {
	Memory      Memory
	Realloc     Realloc
	Allocations *AllocationList // optional; records placements made while lowering
	Encoding    StringEncoding
}

func (o *Options) mem(phase errors.Phase) (Memory, error) {
	if o == nil || o.Memory == nil {
		return nil, errors.Unsupported(phase, "no linear memory configured")
	}
	return o.Memory, nil
}

// realloc places newSize bytes and validates the returned pointer.
func (o *Options) realloc(oldPtr, oldSize, align, newSize uint32) (uint32, error) {
	if o == nil || o.Realloc == nil {
		return 0, errors.Unsupported(errors.PhaseLower, "no realloc configured")
	}
	if newSize > abi.MaxAlloc {
		return 0, errors.Overflow(errors.PhaseLower, newSize, "allocation size")
	}
	ptr, err := o.Realloc.Realloc(oldPtr, oldSize, align, newSize)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseLower, newSize, align, err)
	}
	if !abi.IsAligned(ptr, align) {
		return 0, errors.Misaligned(errors.PhaseLower, ptr, align)
	}
	if size, ok := rewriteabi.MemSize(o.Memory); ok && !abi.InBounds(ptr, newSize, size) {
		return 0, errors.OutOfBounds(errors.PhaseLower, ptr, newSize, size)
	}
	if o.Allocations != nil {
		if oldPtr != 0 || oldSize != 0 {
			o.Allocations.Replace(oldPtr, ptr, newSize)
		} else {
			o.Allocations.Add(ptr, newSize, align)
		}
	}
	return ptr, nil
}

// checkRange validates a pointer and byte length handed over by the other
// side before anything is decoded from it.
func (o *Options) checkRange(ptr, length, align uint32) error {
	if !abi.IsAligned(ptr, align) {
		return errors.Misaligned(errors.PhaseLift, ptr, align)
	}
	if _, ok := abi.SafeAddU32(ptr, length); !ok {
		return errors.Overflow(errors.PhaseLift, uint64(ptr)+uint64(length), "u32 address")
	}
	if size, ok := rewriteabi.MemSize(o.Memory); ok && !abi.InBounds(ptr, length, size) {
		return errors.OutOfBounds(errors.PhaseLift, ptr, length, size)
	}
	return nil
}

// read returns length bytes at ptr after a bounds check.
func (o *Options) read(ptr, length uint32) ([]byte, error) {
	mem, err := o.mem(errors.PhaseLift)
	if err != nil {
		return nil, err
	}
	if err := o.checkRange(ptr, length, 1); err != nil {
		return nil, err
	}
	b, err := mem.Read(ptr, length)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLift, errors.KindOutOfBounds, err, "read linear memory")
	}
	return b, nil
}

// Place allocates a block for v in the destination memory and stores v
// there, returning the block's address.
func Place[T any](o *Options, c Lowerer[T], v T) (uint32, error) {
	ptr, err := o.realloc(0, 0, c.Align(), c.Size())
	if err != nil {
		return 0, err
	}
	if err := c.Store(o, v, ptr); err != nil {
		return 0, err
	}
	return ptr, nil
}

// LoadAt decodes a value stored at ptr, which came from the other side and
// is checked against c's size and alignment first.
func LoadAt[T any](o *Options, c Lifter[T], ptr uint32) (T, error) {
	var zero T
	if err := o.checkRange(ptr, c.Size(), c.Align()); err != nil {
		return zero, err
	}
	b, err := o.read(ptr, c.Size())
	if err != nil {
		return zero, err
	}
	return c.Load(o, b)
}

type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// AllocationList records the placements of one lowering pass so a failed
// call can hand them back to the allocator.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. List invalid after Release.
func (al *AllocationList) Release() {
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(r Realloc) {
	al.Free(r)
	al.Release()
}

func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

// Replace records that the block at oldPtr moved to ptr with a new size.
func (al *AllocationList) Replace(oldPtr, ptr, size uint32) {
	for i := range al.allocations {
		if al.allocations[i].Ptr == oldPtr {
			al.allocations[i].Ptr = ptr
			al.allocations[i].Size = size
			return
		}
	}
}

// Free releases every recorded block with a zero-size realloc.
func (al *AllocationList) Free(r Realloc) {
	if r == nil {
		return
	}
	for i := len(al.allocations) - 1; i >= 0; i-- {
		a := al.allocations[i]
		if a.Ptr != 0 {
			_, _ = r.Realloc(a.Ptr, a.Size, a.Align, 0)
		}
	}
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}

func (al *AllocationList) All() []Allocation {
	return al.allocations
}
