package rewriteabi

// Memory is a little-endian linear memory addressed by 32-bit offsets.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Realloc places data in linear memory with C realloc semantics.
// oldPtr=0, oldSize=0 requests a fresh allocation. A smaller newSize
// shrinks in place or moves; the first min(oldSize, newSize) bytes are
// preserved either way.
type Realloc interface {
	Realloc(oldPtr, oldSize, align, newSize uint32) (uint32, error)
}

// MemSize reports the size of m when it implements MemorySizer.
// The second result is false when the size is unknown.
func MemSize(m Memory) (uint32, bool) {
	if s, ok := m.(MemorySizer); ok {
		return s.Size(), true
	}
	return 0, false
}
