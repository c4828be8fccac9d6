package memory

import (
	"encoding/binary"

	"github.com/wippyai/rewrite-abi/errors"
)

// Buffer is a linear memory backed by a Go byte slice. Its size is fixed
// at creation.
type Buffer struct {
	data []byte
}

// NewBuffer returns a zeroed memory of size bytes.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Bytes exposes the backing slice.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) Size() uint32 { return uint32(len(b.data)) }

func (b *Buffer) span(phase errors.Phase, offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(b.data)) {
		return nil, errors.OutOfBounds(phase, offset, length, b.Size())
	}
	return b.data[offset:end], nil
}

func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	return b.span(errors.PhaseLift, offset, length)
}

func (b *Buffer) Write(offset uint32, data []byte) error {
	dst, err := b.span(errors.PhaseLower, offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	s, err := b.span(errors.PhaseLift, offset, 1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func (b *Buffer) ReadU16(offset uint32) (uint16, error) {
	s, err := b.span(errors.PhaseLift, offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	s, err := b.span(errors.PhaseLift, offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	s, err := b.span(errors.PhaseLift, offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s), nil
}

func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	s, err := b.span(errors.PhaseLower, offset, 1)
	if err != nil {
		return err
	}
	s[0] = value
	return nil
}

func (b *Buffer) WriteU16(offset uint32, value uint16) error {
	s, err := b.span(errors.PhaseLower, offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(s, value)
	return nil
}

func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	s, err := b.span(errors.PhaseLower, offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(s, value)
	return nil
}

func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	s, err := b.span(errors.PhaseLower, offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(s, value)
	return nil
}
