package memory

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	rewriteabi "github.com/wippyai/rewrite-abi"
	"github.com/wippyai/rewrite-abi/errors"
)

// Wrap adapts a wazero memory. A nil memory yields nil.
func Wrap(mem api.Memory) rewriteabi.Memory {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// Wrapper adapts wazero api.Memory to rewriteabi.Memory.
type Wrapper struct {
	Mem api.Memory
}

// Size reports the current memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

func (m *Wrapper) readErr(offset, length uint32) error {
	return errors.OutOfBounds(errors.PhaseLift, offset, length, m.Mem.Size())
}

func (m *Wrapper) writeErr(offset, length uint32) error {
	return errors.OutOfBounds(errors.PhaseLower, offset, length, m.Mem.Size())
}

// Read returns a view of length bytes at offset. The view aliases guest
// memory and is invalidated by memory growth.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, m.readErr(offset, length)
	}
	return data, nil
}

func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return m.writeErr(offset, uint32(len(data)))
	}
	return nil
}

func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, m.readErr(offset, 1)
	}
	return v, nil
}

func (m *Wrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, m.readErr(offset, 2)
	}
	return v, nil
}

func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, m.readErr(offset, 4)
	}
	return v, nil
}

func (m *Wrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, m.readErr(offset, 8)
	}
	return v, nil
}

func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return m.writeErr(offset, 1)
	}
	return nil
}

func (m *Wrapper) WriteU16(offset uint32, value uint16) error {
	if !m.Mem.WriteUint16Le(offset, value) {
		return m.writeErr(offset, 2)
	}
	return nil
}

func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return m.writeErr(offset, 4)
	}
	return nil
}

func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return m.writeErr(offset, 8)
	}
	return nil
}

// FuncRealloc adapts a cabi_realloc export. A nil function yields nil.
func FuncRealloc(ctx context.Context, fn api.Function) rewriteabi.Realloc {
	if fn == nil {
		return nil
	}
	return &ReallocFunc{Ctx: ctx, Fn: fn}
}

// ReallocFunc calls cabi_realloc(old_ptr, old_size, align, new_size).
type ReallocFunc struct {
	Ctx context.Context
	Fn  api.Function
}

func (r *ReallocFunc) Realloc(oldPtr, oldSize, align, newSize uint32) (uint32, error) {
	results, err := r.Fn.Call(r.Ctx, uint64(oldPtr), uint64(oldSize), uint64(align), uint64(newSize))
	if err != nil {
		return 0, fmt.Errorf("cabi_realloc: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("cabi_realloc returned no result")
	}
	return uint32(results[0]), nil
}
