package abi

import (
	"math"
	"reflect"
)

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// InBounds reports whether [ptr, ptr+length) fits in a memory of size bytes.
func InBounds(ptr, length, size uint32) bool {
	end, ok := SafeAddU32(ptr, length)
	return ok && end <= size
}

// TypeName returns the Go name of T for error messages.
func TypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func IsAligned(ptr, align uint32) bool {
	return align == 0 || ptr&(align-1) == 0
}

const (
	CanonicalNaN32 = 0x7fc00000
	CanonicalNaN64 = 0x7ff8000000000000
)

const (
	MaxStringSize = 1 << 30 // 1 GB max string size
	MaxListLength = 1 << 27 // 128M max elements
	MaxAlloc      = 1 << 30 // 1 GB max single allocation
)

// UTF16Tag marks a compact string whose payload fell back to UTF-16.
const UTF16Tag = 1 << 31

// CanonicalizeF32 returns canonical NaN for any NaN input.
func CanonicalizeF32(bits uint32) uint32 {
	f := math.Float32frombits(bits)
	if f != f {
		return CanonicalNaN32
	}
	return bits
}

// CanonicalizeF64 returns canonical NaN for any NaN input.
func CanonicalizeF64(bits uint64) uint64 {
	f := math.Float64frombits(bits)
	if f != f {
		return CanonicalNaN64
	}
	return bits
}

// ValidateChar rejects surrogates (0xD800-0xDFFF) and values >= 0x110000.
func ValidateChar(v uint32) bool {
	if v >= 0xD800 && v <= 0xDFFF {
		return false
	}
	return v < 0x110000
}

// DiscriminantSize: 1 byte for <=256 cases, 2 for <=65536, else 4.
func DiscriminantSize(numCases int) uint32 {
	if numCases <= 256 {
		return 1
	} else if numCases <= 65536 {
		return 2
	}
	return 4
}

// FlagsSize is the byte size of a flags bitset with n members.
func FlagsSize(n int) uint32 {
	switch {
	case n == 0:
		return 0
	case n <= 8:
		return 1
	case n <= 16:
		return 2
	case n <= 32:
		return 4
	}
	return 8
}
