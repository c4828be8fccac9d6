package transcoder

import (
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
	"github.com/wippyai/rewrite-abi/transcoder/internal/types"
	"go.bytecodealliance.org/wit"
)

var (
	flatI32 = []api.ValueType{api.ValueTypeI32}
	flatI64 = []api.ValueType{api.ValueTypeI64}
	flatF32 = []api.ValueType{api.ValueTypeF32}
	flatF64 = []api.ValueType{api.ValueTypeF64}
	flatPtr = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
)

// Primitive codecs.
var (
	Bool Codec[bool]    = boolCodec{}
	U8   Codec[uint8]   = intCodec[uint8]{kind: types.KindU8, size: 1}
	S8   Codec[int8]    = intCodec[int8]{kind: types.KindS8, size: 1}
	U16  Codec[uint16]  = intCodec[uint16]{kind: types.KindU16, size: 2}
	S16  Codec[int16]   = intCodec[int16]{kind: types.KindS16, size: 2}
	U32  Codec[uint32]  = intCodec[uint32]{kind: types.KindU32, size: 4}
	S32  Codec[int32]   = intCodec[int32]{kind: types.KindS32, size: 4}
	U64  Codec[uint64]  = intCodec[uint64]{kind: types.KindU64, size: 8}
	S64  Codec[int64]   = intCodec[int64]{kind: types.KindS64, size: 8}
	F32  Codec[float32] = f32Codec{}
	F64  Codec[float64] = f64Codec{}
	Char Codec[rune]    = charCodec{}
)

// boolCodec lifts any nonzero value as true, in both the flat and the
// memory form. Producers are expected to write only 0 and 1.
type boolCodec struct{}

func (boolCodec) Flat() []api.ValueType      { return flatI32 }
func (boolCodec) Size() uint32               { return 1 }
func (boolCodec) Align() uint32              { return 1 }
func (boolCodec) Typecheck(t wit.Type) error { return expectKind[bool](t, types.KindBool) }

func (boolCodec) Lower(_ *Options, v bool, dst []uint64) error {
	if err := checkFlat(errors.PhaseLower, dst, 1); err != nil {
		return err
	}
	dst[0] = boolWord(v)
	return nil
}

func (boolCodec) Store(o *Options, v bool, offset uint32) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	return mem.WriteU8(offset, uint8(boolWord(v)))
}

func (boolCodec) Lift(_ *Options, src []uint64) (bool, error) {
	if err := checkFlat(errors.PhaseLift, src, 1); err != nil {
		return false, err
	}
	return uint32(src[0]) != 0, nil
}

func (boolCodec) Load(_ *Options, b []byte) (bool, error) {
	if err := checkBytes(b, 1); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func boolWord(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

type integer interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64
}

// intCodec handles every integer width. Narrow values travel as i32
// words: signed values sign-extend to 32 bits, and lifting truncates.
type intCodec[T integer] struct {
	kind types.Kind
	size uint32
}

func (c intCodec[T]) Flat() []api.ValueType {
	if c.size == 8 {
		return flatI64
	}
	return flatI32
}

func (c intCodec[T]) Size() uint32               { return c.size }
func (c intCodec[T]) Align() uint32              { return c.size }
func (c intCodec[T]) Typecheck(t wit.Type) error { return expectKind[T](t, c.kind) }

func (c intCodec[T]) Lower(_ *Options, v T, dst []uint64) error {
	if err := checkFlat(errors.PhaseLower, dst, 1); err != nil {
		return err
	}
	if c.size == 8 {
		dst[0] = uint64(v)
	} else {
		dst[0] = uint64(uint32(v))
	}
	return nil
}

func (c intCodec[T]) Store(o *Options, v T, offset uint32) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	switch c.size {
	case 1:
		return mem.WriteU8(offset, uint8(v))
	case 2:
		return mem.WriteU16(offset, uint16(v))
	case 4:
		return mem.WriteU32(offset, uint32(v))
	}
	return mem.WriteU64(offset, uint64(v))
}

func (c intCodec[T]) Lift(_ *Options, src []uint64) (T, error) {
	if err := checkFlat(errors.PhaseLift, src, 1); err != nil {
		return 0, err
	}
	if c.size == 8 {
		return T(src[0]), nil
	}
	return T(uint32(src[0])), nil
}

func (c intCodec[T]) Load(_ *Options, b []byte) (T, error) {
	if err := checkBytes(b, c.size); err != nil {
		return 0, err
	}
	return T(getLE(b, c.size)), nil
}

// StoreList encodes the whole slice into one buffer and writes it once.
func (c intCodec[T]) StoreList(o *Options, vs []T, offset uint32) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	buf := make([]byte, len(vs)*int(c.size))
	for i, v := range vs {
		putLE(buf[i*int(c.size):], c.size, uint64(v))
	}
	return mem.Write(offset, buf)
}

func (c intCodec[T]) LoadList(_ *Options, b []byte, n int) ([]T, error) {
	if err := checkBytes(b, uint32(n)*c.size); err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		out[i] = T(getLE(b[i*int(c.size):], c.size))
	}
	return out, nil
}

func putLE(b []byte, size uint32, v uint64) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

func getLE(b []byte, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}

// f32Codec canonicalizes NaN payloads in both directions.
type f32Codec struct{}

func (f32Codec) Flat() []api.ValueType      { return flatF32 }
func (f32Codec) Size() uint32               { return 4 }
func (f32Codec) Align() uint32              { return 4 }
func (f32Codec) Typecheck(t wit.Type) error { return expectKind[float32](t, types.KindF32) }

func (f32Codec) Lower(_ *Options, v float32, dst []uint64) error {
	if err := checkFlat(errors.PhaseLower, dst, 1); err != nil {
		return err
	}
	dst[0] = uint64(abi.CanonicalizeF32(math.Float32bits(v)))
	return nil
}

func (f32Codec) Store(o *Options, v float32, offset uint32) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	return mem.WriteU32(offset, abi.CanonicalizeF32(math.Float32bits(v)))
}

func (f32Codec) Lift(_ *Options, src []uint64) (float32, error) {
	if err := checkFlat(errors.PhaseLift, src, 1); err != nil {
		return 0, err
	}
	return math.Float32frombits(abi.CanonicalizeF32(uint32(src[0]))), nil
}

func (f32Codec) Load(_ *Options, b []byte) (float32, error) {
	if err := checkBytes(b, 4); err != nil {
		return 0, err
	}
	return math.Float32frombits(abi.CanonicalizeF32(binary.LittleEndian.Uint32(b))), nil
}

type f64Codec struct{}

func (f64Codec) Flat() []api.ValueType      { return flatF64 }
func (f64Codec) Size() uint32               { return 8 }
func (f64Codec) Align() uint32              { return 8 }
func (f64Codec) Typecheck(t wit.Type) error { return expectKind[float64](t, types.KindF64) }

func (f64Codec) Lower(_ *Options, v float64, dst []uint64) error {
	if err := checkFlat(errors.PhaseLower, dst, 1); err != nil {
		return err
	}
	dst[0] = abi.CanonicalizeF64(math.Float64bits(v))
	return nil
}

func (f64Codec) Store(o *Options, v float64, offset uint32) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	return mem.WriteU64(offset, abi.CanonicalizeF64(math.Float64bits(v)))
}

func (f64Codec) Lift(_ *Options, src []uint64) (float64, error) {
	if err := checkFlat(errors.PhaseLift, src, 1); err != nil {
		return 0, err
	}
	return math.Float64frombits(abi.CanonicalizeF64(src[0])), nil
}

func (f64Codec) Load(_ *Options, b []byte) (float64, error) {
	if err := checkBytes(b, 8); err != nil {
		return 0, err
	}
	return math.Float64frombits(abi.CanonicalizeF64(binary.LittleEndian.Uint64(b))), nil
}

// charCodec carries Unicode scalar values; surrogates and values past
// U+10FFFF are rejected in both directions.
type charCodec struct{}

func (charCodec) Flat() []api.ValueType      { return flatI32 }
func (charCodec) Size() uint32               { return 4 }
func (charCodec) Align() uint32              { return 4 }
func (charCodec) Typecheck(t wit.Type) error { return expectKind[rune](t, types.KindChar) }

func (charCodec) Lower(_ *Options, v rune, dst []uint64) error {
	if err := checkFlat(errors.PhaseLower, dst, 1); err != nil {
		return err
	}
	if !abi.ValidateChar(uint32(v)) {
		return errors.InvalidChar(errors.PhaseLower, uint32(v))
	}
	dst[0] = uint64(uint32(v))
	return nil
}

func (charCodec) Store(o *Options, v rune, offset uint32) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	if !abi.ValidateChar(uint32(v)) {
		return errors.InvalidChar(errors.PhaseLower, uint32(v))
	}
	return mem.WriteU32(offset, uint32(v))
}

func (charCodec) Lift(_ *Options, src []uint64) (rune, error) {
	if err := checkFlat(errors.PhaseLift, src, 1); err != nil {
		return 0, err
	}
	return liftChar(uint32(src[0]))
}

func (charCodec) Load(_ *Options, b []byte) (rune, error) {
	if err := checkBytes(b, 4); err != nil {
		return 0, err
	}
	return liftChar(binary.LittleEndian.Uint32(b))
}

func liftChar(v uint32) (rune, error) {
	if !abi.ValidateChar(v) {
		return 0, errors.InvalidChar(errors.PhaseLift, v)
	}
	return rune(v), nil
}
