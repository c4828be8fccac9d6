package transcoder

import (
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
	"github.com/wippyai/rewrite-abi/transcoder/internal/types"
	"go.bytecodealliance.org/wit"
)

// String lowers Go strings into the destination's configured encoding and
// lifts them back eagerly.
var String Codec[string] = stringCodec{}

// Str lifts strings lazily as *WasmStr; nothing is decoded until asked.
var Str Lifter[*WasmStr] = wasmStrCodec{}

type stringCodec struct{}

func (stringCodec) Flat() []api.ValueType      { return flatPtr }
func (stringCodec) Size() uint32               { return 8 }
func (stringCodec) Align() uint32              { return 4 }
func (stringCodec) Typecheck(t wit.Type) error { return expectKind[string](t, types.KindString) }

func (stringCodec) Lower(o *Options, v string, dst []uint64) error {
	if err := checkFlat(errors.PhaseLower, dst, 2); err != nil {
		return err
	}
	ptr, n, err := lowerString(o, v)
	if err != nil {
		return err
	}
	dst[0], dst[1] = uint64(ptr), uint64(n)
	return nil
}

func (stringCodec) Store(o *Options, v string, offset uint32) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	ptr, n, err := lowerString(o, v)
	if err != nil {
		return err
	}
	if err := mem.WriteU32(offset, ptr); err != nil {
		return err
	}
	return mem.WriteU32(offset+4, n)
}

func (stringCodec) Lift(o *Options, src []uint64) (string, error) {
	s, err := wasmStrCodec{}.Lift(o, src)
	if err != nil {
		return "", err
	}
	return s.ToString()
}

func (stringCodec) Load(o *Options, b []byte) (string, error) {
	s, err := wasmStrCodec{}.Load(o, b)
	if err != nil {
		return "", err
	}
	return s.ToString()
}

// lowerString copies v into freshly allocated memory and returns the
// pointer and the encoded length (in code units, tagged for compact UTF-16).
func lowerString(o *Options, v string) (uint32, uint32, error) {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return 0, 0, err
	}
	if !utf8.ValidString(v) {
		return 0, 0, errors.InvalidUTF8(errors.PhaseLower, []byte(v))
	}
	if len(v) > abi.MaxStringSize {
		return 0, 0, errors.Overflow(errors.PhaseLower, len(v), "string length")
	}
	switch o.Encoding {
	case UTF16:
		return lowerUTF16(o, mem, v)
	case CompactUTF16:
		return lowerCompact(o, mem, v)
	}
	return lowerUTF8(o, mem, v)
}

func lowerUTF8(o *Options, mem Memory, v string) (uint32, uint32, error) {
	n := uint32(len(v))
	ptr, err := o.realloc(0, 0, 1, n)
	if err != nil {
		return 0, 0, err
	}
	if err := mem.Write(ptr, []byte(v)); err != nil {
		return 0, 0, err
	}
	return ptr, n, nil
}

// lowerUTF16 allocates for the worst case of one code unit per source
// byte, transcodes, then shrinks to the units actually written.
func lowerUTF16(o *Options, mem Memory, v string) (uint32, uint32, error) {
	worst, ok := abi.SafeMulU32(uint32(len(v)), 2)
	if !ok {
		return 0, 0, errors.Overflow(errors.PhaseLower, len(v), "utf16 size")
	}
	ptr, err := o.realloc(0, 0, 2, worst)
	if err != nil {
		return 0, 0, err
	}
	buf := make([]byte, 0, worst)
	for _, r := range v {
		buf = appendUTF16(buf, r)
	}
	if err := mem.Write(ptr, buf); err != nil {
		return 0, 0, err
	}
	if used := uint32(len(buf)); used < worst {
		if ptr, err = o.realloc(ptr, worst, 2, used); err != nil {
			return 0, 0, err
		}
	}
	return ptr, uint32(len(buf) / 2), nil
}

// lowerCompact encodes Latin-1 optimistically into a host staging buffer.
// The first scalar above U+00FF switches to UTF-16: the guest block is
// grown to the UTF-16 worst case and the Latin-1 prefix in the staging
// buffer is widened in place, walking from the highest index down so no
// byte is overwritten before it is read. Guest memory is written once,
// after transcoding finishes.
func lowerCompact(o *Options, mem Memory, v string) (uint32, uint32, error) {
	latinSize := uint32(len(v))
	ptr, err := o.realloc(0, 0, 2, latinSize)
	if err != nil {
		return 0, 0, err
	}

	buf := make([]byte, 0, latinSize)
	for i, r := range v {
		if r <= 0xFF {
			buf = append(buf, byte(r))
			continue
		}

		worst, ok := abi.SafeMulU32(latinSize, 2)
		if !ok {
			return 0, 0, errors.Overflow(errors.PhaseLower, len(v), "utf16 size")
		}
		if ptr, err = o.realloc(ptr, latinSize, 2, worst); err != nil {
			return 0, 0, err
		}

		written := len(buf)
		wide := make([]byte, 2*written, worst)
		copy(wide, buf)
		for j := written - 1; j >= 0; j-- {
			wide[2*j] = wide[j]
			wide[2*j+1] = 0
		}
		for _, r := range v[i:] {
			wide = appendUTF16(wide, r)
		}

		if err := mem.Write(ptr, wide); err != nil {
			return 0, 0, err
		}
		if used := uint32(len(wide)); used < worst {
			if ptr, err = o.realloc(ptr, worst, 2, used); err != nil {
				return 0, 0, err
			}
		}
		return ptr, uint32(len(wide)/2) | abi.UTF16Tag, nil
	}

	if err := mem.Write(ptr, buf); err != nil {
		return 0, 0, err
	}
	if used := uint32(len(buf)); used < latinSize {
		if ptr, err = o.realloc(ptr, latinSize, 2, used); err != nil {
			return 0, 0, err
		}
	}
	return ptr, uint32(len(buf)), nil
}

func appendUTF16(buf []byte, r rune) []byte {
	if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError || r2 != utf8.RuneError {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(r1))
		return binary.LittleEndian.AppendUint16(buf, uint16(r2))
	}
	return binary.LittleEndian.AppendUint16(buf, uint16(r))
}

// WasmStr is a string that still lives in linear memory. Its range was
// validated when it was lifted; decoding happens on demand.
type WasmStr struct {
	opts *Options
	ptr  uint32
	len  uint32 // code units, without the compact tag
	enc  StringEncoding
	wide bool // compact string stored as UTF-16
}

func newWasmStr(o *Options, ptr, raw uint32) (*WasmStr, error) {
	if _, err := o.mem(errors.PhaseLift); err != nil {
		return nil, err
	}
	s := &WasmStr{opts: o, ptr: ptr, len: raw, enc: o.Encoding}
	align := uint32(2)
	switch o.Encoding {
	case UTF8:
		align = 1
	case UTF16:
		s.wide = true
	case CompactUTF16:
		if raw&abi.UTF16Tag != 0 {
			s.wide = true
			s.len = raw &^ abi.UTF16Tag
		}
	}
	size, err := s.byteLen()
	if err != nil {
		return nil, err
	}
	if size > abi.MaxStringSize {
		return nil, errors.Overflow(errors.PhaseLift, size, "string length")
	}
	if err := o.checkRange(ptr, size, align); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WasmStr) byteLen() (uint32, error) {
	if !s.wide {
		return s.len, nil
	}
	n, ok := abi.SafeMulU32(s.len, 2)
	if !ok {
		return 0, errors.Overflow(errors.PhaseLift, s.len, "utf16 size")
	}
	return n, nil
}

// Len is the length in code units of the stored encoding.
func (s *WasmStr) Len() uint32 { return s.len }

// Encoding is the encoding the string was lifted with.
func (s *WasmStr) Encoding() StringEncoding { return s.enc }

// ToString decodes the string. The range is re-checked against the
// current memory size first.
func (s *WasmStr) ToString() (string, error) {
	size, err := s.byteLen()
	if err != nil {
		return "", err
	}
	b, err := s.opts.read(s.ptr, size)
	if err != nil {
		return "", err
	}
	switch {
	case s.wide:
		return decodeUTF16(b)
	case s.enc == CompactUTF16:
		return decodeLatin1(b), nil
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseLift, b)
	}
	return string(b), nil
}

// String implements fmt.Stringer; undecodable strings render empty.
func (s *WasmStr) String() string {
	v, _ := s.ToString()
	return v
}

func decodeUTF16(b []byte) (string, error) {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	out := make([]byte, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case utf16.IsSurrogate(rune(u)):
			if u >= 0xDC00 || i+1 >= len(units) {
				return "", errors.InvalidUTF16(errors.PhaseLift, u, i)
			}
			r := utf16.DecodeRune(rune(u), rune(units[i+1]))
			if r == utf8.RuneError {
				return "", errors.InvalidUTF16(errors.PhaseLift, u, i)
			}
			out = utf8.AppendRune(out, r)
			i++
		default:
			out = utf8.AppendRune(out, rune(u))
		}
	}
	return string(out), nil
}

func decodeLatin1(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		out = utf8.AppendRune(out, rune(c))
	}
	return string(out)
}

type wasmStrCodec struct{}

func (wasmStrCodec) Flat() []api.ValueType      { return flatPtr }
func (wasmStrCodec) Size() uint32               { return 8 }
func (wasmStrCodec) Align() uint32              { return 4 }
func (wasmStrCodec) Typecheck(t wit.Type) error { return expectKind[*WasmStr](t, types.KindString) }

func (wasmStrCodec) Lift(o *Options, src []uint64) (*WasmStr, error) {
	if err := checkFlat(errors.PhaseLift, src, 2); err != nil {
		return nil, err
	}
	return newWasmStr(o, uint32(src[0]), uint32(src[1]))
}

func (wasmStrCodec) Load(o *Options, b []byte) (*WasmStr, error) {
	if err := checkBytes(b, 8); err != nil {
		return nil, err
	}
	return newWasmStr(o, binary.LittleEndian.Uint32(b), binary.LittleEndian.Uint32(b[4:]))
}
