package transcoder

import (
	"encoding/binary"
	"iter"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
	"github.com/wippyai/rewrite-abi/transcoder/internal/types"
	"go.bytecodealliance.org/wit"
)

// List returns a codec for list<T> that lifts eagerly into a slice.
func List[T any](elem Codec[T]) Codec[[]T] {
	return listCodec[T]{elem: elem}
}

// LazyList returns a lifter for list<T> producing a *WasmList that decodes
// elements one at a time on request.
func LazyList[T any](elem Lifter[T]) Lifter[*WasmList[T]] {
	return lazyListCodec[T]{elem: elem}
}

type listCodec[T any] struct {
	elem Codec[T]
}

func (listCodec[T]) Flat() []api.ValueType { return flatPtr }
func (listCodec[T]) Size() uint32          { return 8 }
func (listCodec[T]) Align() uint32         { return 4 }

func (c listCodec[T]) Typecheck(t wit.Type) error {
	return typecheckList[[]T](c.elem, t)
}

func typecheckList[L any](elem ComponentType, t wit.Type) error {
	l, ok := typeDefKind(t).(*wit.List)
	if !ok {
		return errors.TypeMismatch(abi.TypeName[L](), types.Name(t))
	}
	return errors.At(elem.Typecheck(l.Type), "element")
}

func (c listCodec[T]) Lower(o *Options, vs []T, dst []uint64) error {
	if err := checkFlat(errors.PhaseLower, dst, 2); err != nil {
		return err
	}
	ptr, n, err := lowerList(o, c.elem, vs)
	if err != nil {
		return err
	}
	dst[0], dst[1] = uint64(ptr), uint64(n)
	return nil
}

func (c listCodec[T]) Store(o *Options, vs []T, offset uint32) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	ptr, n, err := lowerList(o, c.elem, vs)
	if err != nil {
		return err
	}
	if err := mem.WriteU32(offset, ptr); err != nil {
		return err
	}
	return mem.WriteU32(offset+4, n)
}

// lowerList allocates exactly len(vs) elements and stores them in bulk.
func lowerList[T any](o *Options, elem Lowerer[T], vs []T) (uint32, uint32, error) {
	if len(vs) > abi.MaxListLength {
		return 0, 0, errors.Overflow(errors.PhaseLower, len(vs), "list length")
	}
	n := uint32(len(vs))
	size, ok := abi.SafeMulU32(n, elem.Size())
	if !ok {
		return 0, 0, errors.Overflow(errors.PhaseLower, uint64(n)*uint64(elem.Size()), "list size")
	}
	ptr, err := o.realloc(0, 0, elem.Align(), size)
	if err != nil {
		return 0, 0, err
	}
	if err := StoreList(o, elem, vs, ptr); err != nil {
		return 0, 0, err
	}
	return ptr, n, nil
}

func (c listCodec[T]) Lift(o *Options, src []uint64) ([]T, error) {
	l, err := lazyListCodec[T]{elem: c.elem}.Lift(o, src)
	if err != nil {
		return nil, err
	}
	return l.Slice()
}

func (c listCodec[T]) Load(o *Options, b []byte) ([]T, error) {
	l, err := lazyListCodec[T]{elem: c.elem}.Load(o, b)
	if err != nil {
		return nil, err
	}
	return l.Slice()
}

type lazyListCodec[T any] struct {
	elem Lifter[T]
}

func (lazyListCodec[T]) Flat() []api.ValueType { return flatPtr }
func (lazyListCodec[T]) Size() uint32          { return 8 }
func (lazyListCodec[T]) Align() uint32         { return 4 }

func (c lazyListCodec[T]) Typecheck(t wit.Type) error {
	return typecheckList[*WasmList[T]](c.elem, t)
}

func (c lazyListCodec[T]) Lift(o *Options, src []uint64) (*WasmList[T], error) {
	if err := checkFlat(errors.PhaseLift, src, 2); err != nil {
		return nil, err
	}
	return newWasmList(o, c.elem, uint32(src[0]), uint32(src[1]))
}

func (c lazyListCodec[T]) Load(o *Options, b []byte) (*WasmList[T], error) {
	if err := checkBytes(b, 8); err != nil {
		return nil, err
	}
	return newWasmList(o, c.elem, binary.LittleEndian.Uint32(b), binary.LittleEndian.Uint32(b[4:]))
}

// WasmList is a list still living in linear memory. Only the pointer,
// length and decoding context are kept; every Get decodes afresh.
type WasmList[T any] struct {
	opts *Options
	elem Lifter[T]
	ptr  uint32
	len  uint32
}

func newWasmList[T any](o *Options, elem Lifter[T], ptr, n uint32) (*WasmList[T], error) {
	if _, err := o.mem(errors.PhaseLift); err != nil {
		return nil, err
	}
	if n > abi.MaxListLength {
		return nil, errors.Overflow(errors.PhaseLift, n, "list length")
	}
	size, ok := abi.SafeMulU32(n, elem.Size())
	if !ok {
		return nil, errors.Overflow(errors.PhaseLift, uint64(n)*uint64(elem.Size()), "list size")
	}
	if err := o.checkRange(ptr, size, elem.Align()); err != nil {
		return nil, err
	}
	return &WasmList[T]{opts: o, elem: elem, ptr: ptr, len: n}, nil
}

// Len is the number of elements.
func (l *WasmList[T]) Len() int { return int(l.len) }

// Get decodes element i.
func (l *WasmList[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= int(l.len) {
		return zero, errors.IndexOutOfBounds(errors.PhaseLift, i, int(l.len))
	}
	size := l.elem.Size()
	b, err := l.opts.read(l.ptr+uint32(i)*size, size)
	if err != nil {
		return zero, err
	}
	v, err := l.elem.Load(l.opts, b)
	if err != nil {
		return zero, errors.At(err, "element")
	}
	return v, nil
}

// All yields elements in order. Iteration stops early at an element that
// fails to decode; Get reports the error.
func (l *WasmList[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < int(l.len); i++ {
			v, err := l.Get(i)
			if err != nil || !yield(i, v) {
				return
			}
		}
	}
}

// Slice decodes every element at once, using the element codec's bulk
// load when it has one.
func (l *WasmList[T]) Slice() ([]T, error) {
	b, err := l.opts.read(l.ptr, l.len*l.elem.Size())
	if err != nil {
		return nil, err
	}
	return LoadList(l.opts, l.elem, b, int(l.len))
}
