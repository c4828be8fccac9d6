package transcoder

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/rewrite-abi/errors"
	"go.bytecodealliance.org/wit"
)

// Canonical ABI flattening limits. A parameter list flattening to more
// than MaxFlatParams words, or a result to more than MaxFlatResults, is
// passed through linear memory instead.
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// ComponentType classifies a Go type for the canonical ABI.
//
// Flat is the sequence of core value types of the flat representation;
// every word occupies one uint64 slot holding the zero-extended bit
// pattern of the value. Size and Align describe the memory
// representation. Typecheck verifies that t structurally matches the
// codec: names and order of fields and cases must agree exactly.
type ComponentType interface {
	Flat() []api.ValueType
	Size() uint32
	Align() uint32
	Typecheck(t wit.Type) error
}

// Lowerer converts Go values of type T into the canonical ABI.
//
// Lower writes exactly FlatCount words into dst. Store writes Size bytes
// at offset, which must be aligned to Align.
type Lowerer[T any] interface {
	ComponentType
	Lower(o *Options, v T, dst []uint64) error
	Store(o *Options, v T, offset uint32) error
}

// Lifter converts canonical ABI values into Go values of type T.
//
// Lift reads exactly FlatCount words from src. Load decodes a value from
// b, which holds Size bytes copied out of linear memory. Pointers found in
// either form are untrusted and are bounds- and alignment-checked.
type Lifter[T any] interface {
	ComponentType
	Lift(o *Options, src []uint64) (T, error)
	Load(o *Options, b []byte) (T, error)
}

// Codec converts in both directions.
type Codec[T any] interface {
	Lowerer[T]
	Lifter[T]
}

// ListStorer is implemented by codecs with a bulk store for lists.
type ListStorer[T any] interface {
	StoreList(o *Options, vs []T, offset uint32) error
}

// ListLoader is implemented by codecs with a bulk load for lists.
// b holds n consecutive elements.
type ListLoader[T any] interface {
	LoadList(o *Options, b []byte, n int) ([]T, error)
}

// FlatCount is the number of flat words of c.
func FlatCount(c ComponentType) int {
	return len(c.Flat())
}

// StoreList stores vs contiguously at offset, using the codec's bulk hook
// when it has one.
func StoreList[T any](o *Options, c Lowerer[T], vs []T, offset uint32) error {
	if ls, ok := c.(ListStorer[T]); ok {
		return ls.StoreList(o, vs, offset)
	}
	size := c.Size()
	for i, v := range vs {
		if err := c.Store(o, v, offset+uint32(i)*size); err != nil {
			return err
		}
	}
	return nil
}

// LoadList decodes n contiguous elements from b, using the codec's bulk
// hook when it has one.
func LoadList[T any](o *Options, c Lifter[T], b []byte, n int) ([]T, error) {
	if ll, ok := c.(ListLoader[T]); ok {
		return ll.LoadList(o, b, n)
	}
	size := int(c.Size())
	out := make([]T, n)
	for i := range out {
		v, err := c.Load(o, b[i*size:(i+1)*size])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func checkFlat(phase errors.Phase, got []uint64, want int) error {
	if len(got) < want {
		return errors.Arity(phase, len(got), want)
	}
	return nil
}

func checkBytes(b []byte, want uint32) error {
	if uint32(len(b)) < want {
		return errors.InvalidData(errors.PhaseLift, fmt.Sprintf("short buffer: have %d bytes, need %d", len(b), want))
	}
	return nil
}
