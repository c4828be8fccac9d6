package transcoder

import (
	"strconv"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
	"github.com/wippyai/rewrite-abi/transcoder/internal/types"
	"go.bytecodealliance.org/wit"
)

// Member is one field of a record or one position of a tuple, projected
// out of the Go value R.
type Member[R any] interface {
	name() string
	component() ComponentType
	lower(o *Options, r *R, dst []uint64) error
	store(o *Options, r *R, offset uint32) error
	lift(o *Options, src []uint64, r *R) error
	load(o *Options, b []byte, r *R) error
}

// Field describes a record field stored in R through get and set.
func Field[R, F any](name string, c Codec[F], get func(*R) F, set func(*R, F)) Member[R] {
	return &member[R, F]{label: name, c: c, get: get, set: set}
}

type member[R, F any] struct {
	c     Codec[F]
	get   func(*R) F
	set   func(*R, F)
	label string
}

func (m *member[R, F]) name() string             { return m.label }
func (m *member[R, F]) component() ComponentType { return m.c }

func (m *member[R, F]) lower(o *Options, r *R, dst []uint64) error {
	return m.c.Lower(o, m.get(r), dst)
}

func (m *member[R, F]) store(o *Options, r *R, offset uint32) error {
	return m.c.Store(o, m.get(r), offset)
}

func (m *member[R, F]) lift(o *Options, src []uint64, r *R) error {
	v, err := m.c.Lift(o, src)
	if err != nil {
		return err
	}
	m.set(r, v)
	return nil
}

func (m *member[R, F]) load(o *Options, b []byte, r *R) error {
	v, err := m.c.Load(o, b)
	if err != nil {
		return err
	}
	m.set(r, v)
	return nil
}

// Record returns a codec for a record whose fields, in declared order, are
// the given members.
func Record[R any](fields ...Member[R]) Codec[R] {
	return newSequence(types.KindRecord, fields)
}

// sequence lays members out one after another: flat words concatenate and
// memory offsets follow each member's alignment.
type sequence[R any] struct {
	members []Member[R]
	flat    []api.ValueType
	flatOff []int
	offsets []uint32
	size    uint32
	align   uint32
	kind    types.Kind
}

func newSequence[R any](kind types.Kind, members []Member[R]) *sequence[R] {
	s := &sequence[R]{kind: kind, members: members, flatOff: make([]int, len(members)+1)}
	sizes := make([]uint32, len(members))
	aligns := make([]uint32, len(members))
	for i, m := range members {
		c := m.component()
		s.flatOff[i] = len(s.flat)
		s.flat = append(s.flat, c.Flat()...)
		sizes[i], aligns[i] = c.Size(), c.Align()
	}
	s.flatOff[len(members)] = len(s.flat)
	s.offsets, s.size, s.align = sequenceLayout(sizes, aligns)
	return s
}

func (s *sequence[R]) Flat() []api.ValueType { return s.flat }
func (s *sequence[R]) Size() uint32          { return s.size }
func (s *sequence[R]) Align() uint32         { return s.align }

func (s *sequence[R]) Typecheck(t wit.Type) error {
	mismatch := func(detail string, args ...any) error {
		return errors.New(errors.PhaseTypecheck, errors.KindTypeMismatch).
			GoType(abi.TypeName[R]()).
			WitType(types.Name(t)).
			Detail(detail, args...).
			Build()
	}

	var memberTypes []wit.Type
	switch k := typeDefKind(t).(type) {
	case *wit.Record:
		if s.kind != types.KindRecord {
			return mismatch("expected tuple")
		}
		if len(k.Fields) != len(s.members) {
			return mismatch("record has %d fields, codec has %d", len(k.Fields), len(s.members))
		}
		for i, f := range k.Fields {
			if f.Name != s.members[i].name() {
				return mismatch("field %d is %q, codec has %q", i, f.Name, s.members[i].name())
			}
			memberTypes = append(memberTypes, f.Type)
		}
	case *wit.Tuple:
		if s.kind != types.KindTuple {
			return mismatch("expected record")
		}
		if len(k.Types) != len(s.members) {
			return mismatch("tuple has %d elements, codec has %d", len(k.Types), len(s.members))
		}
		memberTypes = k.Types
	default:
		return mismatch("expected %s", s.kind)
	}

	for i, m := range s.members {
		if err := m.component().Typecheck(memberTypes[i]); err != nil {
			return errors.At(err, m.name())
		}
	}
	return nil
}

func (s *sequence[R]) Lower(o *Options, v R, dst []uint64) error {
	if err := checkFlat(errors.PhaseLower, dst, len(s.flat)); err != nil {
		return err
	}
	for i, m := range s.members {
		if err := m.lower(o, &v, dst[s.flatOff[i]:s.flatOff[i+1]]); err != nil {
			return errors.At(err, m.name())
		}
	}
	return nil
}

func (s *sequence[R]) Store(o *Options, v R, offset uint32) error {
	for i, m := range s.members {
		if err := m.store(o, &v, offset+s.offsets[i]); err != nil {
			return errors.At(err, m.name())
		}
	}
	return nil
}

func (s *sequence[R]) Lift(o *Options, src []uint64) (R, error) {
	var r R
	if err := checkFlat(errors.PhaseLift, src, len(s.flat)); err != nil {
		return r, err
	}
	for i, m := range s.members {
		if err := m.lift(o, src[s.flatOff[i]:s.flatOff[i+1]], &r); err != nil {
			return r, errors.At(err, m.name())
		}
	}
	return r, nil
}

func (s *sequence[R]) Load(o *Options, b []byte) (R, error) {
	var r R
	if err := checkBytes(b, s.size); err != nil {
		return r, err
	}
	for i, m := range s.members {
		off := s.offsets[i]
		if err := m.load(o, b[off:off+m.component().Size()], &r); err != nil {
			return r, errors.At(err, m.name())
		}
	}
	return r, nil
}

// Pair is the Go form of tuple<A, B>.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the Go form of tuple<A, B, C>.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func position[R, F any](i int, c Codec[F], get func(*R) F, set func(*R, F)) Member[R] {
	return &member[R, F]{label: strconv.Itoa(i), c: c, get: get, set: set}
}

// Tuple2 returns a codec for tuple<A, B>.
func Tuple2[A, B any](a Codec[A], b Codec[B]) Codec[Pair[A, B]] {
	return newSequence(types.KindTuple, []Member[Pair[A, B]]{
		position(0, a, func(p *Pair[A, B]) A { return p.First }, func(p *Pair[A, B], v A) { p.First = v }),
		position(1, b, func(p *Pair[A, B]) B { return p.Second }, func(p *Pair[A, B], v B) { p.Second = v }),
	})
}

// Tuple3 returns a codec for tuple<A, B, C>.
func Tuple3[A, B, C any](a Codec[A], b Codec[B], c Codec[C]) Codec[Triple[A, B, C]] {
	return newSequence(types.KindTuple, []Member[Triple[A, B, C]]{
		position(0, a, func(t *Triple[A, B, C]) A { return t.First }, func(t *Triple[A, B, C], v A) { t.First = v }),
		position(1, b, func(t *Triple[A, B, C]) B { return t.Second }, func(t *Triple[A, B, C], v B) { t.Second = v }),
		position(2, c, func(t *Triple[A, B, C]) C { return t.Third }, func(t *Triple[A, B, C], v C) { t.Third = v }),
	})
}

// Unit is the empty tuple. It has no flat words and no bytes, and stands
// for a missing payload in results and variant cases.
var Unit Codec[struct{}] = unitCodec{}

type unitCodec struct{}

func (unitCodec) Flat() []api.ValueType { return nil }
func (unitCodec) Size() uint32          { return 0 }
func (unitCodec) Align() uint32         { return 1 }

func (unitCodec) Typecheck(t wit.Type) error {
	if t == nil {
		return nil
	}
	if tup, ok := typeDefKind(t).(*wit.Tuple); ok && len(tup.Types) == 0 {
		return nil
	}
	return errors.TypeMismatch("struct {}", types.Name(t))
}

func (unitCodec) Lower(*Options, struct{}, []uint64) error  { return nil }
func (unitCodec) Store(*Options, struct{}, uint32) error    { return nil }
func (unitCodec) Lift(*Options, []uint64) (struct{}, error) { return struct{}{}, nil }
func (unitCodec) Load(*Options, []byte) (struct{}, error)   { return struct{}{}, nil }
