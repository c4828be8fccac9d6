package transcoder

import (
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
	"github.com/wippyai/rewrite-abi/transcoder/internal/types"
	"go.bytecodealliance.org/wit"
)

// union is the layout shared by variants, options, results and enums: a
// discriminant followed by one payload slot sized for the largest case.
//
// Flat words are zero-extended bit patterns, so a case whose payload is
// narrower than the joined slot type lowers unchanged. Every slot and
// byte a case leaves unused is zeroed.
type union struct {
	flat       []api.ValueType
	cases      int
	discSize   uint32
	payloadOff uint32
	size       uint32
	align      uint32
}

// newUnion lays out cases; a nil payload is a case without one.
func newUnion(payloads []ComponentType) union {
	u := union{cases: len(payloads), discSize: abi.DiscriminantSize(len(payloads))}
	flats := make([][]api.ValueType, len(payloads))
	u.align = u.discSize
	var maxSize uint32
	for i, p := range payloads {
		if p == nil {
			continue
		}
		flats[i] = p.Flat()
		if p.Align() > u.align {
			u.align = p.Align()
		}
		if p.Size() > maxSize {
			maxSize = p.Size()
		}
	}
	u.flat = abi.JoinCases(flats...)
	u.payloadOff = abi.AlignTo(u.discSize, u.align)
	u.size = abi.AlignTo(u.payloadOff+maxSize, u.align)
	return u
}

func (u *union) Flat() []api.ValueType { return u.flat }
func (u *union) Size() uint32          { return u.size }
func (u *union) Align() uint32         { return u.align }

// lowerCase writes the discriminant, zeroes the whole payload region, then
// lets lowerPayload fill the words its case uses.
func (u *union) lowerCase(disc uint32, dst []uint64, lowerPayload func([]uint64) error) error {
	if err := checkFlat(errors.PhaseLower, dst, len(u.flat)); err != nil {
		return err
	}
	dst[0] = uint64(disc)
	payload := dst[1:len(u.flat)]
	clear(payload)
	if lowerPayload == nil {
		return nil
	}
	return lowerPayload(payload)
}

// storeCase writes the discriminant and a zeroed payload region in one
// write, then stores the payload over it.
func (u *union) storeCase(o *Options, disc uint32, offset uint32, storePayload func(uint32) error) error {
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	head := make([]byte, u.size)
	putLE(head, u.discSize, uint64(disc))
	if err := mem.Write(offset, head); err != nil {
		return err
	}
	if storePayload == nil {
		return nil
	}
	return storePayload(offset + u.payloadOff)
}

func (u *union) liftCase(src []uint64) (uint32, []uint64, error) {
	if err := checkFlat(errors.PhaseLift, src, len(u.flat)); err != nil {
		return 0, nil, err
	}
	disc := uint32(src[0])
	if int64(disc) >= int64(u.cases) {
		return 0, nil, errors.InvalidDiscriminant(errors.PhaseLift, disc, u.cases)
	}
	return disc, src[1:len(u.flat)], nil
}

func (u *union) loadCase(b []byte) (uint32, []byte, error) {
	if err := checkBytes(b, u.size); err != nil {
		return 0, nil, err
	}
	disc := uint32(getLE(b, u.discSize))
	if int64(disc) >= int64(u.cases) {
		return 0, nil, errors.InvalidDiscriminant(errors.PhaseLift, disc, u.cases)
	}
	return disc, b[u.payloadOff:u.size], nil
}

// VariantCase is one case of a variant over the Go type V.
type VariantCase[V any] interface {
	caseName() string
	payload() ComponentType
	matches(v V) bool
	lower(o *Options, v V, dst []uint64) error
	store(o *Options, v V, offset uint32) error
	lift(o *Options, src []uint64) (V, error)
	load(o *Options, b []byte) (V, error)
}

// Case describes a variant case carrying a payload. match reports whether
// v is this case and extracts the payload; build wraps a lifted payload.
func Case[V, P any](name string, c Codec[P], match func(V) (P, bool), build func(P) V) VariantCase[V] {
	return &payloadCase[V, P]{name: name, c: c, match: match, build: build}
}

// Tag describes a variant case without payload.
func Tag[V any](name string, match func(V) bool, build func() V) VariantCase[V] {
	return &tagCase[V]{name: name, match: match, build: build}
}

type payloadCase[V, P any] struct {
	c     Codec[P]
	match func(V) (P, bool)
	build func(P) V
	name  string
}

func (c *payloadCase[V, P]) caseName() string       { return c.name }
func (c *payloadCase[V, P]) payload() ComponentType { return c.c }

func (c *payloadCase[V, P]) matches(v V) bool {
	_, ok := c.match(v)
	return ok
}

func (c *payloadCase[V, P]) lower(o *Options, v V, dst []uint64) error {
	p, _ := c.match(v)
	return c.c.Lower(o, p, dst)
}

func (c *payloadCase[V, P]) store(o *Options, v V, offset uint32) error {
	p, _ := c.match(v)
	return c.c.Store(o, p, offset)
}

func (c *payloadCase[V, P]) lift(o *Options, src []uint64) (V, error) {
	p, err := c.c.Lift(o, src)
	if err != nil {
		var zero V
		return zero, err
	}
	return c.build(p), nil
}

func (c *payloadCase[V, P]) load(o *Options, b []byte) (V, error) {
	p, err := c.c.Load(o, b[:c.c.Size()])
	if err != nil {
		var zero V
		return zero, err
	}
	return c.build(p), nil
}

type tagCase[V any] struct {
	match func(V) bool
	build func() V
	name  string
}

func (c *tagCase[V]) caseName() string                   { return c.name }
func (c *tagCase[V]) payload() ComponentType             { return nil }
func (c *tagCase[V]) matches(v V) bool                   { return c.match(v) }
func (c *tagCase[V]) lower(*Options, V, []uint64) error  { return nil }
func (c *tagCase[V]) store(*Options, V, uint32) error    { return nil }
func (c *tagCase[V]) lift(*Options, []uint64) (V, error) { return c.build(), nil }
func (c *tagCase[V]) load(*Options, []byte) (V, error)   { return c.build(), nil }

// Variant returns a codec for a variant with the given cases in declared
// order. Lowering picks the first case whose match accepts the value.
func Variant[V any](cases ...VariantCase[V]) Codec[V] {
	payloads := make([]ComponentType, len(cases))
	for i, c := range cases {
		payloads[i] = c.payload()
	}
	return &variantCodec[V]{union: newUnion(payloads), cases: cases}
}

type variantCodec[V any] struct {
	cases []VariantCase[V]
	union
}

func (c *variantCodec[V]) Typecheck(t wit.Type) error {
	mismatch := func(detail string, args ...any) error {
		return errors.New(errors.PhaseTypecheck, errors.KindTypeMismatch).
			GoType(abi.TypeName[V]()).
			WitType(types.Name(t)).
			Detail(detail, args...).
			Build()
	}
	v, ok := typeDefKind(t).(*wit.Variant)
	if !ok {
		return mismatch("expected variant")
	}
	if len(v.Cases) != len(c.cases) {
		return mismatch("variant has %d cases, codec has %d", len(v.Cases), len(c.cases))
	}
	for i, wc := range v.Cases {
		vc := c.cases[i]
		if wc.Name != vc.caseName() {
			return mismatch("case %d is %q, codec has %q", i, wc.Name, vc.caseName())
		}
		p := vc.payload()
		switch {
		case p == nil && wc.Type != nil:
			return mismatch("case %q has a payload, codec has none", wc.Name)
		case p != nil && wc.Type == nil:
			return mismatch("case %q has no payload, codec has one", wc.Name)
		case p != nil:
			if err := p.Typecheck(wc.Type); err != nil {
				return errors.At(err, wc.Name)
			}
		}
	}
	return nil
}

func (c *variantCodec[V]) pick(v V) (uint32, error) {
	for i, vc := range c.cases {
		if vc.matches(v) {
			return uint32(i), nil
		}
	}
	return 0, errors.New(errors.PhaseLower, errors.KindInvalidData).
		GoType(abi.TypeName[V]()).
		Detail("value matches no variant case").
		Build()
}

func (c *variantCodec[V]) Lower(o *Options, v V, dst []uint64) error {
	disc, err := c.pick(v)
	if err != nil {
		return err
	}
	vc := c.cases[disc]
	return c.lowerCase(disc, dst, func(p []uint64) error {
		return errors.At(vc.lower(o, v, p), vc.caseName())
	})
}

func (c *variantCodec[V]) Store(o *Options, v V, offset uint32) error {
	disc, err := c.pick(v)
	if err != nil {
		return err
	}
	vc := c.cases[disc]
	return c.storeCase(o, disc, offset, func(off uint32) error {
		return errors.At(vc.store(o, v, off), vc.caseName())
	})
}

func (c *variantCodec[V]) Lift(o *Options, src []uint64) (V, error) {
	disc, payload, err := c.liftCase(src)
	if err != nil {
		var zero V
		return zero, err
	}
	vc := c.cases[disc]
	v, err := vc.lift(o, payload)
	return v, errors.At(err, vc.caseName())
}

func (c *variantCodec[V]) Load(o *Options, b []byte) (V, error) {
	disc, payload, err := c.loadCase(b)
	if err != nil {
		var zero V
		return zero, err
	}
	vc := c.cases[disc]
	v, err := vc.load(o, payload)
	return v, errors.At(err, vc.caseName())
}

// Option returns a codec for option<T>, using nil for none.
func Option[T any](c Codec[T]) Codec[*T] {
	return &optionCodec[T]{union: newUnion([]ComponentType{nil, c}), c: c}
}

type optionCodec[T any] struct {
	c Codec[T]
	union
}

func (c *optionCodec[T]) Typecheck(t wit.Type) error {
	opt, ok := typeDefKind(t).(*wit.Option)
	if !ok {
		return errors.TypeMismatch(abi.TypeName[*T](), types.Name(t))
	}
	return errors.At(c.c.Typecheck(opt.Type), "some")
}

func (c *optionCodec[T]) Lower(o *Options, v *T, dst []uint64) error {
	if v == nil {
		return c.lowerCase(0, dst, nil)
	}
	return c.lowerCase(1, dst, func(p []uint64) error { return c.c.Lower(o, *v, p) })
}

func (c *optionCodec[T]) Store(o *Options, v *T, offset uint32) error {
	if v == nil {
		return c.storeCase(o, 0, offset, nil)
	}
	return c.storeCase(o, 1, offset, func(off uint32) error { return c.c.Store(o, *v, off) })
}

func (c *optionCodec[T]) Lift(o *Options, src []uint64) (*T, error) {
	disc, payload, err := c.liftCase(src)
	if err != nil || disc == 0 {
		return nil, err
	}
	v, err := c.c.Lift(o, payload)
	if err != nil {
		return nil, errors.At(err, "some")
	}
	return &v, nil
}

func (c *optionCodec[T]) Load(o *Options, b []byte) (*T, error) {
	disc, payload, err := c.loadCase(b)
	if err != nil || disc == 0 {
		return nil, err
	}
	v, err := c.c.Load(o, payload[:c.c.Size()])
	if err != nil {
		return nil, errors.At(err, "some")
	}
	return &v, nil
}

// Result is the Go form of result<T, E>.
type Result[T, E any] struct {
	OK    T
	Err   E
	IsErr bool
}

func Ok[T, E any](v T) Result[T, E] { return Result[T, E]{OK: v} }

func Err[T, E any](e E) Result[T, E] { return Result[T, E]{Err: e, IsErr: true} }

// ResultOf returns a codec for result<T, E>. Pass Unit for a side without
// payload.
func ResultOf[T, E any](ok Codec[T], err Codec[E]) Codec[Result[T, E]] {
	return &resultCodec[T, E]{union: newUnion([]ComponentType{ok, err}), ok: ok, err: err}
}

type resultCodec[T, E any] struct {
	ok  Codec[T]
	err Codec[E]
	union
}

func (c *resultCodec[T, E]) Typecheck(t wit.Type) error {
	r, ok := typeDefKind(t).(*wit.Result)
	if !ok {
		return errors.TypeMismatch(abi.TypeName[Result[T, E]](), types.Name(t))
	}
	if err := c.ok.Typecheck(r.OK); err != nil {
		return errors.At(err, "ok")
	}
	return errors.At(c.err.Typecheck(r.Err), "err")
}

func (c *resultCodec[T, E]) Lower(o *Options, v Result[T, E], dst []uint64) error {
	if v.IsErr {
		return c.lowerCase(1, dst, func(p []uint64) error { return errors.At(c.err.Lower(o, v.Err, p), "err") })
	}
	return c.lowerCase(0, dst, func(p []uint64) error { return errors.At(c.ok.Lower(o, v.OK, p), "ok") })
}

func (c *resultCodec[T, E]) Store(o *Options, v Result[T, E], offset uint32) error {
	if v.IsErr {
		return c.storeCase(o, 1, offset, func(off uint32) error { return errors.At(c.err.Store(o, v.Err, off), "err") })
	}
	return c.storeCase(o, 0, offset, func(off uint32) error { return errors.At(c.ok.Store(o, v.OK, off), "ok") })
}

func (c *resultCodec[T, E]) Lift(o *Options, src []uint64) (Result[T, E], error) {
	var r Result[T, E]
	disc, payload, err := c.liftCase(src)
	if err != nil {
		return r, err
	}
	if disc == 1 {
		r.IsErr = true
		r.Err, err = c.err.Lift(o, payload)
		return r, errors.At(err, "err")
	}
	r.OK, err = c.ok.Lift(o, payload)
	return r, errors.At(err, "ok")
}

func (c *resultCodec[T, E]) Load(o *Options, b []byte) (Result[T, E], error) {
	var r Result[T, E]
	disc, payload, err := c.loadCase(b)
	if err != nil {
		return r, err
	}
	if disc == 1 {
		r.IsErr = true
		r.Err, err = c.err.Load(o, payload[:c.err.Size()])
		return r, errors.At(err, "err")
	}
	r.OK, err = c.ok.Load(o, payload[:c.ok.Size()])
	return r, errors.At(err, "ok")
}

// Enum returns a codec for an enum with the given case names; the Go
// value is the case index.
func Enum(names ...string) Codec[uint32] {
	return &enumCodec{union: newUnion(make([]ComponentType, len(names))), names: names}
}

type enumCodec struct {
	names []string
	union
}

func (c *enumCodec) Typecheck(t wit.Type) error {
	e, ok := typeDefKind(t).(*wit.Enum)
	if !ok || len(e.Cases) != len(c.names) {
		return errors.TypeMismatch("enum", types.Name(t))
	}
	for i, ec := range e.Cases {
		if ec.Name != c.names[i] {
			return errors.New(errors.PhaseTypecheck, errors.KindTypeMismatch).
				WitType(types.Name(t)).
				Detail("case %d is %q, codec has %q", i, ec.Name, c.names[i]).
				Build()
		}
	}
	return nil
}

func (c *enumCodec) check(v uint32) error {
	if int64(v) >= int64(len(c.names)) {
		return errors.InvalidDiscriminant(errors.PhaseLower, v, len(c.names))
	}
	return nil
}

func (c *enumCodec) Lower(_ *Options, v uint32, dst []uint64) error {
	if err := c.check(v); err != nil {
		return err
	}
	return c.lowerCase(v, dst, nil)
}

func (c *enumCodec) Store(o *Options, v uint32, offset uint32) error {
	if err := c.check(v); err != nil {
		return err
	}
	return c.storeCase(o, v, offset, nil)
}

func (c *enumCodec) Lift(_ *Options, src []uint64) (uint32, error) {
	disc, _, err := c.liftCase(src)
	return disc, err
}

func (c *enumCodec) Load(_ *Options, b []byte) (uint32, error) {
	disc, _, err := c.loadCase(b)
	return disc, err
}

// Flags returns a codec for a flags type with up to 64 members; bit i of
// the Go value is member i. It panics on more than 64 names.
func Flags(names ...string) Codec[uint64] {
	if len(names) > 64 {
		panic("transcoder: more than 64 flags")
	}
	c := &flagsCodec{names: names, size: abi.FlagsSize(len(names)), flat: flatI32}
	if len(names) > 32 {
		c.flat = flatI64
	}
	if len(names) < 64 {
		c.mask = 1<<len(names) - 1
	} else {
		c.mask = ^uint64(0)
	}
	return c
}

type flagsCodec struct {
	names []string
	flat  []api.ValueType
	mask  uint64
	size  uint32
}

func (c *flagsCodec) Flat() []api.ValueType {
	if len(c.names) == 0 {
		return nil
	}
	return c.flat
}

func (c *flagsCodec) Size() uint32 { return c.size }

func (c *flagsCodec) Align() uint32 {
	if c.size == 0 {
		return 1
	}
	return c.size
}

func (c *flagsCodec) Typecheck(t wit.Type) error {
	f, ok := typeDefKind(t).(*wit.Flags)
	if !ok || len(f.Flags) != len(c.names) {
		return errors.TypeMismatch("flags", types.Name(t))
	}
	for i, fl := range f.Flags {
		if fl.Name != c.names[i] {
			return errors.New(errors.PhaseTypecheck, errors.KindTypeMismatch).
				WitType(types.Name(t)).
				Detail("flag %d is %q, codec has %q", i, fl.Name, c.names[i]).
				Build()
		}
	}
	return nil
}

func (c *flagsCodec) check(v uint64) error {
	if v&^c.mask != 0 {
		return errors.New(errors.PhaseLower, errors.KindInvalidData).
			Value(v).
			Detail("bits %#x name no flag", v&^c.mask).
			Build()
	}
	return nil
}

func (c *flagsCodec) Lower(_ *Options, v uint64, dst []uint64) error {
	if len(c.names) == 0 {
		return nil
	}
	if err := checkFlat(errors.PhaseLower, dst, 1); err != nil {
		return err
	}
	if err := c.check(v); err != nil {
		return err
	}
	dst[0] = v
	return nil
}

func (c *flagsCodec) Store(o *Options, v uint64, offset uint32) error {
	if c.size == 0 {
		return nil
	}
	if err := c.check(v); err != nil {
		return err
	}
	mem, err := o.mem(errors.PhaseLower)
	if err != nil {
		return err
	}
	buf := make([]byte, c.size)
	putLE(buf, c.size, v)
	return mem.Write(offset, buf)
}

// Lift and Load drop bits that name no flag.
func (c *flagsCodec) Lift(_ *Options, src []uint64) (uint64, error) {
	if len(c.names) == 0 {
		return 0, nil
	}
	if err := checkFlat(errors.PhaseLift, src, 1); err != nil {
		return 0, err
	}
	return src[0] & c.mask, nil
}

func (c *flagsCodec) Load(_ *Options, b []byte) (uint64, error) {
	if c.size == 0 {
		return 0, nil
	}
	if err := checkBytes(b, c.size); err != nil {
		return 0, err
	}
	return getLE(b, c.size) & c.mask, nil
}
