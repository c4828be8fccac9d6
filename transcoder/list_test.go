package transcoder

import (
	"testing"

	"github.com/wippyai/rewrite-abi/errors"
	"go.bytecodealliance.org/wit"
)

// countingLifter counts element decodes. It hides any bulk hook of the
// wrapped codec so every element goes through Load.
type countingLifter[T any] struct {
	Codec[T]
	loads int
}

func (c *countingLifter[T]) Load(o *Options, b []byte) (T, error) {
	c.loads++
	return c.Codec.Load(o, b)
}

func lowerSlice[T any](t *testing.T, env *testEnv, c Codec[[]T], vs []T) []uint64 {
	t.Helper()
	dst := make([]uint64, 2)
	if err := c.Lower(env.opts, vs, dst); err != nil {
		t.Fatalf("lower: %v", err)
	}
	return dst
}

func TestList_RoundTrip(t *testing.T) {
	env := newTestEnv(t, UTF8)

	t.Run("u32", func(t *testing.T) {
		vs := []uint32{1, 2, 0xFFFFFFFF}
		f, m := roundTrip(t, env, List(U32), vs)
		if len(f) != 3 || len(m) != 3 || f[2] != vs[2] || m[2] != vs[2] {
			t.Errorf("flat=%v mem=%v", f, m)
		}
	})

	t.Run("strings", func(t *testing.T) {
		vs := []string{"a", "", "three"}
		f, m := roundTrip(t, env, List(String), vs)
		for i := range vs {
			if f[i] != vs[i] || m[i] != vs[i] {
				t.Errorf("[%d] flat=%q mem=%q", i, f[i], m[i])
			}
		}
	})

	t.Run("nested", func(t *testing.T) {
		vs := [][]uint8{{1}, {}, {2, 3}}
		f, _ := roundTrip(t, env, List(List(U8)), vs)
		if len(f) != 3 || len(f[1]) != 0 || f[2][1] != 3 {
			t.Errorf("flat=%v", f)
		}
	})

	t.Run("empty", func(t *testing.T) {
		f, m := roundTrip(t, env, List(U64), nil)
		if len(f) != 0 || len(m) != 0 {
			t.Errorf("flat=%v mem=%v", f, m)
		}
	})
}

func TestList_Layout(t *testing.T) {
	env := newTestEnv(t, UTF8)
	dst := lowerSlice(t, env, List(U16), []uint16{0x0102, 0x0304})
	ptr, n := uint32(dst[0]), uint32(dst[1])
	if n != 2 || ptr%2 != 0 {
		t.Fatalf("ptr=%d n=%d", ptr, n)
	}
	b, _ := env.buf.Read(ptr, 4)
	if b[0] != 0x02 || b[1] != 0x01 || b[2] != 0x04 || b[3] != 0x03 {
		t.Errorf("bytes = % x", b)
	}
	if env.bump.Calls != 1 {
		t.Errorf("realloc calls = %d, want one exact allocation", env.bump.Calls)
	}
}

func TestLazyList(t *testing.T) {
	env := newTestEnv(t, UTF8)
	dst := lowerSlice(t, env, List(U32), []uint32{10, 20, 30})

	elem := &countingLifter[uint32]{Codec: U32}
	l, err := LazyList[uint32](elem).Lift(env.opts, dst)
	if err != nil {
		t.Fatal(err)
	}
	if elem.loads != 0 {
		t.Fatalf("lift decoded %d elements", elem.loads)
	}
	if l.Len() != 3 {
		t.Errorf("len = %d", l.Len())
	}

	v, err := l.Get(1)
	if err != nil || v != 20 {
		t.Errorf("Get(1) = %d, %v", v, err)
	}
	if elem.loads != 1 {
		t.Errorf("loads = %d, want 1", elem.loads)
	}
	if _, err := l.Get(1); err != nil {
		t.Fatal(err)
	}
	if elem.loads != 2 {
		t.Errorf("loads = %d, want a fresh decode per Get", elem.loads)
	}

	var sum uint32
	for _, v := range l.All() {
		sum += v
	}
	if sum != 60 {
		t.Errorf("sum = %d", sum)
	}

	_, err = l.Get(3)
	wantErr(t, err, errors.PhaseLift, errors.KindOutOfBounds)
	_, err = l.Get(-1)
	wantErr(t, err, errors.PhaseLift, errors.KindOutOfBounds)

	all, err := l.Slice()
	if err != nil || len(all) != 3 || all[0] != 10 {
		t.Errorf("Slice = %v, %v", all, err)
	}
}

func TestLazyList_BoundsCheckedAtLift(t *testing.T) {
	env := newTestEnv(t, UTF8)
	elem := &countingLifter[uint64]{Codec: U64}

	_, err := LazyList[uint64](elem).Lift(env.opts, []uint64{65528, 2})
	wantErr(t, err, errors.PhaseLift, errors.KindOutOfBounds)

	_, err = LazyList[uint64](elem).Lift(env.opts, []uint64{4, 1})
	wantErr(t, err, errors.PhaseLift, errors.KindMisaligned)

	_, err = LazyList[uint64](elem).Lift(env.opts, []uint64{8, 0x40000000})
	wantErr(t, err, errors.PhaseLift, errors.KindOverflow)

	if elem.loads != 0 {
		t.Errorf("rejected lists decoded %d elements", elem.loads)
	}
}

func TestList_ElementErrorPath(t *testing.T) {
	env := newTestEnv(t, UTF8)
	_ = env.buf.WriteU32(16, 0xD800)
	_, err := List(Char).Lift(env.opts, []uint64{16, 1})
	wantErr(t, err, errors.PhaseLift, errors.KindInvalidChar)

	l, err := LazyList[rune](Char).Lift(env.opts, []uint64{16, 1})
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.Get(0)
	var e *errors.Error
	if !asError(err, &e) || len(e.Path) == 0 || e.Path[0] != "element" {
		t.Errorf("expected element path, got %v", err)
	}
}

func TestList_Typecheck(t *testing.T) {
	list := &wit.TypeDef{Kind: &wit.List{Type: wit.String{}}}
	if err := Typecheck(List(String), list); err != nil {
		t.Errorf("list<string>: %v", err)
	}
	if err := Typecheck(LazyList[*WasmStr](Str), list); err != nil {
		t.Errorf("lazy list<string>: %v", err)
	}
	err := List(U8).Typecheck(list)
	wantErr(t, err, errors.PhaseTypecheck, errors.KindTypeMismatch)
	err = List(U8).Typecheck(wit.String{})
	wantErr(t, err, errors.PhaseTypecheck, errors.KindTypeMismatch)
}
