package transcoder

import (
	"testing"

	"github.com/wippyai/rewrite-abi/errors"
)

func TestAllocationList(t *testing.T) {
	env := newTestEnv(t, CompactUTF16)
	al := NewAllocationList()
	defer al.Release()
	env.opts.Allocations = al

	dst := make([]uint64, 2)
	if err := List(String).Lower(env.opts, []string{"one", "twö", "三"}, dst); err != nil {
		t.Fatal(err)
	}
	// The list block plus one block per string; moves and shrinks update
	// entries instead of adding new ones.
	if al.Count() != 4 {
		t.Fatalf("count = %d, want 4", al.Count())
	}
	for _, a := range al.All() {
		if a.Ptr == 0 {
			t.Errorf("recorded a null block: %+v", a)
		}
	}

	al.Free(env.bump)
	if env.bump.Frees != 4 {
		t.Errorf("frees = %d, want 4", env.bump.Frees)
	}
}

type badRealloc struct{ ptr uint32 }

func (r badRealloc) Realloc(_, _, _, _ uint32) (uint32, error) { return r.ptr, nil }

func TestOptions_ReallocValidation(t *testing.T) {
	env := newTestEnv(t, UTF16)
	dst := make([]uint64, 2)

	env.opts.Realloc = badRealloc{ptr: 3}
	wantErr(t, String.Lower(env.opts, "ab", dst), errors.PhaseLower, errors.KindMisaligned)

	env.opts.Realloc = badRealloc{ptr: 65534}
	wantErr(t, String.Lower(env.opts, "abcd", dst), errors.PhaseLower, errors.KindOutOfBounds)
}

func TestFlatPool(t *testing.T) {
	buf := GetFlat(4)
	(*buf)[2] = 99
	PutFlat(buf)

	again := GetFlat(4)
	defer PutFlat(again)
	for i, w := range *again {
		if w != 0 {
			t.Errorf("word %d = %d, want zeroed buffer", i, w)
		}
	}
}

func TestPlaceAndLoadAt(t *testing.T) {
	env := newTestEnv(t, UTF8)
	c := Tuple2(U16, String)
	v := Pair[uint16, string]{First: 3, Second: "placed"}

	ptr, err := Place(env.opts, c, v)
	if err != nil {
		t.Fatal(err)
	}
	if ptr%c.Align() != 0 {
		t.Errorf("ptr %d not aligned to %d", ptr, c.Align())
	}
	got, err := LoadAt(env.opts, c, ptr)
	if err != nil || got != v {
		t.Errorf("LoadAt = %+v, %v", got, err)
	}

	_, err = LoadAt(env.opts, c, ptr+1)
	wantErr(t, err, errors.PhaseLift, errors.KindMisaligned)
	_, err = LoadAt(env.opts, c, 65532)
	wantErr(t, err, errors.PhaseLift, errors.KindOutOfBounds)
}
