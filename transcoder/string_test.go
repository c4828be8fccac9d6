package transcoder

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
)

func lowerFlat(t *testing.T, env *testEnv, v string) (ptr, n uint32) {
	t.Helper()
	dst := make([]uint64, 2)
	if err := String.Lower(env.opts, v, dst); err != nil {
		t.Fatalf("lower %q: %v", v, err)
	}
	return uint32(dst[0]), uint32(dst[1])
}

func TestString_RoundTrip(t *testing.T) {
	inputs := []string{"", "hello", "café", "hello 世界", "emoji 😀 pair", strings.Repeat("x", 1000)}
	for _, enc := range []StringEncoding{UTF8, UTF16, CompactUTF16} {
		t.Run(enc.String(), func(t *testing.T) {
			env := newTestEnv(t, enc)
			for _, s := range inputs {
				if f, m := roundTrip(t, env, String, s); f != s || m != s {
					t.Errorf("%q: flat=%q mem=%q", s, f, m)
				}
			}
		})
	}
}

func TestString_UTF8Layout(t *testing.T) {
	env := newTestEnv(t, UTF8)
	ptr, n := lowerFlat(t, env, "héllo")
	if n != 6 {
		t.Errorf("length = %d, want 6 bytes", n)
	}
	b, _ := env.buf.Read(ptr, n)
	if string(b) != "héllo" {
		t.Errorf("bytes = %q", b)
	}
	if env.bump.Calls != 1 {
		t.Errorf("realloc calls = %d, want one exact allocation", env.bump.Calls)
	}
}

func TestString_UTF16Layout(t *testing.T) {
	env := newTestEnv(t, UTF16)
	ptr, n := lowerFlat(t, env, "a😀")
	if n != 3 {
		t.Errorf("length = %d, want 3 code units", n)
	}
	if ptr%2 != 0 {
		t.Errorf("ptr %d not 2-aligned", ptr)
	}
	b, _ := env.buf.Read(ptr, 6)
	want := []byte{'a', 0, 0x3D, 0xD8, 0x00, 0xDE}
	if !bytes.Equal(b, want) {
		t.Errorf("bytes = % x, want % x", b, want)
	}
	// Worst case is 2 bytes per source byte (10), then a shrink to 6.
	if env.bump.Calls != 2 {
		t.Errorf("realloc calls = %d, want allocation plus shrink", env.bump.Calls)
	}
}

func TestString_CompactLatin1(t *testing.T) {
	env := newTestEnv(t, CompactUTF16)
	ptr, n := lowerFlat(t, env, "café")
	if n&abi.UTF16Tag != 0 {
		t.Fatalf("latin-1 string tagged as utf16: %#x", n)
	}
	if n != 4 {
		t.Errorf("length = %d, want 4 bytes", n)
	}
	b, _ := env.buf.Read(ptr, n)
	if !bytes.Equal(b, []byte{'c', 'a', 'f', 0xE9}) {
		t.Errorf("bytes = % x", b)
	}
}

func TestString_CompactFallback(t *testing.T) {
	env := newTestEnv(t, CompactUTF16)
	// Four Latin-1 scalars are written before the first wide one forces
	// the switch, so the prefix has to be widened.
	s := "abcé世"
	ptr, n := lowerFlat(t, env, s)
	if n&abi.UTF16Tag == 0 {
		t.Fatalf("length %#x lacks the utf16 tag", n)
	}
	units := n &^ abi.UTF16Tag
	if units != 5 {
		t.Errorf("units = %d, want 5", units)
	}
	b, _ := env.buf.Read(ptr, units*2)
	want := []byte{'a', 0, 'b', 0, 'c', 0, 0xE9, 0, 0x16, 0x4E}
	if !bytes.Equal(b, want) {
		t.Errorf("bytes = % x, want % x", b, want)
	}

	got, err := String.Lift(env.opts, []uint64{uint64(ptr), uint64(n)})
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Errorf("lifted %q, want %q", got, s)
	}
}

func TestString_CompactWidening(t *testing.T) {
	tests := []struct {
		s    string
		want []byte
	}{
		{"éàü€x", []byte{0xE9, 0, 0xE0, 0, 0xFC, 0, 0xAC, 0x20, 'x', 0}},
		{"aé😀", []byte{'a', 0, 0xE9, 0, 0x3D, 0xD8, 0x00, 0xDE}},
		{"€", []byte{0xAC, 0x20}},
	}
	for _, tc := range tests {
		t.Run(tc.s, func(t *testing.T) {
			env := newTestEnv(t, CompactUTF16)
			ptr, n := lowerFlat(t, env, tc.s)
			if n&abi.UTF16Tag == 0 {
				t.Fatalf("length %#x lacks the utf16 tag", n)
			}
			units := n &^ abi.UTF16Tag
			b, _ := env.buf.Read(ptr, units*2)
			if !bytes.Equal(b, tc.want) {
				t.Errorf("bytes = % x, want % x", b, tc.want)
			}
			if f, m := roundTrip(t, env, String, tc.s); f != tc.s || m != tc.s {
				t.Errorf("flat=%q mem=%q", f, m)
			}
		})
	}
}

func TestString_CompactFallbackFirstRune(t *testing.T) {
	env := newTestEnv(t, CompactUTF16)
	ptr, n := lowerFlat(t, env, "世a")
	if n != 2|abi.UTF16Tag {
		t.Fatalf("length = %#x", n)
	}
	b, _ := env.buf.Read(ptr, 4)
	if !bytes.Equal(b, []byte{0x16, 0x4E, 'a', 0}) {
		t.Errorf("bytes = % x", b)
	}
}

func TestString_LowerErrors(t *testing.T) {
	env := newTestEnv(t, UTF8)
	dst := make([]uint64, 2)

	wantErr(t, String.Lower(env.opts, "bad\xff", dst), errors.PhaseLower, errors.KindInvalidUTF8)
	if env.bump.Calls != 0 {
		t.Errorf("invalid input reached the allocator")
	}

	noAlloc := &Options{Memory: env.buf}
	wantErr(t, String.Lower(noAlloc, "x", dst), errors.PhaseLower, errors.KindUnsupported)
}

func TestString_LiftBounds(t *testing.T) {
	env := newTestEnv(t, UTF8)

	_, err := String.Lift(env.opts, []uint64{65530, 100})
	wantErr(t, err, errors.PhaseLift, errors.KindOutOfBounds)

	_, err = String.Lift(env.opts, []uint64{0xFFFFFFF0, 0x20})
	wantErr(t, err, errors.PhaseLift, errors.KindOverflow)

	utf16 := newTestEnv(t, UTF16)
	_, err = String.Lift(utf16.opts, []uint64{1, 2})
	wantErr(t, err, errors.PhaseLift, errors.KindMisaligned)

	// A tagged length doubles the byte range; the check uses the doubled size.
	compact := newTestEnv(t, CompactUTF16)
	_, err = String.Lift(compact.opts, []uint64{65520, 10 | abi.UTF16Tag})
	wantErr(t, err, errors.PhaseLift, errors.KindOutOfBounds)
}

func TestString_LiftInvalidData(t *testing.T) {
	env := newTestEnv(t, UTF8)
	_ = env.buf.Write(16, []byte{0xC3, 0x28})
	_, err := String.Lift(env.opts, []uint64{16, 2})
	wantErr(t, err, errors.PhaseLift, errors.KindInvalidUTF8)

	utf16 := newTestEnv(t, UTF16)
	_ = utf16.buf.Write(16, []byte{'a', 0, 0x00, 0xD8}) // unpaired high surrogate
	_, err = String.Lift(utf16.opts, []uint64{16, 2})
	wantErr(t, err, errors.PhaseLift, errors.KindInvalidUTF16)

	_ = utf16.buf.Write(32, []byte{0x00, 0xDC, 'a', 0}) // stray low surrogate
	_, err = String.Lift(utf16.opts, []uint64{32, 2})
	wantErr(t, err, errors.PhaseLift, errors.KindInvalidUTF16)
}

func TestStr_Lazy(t *testing.T) {
	env := newTestEnv(t, UTF16)
	ptr, n := lowerFlat(t, env, "lazy")

	s, err := Str.Lift(env.opts, []uint64{uint64(ptr), uint64(n)})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 4 || s.Encoding() != UTF16 {
		t.Errorf("len=%d enc=%s", s.Len(), s.Encoding())
	}

	// Decoding reads memory at call time.
	_ = env.buf.Write(ptr, []byte{'L', 0})
	if got, _ := s.ToString(); got != "Lazy" {
		t.Errorf("ToString = %q", got)
	}
	if s.String() != "Lazy" {
		t.Errorf("String = %q", s.String())
	}
}
