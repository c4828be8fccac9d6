package transcoder

import (
	"testing"

	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/memory"
)

// testEnv is one page of host memory with a bump allocator.
type testEnv struct {
	buf  *memory.Buffer
	bump *memory.Bump
	opts *Options
}

func newTestEnv(t *testing.T, enc StringEncoding) *testEnv {
	t.Helper()
	buf := memory.NewBuffer(65536)
	bump := memory.NewBump(buf)
	return &testEnv{
		buf:  buf,
		bump: bump,
		opts: &Options{Memory: buf, Realloc: bump, Encoding: enc},
	}
}

// roundTrip lowers and lifts v through both the flat and the memory form.
func roundTrip[T any](t *testing.T, env *testEnv, c Codec[T], v T) (flat, mem T) {
	t.Helper()

	dst := make([]uint64, FlatCount(c))
	if err := c.Lower(env.opts, v, dst); err != nil {
		t.Fatalf("lower: %v", err)
	}
	flat, err := c.Lift(env.opts, dst)
	if err != nil {
		t.Fatalf("lift: %v", err)
	}

	ptr, err := env.bump.Realloc(0, 0, c.Align(), max(c.Size(), 1))
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if err := c.Store(env.opts, v, ptr); err != nil {
		t.Fatalf("store: %v", err)
	}
	b, err := env.buf.Read(ptr, c.Size())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	mem, err = c.Load(env.opts, b)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return flat, mem
}

func wantErr(t *testing.T, err error, phase errors.Phase, kind errors.Kind) {
	t.Helper()
	if !errors.Has(err, phase, kind) {
		t.Fatalf("expected %s/%s error, got %v", phase, kind, err)
	}
}

func asError(err error, target **errors.Error) bool {
	e, ok := err.(*errors.Error)
	if ok {
		*target = e
	}
	return ok
}
