package invoke

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	rewriteabi "github.com/wippyai/rewrite-abi"
	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/memory"
	"github.com/wippyai/rewrite-abi/transcoder"
)

// Export names defined by the canonical ABI.
const (
	MemoryExport     = "memory"
	ReallocExport    = "cabi_realloc"
	PostReturnPrefix = "cabi_post_"
)

// Instance is an Env over an instantiated wazero module.
type Instance struct {
	mod     api.Module
	mem     rewriteabi.Memory
	realloc api.Function
	enc     transcoder.StringEncoding
	mu      sync.Mutex
}

// NewInstance requires the module to export its memory. cabi_realloc is
// optional; without it only values that need no allocation can be lowered.
func NewInstance(mod api.Module, enc transcoder.StringEncoding) (*Instance, error) {
	mem := mod.ExportedMemory(MemoryExport)
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseCall, "memory export", MemoryExport)
	}
	return &Instance{
		mod:     mod,
		mem:     memory.Wrap(mem),
		realloc: mod.ExportedFunction(ReallocExport),
		enc:     enc,
	}, nil
}

func (i *Instance) Lock()   { i.mu.Lock() }
func (i *Instance) Unlock() { i.mu.Unlock() }

// Options returns fresh canonical options whose realloc calls run under ctx.
func (i *Instance) Options(ctx context.Context) *transcoder.Options {
	return &transcoder.Options{
		Memory:   i.mem,
		Realloc:  memory.FuncRealloc(ctx, i.realloc),
		Encoding: i.enc,
	}
}

// Export returns the named function export.
func (i *Instance) Export(name string) (Callee, error) {
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseCall, "function export", name)
	}
	return fn, nil
}

// PostReturn returns the post-return function for the named export, or
// nil if the module has none.
func (i *Instance) PostReturn(name string) Callee {
	fn := i.mod.ExportedFunction(PostReturnPrefix + name)
	if fn == nil {
		return nil
	}
	return fn
}

// Bind looks up the named export and its post-return function.
func Bind[P, R any](inst *Instance, name string, params transcoder.Lowerer[P], results transcoder.Lifter[R]) (*Func[P, R], error) {
	callee, err := inst.Export(name)
	if err != nil {
		return nil, err
	}
	f := New(name, callee, params, results)
	if post := inst.PostReturn(name); post != nil {
		f.WithPostReturn(post)
	}
	return f, nil
}
