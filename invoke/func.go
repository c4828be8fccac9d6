package invoke

import (
	"context"
	"sync"

	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder"
	"go.uber.org/zap"
)

// Callee is a core function. api.Function satisfies it.
type Callee interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// CalleeFunc adapts a Go function to Callee.
type CalleeFunc func(ctx context.Context, params ...uint64) ([]uint64, error)

func (f CalleeFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f(ctx, params...)
}

// Env is the callee's side of the boundary: the canonical options for one
// call, and a lock serializing calls into its memory.
type Env interface {
	sync.Locker
	Options(ctx context.Context) *transcoder.Options
}

// Shape is the call shape chosen for a function.
type Shape struct {
	Params      int  // flat parameter words
	Results     int  // flat result words
	HeapParams  bool // parameters passed by pointer
	HeapResults bool // results returned by pointer
}

func (s Shape) String() string {
	return shapeName(s.HeapParams) + "/" + shapeName(s.HeapResults)
}

func shapeName(heap bool) string {
	if heap {
		return "heap"
	}
	return "flat"
}

// ShapeOf picks the call shape for the given parameter and result types.
func ShapeOf(params, results transcoder.ComponentType) Shape {
	s := Shape{Params: transcoder.FlatCount(params), Results: transcoder.FlatCount(results)}
	s.HeapParams = s.Params > transcoder.MaxFlatParams
	s.HeapResults = s.Results > transcoder.MaxFlatResults
	return s
}

// Func is a typed core function.
type Func[P, R any] struct {
	callee     Callee
	postReturn Callee
	params     transcoder.Lowerer[P]
	results    transcoder.Lifter[R]
	name       string
	shape      Shape
}

// New binds callee to the given parameter and result codecs. Use
// transcoder.Unit for a function without parameters or results.
func New[P, R any](name string, callee Callee, params transcoder.Lowerer[P], results transcoder.Lifter[R]) *Func[P, R] {
	f := &Func[P, R]{
		name:    name,
		callee:  callee,
		params:  params,
		results: results,
		shape:   ShapeOf(params, results),
	}
	Logger().Debug("bound function",
		zap.String("name", name),
		zap.Stringer("shape", f.shape),
		zap.Int("param_words", f.shape.Params),
		zap.Int("result_words", f.shape.Results))
	return f
}

// WithPostReturn sets the function called with the raw results once they
// have been lifted, typically a cabi_post export releasing them.
func (f *Func[P, R]) WithPostReturn(c Callee) *Func[P, R] {
	f.postReturn = c
	return f
}

func (f *Func[P, R]) Name() string { return f.name }

func (f *Func[P, R]) Shape() Shape { return f.shape }

// Call lowers p into env, calls the function and lifts its results.
//
// Placements made while lowering are released if lowering fails. Once the
// callee runs they belong to it. Lifted results must not hold references
// into memory a post-return function frees: lift lazy types with their
// eager counterparts here.
func (f *Func[P, R]) Call(ctx context.Context, env Env, p P) (R, error) {
	var zero R

	env.Lock()
	defer env.Unlock()

	o := env.Options(ctx)
	al := transcoder.NewAllocationList()
	defer al.Release()
	o.Allocations = al

	args, release, err := f.lowerParams(o, p)
	if err != nil {
		if errors.Has(err, errors.PhaseLower, errors.KindAllocation) {
			Logger().Warn("allocation failed", zap.String("name", f.name), zap.Error(err))
		}
		al.Free(o.Realloc)
		return zero, err
	}
	res, err := f.callee.Call(ctx, args...)
	release()
	if err != nil {
		return zero, errors.Wrap(errors.PhaseCall, errors.KindTrap, err, "call "+f.name)
	}

	v, err := f.liftResults(o, res)
	if err != nil {
		return zero, err
	}

	if f.postReturn != nil {
		if _, err := f.postReturn.Call(ctx, res...); err != nil {
			return zero, errors.Wrap(errors.PhaseCall, errors.KindTrap, err, "post-return "+f.name)
		}
	}
	return v, nil
}

// lowerParams returns the argument words and a function returning any
// pooled buffer once the callee is done with them.
func (f *Func[P, R]) lowerParams(o *transcoder.Options, p P) ([]uint64, func(), error) {
	if f.shape.HeapParams {
		ptr, err := transcoder.Place(o, f.params, p)
		if err != nil {
			return nil, nil, err
		}
		return []uint64{uint64(ptr)}, func() {}, nil
	}
	buf := transcoder.GetFlat(f.shape.Params)
	if err := f.params.Lower(o, p, *buf); err != nil {
		transcoder.PutFlat(buf)
		return nil, nil, err
	}
	return *buf, func() { transcoder.PutFlat(buf) }, nil
}

func (f *Func[P, R]) liftResults(o *transcoder.Options, res []uint64) (R, error) {
	if f.shape.HeapResults {
		if len(res) < 1 {
			var zero R
			return zero, errors.Arity(errors.PhaseLift, len(res), 1)
		}
		return transcoder.LoadAt(o, f.results, uint32(res[0]))
	}
	if len(res) < f.shape.Results {
		var zero R
		return zero, errors.Arity(errors.PhaseLift, len(res), f.shape.Results)
	}
	return f.results.Lift(o, res)
}
