package transcoder

import (
	"github.com/wippyai/rewrite-abi/errors"
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
	"github.com/wippyai/rewrite-abi/transcoder/internal/layout"
	"github.com/wippyai/rewrite-abi/transcoder/internal/types"
	"go.bytecodealliance.org/wit"
)

// Typecheck checks c against t, then cross-checks c's flat shape and
// memory layout against what t's descriptor implies.
func Typecheck(c ComponentType, t wit.Type) error {
	if err := c.Typecheck(t); err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	info := layout.NewCalculator().Calculate(t)
	if info.Size != c.Size() || info.Align != c.Align() {
		return errors.New(errors.PhaseTypecheck, errors.KindTypeMismatch).
			WitType(types.Name(t)).
			Detail("layout size=%d align=%d, codec size=%d align=%d", info.Size, info.Align, c.Size(), c.Align()).
			Build()
	}
	flat := abi.Flatten(t)
	got := c.Flat()
	if len(flat) != len(got) {
		return errors.New(errors.PhaseTypecheck, errors.KindTypeMismatch).
			WitType(types.Name(t)).
			Detail("flattens to %d words, codec has %d", len(flat), len(got)).
			Build()
	}
	for i := range flat {
		if flat[i] != got[i] {
			return errors.New(errors.PhaseTypecheck, errors.KindTypeMismatch).
				WitType(types.Name(t)).
				Detail("flat word %d differs", i).
				Build()
		}
	}
	return nil
}

// expectKind is the shared primitive check: exact kind match after alias
// resolution.
func expectKind[T any](t wit.Type, want types.Kind) error {
	if got := types.Of(t); got != want {
		return errors.TypeMismatch(abi.TypeName[T](), types.Name(t))
	}
	return nil
}

// typeDefKind returns the structural kind of t after alias resolution.
func typeDefKind(t wit.Type) wit.TypeDefKind {
	td, ok := types.Resolve(t).(*wit.TypeDef)
	if !ok || td == nil {
		return nil
	}
	return td.Kind
}

func sequenceLayout(sizes, aligns []uint32) (offsets []uint32, size, align uint32) {
	offsets = make([]uint32, len(sizes))
	align = 1
	var off uint32
	for i := range sizes {
		off = abi.AlignTo(off, aligns[i])
		offsets[i] = off
		off += sizes[i]
		if aligns[i] > align {
			align = aligns[i]
		}
	}
	return offsets, abi.AlignTo(off, align), align
}
