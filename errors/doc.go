// Package errors provides the structured failure type returned by the
// marshaling layer and the invocation glue.
//
// Every failure carries the Phase it happened in (typecheck, lower, lift,
// call) and a Kind describing the category. errors.Is matches on the
// (Phase, Kind) pair, so callers can test for a category without string
// matching:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseLift, Kind: errors.KindOutOfBounds}) {
//	    // the guest handed back a bad pointer
//	}
//
// None of these failures are recoverable by the marshaling layer; they
// propagate to the caller, which decides whether to trap the call.
package errors
