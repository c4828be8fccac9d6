// Package invoke calls core functions across the canonical ABI boundary
// with typed parameters and results.
//
// A Func binds a callee to a parameter lowerer and a result lifter. The
// call shape is fixed when the Func is built: parameters flattening to
// more than transcoder.MaxFlatParams words are stored in the callee's
// memory and passed by pointer, and results flattening to more than
// transcoder.MaxFlatResults words are returned by pointer.
//
//	inst, _ := invoke.NewInstance(mod, transcoder.UTF8)
//	greet, _ := invoke.Bind(inst, "greet", transcoder.String, transcoder.String)
//	msg, err := greet.Call(ctx, inst, "world")
//
// Calls into one Env are serialized; lowering and lifting never overlap
// with guest execution.
package invoke
