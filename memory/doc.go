// Package memory provides linear memories and allocators for the
// canonical ABI codecs.
//
// # Wasm Memory
//
// Wrap adapts a wazero api.Memory:
//
//	mem := memory.Wrap(mod.ExportedMemory("memory"))
//
// FuncRealloc calls the guest's cabi_realloc export:
//
//	r := memory.FuncRealloc(ctx, mod.ExportedFunction("cabi_realloc"))
//
// # Host Memory
//
// Buffer is a fixed-size byte slice with the same access methods, and
// Bump is a bump allocator over it. Together they stand in for a guest
// when marshaling into plain Go memory or in tests.
package memory
