// Package transcoder converts between Go values and the canonical ABI.
//
// Every marshalable Go type has a codec. A codec classifies the type
// (ComponentType: flat core types, size, alignment, typecheck against a
// WIT descriptor) and converts values in one or both directions:
//
//	Lowerer[T]  Go → canonical ABI: Lower (flat words) and Store (memory)
//	Lifter[T]   canonical ABI → Go: Lift (flat words) and Load (memory)
//	Codec[T]    both
//
// Codecs compose: Record, Tuple2, Tuple3, Variant, Option, ResultOf, List
// and LazyList build codecs for composite types out of codecs for their
// parts, so the whole conversion is resolved statically from Go types.
//
// # Memory Layout
//
//	Type            Size    Alignment
//	──────────────────────────────────
//	bool            1       1
//	u8/s8           1       1
//	u16/s16         2       2
//	u32/s32/f32     4       4
//	u64/s64/f64     8       8
//	char            4       4
//	string          8       4 (ptr + len)
//	list<T>         8       4 (ptr + len)
//	record          sum     max field align
//	variant         varies  max(discriminant, case align)
//	flags           0/1/2/4/8
//
// # Flat Words
//
// A flat word is a uint64 holding the zero-extended bit pattern of an
// i32, i64, f32 or f64. Narrow integers sign- or zero-extend to 32 bits
// first. Because every word is fully defined, union payloads of different
// shapes share slots (the "join") without per-case conversion, and every
// slot a case leaves unused is zeroed.
//
// # Strings
//
// Strings are lowered into the encoding configured on Options: UTF-8,
// UTF-16 or compact (Latin-1 with a tagged UTF-16 fallback). Lifting
// validates the claimed range against the memory size before decoding.
// Str lifts into a *WasmStr that decodes on demand.
//
// # Lists
//
// List lifts eagerly. LazyList lifts into a *WasmList that keeps only the
// pointer, length and options, decoding an element on every Get.
//
// # Allocation
//
// Heap placement goes through Options.Realloc with C realloc semantics.
// An AllocationList on Options records placements so a failed call can
// release them.
package transcoder
