// Package layout computes canonical ABI size and alignment for WIT type
// descriptors.
//
// # Layout Rules
//
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records and tuples: fields laid out sequentially with padding for alignment
//   - Variants: discriminant, then the payload at the largest case alignment
//   - Lists/Strings: (pointer, length) pair in memory, content elsewhere
//
// Codecs describe their own layout; the transcoder checks it against this
// calculator when a codec is typechecked against a descriptor.
//
// This package is internal to the transcoder.
package layout
