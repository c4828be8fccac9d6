// Package types classifies WIT type descriptors by kind.
//
// Codecs compare their own Kind against the Kind of the descriptor they
// are checked against; aliases (a TypeDef whose Kind is itself a type)
// are resolved first so that a named u32 checks like a bare u32.
//
// This package is internal to the transcoder.
package types
