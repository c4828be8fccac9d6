// Package abi provides the low-level arithmetic of the canonical ABI.
//
// # Contents
//
//   - helpers.go: overflow-checked sizes, alignment, NaN canonicalization, char validation
//   - flatten.go: core value type flattening of WIT descriptors and the payload join
//
// This package is internal to the transcoder.
package abi
