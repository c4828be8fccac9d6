// Package rewriteabi holds the semantic core of a rule-rewriting language
// together with a canonical ABI marshaling layer.
//
// # Architecture Overview
//
//	rewriteabi/          Root package with the Memory and Realloc contracts
//	├── sema/            Type and term environments, rule translation, visitors
//	│   └── ast/         Input declarations and their YAML form
//	├── ir/              Linear instruction lowering driven by the visitors
//	├── transcoder/      Lower/Lift/Store/Load between Go values and the canonical ABI
//	├── memory/          Linear memory and realloc adapters (wazero, host buffers)
//	├── invoke/          Typed function glue choosing flat or heap call shapes
//	├── errors/          Structured marshaling errors
//	├── internal/config/ rulec.toml loading
//	└── cmd/rulec/       Command line front end for the analyzer
//
// # Analysis
//
// Analysis is a batch computation:
//
//	defs, err := ast.DecodeFile("rules.yaml")
//	tyenv, termenv, err := sema.Analyze(defs, sema.DefaultOptions())
//	prog := ir.Lower(tyenv, termenv)
//
// A non-nil error is a sema.Errors list holding every independent
// diagnostic found in the run.
//
// # Marshaling
//
// Every marshalable Go type has a codec describing its flat core types,
// canonical size and alignment:
//
//	pair := transcoder.Tuple2(transcoder.U32, transcoder.String)
//	flat := make([]uint64, transcoder.FlatCount(pair))
//	err := pair.Lower(opts, transcoder.Pair[uint32, string]{First: 7, Second: "hi"}, flat)
//
// # Thread Safety
//
// Environments are owned by one analysis and are not shared. Codecs are
// immutable and safe for concurrent use, but a linear memory must be
// accessed by one lower or lift pass at a time; invoke.Instance serializes
// calls for that reason.
package rewriteabi
