package sema

import (
	"go.uber.org/zap"

	"github.com/wippyai/rewrite-abi/sema/ast"
)

// Options controls the term environment build.
type Options struct {
	// ExpandInternalExtractors replaces uses of extractor macros by their
	// templates during translation. When false, such uses stay term
	// patterns and reach PatternVisitor.AddExtract.
	ExpandInternalExtractors bool
}

// DefaultOptions expands extractor macros.
func DefaultOptions() Options {
	return Options{ExpandInternalExtractors: true}
}

// Analyze type-checks defs and translates their rules. On failure it
// returns every error found as Errors and no environments.
func Analyze(defs []ast.Def, opts Options) (*TypeEnv, *TermEnv, error) {
	tyenv, err := TypeEnvFromAST(defs)
	if err != nil {
		Logger().Debug("type env failed", zap.Error(err))
		return nil, nil, err
	}
	termenv, err := TermEnvFromAST(tyenv, defs, opts)
	if err != nil {
		return nil, nil, err
	}
	Logger().Debug("analysis done",
		zap.Int("types", len(tyenv.Types)),
		zap.Int("terms", len(termenv.Terms)),
		zap.Int("rules", len(termenv.Rules)))
	return tyenv, termenv, nil
}
