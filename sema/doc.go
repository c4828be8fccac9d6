// Package sema is the semantic analyzer of the rule language.
//
// Analysis runs over the declarations produced by package ast and builds
// two environments. TypeEnv interns names and resolves primitive and enum
// types. TermEnv registers every term (declared terms and one per enum
// variant), attaches constructors and extractors to them, and translates
// each rule into a typed pattern and expression tree, inserting implicit
// conversions and expanding extractor macros along the way.
//
// Errors do not stop analysis early. Each stage records what it finds and
// carries on with what it could resolve; the build only stops between
// stages whose successors would index into a broken environment. All
// errors found are returned together as Errors.
//
//	defs, err := ast.DecodeFile("rules.yaml")
//	if err != nil {
//		return err
//	}
//	tyenv, termenv, err := sema.Analyze(defs, sema.DefaultOptions())
//
// Backends consume translated rules through RuleVisitor, PatternVisitor and
// ExprVisitor; VisitRule fixes the order: root arguments, then if-lets,
// then the right-hand side.
package sema
