package sema

import "fmt"

// PatternVisitor receives the matching steps of a pattern. P identifies a
// value chosen by the visitor.
type PatternVisitor[P any] interface {
	// AddMatchEqual requires a and b to be equal values of type ty.
	AddMatchEqual(a, b P, ty TypeID)
	AddMatchInt(input P, ty TypeID, val int64)
	AddMatchPrim(input P, ty TypeID, val Sym)
	// AddMatchVariant requires input to be variant and returns one value
	// per field.
	AddMatchVariant(input P, inputTy TypeID, argTys []TypeID, variant VariantID) []P
	// AddExtract runs the extractor of term on input and returns one value
	// per output type.
	AddExtract(input P, inputTy TypeID, outputTys []TypeID, term TermID, infallible, multi bool) []P
}

// ExprInput is an argument of a construction step.
type ExprInput[E any] struct {
	Value E
	Type  TypeID
}

// ExprVisitor receives the construction steps of an expression. E
// identifies a value chosen by the visitor.
type ExprVisitor[E any] interface {
	AddConstInt(ty TypeID, val int64) E
	AddConstPrim(ty TypeID, val Sym) E
	AddCreateVariant(inputs []ExprInput[E], ty TypeID, variant VariantID) E
	AddConstruct(inputs []ExprInput[E], ty TypeID, term TermID, pure, infallible, multi bool) E
}

// VisitedExpr is a visited expression with its type.
type VisitedExpr[E any] struct {
	Type  TypeID
	Value E
}

// RuleVisitor composes a pattern visitor and an expression visitor for one
// rule. X is the visitor's representation of a finished expression.
type RuleVisitor[P, E, X any] interface {
	// AddArg returns the value of the root term's argument at index.
	AddArg(index int, ty TypeID) P
	AddPattern(func(PatternVisitor[P]))
	AddExpr(func(ExprVisitor[E]) VisitedExpr[E]) X
	ExprAsPattern(X) P
	PatternAsExpr(P) E
}

// VisitPattern drives v over p, matching the value input. vars collects
// the value bound to each variable; variables must be bound before they
// are referenced.
func VisitPattern[P any](p Pattern, v PatternVisitor[P], input P, env *TermEnv, vars map[VarID]P) {
	switch p := p.(type) {
	case *BindPattern:
		if _, dup := vars[p.Var]; dup {
			panic(fmt.Sprintf("variable %d bound twice", p.Var))
		}
		vars[p.Var] = input
		VisitPattern(p.Subpat, v, input, env, vars)
	case *VarPattern:
		bound, ok := vars[p.Var]
		if !ok {
			panic(fmt.Sprintf("variable %d used before it is bound", p.Var))
		}
		v.AddMatchEqual(input, bound, p.Type)
	case *ConstIntPattern:
		v.AddMatchInt(input, p.Type, p.Val)
	case *ConstPrimPattern:
		v.AddMatchPrim(input, p.Type, p.Val)
	case *TermPattern:
		term := &env.Terms[p.Term]
		var outs []P
		switch k := term.Kind.(type) {
		case *EnumVariant:
			outs = v.AddMatchVariant(input, p.Type, term.ArgTys, k.Variant)
		case *Decl:
			tys := make([]TypeID, len(p.Args))
			for i, a := range p.Args {
				tys[i] = a.Ty()
			}
			switch x := k.Extractor.(type) {
			case *ExternalExtractor:
				outs = v.AddExtract(input, term.RetTy, tys, p.Term, x.Infallible && !k.Flags.Multi, k.Flags.Multi)
			case *InternalExtractor:
				// Only reached when macros are left for the backend.
				outs = v.AddExtract(input, term.RetTy, tys, p.Term, false, k.Flags.Multi)
			default:
				panic(fmt.Sprintf("term %d matched without an extractor", p.Term))
			}
		}
		if len(outs) != len(p.Args) {
			panic(fmt.Sprintf("term %d: visitor returned %d values for %d arguments", p.Term, len(outs), len(p.Args)))
		}
		for i, a := range p.Args {
			VisitPattern(a, v, outs[i], env, vars)
		}
	case *AndPattern:
		for _, s := range p.Subpats {
			VisitPattern(s, v, input, env, vars)
		}
	case *WildcardPattern:
	}
}

// VisitExpr drives v over x and returns the visitor's value for it. Let
// bindings extend a copy of vars.
func VisitExpr[E any](x Expr, v ExprVisitor[E], env *TermEnv, vars map[VarID]E) E {
	switch x := x.(type) {
	case *ConstIntExpr:
		return v.AddConstInt(x.Type, x.Val)
	case *ConstPrimExpr:
		return v.AddConstPrim(x.Type, x.Val)
	case *LetExpr:
		scope := make(map[VarID]E, len(vars)+len(x.Bindings))
		for id, val := range vars {
			scope[id] = val
		}
		for _, lb := range x.Bindings {
			val := VisitExpr(lb.Val, v, env, scope)
			scope[lb.Var] = val
		}
		return VisitExpr(x.Body, v, env, scope)
	case *VarExpr:
		val, ok := vars[x.Var]
		if !ok {
			panic(fmt.Sprintf("variable %d used before it is bound", x.Var))
		}
		return val
	case *TermExpr:
		term := &env.Terms[x.Term]
		inputs := make([]ExprInput[E], 0, len(x.Args))
		for i, a := range x.Args {
			inputs = append(inputs, ExprInput[E]{Value: VisitExpr(a, v, env, vars), Type: term.ArgTys[i]})
		}
		switch k := term.Kind.(type) {
		case *EnumVariant:
			return v.AddCreateVariant(inputs, x.Type, k.Variant)
		case *Decl:
			if k.Constructor == nil {
				panic(fmt.Sprintf("term %d constructed without a constructor", x.Term))
			}
			return v.AddConstruct(inputs, x.Type, x.Term, k.Flags.Pure, !k.Flags.Partial, k.Flags.Multi)
		}
	}
	panic(fmt.Sprintf("unexpected expression %T", x))
}

func visitInRule[P, E, X any](x Expr, v RuleVisitor[P, E, X], env *TermEnv, vars map[VarID]P) X {
	exprVars := make(map[VarID]E, len(vars))
	for id, p := range vars {
		exprVars[id] = v.PatternAsExpr(p)
	}
	return v.AddExpr(func(ev ExprVisitor[E]) VisitedExpr[E] {
		return VisitedExpr[E]{Type: x.Ty(), Value: VisitExpr(x, ev, env, exprVars)}
	})
}

// VisitRule drives v over r: the root arguments first, then each if-let,
// then the right-hand side, whose representation it returns.
func VisitRule[P, E, X any](r *Rule, v RuleVisitor[P, E, X], env *TermEnv) X {
	vars := make(map[VarID]P)
	root := &env.Terms[r.Root]
	for i, arg := range r.Args {
		val := v.AddArg(i, root.ArgTys[i])
		v.AddPattern(func(pv PatternVisitor[P]) {
			VisitPattern(arg, pv, val, env, vars)
		})
	}
	for _, il := range r.IfLets {
		val := v.ExprAsPattern(visitInRule(il.RHS, v, env, vars))
		v.AddPattern(func(pv PatternVisitor[P]) {
			VisitPattern(il.LHS, pv, val, env, vars)
		})
	}
	return visitInRule(r.RHS, v, env, vars)
}
