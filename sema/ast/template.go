package ast

// RootTerm returns the term at the head of p, looking through bindings.
func RootTerm(p Pattern) (Ident, bool) {
	switch p := p.(type) {
	case *TermPattern:
		return p.Sym, true
	case *BindPattern:
		return RootTerm(p.Subpat)
	default:
		return Ident{}, false
	}
}

// MakeMacroTemplate turns p into an extractor template by replacing every
// variable named in args with the placeholder for its position. A binding
// of a macro argument becomes the conjunction of the placeholder and the
// bound subpattern.
func MakeMacroTemplate(p Pattern, args []Ident) Pattern {
	switch p := p.(type) {
	case *VarPattern:
		if i, ok := argIndex(args, p.Var.Name); ok {
			return &MacroArgPattern{Index: i, Pos: p.Pos}
		}
		return p
	case *BindPattern:
		sub := MakeMacroTemplate(p.Subpat, args)
		if i, ok := argIndex(args, p.Var.Name); ok {
			return &AndPattern{
				Subpats: []Pattern{&MacroArgPattern{Index: i, Pos: p.Pos}, sub},
				Pos:     p.Pos,
			}
		}
		return &BindPattern{Var: p.Var, Subpat: sub, Pos: p.Pos}
	case *TermPattern:
		out := &TermPattern{Sym: p.Sym, Args: make([]Pattern, len(p.Args)), Pos: p.Pos}
		for i, a := range p.Args {
			out.Args[i] = MakeMacroTemplate(a, args)
		}
		return out
	case *AndPattern:
		out := &AndPattern{Subpats: make([]Pattern, len(p.Subpats)), Pos: p.Pos}
		for i, s := range p.Subpats {
			out.Subpats[i] = MakeMacroTemplate(s, args)
		}
		return out
	default:
		return p
	}
}

// SubstMacroArgs replaces each placeholder in a template with the pattern
// passed at that position. It reports false when a placeholder has no
// corresponding argument.
func SubstMacroArgs(p Pattern, args []Pattern) (Pattern, bool) {
	switch p := p.(type) {
	case *MacroArgPattern:
		if p.Index < 0 || p.Index >= len(args) {
			return nil, false
		}
		return args[p.Index], true
	case *BindPattern:
		sub, ok := SubstMacroArgs(p.Subpat, args)
		if !ok {
			return nil, false
		}
		return &BindPattern{Var: p.Var, Subpat: sub, Pos: p.Pos}, true
	case *TermPattern:
		out := &TermPattern{Sym: p.Sym, Args: make([]Pattern, len(p.Args)), Pos: p.Pos}
		for i, a := range p.Args {
			s, ok := SubstMacroArgs(a, args)
			if !ok {
				return nil, false
			}
			out.Args[i] = s
		}
		return out, true
	case *AndPattern:
		out := &AndPattern{Subpats: make([]Pattern, len(p.Subpats)), Pos: p.Pos}
		for i, sp := range p.Subpats {
			s, ok := SubstMacroArgs(sp, args)
			if !ok {
				return nil, false
			}
			out.Subpats[i] = s
		}
		return out, true
	default:
		return p, true
	}
}

// PatternTerms calls f for every term named in p, in pre-order.
func PatternTerms(p Pattern, f func(Ident)) {
	switch p := p.(type) {
	case *TermPattern:
		f(p.Sym)
		for _, a := range p.Args {
			PatternTerms(a, f)
		}
	case *BindPattern:
		PatternTerms(p.Subpat, f)
	case *AndPattern:
		for _, s := range p.Subpats {
			PatternTerms(s, f)
		}
	}
}

// ExprTerms calls f for every term named in e, in pre-order.
func ExprTerms(e Expr, f func(Ident)) {
	switch e := e.(type) {
	case *TermExpr:
		f(e.Sym)
		for _, a := range e.Args {
			ExprTerms(a, f)
		}
	case *LetExpr:
		for _, d := range e.Defs {
			ExprTerms(d.Val, f)
		}
		ExprTerms(e.Body, f)
	}
}

func argIndex(args []Ident, name string) (int, bool) {
	for i, a := range args {
		if a.Name == name {
			return i, true
		}
	}
	return 0, false
}
