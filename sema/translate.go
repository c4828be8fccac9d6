package sema

import (
	"go.uber.org/zap"

	"github.com/wippyai/rewrite-abi/sema/ast"
)

// anyType is the expected type of an expression whose type is inferred.
const anyType TypeID = -1

// Bindings tracks the variables of one rule. Every variable ever bound
// stays in the list; a variable is visible while the scope it was bound in
// is still open.
type Bindings struct {
	seen      []BoundVar
	nextScope int
	inScope   []int
}

// NewBindings returns bindings with the rule's outermost scope open.
func NewBindings() *Bindings {
	b := &Bindings{}
	b.EnterScope()
	return b
}

// EnterScope opens a new innermost scope.
func (b *Bindings) EnterScope() {
	b.inScope = append(b.inScope, b.nextScope)
	b.nextScope++
}

// ExitScope closes the innermost scope. Its variables stay recorded but
// are no longer visible.
func (b *Bindings) ExitScope() {
	b.inScope = b.inScope[:len(b.inScope)-1]
}

// AddVar binds name in the innermost scope.
func (b *Bindings) AddVar(name Sym, ty TypeID) VarID {
	id := VarID(len(b.seen))
	b.seen = append(b.seen, BoundVar{ID: id, Name: name, Type: ty, scope: b.inScope[len(b.inScope)-1]})
	return id
}

// Lookup finds the most recent visible binding of name.
func (b *Bindings) Lookup(name Sym) (BoundVar, bool) {
	for i := len(b.seen) - 1; i >= 0; i-- {
		v := b.seen[i]
		if v.Name == name && b.open(v.scope) {
			return v, true
		}
	}
	return BoundVar{}, false
}

// Vars returns every variable bound so far.
func (b *Bindings) Vars() []BoundVar { return b.seen }

func (b *Bindings) open(scope int) bool {
	for _, s := range b.inScope {
		if s == scope {
			return true
		}
	}
	return false
}

func (e *TermEnv) collectRules(tyenv *TypeEnv, defs []ast.Def) {
	for _, def := range defs {
		r, ok := def.(*ast.Rule)
		if !ok {
			continue
		}
		tp, ok := r.Pattern.(*ast.TermPattern)
		if !ok {
			tyenv.ReportError(r.Pos, "Rule does not have a term at the root of its left-hand side")
			continue
		}
		root, ok := e.TermByName(tyenv, tp.Sym)
		if !ok {
			tyenv.reportf(tp.Pos, "Cannot define a rule for an unknown term '%s'", tp.Sym.Name)
			continue
		}
		term := &e.Terms[root]
		decl, ok := term.Kind.(*Decl)
		if !ok {
			tyenv.reportf(tp.Pos, "Cannot define a rule on a left-hand-side that is an enum variant: '%s'", tp.Sym.Name)
			continue
		}
		flags := decl.Flags

		b := NewBindings()
		e.checkArgCount(tyenv, term, len(tp.Args), tp.Pos, tp.Sym.Name)
		args := e.translateArgs(tyenv, tp.Args, term, b)

		var iflets []IfLet
		for _, il := range r.IfLets {
			if t, ok := e.translateIfLet(tyenv, il, b, flags); ok {
				iflets = append(iflets, t)
			}
		}

		rhs, ok := e.translateExpr(tyenv, r.Expr, term.RetTy, b, flags, false)
		if !ok {
			continue
		}

		var prio int64
		if r.Prio != nil {
			if flags.Multi {
				tyenv.ReportError(r.Pos, "Cannot set rule priorities in multi-terms")
			}
			prio = *r.Prio
		}
		name := NoSym
		if r.Name != nil {
			name = tyenv.InternMut(r.Name.Name)
		}

		e.Rules = append(e.Rules, Rule{
			ID:     RuleID(len(e.Rules)),
			Root:   root,
			Args:   args,
			IfLets: iflets,
			RHS:    rhs,
			Vars:   b.Vars(),
			Prio:   prio,
			Name:   name,
			Pos:    r.Pos,
		})
	}
}

func (e *TermEnv) checkArgCount(tyenv *TypeEnv, t *Term, got int, pos ast.Pos, name string) {
	if want := len(t.ArgTys); got != want {
		tyenv.reportf(pos, "Incorrect argument count for term '%s': got %d, expect %d", name, got, want)
	}
}

// translateArgs translates the arguments that have a declared type. An
// argument that fails becomes a wildcard so positions stay aligned.
func (e *TermEnv) translateArgs(tyenv *TypeEnv, args []ast.Pattern, t *Term, b *Bindings) []Pattern {
	n := min(len(args), len(t.ArgTys))
	out := make([]Pattern, n)
	for i := 0; i < n; i++ {
		p, ok := e.translatePattern(tyenv, args[i], t.ArgTys[i], b)
		if !ok {
			p = &WildcardPattern{Type: t.ArgTys[i]}
		}
		out[i] = p
	}
	return out
}

func (e *TermEnv) translatePattern(tyenv *TypeEnv, pat ast.Pattern, expected TypeID, b *Bindings) (Pattern, bool) {
	switch p := pat.(type) {
	case *ast.ConstIntPattern:
		if !tyenv.Types[expected].Primitive {
			tyenv.reportf(p.Pos, "expected type '%s' is not primitive, but found integer literal '%d'",
				tyenv.TypeName(expected), p.Val)
		}
		return &ConstIntPattern{Type: expected, Val: p.Val}, true

	case *ast.ConstPrimPattern:
		val := tyenv.InternMut(p.Val.Name)
		ty, ok := tyenv.ConstTypes[val]
		if !ok {
			tyenv.reportf(p.Pos, "Unknown constant '%s'", p.Val.Name)
			return nil, false
		}
		if ty != expected {
			tyenv.reportf(p.Pos, "Type mismatch for constant '%s': expected '%s', but is '%s'",
				p.Val.Name, tyenv.TypeName(expected), tyenv.TypeName(ty))
		}
		return &ConstPrimPattern{Type: ty, Val: val}, true

	case *ast.WildcardPattern:
		return &WildcardPattern{Type: expected}, true

	case *ast.AndPattern:
		out := &AndPattern{Type: expected}
		for _, s := range p.Subpats {
			if sub, ok := e.translatePattern(tyenv, s, expected, b); ok {
				out.Subpats = append(out.Subpats, sub)
			}
		}
		return out, true

	case *ast.BindPattern:
		sub, ok := e.translatePattern(tyenv, p.Subpat, expected, b)
		if !ok {
			return nil, false
		}
		// On a mismatch the subpattern's own type cuts down follow-on errors.
		ty := sub.Ty()
		name := tyenv.InternMut(p.Var.Name)
		if _, bound := b.Lookup(name); bound {
			tyenv.reportf(p.Pos, "Re-bound variable name in LHS pattern: '%s'", p.Var.Name)
		}
		return &BindPattern{Type: ty, Var: b.AddVar(name, ty), Subpat: sub}, true

	case *ast.VarPattern:
		name := tyenv.InternMut(p.Var.Name)
		bv, bound := b.Lookup(name)
		if !bound {
			id := b.AddVar(name, expected)
			return &BindPattern{Type: expected, Var: id, Subpat: &WildcardPattern{Type: expected}}, true
		}
		if bv.Type != expected {
			tyenv.reportf(p.Pos, "Mismatched types: pattern expects type '%s' but already-bound var '%s' has type '%s'",
				tyenv.TypeName(expected), p.Var.Name, tyenv.TypeName(bv.Type))
		}
		return &VarPattern{Type: bv.Type, Var: bv.ID}, true

	case *ast.TermPattern:
		return e.translateTermPattern(tyenv, p, expected, b)

	case *ast.MacroArgPattern:
		tyenv.ReportError(p.Pos, "Macro argument used outside of an extractor template")
		return nil, false
	}
	tyenv.reportf(pat.Position(), "Unsupported pattern %T", pat)
	return nil, false
}

func (e *TermEnv) translateTermPattern(tyenv *TypeEnv, p *ast.TermPattern, expected TypeID, b *Bindings) (Pattern, bool) {
	tid, ok := e.TermByName(tyenv, p.Sym)
	if !ok {
		tyenv.reportf(p.Pos, "Unknown term in pattern: '%s'", p.Sym.Name)
		return nil, false
	}
	term := &e.Terms[tid]
	ret := term.RetTy
	if ret != expected {
		if conv, ok := e.convertPattern(tyenv, p, ret, expected); ok {
			return e.translatePattern(tyenv, conv, expected, b)
		}
		tyenv.reportf(p.Pos, "Mismatched types: pattern expects type '%s' but term has return type '%s'",
			tyenv.TypeName(expected), tyenv.TypeName(ret))
	}
	e.checkArgCount(tyenv, term, len(p.Args), p.Pos, p.Sym.Name)

	if d, ok := term.Kind.(*Decl); ok {
		switch x := d.Extractor.(type) {
		case *InternalExtractor:
			if e.expandInternalExtractors {
				sub, ok := ast.SubstMacroArgs(x.Template, p.Args)
				if !ok {
					return nil, false
				}
				return e.translatePattern(tyenv, sub, expected, b)
			}
		case nil:
			tyenv.reportf(p.Pos, "Cannot use term '%s' that does not have a defined extractor in a left-hand side pattern", p.Sym.Name)
		}
	}
	return &TermPattern{Type: ret, Term: tid, Args: e.translateArgs(tyenv, p.Args, term, b)}, true
}

// convertPattern wraps p in the extractor of the converter from inner to
// outer, if there is one.
func (e *TermEnv) convertPattern(tyenv *TypeEnv, p ast.Pattern, inner, outer TypeID) (ast.Pattern, bool) {
	conv, ok := e.Converters[ConverterKey{Inner: inner, Outer: outer}]
	if !ok || !e.Terms[conv].HasExtractor() {
		return nil, false
	}
	name := tyenv.SymName(e.Terms[conv].Name)
	logConversion("pattern", name, tyenv, inner, outer)
	return &ast.TermPattern{
		Sym:  ast.Ident{Name: name, Pos: p.Position()},
		Args: []ast.Pattern{p},
		Pos:  p.Position(),
	}, true
}

// convertExpr wraps x in the constructor of the converter from inner to
// outer, if there is one.
func (e *TermEnv) convertExpr(tyenv *TypeEnv, x ast.Expr, inner, outer TypeID) (ast.Expr, bool) {
	conv, ok := e.Converters[ConverterKey{Inner: inner, Outer: outer}]
	if !ok || !e.Terms[conv].HasConstructor() {
		return nil, false
	}
	name := tyenv.SymName(e.Terms[conv].Name)
	logConversion("expr", name, tyenv, inner, outer)
	return &ast.TermExpr{
		Sym:  ast.Ident{Name: name, Pos: x.Position()},
		Args: []ast.Expr{x},
		Pos:  x.Position(),
	}, true
}

func logConversion(site, term string, tyenv *TypeEnv, inner, outer TypeID) {
	Logger().Debug("implicit conversion",
		zap.String("site", site),
		zap.String("term", term),
		zap.String("from", tyenv.TypeName(inner)),
		zap.String("to", tyenv.TypeName(outer)))
}

// translateExpr translates x against expected, or infers its type when
// expected is anyType. root are the flags of the rule's term; onLHS is set
// for if-let expressions.
func (e *TermEnv) translateExpr(tyenv *TypeEnv, x ast.Expr, expected TypeID, b *Bindings, root TermFlags, onLHS bool) (Expr, bool) {
	switch x := x.(type) {
	case *ast.TermExpr:
		return e.translateTermExpr(tyenv, x, expected, b, root, onLHS)

	case *ast.VarExpr:
		name := tyenv.InternMut(x.Name.Name)
		bv, ok := b.Lookup(name)
		if !ok {
			tyenv.reportf(x.Pos, "Unknown variable '%s'", x.Name.Name)
			return nil, false
		}
		if expected != anyType && bv.Type != expected {
			if conv, ok := e.convertExpr(tyenv, x, bv.Type, expected); ok {
				return e.translateExpr(tyenv, conv, expected, b, root, onLHS)
			}
			tyenv.reportf(x.Pos, "Variable '%s' has type '%s' but we need '%s' in context",
				x.Name.Name, tyenv.TypeName(bv.Type), tyenv.TypeName(expected))
		}
		return &VarExpr{Type: bv.Type, Var: bv.ID}, true

	case *ast.ConstIntExpr:
		if expected == anyType {
			tyenv.reportf(x.Pos, "integer literal '%d' in a context that needs an explicit type", x.Val)
			return nil, false
		}
		if !tyenv.Types[expected].Primitive {
			tyenv.reportf(x.Pos, "expected type '%s' is not primitive, but found integer literal '%d'",
				tyenv.TypeName(expected), x.Val)
		}
		return &ConstIntExpr{Type: expected, Val: x.Val}, true

	case *ast.ConstPrimExpr:
		val := tyenv.InternMut(x.Val.Name)
		ty, ok := tyenv.ConstTypes[val]
		if !ok {
			tyenv.reportf(x.Pos, "Unknown constant '%s'", x.Val.Name)
			return nil, false
		}
		if expected != anyType && ty != expected {
			tyenv.reportf(x.Pos, "Constant '%s' has wrong type: expected '%s', but is actually '%s'",
				x.Val.Name, tyenv.TypeName(expected), tyenv.TypeName(ty))
			return nil, false
		}
		return &ConstPrimExpr{Type: ty, Val: val}, true

	case *ast.LetExpr:
		b.EnterScope()
		defer b.ExitScope()
		out := &LetExpr{}
		for _, d := range x.Defs {
			name := tyenv.InternMut(d.Var.Name)
			ty, ok := tyenv.TypeByName(d.Type)
			if !ok {
				tyenv.reportf(d.Type.Pos, "Unknown type '%s' for variable '%s'", d.Type.Name, d.Var.Name)
				continue
			}
			// The value is translated before the name is bound, so it
			// sees any outer binding of the same name.
			val, ok := e.translateExpr(tyenv, d.Val, ty, b, root, onLHS)
			if !ok {
				continue
			}
			out.Bindings = append(out.Bindings, LetBinding{Var: b.AddVar(name, ty), Type: ty, Val: val})
		}
		body, ok := e.translateExpr(tyenv, x.Body, expected, b, root, onLHS)
		if !ok {
			return nil, false
		}
		out.Type = body.Ty()
		out.Body = body
		return out, true
	}
	tyenv.reportf(x.Position(), "Unsupported expression %T", x)
	return nil, false
}

func (e *TermEnv) translateTermExpr(tyenv *TypeEnv, x *ast.TermExpr, expected TypeID, b *Bindings, root TermFlags, onLHS bool) (Expr, bool) {
	name := tyenv.InternMut(x.Sym.Name)
	tid, ok := e.TermMap[name]
	if !ok {
		if _, bound := b.Lookup(name); bound {
			tyenv.reportf(x.Pos, "Unknown term in expression: '%s'. Variable binding under this name exists; try removing the parens?", x.Sym.Name)
		} else {
			tyenv.reportf(x.Pos, "Unknown term in expression: '%s'", x.Sym.Name)
		}
		return nil, false
	}
	term := &e.Terms[tid]
	ty := term.RetTy
	if expected != anyType && expected != ty {
		if conv, ok := e.convertExpr(tyenv, x, ty, expected); ok {
			return e.translateExpr(tyenv, conv, expected, b, root, onLHS)
		}
		tyenv.reportf(x.Pos, "Mismatched types: expression expects type '%s' but term has return type '%s'",
			tyenv.TypeName(expected), tyenv.TypeName(ty))
	}

	if d, ok := term.Kind.(*Decl); ok {
		if (onLHS || root.Pure) && !d.Flags.Pure {
			tyenv.reportf(x.Pos, "Used non-pure constructor '%s' in pure expression context", x.Sym.Name)
		}
		if d.Flags.Multi && !root.Multi {
			tyenv.reportf(x.Pos, "Used multi-constructor '%s' but this rule is not in a multi-term", x.Sym.Name)
		}
		if d.Flags.Partial && !onLHS && !root.Partial && !root.Multi {
			tyenv.reportf(x.Pos, "Rule can't use partial constructor '%s' on RHS; try moving it to if-let", x.Sym.Name)
		}
	}
	e.checkArgCount(tyenv, term, len(x.Args), x.Pos, x.Sym.Name)

	out := &TermExpr{Type: ty, Term: tid}
	for i, a := range x.Args {
		if i >= len(term.ArgTys) {
			break
		}
		if sub, ok := e.translateExpr(tyenv, a, term.ArgTys[i], b, root, onLHS); ok {
			out.Args = append(out.Args, sub)
		}
	}
	return out, true
}

// translateIfLet translates the expression first, under left-hand-side
// restrictions, then matches the pattern against its type.
func (e *TermEnv) translateIfLet(tyenv *TypeEnv, il ast.IfLet, b *Bindings, root TermFlags) (IfLet, bool) {
	rhs, ok := e.translateExpr(tyenv, il.Expr, anyType, b, root, true)
	if !ok {
		return IfLet{}, false
	}
	lhs, ok := e.translatePattern(tyenv, il.Pattern, rhs.Ty(), b)
	if !ok {
		return IfLet{}, false
	}
	return IfLet{LHS: lhs, RHS: rhs}, true
}
