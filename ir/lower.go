package ir

import "github.com/wippyai/rewrite-abi/sema"

// Lower converts every rule of termenv, in definition order.
func Lower(tyenv *sema.TypeEnv, termenv *sema.TermEnv) *Program {
	p := &Program{
		Types: make([]Type, len(tyenv.Types)),
		Terms: make([]Term, len(termenv.Terms)),
		Rules: make([]Rule, 0, len(termenv.Rules)),
	}
	for i := range tyenv.Types {
		p.Types[i] = describeType(tyenv, &tyenv.Types[i])
	}
	for i := range termenv.Terms {
		p.Terms[i] = describeTerm(tyenv, &termenv.Terms[i])
	}
	for i := range termenv.Rules {
		p.Rules = append(p.Rules, LowerRule(tyenv, termenv, &termenv.Rules[i]))
	}
	return p
}

// LowerRule converts one rule.
func LowerRule(tyenv *sema.TypeEnv, termenv *sema.TermEnv, r *sema.Rule) Rule {
	b := &ruleBuilder{tyenv: tyenv}
	expr := sema.VisitRule[Value, Value, ExprSequence](r, b, termenv)
	out := Rule{
		ID:      r.ID,
		Root:    r.Root,
		Prio:    r.Prio,
		Pos:     r.Pos.String(),
		Pattern: b.pattern,
		Expr:    expr,
	}
	if r.Name != sema.NoSym {
		out.Name = tyenv.SymName(r.Name)
	}
	return out
}

func describeType(tyenv *sema.TypeEnv, t *sema.Type) Type {
	out := Type{Name: tyenv.SymName(t.Name), Primitive: t.Primitive}
	for _, v := range t.Variants {
		out.Variants = append(out.Variants, tyenv.SymName(v.FullName))
	}
	return out
}

func describeTerm(tyenv *sema.TypeEnv, t *sema.Term) Term {
	out := Term{
		Name:   tyenv.SymName(t.Name),
		ArgTys: t.ArgTys,
		RetTy:  t.RetTy,
	}
	d, ok := t.Kind.(*sema.Decl)
	if !ok {
		out.Variant = true
		return out
	}
	switch c := d.Constructor.(type) {
	case *sema.InternalConstructor:
		out.Constructor = "internal"
	case *sema.ExternalConstructor:
		out.Constructor = tyenv.SymName(c.Name)
	}
	switch x := d.Extractor.(type) {
	case *sema.InternalExtractor:
		out.Extractor = "internal"
	case *sema.ExternalExtractor:
		out.Extractor = tyenv.SymName(x.Name)
	}
	switch {
	case d.Flags.Multi:
		out.Flags = "multi"
	case d.Flags.Partial:
		out.Flags = "partial"
	}
	if d.Flags.Pure {
		if out.Flags != "" {
			out.Flags = "pure " + out.Flags
		} else {
			out.Flags = "pure"
		}
	}
	return out
}

// ruleBuilder collects the pattern sequence of one rule while
// sema.VisitRule walks it. Expression sequences are built separately and
// returned to the walker.
type ruleBuilder struct {
	tyenv   *sema.TypeEnv
	pattern PatternSequence
}

func (b *ruleBuilder) AddArg(index int, ty sema.TypeID) Value {
	return b.pattern.add(PatternInst{Op: OpArg, Index: index, Type: ty})
}

func (b *ruleBuilder) AddPattern(f func(sema.PatternVisitor[Value])) {
	f(&patternVisitor{seq: &b.pattern, tyenv: b.tyenv})
}

func (b *ruleBuilder) AddExpr(f func(sema.ExprVisitor[Value]) sema.VisitedExpr[Value]) ExprSequence {
	ev := &exprVisitor{tyenv: b.tyenv}
	res := f(ev)
	ev.seq.Insts = append(ev.seq.Insts, ExprInst{Op: OpReturn, Inputs: []Value{res.Value}, Type: res.Type})
	return ev.seq
}

// ExprAsPattern evaluates an if-let expression inside the pattern sequence.
func (b *ruleBuilder) ExprAsPattern(seq ExprSequence) Value {
	ret := seq.Insts[len(seq.Insts)-1]
	return b.pattern.add(PatternInst{Op: OpExpr, Type: ret.Type, Expr: &seq})
}

// PatternAsExpr lets expressions read pattern values directly.
func (b *ruleBuilder) PatternAsExpr(v Value) Value { return v }

func (s *PatternSequence) add(inst PatternInst) Value {
	s.Insts = append(s.Insts, inst)
	return Value{Inst: len(s.Insts) - 1}
}

func (s *PatternSequence) addMulti(inst PatternInst, n int) []Value {
	s.Insts = append(s.Insts, inst)
	out := make([]Value, n)
	for i := range out {
		out[i] = Value{Inst: len(s.Insts) - 1, Output: i}
	}
	return out
}

type patternVisitor struct {
	seq   *PatternSequence
	tyenv *sema.TypeEnv
}

func (v *patternVisitor) AddMatchEqual(a, b Value, ty sema.TypeID) {
	v.seq.add(PatternInst{Op: OpMatchEqual, Inputs: []Value{a, b}, Type: ty})
}

func (v *patternVisitor) AddMatchInt(input Value, ty sema.TypeID, val int64) {
	v.seq.add(PatternInst{Op: OpMatchInt, Inputs: []Value{input}, Type: ty, Int: val})
}

func (v *patternVisitor) AddMatchPrim(input Value, ty sema.TypeID, val sema.Sym) {
	v.seq.add(PatternInst{Op: OpMatchPrim, Inputs: []Value{input}, Type: ty, Prim: v.tyenv.SymName(val)})
}

func (v *patternVisitor) AddMatchVariant(input Value, inputTy sema.TypeID, argTys []sema.TypeID, variant sema.VariantID) []Value {
	return v.seq.addMulti(PatternInst{
		Op:        OpMatchVariant,
		Inputs:    []Value{input},
		Type:      inputTy,
		OutputTys: argTys,
		Variant:   variant,
	}, len(argTys))
}

func (v *patternVisitor) AddExtract(input Value, inputTy sema.TypeID, outputTys []sema.TypeID, term sema.TermID, infallible, multi bool) []Value {
	return v.seq.addMulti(PatternInst{
		Op:         OpExtract,
		Inputs:     []Value{input},
		Type:       inputTy,
		OutputTys:  outputTys,
		Term:       term,
		Infallible: infallible,
		Multi:      multi,
	}, len(outputTys))
}

type exprVisitor struct {
	seq   ExprSequence
	tyenv *sema.TypeEnv
}

func (v *exprVisitor) add(inst ExprInst) Value {
	v.seq.Insts = append(v.seq.Insts, inst)
	return Value{Expr: true, Inst: len(v.seq.Insts) - 1}
}

func (v *exprVisitor) AddConstInt(ty sema.TypeID, val int64) Value {
	return v.add(ExprInst{Op: OpConstInt, Type: ty, Int: val})
}

func (v *exprVisitor) AddConstPrim(ty sema.TypeID, val sema.Sym) Value {
	return v.add(ExprInst{Op: OpConstPrim, Type: ty, Prim: v.tyenv.SymName(val)})
}

func splitInputs(in []sema.ExprInput[Value]) ([]Value, []sema.TypeID) {
	vals := make([]Value, len(in))
	tys := make([]sema.TypeID, len(in))
	for i, x := range in {
		vals[i], tys[i] = x.Value, x.Type
	}
	return vals, tys
}

func (v *exprVisitor) AddCreateVariant(inputs []sema.ExprInput[Value], ty sema.TypeID, variant sema.VariantID) Value {
	vals, tys := splitInputs(inputs)
	return v.add(ExprInst{Op: OpCreateVariant, Inputs: vals, InputTys: tys, Type: ty, Variant: variant})
}

func (v *exprVisitor) AddConstruct(inputs []sema.ExprInput[Value], ty sema.TypeID, term sema.TermID, pure, infallible, multi bool) Value {
	vals, tys := splitInputs(inputs)
	return v.add(ExprInst{
		Op:         OpConstruct,
		Inputs:     vals,
		InputTys:   tys,
		Type:       ty,
		Term:       term,
		Pure:       pure,
		Infallible: infallible,
		Multi:      multi,
	})
}
