package ir

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/rewrite-abi/sema"
)

// WriteText prints p in a line-oriented form:
//
//	rule 0 f (rules.yaml:12:3)
//	  p0 = arg 0 : P
//	  p1 = match_variant p0 P.Pt : u32, u32
//	  match_equal p1.1 p1 : u32
//	  e0 = const_int 9 : u32
//	  return e0 : u32
func (p *Program) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i := range p.Rules {
		if i > 0 {
			bw.WriteByte('\n')
		}
		p.writeRule(bw, &p.Rules[i])
	}
	return bw.Flush()
}

// String renders p with WriteText.
func (p *Program) String() string {
	var b strings.Builder
	_ = p.WriteText(&b)
	return b.String()
}

func (p *Program) writeRule(w *bufio.Writer, r *Rule) {
	fmt.Fprintf(w, "rule %d %s", r.ID, p.TermName(r.Root))
	if r.Name != "" {
		fmt.Fprintf(w, " %q", r.Name)
	}
	if r.Prio != 0 {
		fmt.Fprintf(w, " prio=%d", r.Prio)
	}
	if r.Pos != "" {
		fmt.Fprintf(w, " (%s)", r.Pos)
	}
	w.WriteByte('\n')
	p.writePattern(w, &r.Pattern, "  ")
	p.writeExpr(w, &r.Expr, "  ")
}

func (p *Program) writePattern(w *bufio.Writer, s *PatternSequence, indent string) {
	for i := range s.Insts {
		inst := &s.Insts[i]
		self := Value{Inst: i}
		switch inst.Op {
		case OpArg:
			fmt.Fprintf(w, "%s%s = arg %d : %s\n", indent, self, inst.Index, p.TypeName(inst.Type))
		case OpMatchEqual:
			fmt.Fprintf(w, "%smatch_equal %s : %s\n", indent, values(inst.Inputs), p.TypeName(inst.Type))
		case OpMatchInt:
			fmt.Fprintf(w, "%smatch_int %s %d : %s\n", indent, values(inst.Inputs), inst.Int, p.TypeName(inst.Type))
		case OpMatchPrim:
			fmt.Fprintf(w, "%smatch_prim %s %s : %s\n", indent, values(inst.Inputs), inst.Prim, p.TypeName(inst.Type))
		case OpMatchVariant:
			fmt.Fprintf(w, "%s%s = match_variant %s %s : %s\n", indent, self, values(inst.Inputs),
				p.variantName(inst.Type, inst.Variant), p.typeList(inst.OutputTys))
		case OpExtract:
			fmt.Fprintf(w, "%s%s = extract %s %s%s : %s\n", indent, self, p.TermName(inst.Term), values(inst.Inputs),
				flags(inst.Infallible, inst.Multi, false), p.typeList(inst.OutputTys))
		case OpExpr:
			fmt.Fprintf(w, "%s%s = expr : %s\n", indent, self, p.TypeName(inst.Type))
			if inst.Expr != nil {
				p.writeExpr(w, inst.Expr, indent+"  ")
			}
		default:
			fmt.Fprintf(w, "%s%s\n", indent, inst.Op)
		}
	}
}

func (p *Program) writeExpr(w *bufio.Writer, s *ExprSequence, indent string) {
	for i := range s.Insts {
		inst := &s.Insts[i]
		self := Value{Expr: true, Inst: i}
		ty := p.TypeName(inst.Type)
		switch inst.Op {
		case OpConstInt:
			fmt.Fprintf(w, "%s%s = const_int %d : %s\n", indent, self, inst.Int, ty)
		case OpConstPrim:
			fmt.Fprintf(w, "%s%s = const_prim %s : %s\n", indent, self, inst.Prim, ty)
		case OpCreateVariant:
			fmt.Fprintf(w, "%s%s = create_variant %s(%s) : %s\n", indent, self,
				p.variantName(inst.Type, inst.Variant), values(inst.Inputs), ty)
		case OpConstruct:
			fmt.Fprintf(w, "%s%s = construct %s(%s)%s : %s\n", indent, self, p.TermName(inst.Term), values(inst.Inputs),
				flags(inst.Infallible, inst.Multi, inst.Pure), ty)
		case OpReturn:
			fmt.Fprintf(w, "%sreturn %s : %s\n", indent, values(inst.Inputs), ty)
		default:
			fmt.Fprintf(w, "%s%s\n", indent, inst.Op)
		}
	}
}

func (p *Program) typeList(tys []sema.TypeID) string {
	names := make([]string, len(tys))
	for i, t := range tys {
		names[i] = p.TypeName(t)
	}
	return strings.Join(names, ", ")
}

func (p *Program) variantName(t sema.TypeID, v sema.VariantID) string {
	if t >= 0 && int(t) < len(p.Types) && v >= 0 && int(v) < len(p.Types[t].Variants) {
		return p.Types[t].Variants[v]
	}
	return fmt.Sprintf("#%d", v)
}

func values(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}

func flags(infallible, multi, pure bool) string {
	var b strings.Builder
	if pure {
		b.WriteString(" pure")
	}
	if infallible {
		b.WriteString(" infallible")
	}
	if multi {
		b.WriteString(" multi")
	}
	return b.String()
}
