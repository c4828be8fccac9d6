package ir

import (
	"strings"
	"testing"

	"github.com/wippyai/rewrite-abi/sema"
	"github.com/wippyai/rewrite-abi/sema/ast"
)

const rules = `
- type: u32
  primitive: u32
- type: P
  enum:
    - Pt: {x: u32, y: u32}
- extern: const
  name: $Zero
  type: u32
- decl: get
  args: [u32]
  ret: u32
  partial: true
  pure: true
- extern: constructor
  term: get
  func: get_impl
- decl: opt
  args: [u32]
  ret: u32
- extern: extractor
  term: opt
  func: opt_impl
  infallible: true
- decl: f
  args: [P, u32]
  ret: P
- rule: [f, [P.Pt, a, a], {bind: b, pat: 3}]
  if-let: [{pat: [opt, c], expr: [get, b]}]
  rhs: [P.Pt, $Zero, c]
  name: diag
  prio: 2
`

func lower(t *testing.T, src string) *Program {
	t.Helper()
	defs, err := ast.Decode(strings.NewReader(src), "rules.yaml")
	if err != nil {
		t.Fatal(err)
	}
	tyenv, termenv, err := sema.Analyze(defs, sema.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return Lower(tyenv, termenv)
}

func TestLower(t *testing.T) {
	p := lower(t, rules)
	if len(p.Rules) != 1 {
		t.Fatalf("got %d rules", len(p.Rules))
	}
	r := p.Rules[0]
	if p.TermName(r.Root) != "f" || r.Name != "diag" || r.Prio != 2 || !strings.HasPrefix(r.Pos, "rules.yaml:") {
		t.Errorf("rule header = %+v", r)
	}

	ops := make([]PatternOp, len(r.Pattern.Insts))
	for i, inst := range r.Pattern.Insts {
		ops[i] = inst.Op
	}
	want := []PatternOp{OpArg, OpMatchVariant, OpMatchEqual, OpArg, OpMatchInt, OpExpr, OpExtract}
	if len(ops) != len(want) {
		t.Fatalf("pattern ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("pattern ops = %v, want %v", ops, want)
		}
	}

	eq := r.Pattern.Insts[2]
	if eq.Inputs[0] != (Value{Inst: 1, Output: 1}) || eq.Inputs[1] != (Value{Inst: 1}) {
		t.Errorf("match_equal inputs = %v", eq.Inputs)
	}

	cond := r.Pattern.Insts[5].Expr
	if cond == nil || len(cond.Insts) != 2 || cond.Insts[0].Op != OpConstruct || cond.Insts[1].Op != OpReturn {
		t.Fatalf("if-let expr = %+v", cond)
	}
	if c := cond.Insts[0]; c.Inputs[0] != (Value{Inst: 3}) || c.Infallible || !c.Pure {
		t.Errorf("construct get = %+v", c)
	}
	if x := r.Pattern.Insts[6]; x.Inputs[0] != (Value{Inst: 5}) || !x.Infallible || x.Multi {
		t.Errorf("extract opt = %+v", x)
	}

	rhs := r.Expr.Insts
	if len(rhs) != 3 || rhs[0].Op != OpConstPrim || rhs[0].Prim != "$Zero" || rhs[1].Op != OpCreateVariant {
		t.Fatalf("rhs = %+v", rhs)
	}
	if in := rhs[1].Inputs; in[0] != (Value{Expr: true, Inst: 0}) || in[1] != (Value{Inst: 6}) {
		t.Errorf("create_variant inputs = %v", in)
	}
	if ret := rhs[2]; ret.Op != OpReturn || ret.Inputs[0] != (Value{Expr: true, Inst: 1}) {
		t.Errorf("return = %+v", ret)
	}
}

func TestLower_Describe(t *testing.T) {
	p := lower(t, rules)
	if p.Types[1].Name != "P" || len(p.Types[1].Variants) != 1 || p.Types[1].Variants[0] != "P.Pt" {
		t.Errorf("types = %+v", p.Types)
	}
	byName := make(map[string]Term)
	for _, term := range p.Terms {
		byName[term.Name] = term
	}
	tests := []struct {
		name, ctor, ext, flags string
		variant                bool
	}{
		{"get", "get_impl", "", "pure partial", false},
		{"opt", "", "opt_impl", "", false},
		{"f", "internal", "", "", false},
		{"P.Pt", "", "", "", true},
	}
	for _, tc := range tests {
		got, ok := byName[tc.name]
		if !ok {
			t.Errorf("term %s missing", tc.name)
			continue
		}
		if got.Constructor != tc.ctor || got.Extractor != tc.ext || got.Flags != tc.flags || got.Variant != tc.variant {
			t.Errorf("%s = %+v", tc.name, got)
		}
	}
}
