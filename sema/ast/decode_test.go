package ast

import (
	"errors"
	"strings"
	"testing"
)

const sample = `
- pragma: reserved
- type: u32
  primitive: u32
- type: A
  enum:
    - B: {f1: u32, f2: u32}
    - C
- decl: pick
  args: [A, u32]
  ret: u32
  pure: true
- rule: [pick, [A.B, x, _], 0]
  if-let:
    - pat: {bind: y, pat: {and: [_, 3]}}
      expr: [id, x]
  rhs: {let: [{var: z, type: u32, val: $Zero}], body: z}
  prio: -2
  name: pick_b
- extractor: [two, a, b]
  template: [A.B, a, b]
- converter: wrap
  inner: u32
  outer: A
- extern: constructor
  term: id
  func: id_impl
- extern: extractor
  term: pick
  func: pick_impl
  infallible: true
- extern: const
  name: $Zero
  type: u32
`

func TestDecode(t *testing.T) {
	defs, err := Decode(strings.NewReader(sample), "sample.yaml")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(defs) != 10 {
		t.Fatalf("got %d defs, want 10", len(defs))
	}

	t.Run("types", func(t *testing.T) {
		prim := defs[1].(*TypeDef)
		if prim.Name.Name != "u32" || prim.Value.(*PrimitiveType).Repr.Name != "u32" {
			t.Errorf("primitive: %+v", prim)
		}
		enum := defs[2].(*TypeDef).Value.(*EnumType)
		if len(enum.Variants) != 2 {
			t.Fatalf("variants: %d", len(enum.Variants))
		}
		b := enum.Variants[0]
		if b.Name.Name != "B" || len(b.Fields) != 2 || b.Fields[0].Name.Name != "f1" || b.Fields[1].Name.Name != "f2" {
			t.Errorf("variant B: %+v", b)
		}
		if c := enum.Variants[1]; c.Name.Name != "C" || len(c.Fields) != 0 {
			t.Errorf("variant C: %+v", c)
		}
	})

	t.Run("decl", func(t *testing.T) {
		d := defs[3].(*Decl)
		if d.Term.Name != "pick" || len(d.ArgTys) != 2 || d.RetTy.Name != "u32" || !d.Pure || d.Multi || d.Partial {
			t.Errorf("decl: %+v", d)
		}
	})

	t.Run("rule", func(t *testing.T) {
		r := defs[4].(*Rule)
		root, ok := RootTerm(r.Pattern)
		if !ok || root.Name != "pick" {
			t.Fatalf("root: %v %v", root, ok)
		}
		args := r.Pattern.(*TermPattern).Args
		if inner := args[0].(*TermPattern); inner.Sym.Name != "A.B" {
			t.Errorf("inner term: %s", inner.Sym.Name)
		}
		if _, ok := args[0].(*TermPattern).Args[1].(*WildcardPattern); !ok {
			t.Errorf("wildcard: %T", args[0].(*TermPattern).Args[1])
		}
		if c, ok := args[1].(*ConstIntPattern); !ok || c.Val != 0 {
			t.Errorf("const: %#v", args[1])
		}
		if r.Prio == nil || *r.Prio != -2 {
			t.Errorf("prio: %v", r.Prio)
		}
		if r.Name == nil || r.Name.Name != "pick_b" {
			t.Errorf("name: %v", r.Name)
		}
		bind := r.IfLets[0].Pattern.(*BindPattern)
		if bind.Var.Name != "y" || len(bind.Subpat.(*AndPattern).Subpats) != 2 {
			t.Errorf("if-let pattern: %+v", bind)
		}
		let := r.Expr.(*LetExpr)
		if let.Defs[0].Var.Name != "z" {
			t.Errorf("let var: %+v", let.Defs[0])
		}
		if _, ok := let.Defs[0].Val.(*ConstPrimExpr); !ok {
			t.Errorf("let val: %T", let.Defs[0].Val)
		}
		if v, ok := let.Body.(*VarExpr); !ok || v.Name.Name != "z" {
			t.Errorf("let body: %#v", let.Body)
		}
	})

	t.Run("externs", func(t *testing.T) {
		if x := defs[8].(*ExternExtractor); !x.Infallible || x.Func.Name != "pick_impl" {
			t.Errorf("extractor: %+v", x)
		}
		if c := defs[9].(*ExternConst); c.Name.Name != "$Zero" || c.Type.Name != "u32" {
			t.Errorf("const: %+v", c)
		}
		if c := defs[6].(*Converter); c.Term.Name != "wrap" || c.Inner.Name != "u32" || c.Outer.Name != "A" {
			t.Errorf("converter: %+v", c)
		}
	})

	t.Run("positions", func(t *testing.T) {
		d := defs[3].(*Decl)
		want := Pos{File: "sample.yaml", Line: 9, Col: 3}
		if d.Pos != want {
			t.Errorf("pos = %v, want %v", d.Pos, want)
		}
		if got := d.Pos.String(); got != "sample.yaml:9:3" {
			t.Errorf("String() = %q", got)
		}
	})
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"not a sequence", "type: u32", "expected a sequence"},
		{"unknown form", "- frobnicate: x", "unknown declaration"},
		{"unknown key", "- decl: f\n  ret: u32\n  color: red", `unknown key "color"`},
		{"missing ret", "- decl: f", `missing key "ret"`},
		{"type without body", "- type: T", "needs primitive or enum"},
		{"bad extern", "- extern: thing\n  term: f", "want constructor, extractor or const"},
		{"empty term", "- rule: []\n  rhs: x", "empty term application"},
		{"bad flag", "- decl: f\n  ret: u32\n  pure: maybe", "expected a boolean"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.src), "bad.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a SyntaxError: %v", err, err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	defs, err := Decode(strings.NewReader(""), "empty.yaml")
	if err != nil || len(defs) != 0 {
		t.Errorf("got %v, %v", defs, err)
	}
}

func TestDecode_MalformedYAML(t *testing.T) {
	_, err := Decode(strings.NewReader("- [unclosed"), "broken.yaml")
	if err == nil || !strings.HasPrefix(err.Error(), "ast: parse broken.yaml:") {
		t.Errorf("got %v", err)
	}
}
