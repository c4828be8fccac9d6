package sema

import (
	"testing"

	"github.com/wippyai/rewrite-abi/sema/ast"
)

func TestIntern(t *testing.T) {
	env := NewTypeEnv()
	words := []string{"a", "b", "a", "c", "b", "a"}
	syms := make(map[string]Sym)
	for _, w := range words {
		s := env.InternMut(w)
		if prev, ok := syms[w]; ok && prev != s {
			t.Errorf("%q interned as %d and %d", w, prev, s)
		}
		syms[w] = s
	}
	if len(env.Syms) != 3 {
		t.Errorf("got %d symbols, want 3", len(env.Syms))
	}
	for w, s := range syms {
		if env.SymName(s) != w {
			t.Errorf("SymName(%d) = %q, want %q", s, env.SymName(s), w)
		}
		if got, ok := env.Intern(w); !ok || got != s {
			t.Errorf("Intern(%q) = %d, %v", w, got, ok)
		}
	}
	if _, ok := env.Intern("missing"); ok {
		t.Error("Intern must not add names")
	}
	if len(env.Syms) != 3 {
		t.Error("Intern added a symbol")
	}
}

func TestTypeEnv_EndToEnd(t *testing.T) {
	defs := decode(t, `
- type: u32
  primitive: u32
- type: A
  enum:
    - B: {f1: u32, f2: u32}
    - C: {f1: u32}
`)
	env, err := TypeEnvFromAST(defs)
	if err != nil {
		t.Fatal(err)
	}
	if len(env.Types) != 2 {
		t.Fatalf("got %d types, want 2", len(env.Types))
	}
	u32, a := env.Types[0], env.Types[1]
	if !u32.Primitive || env.SymName(u32.Name) != "u32" || u32.ID != 0 {
		t.Errorf("types[0] = %+v", u32)
	}
	if a.Primitive || env.SymName(a.Name) != "A" || a.ID != 1 || len(a.Variants) != 2 {
		t.Fatalf("types[1] = %+v", a)
	}

	b := a.Variants[0]
	if b.ID != 0 || env.SymName(b.Name) != "B" || env.SymName(b.FullName) != "A.B" {
		t.Errorf("B = %+v", b)
	}
	if len(b.Fields) != 2 {
		t.Fatalf("B has %d fields", len(b.Fields))
	}
	for i, f := range b.Fields {
		if f.ID != FieldID(i) || f.Type != 0 {
			t.Errorf("B field %d = %+v", i, f)
		}
	}
	c := a.Variants[1]
	if c.ID != 1 || len(c.Fields) != 1 || c.Fields[0].ID != 0 || c.Fields[0].Type != 0 {
		t.Errorf("C = %+v", c)
	}
	if got := env.VariantName(1, 1); got != "A.C" {
		t.Errorf("VariantName = %q", got)
	}
}

func TestTypeEnv_ForwardReference(t *testing.T) {
	env, err := TypeEnvFromAST(decode(t, `
- type: Pair
  enum:
    - P: {x: Int, y: Int}
- type: Int
  primitive: i64
`))
	if err != nil {
		t.Fatal(err)
	}
	intTy, _ := env.TypeByName(ast.Ident{Name: "Int"})
	if f := env.Types[0].Variants[0].Fields[1]; f.Type != intTy {
		t.Errorf("field y has type %d, want %d", f.Type, intTy)
	}
}

func TestTypeEnv_DuplicateType(t *testing.T) {
	_, err := TypeEnvFromAST(decode(t, `
- type: T
  primitive: u8
- type: U
  primitive: u8
- type: T
  primitive: u16
`))
	errs, ok := err.(Errors)
	if !ok {
		t.Fatalf("got %v", err)
	}
	if n := countMsg(errs, "Type with name 'T' defined more than once"); n != 2 {
		t.Fatalf("got %d duplicate errors, want 2:\n%v", n, errs)
	}
	lines := map[int]bool{errs[0].Pos.Line: true, errs[1].Pos.Line: true}
	if !lines[2] || !lines[6] {
		t.Errorf("errors should point at both declarations, got %v and %v", errs[0].Pos, errs[1].Pos)
	}
}

func TestTypeEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown field type", `
- type: A
  enum: [{B: {f: Missing}}]`, "Unknown type 'Missing' for field 'f' in variant 'B'"},
		{"duplicate variant", `
- type: u8
  primitive: u8
- type: A
  enum: [B, {B: {f: u8}}]`, "Duplicate variant name in type: 'B'"},
		{"extern primitive", `
- type: u8
  primitive: u8
  extern: true`, "Primitive type 'u8' cannot be declared extern"},
		{"nodebug primitive", `
- type: u8
  primitive: u8
  nodebug: true`, "Primitive type 'u8' cannot be declared nodebug"},
		{"extern nodebug enum", `
- type: A
  enum: [B]
  extern: true
  nodebug: true`, "cannot be both extern and nodebug"},
		{"unknown constant type", `
- extern: const
  name: $K
  type: Nope`, "Unknown type 'Nope' for constant '$K'"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := TypeEnvFromAST(decode(t, tc.src))
			errs, ok := err.(Errors)
			if !ok {
				t.Fatalf("got %v", err)
			}
			wantMsg(t, errs, tc.want)
		})
	}
}

func TestTypeEnv_DuplicateFieldFromAST(t *testing.T) {
	u8 := ast.Ident{Name: "u8"}
	defs := []ast.Def{
		&ast.TypeDef{Name: u8, Value: &ast.PrimitiveType{Repr: u8}},
		&ast.TypeDef{Name: ast.Ident{Name: "A"}, Value: &ast.EnumType{Variants: []ast.Variant{{
			Name: ast.Ident{Name: "B"},
			Fields: []ast.Field{
				{Name: ast.Ident{Name: "f"}, Type: u8},
				{Name: ast.Ident{Name: "f"}, Type: u8},
			},
		}}}},
	}
	_, err := TypeEnvFromAST(defs)
	errs, ok := err.(Errors)
	if !ok {
		t.Fatalf("got %v", err)
	}
	wantMsg(t, errs, "Duplicate field name 'f' in variant 'B' of type 'A'")
}

func TestTypeEnv_ConstTypes(t *testing.T) {
	env, err := TypeEnvFromAST(decode(t, `
- type: u8
  primitive: u8
- extern: const
  name: $Max
  type: u8
`))
	if err != nil {
		t.Fatal(err)
	}
	s, _ := env.Intern("$Max")
	if ty, ok := env.ConstTypes[s]; !ok || ty != 0 {
		t.Errorf("ConstTypes[$Max] = %d, %v", ty, ok)
	}
}
