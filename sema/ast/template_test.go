package ast

import (
	"reflect"
	"testing"
)

func id(name string) Ident { return Ident{Name: name} }

func TestMakeMacroTemplate(t *testing.T) {
	// (extractor (two a b) (B a (and b c)))
	body := &TermPattern{Sym: id("B"), Args: []Pattern{
		&VarPattern{Var: id("a")},
		&AndPattern{Subpats: []Pattern{&VarPattern{Var: id("b")}, &VarPattern{Var: id("c")}}},
	}}
	tmpl := MakeMacroTemplate(body, []Ident{id("a"), id("b")})

	want := &TermPattern{Sym: id("B"), Args: []Pattern{
		&MacroArgPattern{Index: 0},
		&AndPattern{Subpats: []Pattern{&MacroArgPattern{Index: 1}, &VarPattern{Var: id("c")}}},
	}}
	if !reflect.DeepEqual(tmpl, want) {
		t.Errorf("template = %#v", tmpl)
	}

	t.Run("bound argument", func(t *testing.T) {
		p := &BindPattern{Var: id("a"), Subpat: &WildcardPattern{}}
		got := MakeMacroTemplate(p, []Ident{id("a")})
		and, ok := got.(*AndPattern)
		if !ok || len(and.Subpats) != 2 {
			t.Fatalf("got %#v", got)
		}
		if m, ok := and.Subpats[0].(*MacroArgPattern); !ok || m.Index != 0 {
			t.Errorf("first subpattern %#v", and.Subpats[0])
		}
	})
}

func TestSubstMacroArgs(t *testing.T) {
	tmpl := &TermPattern{Sym: id("B"), Args: []Pattern{
		&MacroArgPattern{Index: 1},
		&BindPattern{Var: id("v"), Subpat: &MacroArgPattern{Index: 0}},
	}}
	x := &ConstIntPattern{Val: 7}
	y := &WildcardPattern{}

	got, ok := SubstMacroArgs(tmpl, []Pattern{x, y})
	if !ok {
		t.Fatal("substitution failed")
	}
	tp := got.(*TermPattern)
	if tp.Args[0] != Pattern(y) {
		t.Errorf("arg 0 = %#v", tp.Args[0])
	}
	if tp.Args[1].(*BindPattern).Subpat != Pattern(x) {
		t.Errorf("arg 1 = %#v", tp.Args[1])
	}
	if tmpl.Args[0].(*MacroArgPattern).Index != 1 {
		t.Error("template was mutated")
	}

	if _, ok := SubstMacroArgs(tmpl, []Pattern{x}); ok {
		t.Error("missing argument should fail")
	}
}

func TestTerms(t *testing.T) {
	p := &BindPattern{Var: id("x"), Subpat: &TermPattern{Sym: id("f"), Args: []Pattern{
		&TermPattern{Sym: id("g")},
		&AndPattern{Subpats: []Pattern{&TermPattern{Sym: id("h")}}},
	}}}
	var got []string
	PatternTerms(p, func(i Ident) { got = append(got, i.Name) })
	if !reflect.DeepEqual(got, []string{"f", "g", "h"}) {
		t.Errorf("pattern terms = %v", got)
	}

	e := &LetExpr{
		Defs: []LetDef{{Var: id("a"), Type: id("T"), Val: &TermExpr{Sym: id("mk")}}},
		Body: &TermExpr{Sym: id("use"), Args: []Expr{&VarExpr{Name: id("a")}}},
	}
	got = nil
	ExprTerms(e, func(i Ident) { got = append(got, i.Name) })
	if !reflect.DeepEqual(got, []string{"mk", "use"}) {
		t.Errorf("expr terms = %v", got)
	}
}

func TestRootTerm(t *testing.T) {
	if _, ok := RootTerm(&VarPattern{Var: id("x")}); ok {
		t.Error("variable has no root term")
	}
	r, ok := RootTerm(&BindPattern{Var: id("x"), Subpat: &TermPattern{Sym: id("f")}})
	if !ok || r.Name != "f" {
		t.Errorf("got %v %v", r, ok)
	}
}
