package ir

import (
	"strings"
	"testing"
)

func TestWriteText(t *testing.T) {
	got := lower(t, rules).String()
	want := []string{
		`rule 0 f "diag" prio=2 (rules.yaml:`,
		"  p0 = arg 0 : P",
		"  p1 = match_variant p0 P.Pt : u32, u32",
		"  match_equal p1.1 p1 : u32",
		"  p3 = arg 1 : u32",
		"  match_int p3 3 : u32",
		"  p5 = expr : u32",
		"    e0 = construct get(p3) pure : u32",
		"    return e0 : u32",
		"  p6 = extract opt p5 infallible : u32",
		"  e0 = const_prim $Zero : u32",
		"  e1 = create_variant P.Pt(e0 p6) : P",
		"  return e1 : P",
	}
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i, w := range want {
		if !strings.HasPrefix(lines[i], w) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], w)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Value{Inst: 3}, "p3"},
		{Value{Inst: 3, Output: 2}, "p3.2"},
		{Value{Expr: true, Inst: 1}, "e1"},
	}
	for _, tc := range tests {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("%+v = %q, want %q", tc.v, got, tc.want)
		}
	}
	if OpExtract.String() != "extract" || PatternOp(99).String() != "pattern_op(99)" {
		t.Error("pattern op names")
	}
	if OpCreateVariant.String() != "create_variant" || ExprOp(0).String() != "expr_op(0)" {
		t.Error("expr op names")
	}
}
