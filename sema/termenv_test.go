package sema

import (
	"strings"
	"testing"
)

const prelude = `
- type: u32
  primitive: u32
- type: A
  enum:
    - B: {f1: u32, f2: u32}
    - C: {f1: u32}
`

func TestTermEnv_EnumVariantTerms(t *testing.T) {
	tyenv, termenv := analyze(t, prelude)
	if len(termenv.Terms) != 2 {
		t.Fatalf("got %d terms, want 2", len(termenv.Terms))
	}
	b := termenv.Terms[termID(t, tyenv, termenv, "A.B")]
	if !b.IsEnumVariant() || b.RetTy != 1 || len(b.ArgTys) != 2 {
		t.Errorf("A.B = %+v", b)
	}
	if v := b.Kind.(*EnumVariant).Variant; v != 0 {
		t.Errorf("A.B variant = %d", v)
	}
	c := termenv.Terms[termID(t, tyenv, termenv, "A.C")]
	if c.Kind.(*EnumVariant).Variant != 1 || len(c.ArgTys) != 1 {
		t.Errorf("A.C = %+v", c)
	}
	if !b.HasConstructor() || !b.HasExtractor() || b.Flags() != (TermFlags{Pure: true}) {
		t.Error("enum variant terms construct and extract purely")
	}
}

func TestTermEnv_Kinds(t *testing.T) {
	tyenv, termenv := analyze(t, prelude+`
- decl: ext
  args: [u32]
  ret: u32
- extern: constructor
  term: ext
  func: ext_ctor
- extern: extractor
  term: ext
  func: ext_match
  infallible: true
- decl: internal
  args: [u32]
  ret: u32
  partial: true
- rule: [internal, x]
  rhs: x
- decl: multi
  args: [u32]
  ret: u32
  multi: true
- extern: extractor
  term: multi
  func: multi_match
  infallible: true
`)
	ext := &termenv.Terms[termID(t, tyenv, termenv, "ext")]
	if !ext.HasExternalConstructor() || !ext.HasExternalExtractor() {
		t.Fatalf("ext = %+v", ext)
	}
	sig, ok := ext.ExtractorSig(tyenv)
	if !ok || sig.FuncName != "ext_match" || sig.RetKind != ReturnPlain || len(sig.ParamTys) != 1 {
		t.Errorf("extractor sig = %+v", sig)
	}
	sig, ok = ext.ConstructorSig(tyenv)
	if !ok || sig.FuncName != "ext_ctor" || sig.RetKind != ReturnPlain {
		t.Errorf("constructor sig = %+v", sig)
	}

	in := &termenv.Terms[termID(t, tyenv, termenv, "internal")]
	if _, ok := in.Kind.(*Decl).Constructor.(*InternalConstructor); !ok {
		t.Errorf("internal constructor = %T", in.Kind.(*Decl).Constructor)
	}
	sig, _ = in.ConstructorSig(tyenv)
	if sig.FuncName != "constructor_internal" || sig.RetKind != ReturnOption {
		t.Errorf("internal sig = %+v", sig)
	}

	m := &termenv.Terms[termID(t, tyenv, termenv, "multi")]
	sig, _ = m.ExtractorSig(tyenv)
	if sig.RetKind != ReturnIterator {
		t.Errorf("multi extractor kind = %v", sig.RetKind)
	}
}

func TestTermEnv_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  []string
		count int // errors expected to mention want[0], 0 to skip
	}{
		{
			name: "duplicate decl",
			src: `
- decl: f
  ret: u32
- decl: f
  ret: u32`,
			want:  []string{"Duplicate decl for 'f'"},
			count: 2,
		},
		{
			name: "multi and partial",
			src: `
- decl: f
  ret: u32
  multi: true
  partial: true`,
			want: []string{"can't be both multi and partial"},
		},
		{
			name: "unknown signature types",
			src: `
- decl: f
  args: [X, Y]
  ret: Z`,
			want: []string{"Unknown arg type: 'X'", "Unknown arg type: 'Y'", "Unknown return type: 'Z'"},
		},
		{
			name: "decl collides with variant term",
			src: `
- decl: A.B
  ret: u32`,
			want: []string{"Duplicate enum variant constructor: 'A.B'"},
		},
		{
			name: "rule on enum variant",
			src: `
- rule: [A.C, x]
  rhs: x`,
			want: []string{"cannot be enum variant"},
		},
		{
			name: "rule on undefined term",
			src: `
- rule: [nope, x]
  rhs: x`,
			want: []string{"Rule LHS root term is not defined: 'nope'"},
		},
		{
			name: "macro on multi term",
			src: `
- decl: m
  args: [u32]
  ret: A
  multi: true
- extractor: [m, x]
  template: [A.C, x]`,
			want: []string{"`multi` cannot have an internal extractor"},
		},
		{
			name: "duplicate macro",
			src: `
- decl: m
  args: [u32]
  ret: A
- extractor: [m, x]
  template: [A.C, x]
- extractor: [m, y]
  template: [A.C, y]`,
			want:  []string{"Duplicate extractor definition for 'm'"},
			count: 2,
		},
		{
			name: "macro references unknown term",
			src: `
- decl: m
  args: [u32]
  ret: A
- extractor: [m, x]
  template: [ghost, x]`,
			want: []string{"`m` extractor definition references unknown term `ghost`"},
		},
		{
			name: "macro on enum variant",
			src: `
- extractor: [A.C, x]
  template: _`,
			want: []string{"Extractor macro body defined on term of enum type"},
		},
		{
			name: "external extractor after macro",
			src: `
- decl: m
  args: [u32]
  ret: A
- extractor: [m, x]
  template: [A.C, x]
- extern: extractor
  term: m
  func: m_impl`,
			want: []string{"already has an internal extractor macro", "Internal extractor macro for 'm' defined here"},
		},
		{
			name: "duplicate external extractor",
			src: `
- decl: m
  args: [u32]
  ret: A
- extern: extractor
  term: m
  func: one
- extern: extractor
  term: m
  func: two`,
			want:  []string{"Duplicate external extractor definition for 'm'"},
			count: 2,
		},
		{
			name: "external constructor on ruled term",
			src: `
- decl: f
  args: [u32]
  ret: u32
- rule: [f, x]
  rhs: x
- extern: constructor
  term: f
  func: f_impl`,
			want: []string{"External constructor declared on term that already has rules: 'f'"},
		},
		{
			name: "extern on enum variant",
			src: `
- extern: constructor
  term: A.C
  func: c_impl`,
			want: []string{"Constructor defined on enum type 'A.C'"},
		},
		{
			name: "duplicate converter",
			src: `
- decl: wrap
  args: [u32]
  ret: A
- decl: wrap2
  args: [u32]
  ret: A
- extern: constructor
  term: wrap
  func: w
- extern: constructor
  term: wrap2
  func: w2
- converter: wrap
  inner: u32
  outer: A
- converter: wrap2
  inner: u32
  outer: A`,
			want: []string{"Converter already exists for this type pair: 'u32', 'A'"},
		},
		{
			name: "converter signature",
			src: `
- decl: wrap
  args: [A]
  ret: u32
- converter: wrap
  inner: u32
  outer: A`,
			want: []string{"Converter term 'wrap' must take 'u32' and return 'A'"},
		},
		{
			name: "converter unknown names",
			src: `
- converter: ghost
  inner: u32
  outer: A`,
			want: []string{"Unknown term for converter: 'ghost'"},
		},
		{
			name: "undefined decl",
			src: `
- decl: lonely
  ret: u32`,
			want: []string{"no rules, extractor, or external definition for declaration 'lonely'"},
		},
		{
			name: "expression term without constructor",
			src: `
- decl: f
  args: [u32]
  ret: u32
- decl: only_match
  args: [u32]
  ret: u32
- extern: extractor
  term: only_match
  func: m
- rule: [f, x]
  rhs: [only_match, x]`,
			want: []string{"term `only_match` cannot be used in an expression because it does not have a constructor"},
		},
		{
			name: "priority on multi term",
			src: `
- decl: f
  args: [u32]
  ret: u32
  multi: true
- rule: [f, x]
  rhs: x
  prio: 3`,
			want: []string{"Cannot set rule priorities in multi-terms"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := analyzeErrs(t, prelude+strings.TrimPrefix(tc.src, "\n"))
			wantMsg(t, errs, tc.want...)
			if tc.count > 0 {
				if n := countMsg(errs, tc.want[0]); n != tc.count {
					t.Errorf("%q reported %d times, want %d:\n%v", tc.want[0], n, tc.count, errs)
				}
			}
		})
	}
}

func TestTermEnv_DuplicatePositions(t *testing.T) {
	errs := analyzeErrs(t, prelude+`- decl: f
  ret: u32
- decl: f
  ret: u32
`)
	var lines []int
	for _, e := range errs {
		if strings.Contains(e.Msg, "Duplicate decl") {
			lines = append(lines, e.Pos.Line)
		}
	}
	if len(lines) != 2 || lines[0] == lines[1] {
		t.Errorf("duplicate decl errors at lines %v", lines)
	}
}

func TestExtractorCycles(t *testing.T) {
	const decls = prelude + `
- decl: foo
  args: [u32]
  ret: A
- decl: bar
  args: [u32]
  ret: A
- decl: baz
  args: [u32]
  ret: A
`
	t.Run("mutual", func(t *testing.T) {
		errs := analyzeErrs(t, decls+`
- extractor: [foo, x]
  template: [bar, x]
- extractor: [bar, x]
  template: [foo, x]
`)
		if len(errs) != 2 {
			t.Fatalf("got %d errors, want one per root:\n%v", len(errs), errs)
		}
		if errs[0].Msg != "`foo` extractor macro is recursive: foo -> bar -> foo" {
			t.Errorf("errs[0] = %q", errs[0].Msg)
		}
		if errs[1].Msg != "`bar` extractor macro is recursive: bar -> foo -> bar" {
			t.Errorf("errs[1] = %q", errs[1].Msg)
		}
	})

	t.Run("self", func(t *testing.T) {
		errs := analyzeErrs(t, decls+`
- extractor: [foo, x]
  template: [foo, x]
`)
		wantMsg(t, errs, "`foo` extractor macro is recursive: foo -> foo")
	})

	t.Run("chain", func(t *testing.T) {
		analyze(t, decls+`
- extractor: [foo, x]
  template: [bar, x]
- extractor: [bar, x]
  template: [baz, x]
- extern: extractor
  term: baz
  func: baz_impl
`)
	})

	t.Run("diamond", func(t *testing.T) {
		analyze(t, decls+`
- extractor: [foo, x]
  template: {and: [[bar, x], [baz, x]]}
- extractor: [bar, x]
  template: [baz, x]
- extern: extractor
  term: baz
  func: baz_impl
`)
	})
}
