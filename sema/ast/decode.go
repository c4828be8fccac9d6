package ast

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SyntaxError reports a malformed declaration in a YAML source.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string { return e.Pos.String() + ": " + e.Msg }

// DecodeFile reads the declarations stored at path.
func DecodeFile(path string) ([]Def, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ast: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode reads a YAML document holding a sequence of declarations. file
// names the source in positions and errors.
//
// Each declaration is a mapping whose first recognised key selects its
// form:
//
//	# rules.yaml
//	- type: u32
//	  primitive: u32
//	- type: A
//	  enum:
//	    - B: {f1: u32, f2: u32}
//	    - C
//	- decl: add
//	  args: [u32, u32]
//	  ret: u32
//	  pure: true
//	- rule: [add, x, 0]
//	  if-let: [{pat: y, expr: [id, x]}]
//	  rhs: y
//	  prio: 1
//	- extractor: [pair, a, b]
//	  template: [A.B, a, b]
//	- converter: wrap
//	  inner: u32
//	  outer: A
//	- extern: constructor   # or extractor, const
//	  term: add
//	  func: add_impl
//
// Patterns are written as "_" (wildcard), an integer, "$Name" (external
// constant), a variable name, a sequence [term, args...], {bind: x, pat: P}
// or {and: [P...]}. Expressions use the same scalars and sequences plus
// {let: [{var: x, type: T, val: E}], body: E}.
func Decode(r io.Reader, file string) ([]Def, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("ast: parse %s: %w", file, err)
	}
	d := decoder{file: file}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, d.errorf(root, "expected a sequence of declarations")
	}
	defs := make([]Def, 0, len(root.Content))
	for _, n := range root.Content {
		def, err := d.def(n)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

type decoder struct {
	file string
}

func (d *decoder) pos(n *yaml.Node) Pos {
	return Pos{File: d.file, Line: n.Line, Col: n.Column}
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	return &SyntaxError{Pos: d.pos(n), Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) ident(n *yaml.Node) (Ident, error) {
	if n.Kind != yaml.ScalarNode || n.Value == "" {
		return Ident{}, d.errorf(n, "expected a name")
	}
	return Ident{Name: n.Value, Pos: d.pos(n)}, nil
}

func (d *decoder) idents(n *yaml.Node) ([]Ident, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "expected a sequence of names")
	}
	out := make([]Ident, 0, len(n.Content))
	for _, c := range n.Content {
		id, err := d.ident(c)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// fields splits a mapping into its keys, rejecting keys outside allowed
// and duplicates.
func (d *decoder) fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	m := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		found := false
		for _, a := range allowed {
			if k.Value == a {
				found = true
				break
			}
		}
		if !found {
			return nil, d.errorf(k, "unknown key %q (allowed: %s)", k.Value, strings.Join(allowed, ", "))
		}
		if _, dup := m[k.Value]; dup {
			return nil, d.errorf(k, "duplicate key %q", k.Value)
		}
		m[k.Value] = n.Content[i+1]
	}
	return m, nil
}

func (d *decoder) flag(m map[string]*yaml.Node, key string) (bool, error) {
	n, ok := m[key]
	if !ok {
		return false, nil
	}
	var v bool
	if err := n.Decode(&v); err != nil {
		return false, d.errorf(n, "%s: expected a boolean", key)
	}
	return v, nil
}

func (d *decoder) require(parent *yaml.Node, m map[string]*yaml.Node, key string) (*yaml.Node, error) {
	n, ok := m[key]
	if !ok {
		return nil, d.errorf(parent, "missing key %q", key)
	}
	return n, nil
}

var defKinds = []string{"pragma", "type", "decl", "rule", "extractor", "converter", "extern"}

func (d *decoder) def(n *yaml.Node) (Def, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) == 0 {
		return nil, d.errorf(n, "expected a declaration mapping")
	}
	kind := n.Content[0].Value
	switch kind {
	case "pragma":
		return d.pragma(n)
	case "type":
		return d.typeDef(n)
	case "decl":
		return d.decl(n)
	case "rule":
		return d.rule(n)
	case "extractor":
		return d.extractor(n)
	case "converter":
		return d.converter(n)
	case "extern":
		return d.extern(n)
	}
	return nil, d.errorf(n.Content[0], "unknown declaration %q (want one of: %s)", kind, strings.Join(defKinds, ", "))
}

func (d *decoder) pragma(n *yaml.Node) (Def, error) {
	m, err := d.fields(n, "pragma")
	if err != nil {
		return nil, err
	}
	name, err := d.ident(m["pragma"])
	if err != nil {
		return nil, err
	}
	return &Pragma{Name: name, Pos: d.pos(n)}, nil
}

func (d *decoder) typeDef(n *yaml.Node) (Def, error) {
	m, err := d.fields(n, "type", "primitive", "enum", "extern", "nodebug")
	if err != nil {
		return nil, err
	}
	td := &TypeDef{Pos: d.pos(n)}
	if td.Name, err = d.ident(m["type"]); err != nil {
		return nil, err
	}
	if td.Extern, err = d.flag(m, "extern"); err != nil {
		return nil, err
	}
	if td.NoDebug, err = d.flag(m, "nodebug"); err != nil {
		return nil, err
	}
	prim, hasPrim := m["primitive"]
	enum, hasEnum := m["enum"]
	switch {
	case hasPrim && hasEnum:
		return nil, d.errorf(n, "type %s: primitive and enum are exclusive", td.Name.Name)
	case hasPrim:
		repr, err := d.ident(prim)
		if err != nil {
			return nil, err
		}
		td.Value = &PrimitiveType{Repr: repr, Pos: d.pos(prim)}
	case hasEnum:
		e, err := d.enum(enum)
		if err != nil {
			return nil, err
		}
		td.Value = e
	default:
		return nil, d.errorf(n, "type %s: needs primitive or enum", td.Name.Name)
	}
	return td, nil
}

func (d *decoder) enum(n *yaml.Node) (*EnumType, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "enum: expected a sequence of variants")
	}
	e := &EnumType{Pos: d.pos(n)}
	for _, vn := range n.Content {
		switch vn.Kind {
		case yaml.ScalarNode:
			name, err := d.ident(vn)
			if err != nil {
				return nil, err
			}
			e.Variants = append(e.Variants, Variant{Name: name, Pos: d.pos(vn)})
		case yaml.MappingNode:
			if len(vn.Content) != 2 {
				return nil, d.errorf(vn, "variant: expected a single name mapped to its fields")
			}
			v := Variant{Pos: d.pos(vn)}
			var err error
			if v.Name, err = d.ident(vn.Content[0]); err != nil {
				return nil, err
			}
			fs := vn.Content[1]
			if fs.Kind != yaml.MappingNode {
				return nil, d.errorf(fs, "variant %s: expected a mapping of fields", v.Name.Name)
			}
			for i := 0; i+1 < len(fs.Content); i += 2 {
				f := Field{Pos: d.pos(fs.Content[i])}
				if f.Name, err = d.ident(fs.Content[i]); err != nil {
					return nil, err
				}
				if f.Type, err = d.ident(fs.Content[i+1]); err != nil {
					return nil, err
				}
				v.Fields = append(v.Fields, f)
			}
			e.Variants = append(e.Variants, v)
		default:
			return nil, d.errorf(vn, "variant: expected a name or a mapping")
		}
	}
	return e, nil
}

func (d *decoder) decl(n *yaml.Node) (Def, error) {
	m, err := d.fields(n, "decl", "args", "ret", "pure", "multi", "partial")
	if err != nil {
		return nil, err
	}
	dl := &Decl{Pos: d.pos(n)}
	if dl.Term, err = d.ident(m["decl"]); err != nil {
		return nil, err
	}
	if a, ok := m["args"]; ok {
		if dl.ArgTys, err = d.idents(a); err != nil {
			return nil, err
		}
	}
	ret, err := d.require(n, m, "ret")
	if err != nil {
		return nil, err
	}
	if dl.RetTy, err = d.ident(ret); err != nil {
		return nil, err
	}
	if dl.Pure, err = d.flag(m, "pure"); err != nil {
		return nil, err
	}
	if dl.Multi, err = d.flag(m, "multi"); err != nil {
		return nil, err
	}
	if dl.Partial, err = d.flag(m, "partial"); err != nil {
		return nil, err
	}
	return dl, nil
}

func (d *decoder) rule(n *yaml.Node) (Def, error) {
	m, err := d.fields(n, "rule", "if-let", "rhs", "prio", "name")
	if err != nil {
		return nil, err
	}
	r := &Rule{Pos: d.pos(n)}
	if r.Pattern, err = d.pattern(m["rule"]); err != nil {
		return nil, err
	}
	if il, ok := m["if-let"]; ok {
		if il.Kind != yaml.SequenceNode {
			return nil, d.errorf(il, "if-let: expected a sequence")
		}
		for _, c := range il.Content {
			iflet, err := d.ifLet(c)
			if err != nil {
				return nil, err
			}
			r.IfLets = append(r.IfLets, iflet)
		}
	}
	rhs, err := d.require(n, m, "rhs")
	if err != nil {
		return nil, err
	}
	if r.Expr, err = d.expr(rhs); err != nil {
		return nil, err
	}
	if p, ok := m["prio"]; ok {
		var prio int64
		if err := p.Decode(&prio); err != nil {
			return nil, d.errorf(p, "prio: expected an integer")
		}
		r.Prio = &prio
	}
	if nm, ok := m["name"]; ok {
		name, err := d.ident(nm)
		if err != nil {
			return nil, err
		}
		r.Name = &name
	}
	return r, nil
}

func (d *decoder) ifLet(n *yaml.Node) (IfLet, error) {
	if n.Kind != yaml.MappingNode {
		return IfLet{}, d.errorf(n, "if-let: expected {pat, expr}")
	}
	m, err := d.fields(n, "pat", "expr")
	if err != nil {
		return IfLet{}, err
	}
	il := IfLet{Pos: d.pos(n)}
	pn, err := d.require(n, m, "pat")
	if err != nil {
		return IfLet{}, err
	}
	en, err := d.require(n, m, "expr")
	if err != nil {
		return IfLet{}, err
	}
	if il.Pattern, err = d.pattern(pn); err != nil {
		return IfLet{}, err
	}
	if il.Expr, err = d.expr(en); err != nil {
		return IfLet{}, err
	}
	return il, nil
}

func (d *decoder) extractor(n *yaml.Node) (Def, error) {
	m, err := d.fields(n, "extractor", "template")
	if err != nil {
		return nil, err
	}
	head, err := d.idents(m["extractor"])
	if err != nil {
		return nil, err
	}
	if len(head) == 0 {
		return nil, d.errorf(m["extractor"], "extractor: expected [term, args...]")
	}
	tn, err := d.require(n, m, "template")
	if err != nil {
		return nil, err
	}
	tmpl, err := d.pattern(tn)
	if err != nil {
		return nil, err
	}
	return &Extractor{Term: head[0], Args: head[1:], Template: tmpl, Pos: d.pos(n)}, nil
}

func (d *decoder) converter(n *yaml.Node) (Def, error) {
	m, err := d.fields(n, "converter", "inner", "outer")
	if err != nil {
		return nil, err
	}
	c := &Converter{Pos: d.pos(n)}
	if c.Term, err = d.ident(m["converter"]); err != nil {
		return nil, err
	}
	in, err := d.require(n, m, "inner")
	if err != nil {
		return nil, err
	}
	out, err := d.require(n, m, "outer")
	if err != nil {
		return nil, err
	}
	if c.Inner, err = d.ident(in); err != nil {
		return nil, err
	}
	if c.Outer, err = d.ident(out); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *decoder) extern(n *yaml.Node) (Def, error) {
	m, err := d.fields(n, "extern", "term", "func", "infallible", "name", "type")
	if err != nil {
		return nil, err
	}
	kind := m["extern"]
	pos := d.pos(n)
	get := func(key string) (Ident, error) {
		v, err := d.require(n, m, key)
		if err != nil {
			return Ident{}, err
		}
		return d.ident(v)
	}
	switch kind.Value {
	case "constructor", "extractor":
		term, err := get("term")
		if err != nil {
			return nil, err
		}
		fn, err := get("func")
		if err != nil {
			return nil, err
		}
		if kind.Value == "constructor" {
			if _, ok := m["infallible"]; ok {
				return nil, d.errorf(m["infallible"], "infallible applies to extractors only")
			}
			return &ExternConstructor{Term: term, Func: fn, Pos: pos}, nil
		}
		inf, err := d.flag(m, "infallible")
		if err != nil {
			return nil, err
		}
		return &ExternExtractor{Term: term, Func: fn, Infallible: inf, Pos: pos}, nil
	case "const":
		name, err := get("name")
		if err != nil {
			return nil, err
		}
		ty, err := get("type")
		if err != nil {
			return nil, err
		}
		return &ExternConst{Name: name, Type: ty, Pos: pos}, nil
	}
	return nil, d.errorf(kind, "extern: want constructor, extractor or const, got %q", kind.Value)
}

func (d *decoder) pattern(n *yaml.Node) (Pattern, error) {
	pos := d.pos(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "_" {
			return &WildcardPattern{Pos: pos}, nil
		}
		if v, ok := intScalar(n); ok {
			return &ConstIntPattern{Val: v, Pos: pos}, nil
		}
		id, err := d.ident(n)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(id.Name, "$") {
			return &ConstPrimPattern{Val: id, Pos: pos}, nil
		}
		return &VarPattern{Var: id, Pos: pos}, nil
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return nil, d.errorf(n, "pattern: empty term application")
		}
		sym, err := d.ident(n.Content[0])
		if err != nil {
			return nil, err
		}
		tp := &TermPattern{Sym: sym, Pos: pos}
		for _, c := range n.Content[1:] {
			a, err := d.pattern(c)
			if err != nil {
				return nil, err
			}
			tp.Args = append(tp.Args, a)
		}
		return tp, nil
	case yaml.MappingNode:
		m, err := d.fields(n, "bind", "pat", "and")
		if err != nil {
			return nil, err
		}
		if and, ok := m["and"]; ok {
			if len(m) != 1 || and.Kind != yaml.SequenceNode {
				return nil, d.errorf(n, "pattern: and expects a sequence of patterns")
			}
			ap := &AndPattern{Pos: pos}
			for _, c := range and.Content {
				s, err := d.pattern(c)
				if err != nil {
					return nil, err
				}
				ap.Subpats = append(ap.Subpats, s)
			}
			return ap, nil
		}
		bn, err := d.require(n, m, "bind")
		if err != nil {
			return nil, err
		}
		v, err := d.ident(bn)
		if err != nil {
			return nil, err
		}
		pn, err := d.require(n, m, "pat")
		if err != nil {
			return nil, err
		}
		sub, err := d.pattern(pn)
		if err != nil {
			return nil, err
		}
		return &BindPattern{Var: v, Subpat: sub, Pos: pos}, nil
	}
	return nil, d.errorf(n, "pattern: unexpected node")
}

func (d *decoder) expr(n *yaml.Node) (Expr, error) {
	pos := d.pos(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if v, ok := intScalar(n); ok {
			return &ConstIntExpr{Val: v, Pos: pos}, nil
		}
		id, err := d.ident(n)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(id.Name, "$") {
			return &ConstPrimExpr{Val: id, Pos: pos}, nil
		}
		return &VarExpr{Name: id, Pos: pos}, nil
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return nil, d.errorf(n, "expr: empty term application")
		}
		sym, err := d.ident(n.Content[0])
		if err != nil {
			return nil, err
		}
		te := &TermExpr{Sym: sym, Pos: pos}
		for _, c := range n.Content[1:] {
			a, err := d.expr(c)
			if err != nil {
				return nil, err
			}
			te.Args = append(te.Args, a)
		}
		return te, nil
	case yaml.MappingNode:
		m, err := d.fields(n, "let", "body")
		if err != nil {
			return nil, err
		}
		ln, err := d.require(n, m, "let")
		if err != nil {
			return nil, err
		}
		bn, err := d.require(n, m, "body")
		if err != nil {
			return nil, err
		}
		if ln.Kind != yaml.SequenceNode {
			return nil, d.errorf(ln, "let: expected a sequence of bindings")
		}
		le := &LetExpr{Pos: pos}
		for _, c := range ln.Content {
			def, err := d.letDef(c)
			if err != nil {
				return nil, err
			}
			le.Defs = append(le.Defs, def)
		}
		if le.Body, err = d.expr(bn); err != nil {
			return nil, err
		}
		return le, nil
	}
	return nil, d.errorf(n, "expr: unexpected node")
}

func (d *decoder) letDef(n *yaml.Node) (LetDef, error) {
	if n.Kind != yaml.MappingNode {
		return LetDef{}, d.errorf(n, "let: expected {var, type, val}")
	}
	m, err := d.fields(n, "var", "type", "val")
	if err != nil {
		return LetDef{}, err
	}
	ld := LetDef{Pos: d.pos(n)}
	for _, key := range []string{"var", "type", "val"} {
		if _, err := d.require(n, m, key); err != nil {
			return LetDef{}, err
		}
	}
	if ld.Var, err = d.ident(m["var"]); err != nil {
		return LetDef{}, err
	}
	if ld.Type, err = d.ident(m["type"]); err != nil {
		return LetDef{}, err
	}
	if ld.Val, err = d.expr(m["val"]); err != nil {
		return LetDef{}, err
	}
	return ld, nil
}

func intScalar(n *yaml.Node) (int64, bool) {
	if n.Tag != "!!int" {
		return 0, false
	}
	var v int64
	if err := n.Decode(&v); err != nil {
		return 0, false
	}
	return v, true
}
