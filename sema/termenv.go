package sema

import (
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/rewrite-abi/sema/ast"
)

// ConverterKey is the ordered type pair a converter term maps between.
type ConverterKey struct {
	Inner TypeID
	Outer TypeID
}

// TermEnv holds the terms and translated rules of one analysis.
type TermEnv struct {
	Terms      []Term
	TermMap    map[Sym]TermID
	Rules      []Rule
	Converters map[ConverterKey]TermID

	expandInternalExtractors bool
}

// TermEnvFromAST builds the term environment for defs over an already
// built type environment. Errors are accumulated in tyenv; stages that
// depend on a consistent environment only run when the earlier ones
// reported nothing.
func TermEnvFromAST(tyenv *TypeEnv, defs []ast.Def, opts Options) (*TermEnv, error) {
	env := &TermEnv{
		TermMap:                  make(map[Sym]TermID),
		Converters:               make(map[ConverterKey]TermID),
		expandInternalExtractors: opts.ExpandInternalExtractors,
	}

	stages := []struct {
		name string
		run  func()
		gate bool
	}{
		{"pragmas", func() { env.collectPragmas(defs) }, false},
		{"term signatures", func() { env.collectTermSigs(tyenv, defs) }, false},
		{"enum variant terms", func() { env.collectEnumVariantTerms(tyenv) }, true},
		{"constructors", func() { env.collectConstructors(tyenv, defs) }, false},
		{"extractor templates", func() { env.collectExtractorTemplates(tyenv, defs) }, true},
		{"converters", func() { env.collectConverters(tyenv, defs) }, true},
		{"externs", func() { env.collectExterns(tyenv, defs) }, true},
		{"rules", func() { env.collectRules(tyenv, defs) }, false},
		{"undefined decls", func() { env.checkForUndefinedDecls(tyenv, defs) }, false},
		{"expression constructors", func() { env.checkForExprTermsWithoutConstructors(tyenv, defs) }, true},
	}
	log := Logger()
	for _, s := range stages {
		log.Debug("term env stage", zap.String("stage", s.name))
		s.run()
		if s.gate && tyenv.HasErrors() {
			log.Debug("term env stopped", zap.String("stage", s.name), zap.Int("errors", len(tyenv.errors)))
			return nil, tyenv.ReturnErrors()
		}
	}
	return env, nil
}

// TermByName resolves a term name.
func (e *TermEnv) TermByName(tyenv *TypeEnv, id ast.Ident) (TermID, bool) {
	s, ok := tyenv.Intern(id.Name)
	if !ok {
		return 0, false
	}
	t, ok := e.TermMap[s]
	return t, ok
}

// RulesFor returns the rules whose root is t, in definition order.
func (e *TermEnv) RulesFor(t TermID) []*Rule {
	var out []*Rule
	for i := range e.Rules {
		if e.Rules[i].Root == t {
			out = append(out, &e.Rules[i])
		}
	}
	return out
}

func (e *TermEnv) addTerm(name Sym, argTys []TypeID, ret TypeID, kind TermKind, pos ast.Pos) TermID {
	id := TermID(len(e.Terms))
	e.Terms = append(e.Terms, Term{ID: id, Name: name, ArgTys: argTys, RetTy: ret, Kind: kind, Pos: pos})
	e.TermMap[name] = id
	return id
}

// collectPragmas accepts pragmas; none are defined.
func (e *TermEnv) collectPragmas(defs []ast.Def) {
	for _, def := range defs {
		if p, ok := def.(*ast.Pragma); ok {
			Logger().Debug("ignoring pragma", zap.String("name", p.Name.Name))
		}
	}
}

func (e *TermEnv) collectTermSigs(tyenv *TypeEnv, defs []ast.Def) {
	declPos := make(map[Sym]ast.Pos)
	for _, def := range defs {
		d, ok := def.(*ast.Decl)
		if !ok {
			continue
		}
		name := tyenv.InternMut(d.Term.Name)
		if prev, dup := declPos[name]; dup {
			tyenv.reportf(d.Pos, "Duplicate decl for '%s'", d.Term.Name)
			tyenv.reportf(prev, "Duplicate decl for '%s'", d.Term.Name)
			continue
		}
		declPos[name] = d.Pos

		if d.Multi && d.Partial {
			tyenv.reportf(d.Pos, "Term '%s' can't be both multi and partial", d.Term.Name)
		}

		resolved := true
		argTys := make([]TypeID, 0, len(d.ArgTys))
		for _, a := range d.ArgTys {
			ty, ok := tyenv.TypeByName(a)
			if !ok {
				tyenv.reportf(a.Pos, "Unknown arg type: '%s'", a.Name)
				resolved = false
				continue
			}
			argTys = append(argTys, ty)
		}
		ret, ok := tyenv.TypeByName(d.RetTy)
		if !ok {
			tyenv.reportf(d.RetTy.Pos, "Unknown return type: '%s'", d.RetTy.Name)
			resolved = false
		}
		if !resolved {
			continue
		}
		e.addTerm(name, argTys, ret, &Decl{Flags: TermFlags{Pure: d.Pure, Multi: d.Multi, Partial: d.Partial}}, d.Pos)
	}
}

func (e *TermEnv) collectEnumVariantTerms(tyenv *TypeEnv) {
	for i := range tyenv.Types {
		ty := &tyenv.Types[i]
		if ty.Primitive {
			continue
		}
		for _, v := range ty.Variants {
			if prev, dup := e.TermMap[v.FullName]; dup {
				tyenv.reportf(ty.Pos, "Duplicate enum variant constructor: '%s'", tyenv.SymName(v.FullName))
				tyenv.reportf(e.Terms[prev].Pos, "Duplicate enum variant constructor: '%s'", tyenv.SymName(v.FullName))
				continue
			}
			argTys := make([]TypeID, len(v.Fields))
			for j, f := range v.Fields {
				argTys[j] = f.Type
			}
			e.addTerm(v.FullName, argTys, ty.ID, &EnumVariant{Variant: v.ID}, ty.Pos)
		}
	}
}

func (e *TermEnv) collectConstructors(tyenv *TypeEnv, defs []ast.Def) {
	for _, def := range defs {
		r, ok := def.(*ast.Rule)
		if !ok {
			continue
		}
		root, ok := ast.RootTerm(r.Pattern)
		if !ok {
			tyenv.ReportError(r.Pos, "Rule does not have a term at the LHS root")
			continue
		}
		tid, ok := e.TermByName(tyenv, root)
		if !ok {
			tyenv.reportf(root.Pos, "Rule LHS root term is not defined: '%s'", root.Name)
			continue
		}
		switch k := e.Terms[tid].Kind.(type) {
		case *EnumVariant:
			tyenv.reportf(r.Pos, "Rule LHS root term is incorrect kind; cannot be enum variant: '%s'", root.Name)
		case *Decl:
			switch k.Constructor.(type) {
			case nil:
				k.Constructor = &InternalConstructor{}
			case *ExternalConstructor:
				tyenv.reportf(r.Pos, "Rule LHS root term is incorrect kind; cannot be external constructor: '%s'", root.Name)
			}
		}
	}
}

func (e *TermEnv) collectExtractorTemplates(tyenv *TypeEnv, defs []ast.Def) {
	graph := make(map[TermID][]TermID)
	for _, def := range defs {
		x, ok := def.(*ast.Extractor)
		if !ok {
			continue
		}
		tid, ok := e.TermByName(tyenv, x.Term)
		if !ok {
			tyenv.reportf(x.Pos, "Extractor macro body definition on a non-existent term '%s'", x.Term.Name)
			continue
		}
		tmpl := ast.MakeMacroTemplate(x.Template, x.Args)

		var callees []TermID
		ast.PatternTerms(tmpl, func(id ast.Ident) {
			callee, ok := e.TermByName(tyenv, id)
			if !ok {
				tyenv.reportf(id.Pos, "`%s` extractor definition references unknown term `%s`", x.Term.Name, id.Name)
				return
			}
			if !slices.Contains(callees, callee) {
				callees = append(callees, callee)
			}
		})

		switch k := e.Terms[tid].Kind.(type) {
		case *EnumVariant:
			tyenv.reportf(x.Pos, "Extractor macro body defined on term of enum type '%s'", x.Term.Name)
		case *Decl:
			if k.Flags.Multi {
				tyenv.reportf(x.Pos, "A term declared with `multi` cannot have an internal extractor: '%s'", x.Term.Name)
				continue
			}
			if k.Extractor != nil {
				tyenv.reportf(x.Pos, "Duplicate extractor definition for '%s'", x.Term.Name)
				tyenv.reportf(k.Extractor.position(), "Duplicate extractor definition for '%s'", x.Term.Name)
				continue
			}
			k.Extractor = &InternalExtractor{Template: tmpl, Pos: x.Pos}
			slices.Sort(callees)
			graph[tid] = callees
			Logger().Debug("extractor macro",
				zap.String("term", x.Term.Name),
				zap.Int("args", len(x.Args)),
				zap.Int("callees", len(callees)))
		}
	}
	e.checkExtractorCycles(tyenv, graph)
}

// checkExtractorCycles runs a depth-first search from every macro. Each
// path carries its own visited set, so a term reached along two acyclic
// paths is not mistaken for a cycle. Roots and callees are taken in
// ascending id order; the most recently pushed callee is explored first.
func (e *TermEnv) checkExtractorCycles(tyenv *TypeEnv, graph map[TermID][]TermID) {
	type frame struct {
		caller TermID
		path   []TermID
		seen   map[TermID]bool
	}
	for _, root := range slices.Sorted(maps.Keys(graph)) {
		stack := []frame{{caller: root, path: []TermID{root}, seen: map[TermID]bool{}}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if f.seen[f.caller] {
				names := make([]string, len(f.path))
				for i, t := range f.path {
					names[i] = tyenv.SymName(e.Terms[t].Name)
				}
				pos := e.Terms[f.caller].Kind.(*Decl).Extractor.position()
				tyenv.reportf(pos, "`%s` extractor macro is recursive: %s",
					tyenv.SymName(e.Terms[root].Name), strings.Join(names, " -> "))
				break
			}
			f.seen[f.caller] = true
			for _, callee := range graph[f.caller] {
				stack = append(stack, frame{
					caller: callee,
					path:   append(slices.Clone(f.path), callee),
					seen:   maps.Clone(f.seen),
				})
			}
		}
	}
}

func (e *TermEnv) collectConverters(tyenv *TypeEnv, defs []ast.Def) {
	for _, def := range defs {
		c, ok := def.(*ast.Converter)
		if !ok {
			continue
		}
		inner, ok := tyenv.TypeByName(c.Inner)
		if !ok {
			tyenv.reportf(c.Inner.Pos, "Unknown inner type for converter: '%s'", c.Inner.Name)
			continue
		}
		outer, ok := tyenv.TypeByName(c.Outer)
		if !ok {
			tyenv.reportf(c.Outer.Pos, "Unknown outer type for converter: '%s'", c.Outer.Name)
			continue
		}
		tid, ok := e.TermByName(tyenv, c.Term)
		if !ok {
			tyenv.reportf(c.Term.Pos, "Unknown term for converter: '%s'", c.Term.Name)
			continue
		}
		if t := &e.Terms[tid]; len(t.ArgTys) != 1 || t.ArgTys[0] != inner || t.RetTy != outer {
			tyenv.reportf(c.Pos, "Converter term '%s' must take '%s' and return '%s'",
				c.Term.Name, c.Inner.Name, c.Outer.Name)
			continue
		}
		key := ConverterKey{Inner: inner, Outer: outer}
		if _, dup := e.Converters[key]; dup {
			tyenv.reportf(c.Pos, "Converter already exists for this type pair: '%s', '%s'", c.Inner.Name, c.Outer.Name)
			continue
		}
		e.Converters[key] = tid
	}
}

func (e *TermEnv) collectExterns(tyenv *TypeEnv, defs []ast.Def) {
	for _, def := range defs {
		switch x := def.(type) {
		case *ast.ExternConstructor:
			fn := tyenv.InternMut(x.Func.Name)
			tid, ok := e.TermByName(tyenv, x.Term)
			if !ok {
				tyenv.reportf(x.Pos, "Constructor declared on undefined term '%s'", x.Term.Name)
				continue
			}
			switch k := e.Terms[tid].Kind.(type) {
			case *EnumVariant:
				tyenv.reportf(x.Pos, "Constructor defined on enum type '%s'", x.Term.Name)
			case *Decl:
				switch prev := k.Constructor.(type) {
				case nil:
					k.Constructor = &ExternalConstructor{Name: fn, Pos: x.Pos}
				case *InternalConstructor:
					tyenv.reportf(x.Pos, "External constructor declared on term that already has rules: '%s'", x.Term.Name)
				case *ExternalConstructor:
					tyenv.reportf(x.Pos, "Duplicate external constructor definition for '%s'", x.Term.Name)
					tyenv.reportf(prev.Pos, "Duplicate external constructor definition for '%s'", x.Term.Name)
				}
			}
		case *ast.ExternExtractor:
			fn := tyenv.InternMut(x.Func.Name)
			tid, ok := e.TermByName(tyenv, x.Term)
			if !ok {
				tyenv.reportf(x.Pos, "Extractor declared on undefined term '%s'", x.Term.Name)
				continue
			}
			switch k := e.Terms[tid].Kind.(type) {
			case *EnumVariant:
				tyenv.reportf(x.Pos, "Extractor defined on enum type '%s'", x.Term.Name)
			case *Decl:
				switch prev := k.Extractor.(type) {
				case nil:
					k.Extractor = &ExternalExtractor{Name: fn, Infallible: x.Infallible, Pos: x.Pos}
				case *InternalExtractor:
					tyenv.reportf(x.Pos, "External extractor declared on term '%s' that already has an internal extractor macro", x.Term.Name)
					tyenv.reportf(prev.Pos, "Internal extractor macro for '%s' defined here", x.Term.Name)
				case *ExternalExtractor:
					tyenv.reportf(x.Pos, "Duplicate external extractor definition for '%s'", x.Term.Name)
					tyenv.reportf(prev.Pos, "Duplicate external extractor definition for '%s'", x.Term.Name)
				}
			}
		}
	}
}

func (e *TermEnv) checkForUndefinedDecls(tyenv *TypeEnv, defs []ast.Def) {
	for _, def := range defs {
		d, ok := def.(*ast.Decl)
		if !ok {
			continue
		}
		tid, ok := e.TermByName(tyenv, d.Term)
		if !ok {
			continue
		}
		if t := &e.Terms[tid]; !t.HasConstructor() && !t.HasExtractor() {
			tyenv.reportf(d.Pos, "no rules, extractor, or external definition for declaration '%s'", d.Term.Name)
		}
	}
}

func (e *TermEnv) checkForExprTermsWithoutConstructors(tyenv *TypeEnv, defs []ast.Def) {
	check := func(id ast.Ident) {
		tid, ok := e.TermByName(tyenv, id)
		if !ok {
			// Reported during translation.
			return
		}
		if !e.Terms[tid].HasConstructor() {
			tyenv.reportf(id.Pos, "term `%s` cannot be used in an expression because it does not have a constructor", id.Name)
		}
	}
	for _, def := range defs {
		r, ok := def.(*ast.Rule)
		if !ok {
			continue
		}
		ast.ExprTerms(r.Expr, check)
		for _, il := range r.IfLets {
			ast.ExprTerms(il.Expr, check)
		}
	}
}
