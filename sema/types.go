package sema

import (
	"fmt"

	"github.com/wippyai/rewrite-abi/sema/ast"
)

// Sym is an interned name.
type Sym int

// NoSym marks an absent name.
const NoSym Sym = -1

// TypeID indexes TypeEnv.Types.
type TypeID int

// VariantID indexes the variants of one enum.
type VariantID int

// FieldID indexes the fields of one variant.
type FieldID int

// Type is a primitive or an enum. Enums with one variant serve as structs.
type Type struct {
	ID        TypeID
	Name      Sym
	Primitive bool
	Extern    bool
	NoDebug   bool
	Variants  []Variant
	Pos       ast.Pos
}

// Variant is one case of an enum.
type Variant struct {
	Name     Sym
	FullName Sym // Enum.Variant
	ID       VariantID
	Fields   []Field
}

type Field struct {
	Name Sym
	ID   FieldID
	Type TypeID
}

// TypeEnv holds the interned names, the types and the external constants
// of one analysis. It also collects errors for the whole analysis.
type TypeEnv struct {
	Syms       []string
	Types      []Type
	TypeMap    map[Sym]TypeID
	ConstTypes map[Sym]TypeID

	symMap map[string]Sym
	errors Errors
}

// NewTypeEnv returns an empty environment.
func NewTypeEnv() *TypeEnv {
	return &TypeEnv{
		TypeMap:    make(map[Sym]TypeID),
		ConstTypes: make(map[Sym]TypeID),
		symMap:     make(map[string]Sym),
	}
}

// TypeEnvFromAST builds the type environment for defs in three passes:
// assign ids to type names, resolve type bodies, then resolve the types of
// external constants. It returns every error found.
func TypeEnvFromAST(defs []ast.Def) (*TypeEnv, error) {
	env := NewTypeEnv()
	env.collectTypes(defs)
	if err := env.ReturnErrors(); err != nil {
		return nil, err
	}
	return env, nil
}

// Intern looks up name without adding it.
func (e *TypeEnv) Intern(name string) (Sym, bool) {
	s, ok := e.symMap[name]
	return s, ok
}

// InternMut returns the symbol for name, adding it if new.
func (e *TypeEnv) InternMut(name string) Sym {
	if s, ok := e.symMap[name]; ok {
		return s
	}
	s := Sym(len(e.Syms))
	e.Syms = append(e.Syms, name)
	e.symMap[name] = s
	return s
}

// SymName returns the string for s.
func (e *TypeEnv) SymName(s Sym) string {
	if s < 0 || int(s) >= len(e.Syms) {
		return fmt.Sprintf("<sym %d>", s)
	}
	return e.Syms[s]
}

// TypeByName resolves a type name.
func (e *TypeEnv) TypeByName(id ast.Ident) (TypeID, bool) {
	s, ok := e.Intern(id.Name)
	if !ok {
		return 0, false
	}
	t, ok := e.TypeMap[s]
	return t, ok
}

// TypeName returns the name of t.
func (e *TypeEnv) TypeName(t TypeID) string {
	if t < 0 || int(t) >= len(e.Types) {
		return fmt.Sprintf("<type %d>", t)
	}
	return e.SymName(e.Types[t].Name)
}

// VariantName returns the full name of variant v of enum t.
func (e *TypeEnv) VariantName(t TypeID, v VariantID) string {
	return e.SymName(e.Types[t].Variants[v].FullName)
}

// ReportError records an error and continues.
func (e *TypeEnv) ReportError(pos ast.Pos, msg string) {
	e.errors = append(e.errors, &Error{Pos: pos, Msg: msg})
}

func (e *TypeEnv) reportf(pos ast.Pos, format string, args ...any) {
	e.ReportError(pos, fmt.Sprintf(format, args...))
}

// HasErrors reports whether errors are pending.
func (e *TypeEnv) HasErrors() bool { return len(e.errors) > 0 }

// ReturnErrors drains the recorded errors, returning nil if there were none.
func (e *TypeEnv) ReturnErrors() error {
	if len(e.errors) == 0 {
		return nil
	}
	errs := e.errors
	e.errors = nil
	return errs
}

func (e *TypeEnv) collectTypes(defs []ast.Def) {
	// Ids first so bodies may refer to types declared later.
	firstPos := make(map[Sym]ast.Pos)
	var typeDefs []*ast.TypeDef
	for _, def := range defs {
		td, ok := def.(*ast.TypeDef)
		if !ok {
			continue
		}
		name := e.InternMut(td.Name.Name)
		if prev, dup := firstPos[name]; dup {
			e.reportf(td.Pos, "Type with name '%s' defined more than once", td.Name.Name)
			e.reportf(prev, "Type with name '%s' defined more than once", td.Name.Name)
			continue
		}
		firstPos[name] = td.Pos
		e.TypeMap[name] = TypeID(len(typeDefs))
		typeDefs = append(typeDefs, td)
	}

	for i, td := range typeDefs {
		e.Types = append(e.Types, e.typeFromAST(TypeID(i), td))
	}

	for _, def := range defs {
		c, ok := def.(*ast.ExternConst)
		if !ok {
			continue
		}
		ty, ok := e.TypeByName(c.Type)
		if !ok {
			e.reportf(c.Pos, "Unknown type '%s' for constant '%s'", c.Type.Name, c.Name.Name)
			continue
		}
		e.ConstTypes[e.InternMut(c.Name.Name)] = ty
	}
}

// typeFromAST resolves one type body. A type whose body fails to resolve
// keeps its slot so that ids stay dense.
func (e *TypeEnv) typeFromAST(id TypeID, td *ast.TypeDef) Type {
	name := e.InternMut(td.Name.Name)
	t := Type{ID: id, Name: name, Extern: td.Extern, NoDebug: td.NoDebug, Pos: td.Pos}

	switch v := td.Value.(type) {
	case *ast.PrimitiveType:
		t.Primitive = true
		if td.Extern {
			e.reportf(td.Pos, "Primitive type '%s' cannot be declared extern", td.Name.Name)
		}
		if td.NoDebug {
			e.reportf(td.Pos, "Primitive type '%s' cannot be declared nodebug", td.Name.Name)
		}
		e.InternMut(v.Repr.Name)
	case *ast.EnumType:
		if td.Extern && td.NoDebug {
			e.reportf(td.Pos, "Type '%s' cannot be both extern and nodebug", td.Name.Name)
		}
		variants, ok := e.variantsFromAST(td, v)
		if ok {
			t.Variants = variants
		}
	default:
		e.reportf(td.Pos, "Type '%s' has no definition", td.Name.Name)
	}
	return t
}

func (e *TypeEnv) variantsFromAST(td *ast.TypeDef, enum *ast.EnumType) ([]Variant, bool) {
	seen := make(map[string]bool, len(enum.Variants))
	variants := make([]Variant, 0, len(enum.Variants))
	for i, v := range enum.Variants {
		if seen[v.Name.Name] {
			e.reportf(v.Pos, "Duplicate variant name in type: '%s'", v.Name.Name)
			return nil, false
		}
		seen[v.Name.Name] = true

		out := Variant{
			Name:     e.InternMut(v.Name.Name),
			FullName: e.InternMut(td.Name.Name + "." + v.Name.Name),
			ID:       VariantID(i),
		}
		fieldSeen := make(map[string]bool, len(v.Fields))
		for j, f := range v.Fields {
			if fieldSeen[f.Name.Name] {
				e.reportf(f.Pos, "Duplicate field name '%s' in variant '%s' of type '%s'", f.Name.Name, v.Name.Name, td.Name.Name)
				continue
			}
			fieldSeen[f.Name.Name] = true
			ty, ok := e.TypeByName(f.Type)
			if !ok {
				e.reportf(f.Type.Pos, "Unknown type '%s' for field '%s' in variant '%s'", f.Type.Name, f.Name.Name, v.Name.Name)
				continue
			}
			out.Fields = append(out.Fields, Field{Name: e.InternMut(f.Name.Name), ID: FieldID(j), Type: ty})
		}
		variants = append(variants, out)
	}
	return variants, true
}
