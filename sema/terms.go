package sema

import "github.com/wippyai/rewrite-abi/sema/ast"

// TermID indexes TermEnv.Terms.
type TermID int

// Term is a name that can be constructed, matched, or both.
type Term struct {
	ID     TermID
	Name   Sym
	ArgTys []TypeID
	RetTy  TypeID
	Kind   TermKind
	Pos    ast.Pos
}

// TermKind is *EnumVariant or *Decl.
type TermKind interface {
	termKind()
}

// EnumVariant is the term synthesized for one variant of an enum.
type EnumVariant struct {
	Variant VariantID
}

// Decl is a declared term. Constructor and Extractor stay nil until some
// definition provides them.
type Decl struct {
	Flags       TermFlags
	Constructor ConstructorKind
	Extractor   ExtractorKind
}

func (*EnumVariant) termKind() {}
func (*Decl) termKind()        {}

// TermFlags are the modifiers of a declaration.
type TermFlags struct {
	Pure    bool
	Multi   bool
	Partial bool
}

// ConstructorKind is *InternalConstructor or *ExternalConstructor.
type ConstructorKind interface {
	constructorKind()
}

// InternalConstructor is defined by rules.
type InternalConstructor struct{}

// ExternalConstructor is defined by the host function Name.
type ExternalConstructor struct {
	Name Sym
	Pos  ast.Pos
}

func (*InternalConstructor) constructorKind() {}
func (*ExternalConstructor) constructorKind() {}

// ExtractorKind is *InternalExtractor or *ExternalExtractor.
type ExtractorKind interface {
	extractorKind()
	position() ast.Pos
}

// InternalExtractor is a macro; uses expand to Template.
type InternalExtractor struct {
	Template ast.Pattern
	Pos      ast.Pos
}

// ExternalExtractor is defined by the host function Name.
type ExternalExtractor struct {
	Name       Sym
	Infallible bool
	Pos        ast.Pos
}

func (*InternalExtractor) extractorKind() {}
func (*ExternalExtractor) extractorKind() {}

func (x *InternalExtractor) position() ast.Pos { return x.Pos }
func (x *ExternalExtractor) position() ast.Pos { return x.Pos }

// IsEnumVariant reports whether t was synthesized from an enum variant.
func (t *Term) IsEnumVariant() bool {
	_, ok := t.Kind.(*EnumVariant)
	return ok
}

// Flags returns the declaration flags; enum variant terms are pure.
func (t *Term) Flags() TermFlags {
	if d, ok := t.Kind.(*Decl); ok {
		return d.Flags
	}
	return TermFlags{Pure: true}
}

// HasConstructor reports whether t can be used in an expression.
func (t *Term) HasConstructor() bool {
	switch k := t.Kind.(type) {
	case *EnumVariant:
		return true
	case *Decl:
		return k.Constructor != nil
	}
	return false
}

// HasExtractor reports whether t can be used in a pattern.
func (t *Term) HasExtractor() bool {
	switch k := t.Kind.(type) {
	case *EnumVariant:
		return true
	case *Decl:
		return k.Extractor != nil
	}
	return false
}

// HasExternalExtractor reports whether t is matched by a host function.
func (t *Term) HasExternalExtractor() bool {
	if d, ok := t.Kind.(*Decl); ok {
		_, ext := d.Extractor.(*ExternalExtractor)
		return ext
	}
	return false
}

// HasExternalConstructor reports whether t is built by a host function.
func (t *Term) HasExternalConstructor() bool {
	if d, ok := t.Kind.(*Decl); ok {
		_, ext := d.Constructor.(*ExternalConstructor)
		return ext
	}
	return false
}

// ReturnKind says how a host function delivers its results.
type ReturnKind int

const (
	ReturnPlain    ReturnKind = iota // always produces a value
	ReturnOption                     // may fail to produce one
	ReturnIterator                   // produces any number
)

func (k ReturnKind) String() string {
	switch k {
	case ReturnOption:
		return "option"
	case ReturnIterator:
		return "iterator"
	default:
		return "plain"
	}
}

// ExternalSig is the host-side signature of a constructor or extractor.
type ExternalSig struct {
	FuncName string
	FullName string
	ParamTys []TypeID
	RetTys   []TypeID
	RetKind  ReturnKind
}

// ExtractorSig returns the signature of an external extractor. An
// extractor takes the term's value and returns its arguments.
func (t *Term) ExtractorSig(env *TypeEnv) (ExternalSig, bool) {
	d, ok := t.Kind.(*Decl)
	if !ok {
		return ExternalSig{}, false
	}
	x, ok := d.Extractor.(*ExternalExtractor)
	if !ok {
		return ExternalSig{}, false
	}
	kind := ReturnOption
	switch {
	case d.Flags.Multi:
		kind = ReturnIterator
	case x.Infallible:
		kind = ReturnPlain
	}
	name := env.SymName(x.Name)
	return ExternalSig{
		FuncName: name,
		FullName: "extractor " + name,
		ParamTys: []TypeID{t.RetTy},
		RetTys:   append([]TypeID(nil), t.ArgTys...),
		RetKind:  kind,
	}, true
}

// ConstructorSig returns the signature of a constructor. Internal
// constructors are named after the term.
func (t *Term) ConstructorSig(env *TypeEnv) (ExternalSig, bool) {
	d, ok := t.Kind.(*Decl)
	if !ok {
		return ExternalSig{}, false
	}
	var name, full string
	switch c := d.Constructor.(type) {
	case *ExternalConstructor:
		name = env.SymName(c.Name)
		full = "constructor " + name
	case *InternalConstructor:
		name = "constructor_" + env.SymName(t.Name)
		full = name
	default:
		return ExternalSig{}, false
	}
	kind := ReturnPlain
	switch {
	case d.Flags.Multi:
		kind = ReturnIterator
	case d.Flags.Partial:
		kind = ReturnOption
	}
	return ExternalSig{
		FuncName: name,
		FullName: full,
		ParamTys: append([]TypeID(nil), t.ArgTys...),
		RetTys:   []TypeID{t.RetTy},
		RetKind:  kind,
	}, true
}
