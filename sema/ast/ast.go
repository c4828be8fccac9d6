// Package ast defines the input of the semantic analyzer: type, term, rule
// and extractor declarations with their source positions.
package ast

import "fmt"

// Pos is a position in a source file. Line and Col are 1-based; the zero
// Pos is unknown.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Ident is a name as written, with where it was written.
type Ident struct {
	Name string
	Pos  Pos
}

func (id Ident) String() string { return id.Name }

// Def is a top-level declaration.
type Def interface {
	Position() Pos
	def()
}

// Pragma is reserved for analyzer directives. None are defined yet.
type Pragma struct {
	Name Ident
	Pos  Pos
}

// TypeDef declares a type.
type TypeDef struct {
	Name    Ident
	Value   TypeValue
	Pos     Pos
	Extern  bool // defined outside the rules; no definition is emitted
	NoDebug bool
}

// TypeValue is the body of a type declaration: *PrimitiveType or *EnumType.
type TypeValue interface {
	typeValue()
}

// PrimitiveType is an opaque type represented by a host type of the given name.
type PrimitiveType struct {
	Repr Ident
	Pos  Pos
}

// EnumType is a tagged union. A single-variant enum is a struct.
type EnumType struct {
	Variants []Variant
	Pos      Pos
}

type Variant struct {
	Name   Ident
	Fields []Field
	Pos    Pos
}

type Field struct {
	Name Ident
	Type Ident
	Pos  Pos
}

// Decl declares a term signature.
type Decl struct {
	Term    Ident
	ArgTys  []Ident
	RetTy   Ident
	Pos     Pos
	Pure    bool
	Multi   bool
	Partial bool
}

// Rule rewrites a root term matched by Pattern into Expr.
type Rule struct {
	Pattern Pattern
	IfLets  []IfLet
	Expr    Expr
	Prio    *int64
	Name    *Ident
	Pos     Pos
}

// IfLet matches Pattern against the value of Expr before the rule fires.
type IfLet struct {
	Pattern Pattern
	Expr    Expr
	Pos     Pos
}

// Extractor defines an extractor macro: a use of Term with arguments Args
// expands to Template with the arguments substituted.
type Extractor struct {
	Term     Ident
	Args     []Ident
	Template Pattern
	Pos      Pos
}

// Converter registers Term as the implicit conversion from Inner to Outer.
type Converter struct {
	Term  Ident
	Inner Ident
	Outer Ident
	Pos   Pos
}

// ExternConstructor binds a term's constructor to a host function.
type ExternConstructor struct {
	Term Ident
	Func Ident
	Pos  Pos
}

// ExternExtractor binds a term's extractor to a host function.
type ExternExtractor struct {
	Term       Ident
	Func       Ident
	Pos        Pos
	Infallible bool
}

// ExternConst declares a host constant of primitive type.
type ExternConst struct {
	Name Ident
	Type Ident
	Pos  Pos
}

func (d *Pragma) Position() Pos            { return d.Pos }
func (d *TypeDef) Position() Pos           { return d.Pos }
func (d *Decl) Position() Pos              { return d.Pos }
func (d *Rule) Position() Pos              { return d.Pos }
func (d *Extractor) Position() Pos         { return d.Pos }
func (d *Converter) Position() Pos         { return d.Pos }
func (d *ExternConstructor) Position() Pos { return d.Pos }
func (d *ExternExtractor) Position() Pos   { return d.Pos }
func (d *ExternConst) Position() Pos       { return d.Pos }

func (*Pragma) def()            {}
func (*TypeDef) def()           {}
func (*Decl) def()              {}
func (*Rule) def()              {}
func (*Extractor) def()         {}
func (*Converter) def()         {}
func (*ExternConstructor) def() {}
func (*ExternExtractor) def()   {}
func (*ExternConst) def()       {}

func (*PrimitiveType) typeValue() {}
func (*EnumType) typeValue()      {}

// Pattern is a left-hand-side pattern.
type Pattern interface {
	Position() Pos
	pattern()
}

// VarPattern binds Var on first use and matches the bound value afterwards.
type VarPattern struct {
	Var Ident
	Pos Pos
}

// BindPattern binds Var to the value and continues matching with Subpat.
type BindPattern struct {
	Var    Ident
	Subpat Pattern
	Pos    Pos
}

type ConstIntPattern struct {
	Val int64
	Pos Pos
}

// ConstPrimPattern matches an external constant.
type ConstPrimPattern struct {
	Val Ident
	Pos Pos
}

// TermPattern matches the extractor of Sym and its arguments.
type TermPattern struct {
	Sym  Ident
	Args []Pattern
	Pos  Pos
}

type WildcardPattern struct {
	Pos Pos
}

// AndPattern matches when every subpattern matches.
type AndPattern struct {
	Subpats []Pattern
	Pos     Pos
}

// MacroArgPattern is the placeholder for argument Index inside an
// extractor template.
type MacroArgPattern struct {
	Index int
	Pos   Pos
}

func (p *VarPattern) Position() Pos       { return p.Pos }
func (p *BindPattern) Position() Pos      { return p.Pos }
func (p *ConstIntPattern) Position() Pos  { return p.Pos }
func (p *ConstPrimPattern) Position() Pos { return p.Pos }
func (p *TermPattern) Position() Pos      { return p.Pos }
func (p *WildcardPattern) Position() Pos  { return p.Pos }
func (p *AndPattern) Position() Pos       { return p.Pos }
func (p *MacroArgPattern) Position() Pos  { return p.Pos }

func (*VarPattern) pattern()       {}
func (*BindPattern) pattern()      {}
func (*ConstIntPattern) pattern()  {}
func (*ConstPrimPattern) pattern() {}
func (*TermPattern) pattern()      {}
func (*WildcardPattern) pattern()  {}
func (*AndPattern) pattern()       {}
func (*MacroArgPattern) pattern()  {}

// Expr is a right-hand-side expression.
type Expr interface {
	Position() Pos
	expr()
}

// TermExpr calls the constructor of Sym.
type TermExpr struct {
	Sym  Ident
	Args []Expr
	Pos  Pos
}

type VarExpr struct {
	Name Ident
	Pos  Pos
}

type ConstIntExpr struct {
	Val int64
	Pos Pos
}

type ConstPrimExpr struct {
	Val Ident
	Pos Pos
}

// LetExpr evaluates Defs in order, each seeing the ones before it, then Body.
type LetExpr struct {
	Defs []LetDef
	Body Expr
	Pos  Pos
}

type LetDef struct {
	Var  Ident
	Type Ident
	Val  Expr
	Pos  Pos
}

func (e *TermExpr) Position() Pos      { return e.Pos }
func (e *VarExpr) Position() Pos       { return e.Pos }
func (e *ConstIntExpr) Position() Pos  { return e.Pos }
func (e *ConstPrimExpr) Position() Pos { return e.Pos }
func (e *LetExpr) Position() Pos       { return e.Pos }

func (*TermExpr) expr()      {}
func (*VarExpr) expr()       {}
func (*ConstIntExpr) expr()  {}
func (*ConstPrimExpr) expr() {}
func (*LetExpr) expr()       {}
