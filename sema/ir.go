package sema

import "github.com/wippyai/rewrite-abi/sema/ast"

// RuleID indexes TermEnv.Rules.
type RuleID int

// VarID indexes Rule.Vars.
type VarID int

// Rule is a translated rewrite rule on Root.
type Rule struct {
	ID     RuleID
	Root   TermID
	Args   []Pattern
	IfLets []IfLet
	RHS    Expr
	Vars   []BoundVar
	Prio   int64
	Name   Sym // NoSym when unnamed
	Pos    ast.Pos
}

// IfLet matches LHS against the value of RHS.
type IfLet struct {
	LHS Pattern
	RHS Expr
}

// BoundVar is a variable bound somewhere in a rule.
type BoundVar struct {
	ID    VarID
	Name  Sym
	Type  TypeID
	scope int
}

// Pattern is a typed left-hand-side node.
type Pattern interface {
	Ty() TypeID
	pattern()
}

// BindPattern binds Var to the matched value and continues with Subpat.
type BindPattern struct {
	Type   TypeID
	Var    VarID
	Subpat Pattern
}

// VarPattern matches a value equal to the already bound Var.
type VarPattern struct {
	Type TypeID
	Var  VarID
}

type ConstIntPattern struct {
	Type TypeID
	Val  int64
}

type ConstPrimPattern struct {
	Type TypeID
	Val  Sym
}

// TermPattern runs the extractor of Term and matches its outputs with Args.
type TermPattern struct {
	Type TypeID
	Term TermID
	Args []Pattern
}

type WildcardPattern struct {
	Type TypeID
}

// AndPattern matches when every subpattern matches the same value.
type AndPattern struct {
	Type    TypeID
	Subpats []Pattern
}

func (p *BindPattern) Ty() TypeID      { return p.Type }
func (p *VarPattern) Ty() TypeID       { return p.Type }
func (p *ConstIntPattern) Ty() TypeID  { return p.Type }
func (p *ConstPrimPattern) Ty() TypeID { return p.Type }
func (p *TermPattern) Ty() TypeID      { return p.Type }
func (p *WildcardPattern) Ty() TypeID  { return p.Type }
func (p *AndPattern) Ty() TypeID       { return p.Type }

func (*BindPattern) pattern()      {}
func (*VarPattern) pattern()       {}
func (*ConstIntPattern) pattern()  {}
func (*ConstPrimPattern) pattern() {}
func (*TermPattern) pattern()      {}
func (*WildcardPattern) pattern()  {}
func (*AndPattern) pattern()       {}

// Expr is a typed right-hand-side node.
type Expr interface {
	Ty() TypeID
	expr()
}

// TermExpr calls the constructor of Term.
type TermExpr struct {
	Type TypeID
	Term TermID
	Args []Expr
}

type VarExpr struct {
	Type TypeID
	Var  VarID
}

type ConstIntExpr struct {
	Type TypeID
	Val  int64
}

type ConstPrimExpr struct {
	Type TypeID
	Val  Sym
}

// LetExpr binds each of Bindings in order, then evaluates Body.
type LetExpr struct {
	Type     TypeID
	Bindings []LetBinding
	Body     Expr
}

type LetBinding struct {
	Var  VarID
	Type TypeID
	Val  Expr
}

func (e *TermExpr) Ty() TypeID      { return e.Type }
func (e *VarExpr) Ty() TypeID       { return e.Type }
func (e *ConstIntExpr) Ty() TypeID  { return e.Type }
func (e *ConstPrimExpr) Ty() TypeID { return e.Type }
func (e *LetExpr) Ty() TypeID       { return e.Type }

func (*TermExpr) expr()      {}
func (*VarExpr) expr()       {}
func (*ConstIntExpr) expr()  {}
func (*ConstPrimExpr) expr() {}
func (*LetExpr) expr()       {}
