// Package ir lowers analyzed rules into linear instruction sequences.
//
// Each rule becomes a PatternSequence that matches the root term's
// arguments and evaluates if-let conditions, followed by an ExprSequence
// that builds the result. Sequences refer to earlier results by Value.
// Programs print as text and serialize to CBOR for external backends.
package ir

import (
	"fmt"

	"github.com/wippyai/rewrite-abi/sema"
)

// Value names one output of an earlier instruction.
type Value struct {
	Expr   bool `cbor:"1,keyasint,omitempty"` // from an expression sequence
	Inst   int  `cbor:"2,keyasint"`
	Output int  `cbor:"3,keyasint,omitempty"`
}

func (v Value) String() string {
	prefix := "p"
	if v.Expr {
		prefix = "e"
	}
	if v.Output == 0 {
		return fmt.Sprintf("%s%d", prefix, v.Inst)
	}
	return fmt.Sprintf("%s%d.%d", prefix, v.Inst, v.Output)
}

// PatternOp selects the meaning of a PatternInst.
type PatternOp uint8

const (
	OpArg          PatternOp = iota + 1 // argument Index of the root term
	OpMatchEqual                        // Inputs[0] == Inputs[1]
	OpMatchInt                          // Inputs[0] == Int
	OpMatchPrim                         // Inputs[0] == constant Prim
	OpMatchVariant                      // Inputs[0] is Variant; outputs its fields
	OpExtract                           // run the extractor of Term on Inputs[0]
	OpExpr                              // evaluate Expr; outputs its result
)

var patternOpNames = map[PatternOp]string{
	OpArg:          "arg",
	OpMatchEqual:   "match_equal",
	OpMatchInt:     "match_int",
	OpMatchPrim:    "match_prim",
	OpMatchVariant: "match_variant",
	OpExtract:      "extract",
	OpExpr:         "expr",
}

func (op PatternOp) String() string {
	if s, ok := patternOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("pattern_op(%d)", op)
}

// PatternInst is one matching step. Fields not used by Op are zero.
type PatternInst struct {
	Op         PatternOp      `cbor:"1,keyasint"`
	Inputs     []Value        `cbor:"2,keyasint,omitempty"`
	Type       sema.TypeID    `cbor:"3,keyasint"`
	OutputTys  []sema.TypeID  `cbor:"4,keyasint,omitempty"`
	Index      int            `cbor:"5,keyasint,omitempty"`
	Int        int64          `cbor:"6,keyasint,omitempty"`
	Prim       string         `cbor:"7,keyasint,omitempty"`
	Variant    sema.VariantID `cbor:"8,keyasint,omitempty"`
	Term       sema.TermID    `cbor:"9,keyasint,omitempty"`
	Infallible bool           `cbor:"10,keyasint,omitempty"`
	Multi      bool           `cbor:"11,keyasint,omitempty"`
	Expr       *ExprSequence  `cbor:"12,keyasint,omitempty"`
}

// ExprOp selects the meaning of an ExprInst.
type ExprOp uint8

const (
	OpConstInt      ExprOp = iota + 1
	OpConstPrim            // the external constant Prim
	OpCreateVariant        // build Variant from Inputs
	OpConstruct            // call the constructor of Term on Inputs
	OpReturn               // the sequence's result is Inputs[0]
)

var exprOpNames = map[ExprOp]string{
	OpConstInt:      "const_int",
	OpConstPrim:     "const_prim",
	OpCreateVariant: "create_variant",
	OpConstruct:     "construct",
	OpReturn:        "return",
}

func (op ExprOp) String() string {
	if s, ok := exprOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("expr_op(%d)", op)
}

// ExprInst is one construction step. Fields not used by Op are zero.
type ExprInst struct {
	Op         ExprOp         `cbor:"1,keyasint"`
	Inputs     []Value        `cbor:"2,keyasint,omitempty"`
	InputTys   []sema.TypeID  `cbor:"3,keyasint,omitempty"`
	Type       sema.TypeID    `cbor:"4,keyasint"`
	Int        int64          `cbor:"5,keyasint,omitempty"`
	Prim       string         `cbor:"6,keyasint,omitempty"`
	Variant    sema.VariantID `cbor:"7,keyasint,omitempty"`
	Term       sema.TermID    `cbor:"8,keyasint,omitempty"`
	Pure       bool           `cbor:"9,keyasint,omitempty"`
	Infallible bool           `cbor:"10,keyasint,omitempty"`
	Multi      bool           `cbor:"11,keyasint,omitempty"`
}

// PatternSequence is the left-hand side of a rule.
type PatternSequence struct {
	Insts []PatternInst `cbor:"1,keyasint"`
}

// ExprSequence computes one value; it ends with OpReturn.
type ExprSequence struct {
	Insts []ExprInst `cbor:"1,keyasint"`
}

// Rule is one lowered rule.
type Rule struct {
	ID      sema.RuleID     `cbor:"1,keyasint"`
	Root    sema.TermID     `cbor:"2,keyasint"`
	Prio    int64           `cbor:"3,keyasint,omitempty"`
	Name    string          `cbor:"4,keyasint,omitempty"`
	Pos     string          `cbor:"5,keyasint,omitempty"`
	Pattern PatternSequence `cbor:"6,keyasint"`
	Expr    ExprSequence    `cbor:"7,keyasint"`
}

// Type describes a type for readers of a serialized program.
type Type struct {
	Name      string   `cbor:"1,keyasint"`
	Primitive bool     `cbor:"2,keyasint,omitempty"`
	Variants  []string `cbor:"3,keyasint,omitempty"`
}

// Term describes a term for readers of a serialized program.
type Term struct {
	Name        string        `cbor:"1,keyasint"`
	ArgTys      []sema.TypeID `cbor:"2,keyasint,omitempty"`
	RetTy       sema.TypeID   `cbor:"3,keyasint"`
	Variant     bool          `cbor:"4,keyasint,omitempty"`
	Constructor string        `cbor:"5,keyasint,omitempty"` // host function, or "internal"
	Extractor   string        `cbor:"6,keyasint,omitempty"` // host function, or "internal"
	Flags       string        `cbor:"7,keyasint,omitempty"`
}

// Program is every lowered rule with the names it refers to.
type Program struct {
	Types []Type `cbor:"1,keyasint"`
	Terms []Term `cbor:"2,keyasint"`
	Rules []Rule `cbor:"3,keyasint"`
}

// TypeName returns the name of t, or a placeholder when t is out of range.
func (p *Program) TypeName(t sema.TypeID) string {
	if t < 0 || int(t) >= len(p.Types) {
		return fmt.Sprintf("<type %d>", t)
	}
	return p.Types[t].Name
}

// TermName returns the name of t, or a placeholder when t is out of range.
func (p *Program) TermName(t sema.TermID) string {
	if t < 0 || int(t) >= len(p.Terms) {
		return fmt.Sprintf("<term %d>", t)
	}
	return p.Terms[t].Name
}
