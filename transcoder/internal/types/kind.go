package types

import "go.bytecodealliance.org/wit"

type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindS8
	KindU16
	KindS16
	KindU32
	KindS32
	KindU64
	KindS64
	KindF32
	KindF64
	KindChar
	KindString
	KindRecord
	KindList
	KindVariant
	KindOption
	KindResult
	KindTuple
	KindEnum
	KindFlags
	KindUnknown
)

var kindNames = [...]string{
	KindBool:    "bool",
	KindU8:      "u8",
	KindS8:      "s8",
	KindU16:     "u16",
	KindS16:     "s16",
	KindU32:     "u32",
	KindS32:     "s32",
	KindU64:     "u64",
	KindS64:     "s64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindChar:    "char",
	KindString:  "string",
	KindRecord:  "record",
	KindList:    "list",
	KindVariant: "variant",
	KindOption:  "option",
	KindResult:  "result",
	KindTuple:   "tuple",
	KindEnum:    "enum",
	KindFlags:   "flags",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) IsPrimitive() bool {
	return k <= KindChar
}

// Resolve strips alias TypeDefs until it reaches a primitive or a TypeDef
// with a structural kind.
func Resolve(t wit.Type) wit.Type {
	for {
		td, ok := t.(*wit.TypeDef)
		if !ok || td == nil {
			return t
		}
		inner, ok := td.Kind.(wit.Type)
		if !ok {
			return t
		}
		t = inner
	}
}

// Of returns the kind of t after alias resolution.
func Of(t wit.Type) Kind {
	switch v := Resolve(t).(type) {
	case wit.Bool:
		return KindBool
	case wit.U8:
		return KindU8
	case wit.S8:
		return KindS8
	case wit.U16:
		return KindU16
	case wit.S16:
		return KindS16
	case wit.U32:
		return KindU32
	case wit.S32:
		return KindS32
	case wit.U64:
		return KindU64
	case wit.S64:
		return KindS64
	case wit.F32:
		return KindF32
	case wit.F64:
		return KindF64
	case wit.Char:
		return KindChar
	case wit.String:
		return KindString
	case *wit.TypeDef:
		if v == nil {
			return KindUnknown
		}
		switch v.Kind.(type) {
		case *wit.Record:
			return KindRecord
		case *wit.List:
			return KindList
		case *wit.Variant:
			return KindVariant
		case *wit.Option:
			return KindOption
		case *wit.Result:
			return KindResult
		case *wit.Tuple:
			return KindTuple
		case *wit.Enum:
			return KindEnum
		case *wit.Flags:
			return KindFlags
		}
	}
	return KindUnknown
}

// Name renders t for error messages: the declared name when there is one,
// otherwise the kind.
func Name(t wit.Type) string {
	if t == nil {
		return "none"
	}
	if td, ok := t.(*wit.TypeDef); ok && td != nil && td.Name != nil {
		return *td.Name
	}
	return Of(t).String()
}
