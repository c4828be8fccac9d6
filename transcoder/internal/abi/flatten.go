package abi

import (
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// Flatten returns the core value types of t's flat representation.
func Flatten(t wit.Type) []api.ValueType {
	switch v := t.(type) {
	case nil:
		return nil
	case wit.Bool, wit.U8, wit.U16, wit.U32, wit.S8, wit.S16, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}
	case wit.String:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case *wit.TypeDef:
		return flattenTypeDef(v)
	}
	return []api.ValueType{api.ValueTypeI32}
}

func flattenTypeDef(td *wit.TypeDef) []api.ValueType {
	if td == nil || td.Kind == nil {
		return []api.ValueType{api.ValueTypeI32}
	}

	switch kind := td.Kind.(type) {
	case *wit.Record:
		var flat []api.ValueType
		for _, f := range kind.Fields {
			flat = append(flat, Flatten(f.Type)...)
		}
		return flat
	case *wit.Tuple:
		var flat []api.ValueType
		for _, elem := range kind.Types {
			flat = append(flat, Flatten(elem)...)
		}
		return flat
	case *wit.List:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case *wit.Enum:
		return []api.ValueType{api.ValueTypeI32}
	case *wit.Flags:
		if len(kind.Flags) == 0 {
			return nil
		}
		if len(kind.Flags) > 32 {
			return []api.ValueType{api.ValueTypeI64}
		}
		return []api.ValueType{api.ValueTypeI32}
	case *wit.Option:
		return JoinCases(nil, Flatten(kind.Type))
	case *wit.Result:
		var ok, er []api.ValueType
		if kind.OK != nil {
			ok = Flatten(kind.OK)
		}
		if kind.Err != nil {
			er = Flatten(kind.Err)
		}
		return JoinCases(ok, er)
	case *wit.Variant:
		cases := make([][]api.ValueType, len(kind.Cases))
		for i, c := range kind.Cases {
			if c.Type != nil {
				cases[i] = Flatten(c.Type)
			}
		}
		return JoinCases(cases...)
	case wit.Type:
		return Flatten(kind)
	}
	return []api.ValueType{api.ValueTypeI32}
}

// JoinCases builds the flat representation of a tagged union: an i32
// discriminant followed by the position-wise join of every case payload.
func JoinCases(cases ...[]api.ValueType) []api.ValueType {
	var payload []api.ValueType
	for _, c := range cases {
		for i, ft := range c {
			if i < len(payload) {
				payload[i] = Join(payload[i], ft)
			} else {
				payload = append(payload, ft)
			}
		}
	}
	return append([]api.ValueType{api.ValueTypeI32}, payload...)
}

// Join unions two core types sharing one payload slot.
func Join(a, b api.ValueType) api.ValueType {
	if a == b {
		return a
	}
	if (a == api.ValueTypeI32 && b == api.ValueTypeF32) ||
		(a == api.ValueTypeF32 && b == api.ValueTypeI32) {
		return api.ValueTypeI32
	}
	return api.ValueTypeI64
}
