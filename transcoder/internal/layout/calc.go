package layout

import (
	"github.com/wippyai/rewrite-abi/transcoder/internal/abi"
	"go.bytecodealliance.org/wit"
)

// Info is the memory footprint of a type. Offsets holds field or element
// offsets for records and tuples, and the payload offset for unions.
type Info struct {
	Offsets []uint32
	Size    uint32
	Align   uint32
}

type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if t == nil {
		return Info{Size: 0, Align: 1}
	}
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(kind.Fields))
		for i, f := range kind.Fields {
			types[i] = f.Type
		}
		info = c.sequence(types)
	case *wit.Tuple:
		info = c.sequence(kind.Types)
	case *wit.Variant:
		payloads := make([]wit.Type, len(kind.Cases))
		for i, cs := range kind.Cases {
			payloads[i] = cs.Type
		}
		info = c.union(payloads)
	case *wit.Option:
		info = c.union([]wit.Type{nil, kind.Type})
	case *wit.Result:
		info = c.union([]wit.Type{kind.OK, kind.Err})
	case *wit.Enum:
		size := abi.DiscriminantSize(len(kind.Cases))
		info = Info{Size: size, Align: size}
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Flags:
		info = flags(len(kind.Flags))
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

// sequence lays out types one after another, each at its own alignment.
func (c *Calculator) sequence(types []wit.Type) Info {
	if len(types) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offsets := make([]uint32, len(types))
	maxAlign := uint32(1)
	offset := uint32(0)

	for i, typ := range types {
		elem := c.Calculate(typ)
		offset = abi.AlignTo(offset, elem.Align)
		offsets[i] = offset
		if elem.Align > maxAlign {
			maxAlign = elem.Align
		}
		offset += elem.Size
	}

	return Info{
		Offsets: offsets,
		Size:    abi.AlignTo(offset, maxAlign),
		Align:   maxAlign,
	}
}

// union lays out a discriminant followed by the largest payload. A nil
// entry is a case without payload.
func (c *Calculator) union(payloads []wit.Type) Info {
	discSize := abi.DiscriminantSize(len(payloads))

	maxAlign := discSize
	maxSize := uint32(0)

	for _, p := range payloads {
		if p == nil {
			continue
		}
		caseLayout := c.Calculate(p)
		if caseLayout.Align > maxAlign {
			maxAlign = caseLayout.Align
		}
		if caseLayout.Size > maxSize {
			maxSize = caseLayout.Size
		}
	}

	payloadOffset := abi.AlignTo(discSize, maxAlign)

	return Info{
		Offsets: []uint32{payloadOffset},
		Size:    abi.AlignTo(payloadOffset+maxSize, maxAlign),
		Align:   maxAlign,
	}
}

func flags(n int) Info {
	size := abi.FlagsSize(n)
	if size == 0 {
		return Info{Size: 0, Align: 1}
	}
	return Info{Size: size, Align: size}
}
