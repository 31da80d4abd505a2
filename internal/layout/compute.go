package layout

import (
	"math/bits"

	"quill/internal/types"
)

func (e *Engine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *Error) {
	if id == types.NoTypeID {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, nil
	}

	switch tt.Kind {
	case types.KindUnit:
		return TypeLayout{Size: 0, Align: 1}, nil

	case types.KindBool:
		return TypeLayout{Size: 1, Align: 1}, nil

	case types.KindInt, types.KindUint, types.KindFloat:
		if tt.Width == types.WidthAny {
			return e.ptrLayout(), nil
		}
		return scalarLayoutBytes(int(tt.Width) / 8), nil

	case types.KindString:
		// Strings are a runtime handle in the v1 ABI contract.
		return e.ptrLayout(), nil

	case types.KindPointer, types.KindFunction:
		return e.ptrLayout(), nil

	case types.KindStruct:
		return e.structLayout(id, state)

	case types.KindEnum:
		return e.enumLayout(id, state)

	case types.KindGeneric:
		// A generic placeholder reaching layout means the resolver's
		// substitution precondition was violated upstream.
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnresolvedSize, Type: id}

	default:
		return TypeLayout{Size: 0, Align: 1}, nil
	}
}

// DiscrWidthFor returns the number of discriminant bits for variantCount
// variants: ceil(log2(variantCount)), minimum 1 even for a single variant.
func DiscrWidthFor(variantCount int) int {
	if variantCount <= 2 {
		return 1
	}
	return bits.Len(uint(variantCount - 1))
}

// enumLayout computes the tagged-union layout of a concrete enum
// instantiation: discriminant first, payload following at its natural
// alignment. The payload region is sized to the largest variant so that any
// variant's bytes fit, including a nested enum stored as its full
// discriminant+payload value.
func (e *Engine) enumLayout(id types.TypeID, state *layoutState) (TypeLayout, *Error) {
	info, ok := e.Types.EnumInfo(id)
	if !ok || info == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}

	l := TypeLayout{
		DiscrWidth:   DiscrWidthFor(len(info.Variants)),
		PayloadAlign: 1,
	}
	for _, v := range info.Variants {
		if v.Payload == types.NoTypeID {
			continue
		}
		pl, err := e.layoutOf(v.Payload, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		if pl.Size > l.PayloadSize {
			l.PayloadSize = pl.Size
		}
		if pl.Align > l.PayloadAlign {
			l.PayloadAlign = pl.Align
		}
	}

	discrBytes := l.DiscrBytes()
	l.PayloadOffset = roundUp(discrBytes, l.PayloadAlign)
	l.Align = discrBytes
	if l.PayloadAlign > l.Align {
		l.Align = l.PayloadAlign
	}
	l.Size = roundUp(l.PayloadOffset+l.PayloadSize, l.Align)
	return l, nil
}

func (e *Engine) structLayout(id types.TypeID, state *layoutState) (TypeLayout, *Error) {
	info, ok := e.Types.StructInfo(id)
	if !ok || info == nil || len(info.Fields) == 0 {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	offsets := make([]int, len(info.Fields))
	size := 0
	align := 1
	for i := range info.Fields {
		fl, err := e.layoutOf(info.Fields[i].Type, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		size = roundUp(size, fl.Align)
		offsets[i] = size
		size += fl.Size
		if fl.Align > align {
			align = fl.Align
		}
	}
	return TypeLayout{
		Size:         roundUp(size, align),
		Align:        align,
		FieldOffsets: offsets,
	}, nil
}

func (e *Engine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}
