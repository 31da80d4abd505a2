package types

import (
	"fmt"

	"fortio.org/safecast"

	"quill/internal/source"
)

// EnumInfo stores metadata for one concrete enum instantiation. The variant
// payload types are fully substituted: no KindGeneric remains once the
// resolver has produced the instantiation.
type EnumInfo struct {
	Name     source.StringID
	Decl     source.Span
	TypeArgs []TypeID
	Variants []EnumVariantInfo
}

// EnumVariantInfo is one variant of a concrete enum instantiation.
// Payload is NoTypeID for bare variants.
type EnumVariantInfo struct {
	Name    source.StringID
	Payload TypeID
}

// RegisterEnumInstance interns an enum instantiation with concrete type
// arguments. Identical (name, args) pairs return the same TypeID.
func (in *Interner) RegisterEnumInstance(name source.StringID, decl source.Span, args []TypeID) TypeID {
	key := nominalKey(name, args)
	if id, ok := in.enumIndex[key]; ok {
		return id
	}
	slot := in.appendEnumInfo(EnumInfo{Name: name, Decl: decl, TypeArgs: cloneTypeArgs(args)})
	id := in.internRaw(Type{Kind: KindEnum, Payload: slot})
	in.enumIndex[key] = id
	return id
}

// SetEnumVariants stores the substituted variants for the enum instantiation.
func (in *Interner) SetEnumVariants(typeID TypeID, variants []EnumVariantInfo) {
	info := in.enumInfo(typeID)
	if info == nil {
		return
	}
	info.Variants = cloneEnumVariants(variants)
}

// EnumInfo returns metadata for the provided enum TypeID.
func (in *Interner) EnumInfo(typeID TypeID) (*EnumInfo, bool) {
	info := in.enumInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

// EnumArgs returns the concrete type arguments of the instantiation.
func (in *Interner) EnumArgs(typeID TypeID) []TypeID {
	info := in.enumInfo(typeID)
	if info == nil || len(info.TypeArgs) == 0 {
		return nil
	}
	return cloneTypeArgs(info.TypeArgs)
}

// EnumVariant returns the index and payload type of the named variant.
func (in *Interner) EnumVariant(typeID TypeID, name source.StringID) (idx int, payload TypeID, ok bool) {
	info := in.enumInfo(typeID)
	if info == nil {
		return 0, NoTypeID, false
	}
	for i := range info.Variants {
		if info.Variants[i].Name == name {
			return i, info.Variants[i].Payload, true
		}
	}
	return 0, NoTypeID, false
}

func (in *Interner) enumInfo(typeID TypeID) *EnumInfo {
	if typeID == NoTypeID {
		return nil
	}
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindEnum {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.enums) {
		return nil
	}
	return &in.enums[tt.Payload]
}

func (in *Interner) appendEnumInfo(info EnumInfo) uint32 {
	in.enums = append(in.enums, info)
	slot, err := safecast.Conv[uint32](len(in.enums) - 1)
	if err != nil {
		panic(fmt.Errorf("enum info overflow: %w", err))
	}
	return slot
}

func cloneEnumVariants(variants []EnumVariantInfo) []EnumVariantInfo {
	if len(variants) == 0 {
		return nil
	}
	result := make([]EnumVariantInfo, len(variants))
	copy(result, variants)
	return result
}
