package types

import (
	"fmt"

	"fortio.org/safecast"

	"quill/internal/source"
)

// StructField describes a single field inside a nominal struct type.
type StructField struct {
	Name source.StringID
	Type TypeID
}

// StructInfo stores metadata for one concrete struct instantiation.
type StructInfo struct {
	Name     source.StringID
	Decl     source.Span
	TypeArgs []TypeID
	Fields   []StructField
}

// RegisterStructInstance interns a struct instantiation with concrete type
// arguments. Identical (name, args) pairs return the same TypeID.
func (in *Interner) RegisterStructInstance(name source.StringID, decl source.Span, args []TypeID) TypeID {
	key := nominalKey(name, args)
	if id, ok := in.structIndex[key]; ok {
		return id
	}
	slot := in.appendStructInfo(StructInfo{Name: name, Decl: decl, TypeArgs: cloneTypeArgs(args)})
	id := in.internRaw(Type{Kind: KindStruct, Payload: slot})
	in.structIndex[key] = id
	return id
}

// SetStructFields stores the substituted field descriptors.
func (in *Interner) SetStructFields(typeID TypeID, fields []StructField) {
	info := in.structInfo(typeID)
	if info == nil {
		return
	}
	info.Fields = cloneStructFields(fields)
}

// StructInfo returns metadata for the provided struct TypeID.
func (in *Interner) StructInfo(typeID TypeID) (*StructInfo, bool) {
	info := in.structInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

// StructField returns the index and type of the named field.
func (in *Interner) StructField(typeID TypeID, name source.StringID) (idx int, fieldType TypeID, ok bool) {
	info := in.structInfo(typeID)
	if info == nil {
		return 0, NoTypeID, false
	}
	for i := range info.Fields {
		if info.Fields[i].Name == name {
			return i, info.Fields[i].Type, true
		}
	}
	return 0, NoTypeID, false
}

func (in *Interner) structInfo(typeID TypeID) *StructInfo {
	if typeID == NoTypeID {
		return nil
	}
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindStruct {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil
	}
	return &in.structs[tt.Payload]
}

func (in *Interner) appendStructInfo(info StructInfo) uint32 {
	in.structs = append(in.structs, info)
	slot, err := safecast.Conv[uint32](len(in.structs) - 1)
	if err != nil {
		panic(fmt.Errorf("struct info overflow: %w", err))
	}
	return slot
}

func cloneStructFields(fields []StructField) []StructField {
	if len(fields) == 0 {
		return nil
	}
	result := make([]StructField, len(fields))
	copy(result, fields)
	return result
}
