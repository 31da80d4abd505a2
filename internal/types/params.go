package types

import (
	"fmt"

	"fortio.org/safecast"

	"quill/internal/source"
)

// ParamInfo stores the name of a generic type parameter placeholder.
// Placeholder types appear only inside generic declarations; substitution
// replaces them before layout or codegen run.
type ParamInfo struct {
	Name source.StringID
}

// GenericParam interns the placeholder type for a named type parameter.
func (in *Interner) GenericParam(name source.StringID) TypeID {
	if id, ok := in.paramIndex[name]; ok {
		return id
	}
	in.params = append(in.params, ParamInfo{Name: name})
	slot, err := safecast.Conv[uint32](len(in.params) - 1)
	if err != nil {
		panic(fmt.Errorf("param info overflow: %w", err))
	}
	id := in.internRaw(Type{Kind: KindGeneric, Payload: slot})
	in.paramIndex[name] = id
	return id
}

// ParamName returns the declared name of a generic placeholder type.
func (in *Interner) ParamName(typeID TypeID) (source.StringID, bool) {
	info := in.paramInfo(typeID)
	if info == nil {
		return source.NoStringID, false
	}
	return info.Name, true
}

func (in *Interner) paramInfo(typeID TypeID) *ParamInfo {
	if typeID == NoTypeID {
		return nil
	}
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindGeneric {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.params) {
		return nil
	}
	return &in.params[tt.Payload]
}
