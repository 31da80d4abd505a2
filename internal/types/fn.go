package types

import (
	"fmt"

	"fortio.org/safecast"
)

// FnInfo stores the signature of a function type.
type FnInfo struct {
	Params []TypeID
	Result TypeID
}

// MakeFunction interns a function type. Identical signatures share a TypeID.
func (in *Interner) MakeFunction(params []TypeID, result TypeID) TypeID {
	key := fnKey(params, result)
	if id, ok := in.fnIndex[key]; ok {
		return id
	}
	in.fns = append(in.fns, FnInfo{Params: cloneTypeArgs(params), Result: result})
	slot, err := safecast.Conv[uint32](len(in.fns) - 1)
	if err != nil {
		panic(fmt.Errorf("fn info overflow: %w", err))
	}
	id := in.internRaw(Type{Kind: KindFunction, Payload: slot})
	in.fnIndex[key] = id
	return id
}

// FnInfo returns the signature for a function TypeID.
func (in *Interner) FnInfo(typeID TypeID) (*FnInfo, bool) {
	info := in.fnInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

func (in *Interner) fnInfo(typeID TypeID) *FnInfo {
	if typeID == NoTypeID {
		return nil
	}
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindFunction {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.fns) {
		return nil
	}
	return &in.fns[tt.Payload]
}

func fnKey(params []TypeID, result TypeID) string {
	key := fmt.Sprintf("r%d", result)
	for _, p := range params {
		key += fmt.Sprintf("#%d", p)
	}
	return key
}
