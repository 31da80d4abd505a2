// Package layout computes in-memory layout for concrete types, most
// importantly the tagged-union layout of enum instantiations: discriminant
// width, payload size and alignment. Results are pure functions of the
// instantiation and cached per TypeID.
package layout

import (
	"quill/internal/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Struct-only:
	FieldOffsets []int

	// Enum-only (tagged union):
	DiscrWidth    int // bits sufficient for the variant count, min 1
	PayloadSize   int // max over variants, payload-less variants count 0
	PayloadAlign  int
	PayloadOffset int
}

// DiscrBytes returns the discriminant's storage size in bytes: the smallest
// power-of-two byte count covering DiscrWidth bits.
func (l TypeLayout) DiscrBytes() int {
	switch {
	case l.DiscrWidth <= 8:
		return 1
	case l.DiscrWidth <= 16:
		return 2
	case l.DiscrWidth <= 32:
		return 4
	default:
		return 8
	}
}

// Engine computes memory layout for types.
type Engine struct {
	Target Target
	Types  *types.Interner

	cache *cache
}

// New creates a layout engine for the specified target.
func New(target Target, typesIn *types.Interner) *Engine {
	return &Engine{
		Target: target,
		Types:  typesIn,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{index: make(map[types.TypeID]int, 32)}
}

// LayoutOf computes and caches the layout of a type. Repeated calls with the
// same TypeID return identical layouts.
func (e *Engine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	l, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *Engine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *Error) {
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := append([]types.TypeID(nil), state.stack[idx:]...)
		cycle = append(cycle, t)
		err := &Error{Kind: ErrRecursiveUnsized, Type: t, Cycle: cycle}
		e.cache.put(t, cacheEntry{Layout: TypeLayout{Size: 0, Align: 1}, Err: err})
		return TypeLayout{Size: 0, Align: 1}, err
	}
	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)

	l, err := e.computeLayout(t, state)

	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, cacheEntry{Layout: l, Err: err})
	return l, err
}

// SizeOf returns the size of a type in bytes.
func (e *Engine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *Engine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a struct field.
func (e *Engine) FieldOffset(structT types.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(structT)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}
