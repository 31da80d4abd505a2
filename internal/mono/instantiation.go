// Package mono tracks monomorphization: which concrete type arguments each
// generic function is used with, and the one compiled body per distinct
// instantiation.
package mono

import (
	"strings"

	"quill/internal/source"
	"quill/internal/types"
)

// Key is a comparable instantiation key.
//
// The key is structural, not TypeID-based: workers carry their own type
// interners, so the same instantiation of Option<i32> may have different
// TypeIDs in different workers. Rendering the arguments through Mangle gives
// every worker the same key for the same concrete instantiation, which is
// what keeps the store to one body per instantiation under parallelism.
type Key struct {
	Func    string
	ArgsKey string
}

// KeyFor builds the instantiation key for a function and its concrete type
// arguments, rendered through in.
func KeyFor(in *types.Interner, fn string, typeArgs []types.TypeID) Key {
	return Key{Func: fn, ArgsKey: typeArgsKey(in, typeArgs)}
}

// UseSite records a location where an instantiation occurs.
type UseSite struct {
	Span   source.Span
	Caller string
	Note   string
}

// InstEntry captures all use sites of one instantiation. TypeArgs holds the
// rendered argument types; rendered strings stay meaningful after the
// worker-local interner that produced them is gone.
type InstEntry struct {
	Key      Key
	TypeArgs []string
	UseSites []UseSite
}

// InstantiationMap tracks generic instantiations across a module. It is not
// goroutine-safe on its own; the Store wraps access during parallel builds.
type InstantiationMap struct {
	Entries map[Key]*InstEntry
}

// NewInstantiationMap creates a new empty InstantiationMap.
func NewInstantiationMap() *InstantiationMap {
	return &InstantiationMap{Entries: make(map[Key]*InstEntry)}
}

// RenderTypeArgs renders type arguments for the instantiation listing.
func RenderTypeArgs(in *types.Interner, args []types.TypeID) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, in.String(a))
	}
	return out
}

// Record registers a generic instantiation at a specific site.
func (m *InstantiationMap) Record(key Key, typeArgs []string, site source.Span, caller, note string) {
	if m == nil || key.Func == "" {
		return
	}
	if m.Entries == nil {
		m.Entries = make(map[Key]*InstEntry)
	}
	entry := m.Entries[key]
	if entry == nil {
		entry = &InstEntry{Key: key, TypeArgs: typeArgs}
		m.Entries[key] = entry
	}
	us := UseSite{Span: site, Caller: caller, Note: note}
	if us == (UseSite{}) {
		return
	}
	for _, existing := range entry.UseSites {
		if existing == us {
			return
		}
	}
	entry.UseSites = append(entry.UseSites, us)
}

func typeArgsKey(in *types.Interner, args []types.TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(in.Mangle(arg))
	}
	return b.String()
}

// MangledName renders the emitted symbol name of an instantiation:
// identity<i32> becomes "identity_i32".
func MangledName(in *types.Interner, fn string, typeArgs []types.TypeID) string {
	if len(typeArgs) == 0 {
		return fn
	}
	parts := make([]string, 0, len(typeArgs)+1)
	parts = append(parts, fn)
	for _, a := range typeArgs {
		parts = append(parts, in.Mangle(a))
	}
	return strings.Join(parts, "_")
}
