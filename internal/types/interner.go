package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"quill/internal/source"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	String  TypeID
	Int     TypeID
	Uint    TypeID
	Float   TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Nominal instantiations (enums, structs, generic params, functions) are
// deduplicated through dedicated indexes so that Option<i32> registered from
// two call sites yields one TypeID; layout caching and phi type equality
// rely on that identity.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins

	strings *source.Interner

	enums     []EnumInfo
	enumIndex map[string]TypeID

	structs     []StructInfo
	structIndex map[string]TypeID

	params     []ParamInfo
	paramIndex map[source.StringID]TypeID

	fns     []FnInfo
	fnIndex map[string]TypeID
}

// NewInterner constructs an interner seeded with built-in primitives.
// The string interner is shared with the symbols table.
func NewInterner(strs *source.Interner) *Interner {
	if strs == nil {
		strs = source.NewInterner()
	}
	in := &Interner{
		index:       make(map[typeKey]TypeID, 64),
		strings:     strs,
		enumIndex:   make(map[string]TypeID, 16),
		structIndex: make(map[string]TypeID, 16),
		paramIndex:  make(map[source.StringID]TypeID, 8),
		fnIndex:     make(map[string]TypeID, 16),
	}
	in.enums = append(in.enums, EnumInfo{})   // slot 0 is the invalid sentinel
	in.structs = append(in.structs, StructInfo{})
	in.params = append(in.params, ParamInfo{})
	in.fns = append(in.fns, FnInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Int = in.Intern(MakeInt(WidthAny))
	in.builtins.Uint = in.Intern(MakeUint(WidthAny))
	in.builtins.Float = in.Intern(MakeFloat(WidthAny))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Strings returns the shared string interner.
func (in *Interner) Strings() *source.Interner {
	return in.strings
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	key := typeKey(t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Width   Width
	Payload uint32
}

// String renders a type for diagnostics and name mangling
// (e.g. Result<i32, string> -> "Result_i32_string" via Mangle).
func (in *Interner) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindInt:
		if tt.Width == WidthAny {
			return "int"
		}
		return fmt.Sprintf("i%d", tt.Width)
	case KindUint:
		if tt.Width == WidthAny {
			return "uint"
		}
		return fmt.Sprintf("u%d", tt.Width)
	case KindFloat:
		if tt.Width == WidthAny {
			return "float"
		}
		return fmt.Sprintf("f%d", tt.Width)
	case KindPointer:
		return "*" + in.String(tt.Elem)
	case KindStruct:
		info := in.structInfo(id)
		if info == nil {
			return "<struct?>"
		}
		return in.nominalString(info.Name, info.TypeArgs)
	case KindEnum:
		info := in.enumInfo(id)
		if info == nil {
			return "<enum?>"
		}
		return in.nominalString(info.Name, info.TypeArgs)
	case KindGeneric:
		info := in.paramInfo(id)
		if info == nil {
			return "<param?>"
		}
		return in.strings.MustLookup(info.Name)
	case KindFunction:
		info := in.fnInfo(id)
		if info == nil {
			return "<fn?>"
		}
		parts := make([]string, 0, len(info.Params))
		for _, p := range info.Params {
			parts = append(parts, in.String(p))
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + in.String(info.Result)
	default:
		return "<invalid>"
	}
}

func (in *Interner) nominalString(name source.StringID, args []TypeID) string {
	base := in.strings.MustLookup(name)
	if len(args) == 0 {
		return base
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, in.String(a))
	}
	return base + "<" + strings.Join(parts, ", ") + ">"
}

// Mangle renders a type as a symbol-name fragment: Result<i32, string>
// becomes "Result_i32_string".
func (in *Interner) Mangle(id TypeID) string {
	s := in.String(id)
	r := strings.NewReplacer("<", "_", ">", "", ", ", "_", "*", "ptr_", " ", "")
	return r.Replace(s)
}

func cloneTypeArgs(args []TypeID) []TypeID {
	if len(args) == 0 {
		return nil
	}
	out := make([]TypeID, len(args))
	copy(out, args)
	return out
}

// nominalKey builds the dedup index key for a nominal instantiation.
func nominalKey(name source.StringID, args []TypeID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", name)
	for _, a := range args {
		fmt.Fprintf(&b, "#%d", a)
	}
	return b.String()
}
