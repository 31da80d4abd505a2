package ast

import "strings"

// TypeKind enumerates syntactic type forms.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeUnit
	TypeBool
	TypeInt    // Width selects i8/i16/i32/i64; 0 means the default int
	TypeUint
	TypeFloat
	TypeString
	TypePointer // Elem
	TypeNamed   // Name, optionally Args for a generic instantiation
	TypeFunc    // Params, Ret
)

// TypeExpr is a syntactic type as written in the program. The resolver
// substitutes generic parameter names to produce a semantic types.TypeID.
//
// A TypeNamed with no Args is either a struct/enum reference or a generic
// parameter name; which one is decided at resolution time against the
// enclosing declaration's type parameters.
type TypeExpr struct {
	Kind   TypeKind    `msgpack:"kind"`
	Width  uint8       `msgpack:"width"` // bits, for numeric kinds
	Elem   *TypeExpr   `msgpack:"elem"`
	Name   string      `msgpack:"name"`
	Args   []*TypeExpr `msgpack:"args"`
	Params []*TypeExpr `msgpack:"params"`
	Ret    *TypeExpr   `msgpack:"ret"`
}

// Convenience constructors used by tests and embedders.

func UnitType() *TypeExpr   { return &TypeExpr{Kind: TypeUnit} }
func BoolType() *TypeExpr   { return &TypeExpr{Kind: TypeBool} }
func StringType() *TypeExpr { return &TypeExpr{Kind: TypeString} }

func IntType(width uint8) *TypeExpr  { return &TypeExpr{Kind: TypeInt, Width: width} }
func UintType(width uint8) *TypeExpr { return &TypeExpr{Kind: TypeUint, Width: width} }

func NamedType(name string, args ...*TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: TypeNamed, Name: name, Args: args}
}

func PointerType(elem *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: TypePointer, Elem: elem}
}

func (t *TypeExpr) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeUnit:
		return "unit"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeInt:
		if t.Width == 0 {
			return "int"
		}
		return "i" + itoa(t.Width)
	case TypeUint:
		if t.Width == 0 {
			return "uint"
		}
		return "u" + itoa(t.Width)
	case TypeFloat:
		return "f" + itoa(t.Width)
	case TypePointer:
		return "*" + t.Elem.String()
	case TypeNamed:
		if len(t.Args) == 0 {
			return t.Name
		}
		parts := make([]string, 0, len(t.Args))
		for _, a := range t.Args {
			parts = append(parts, a.String())
		}
		return t.Name + "<" + strings.Join(parts, ", ") + ">"
	case TypeFunc:
		parts := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			parts = append(parts, p.String())
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + t.Ret.String()
	default:
		return "invalid"
	}
}

func itoa(w uint8) string {
	switch w {
	case 8:
		return "8"
	case 16:
		return "16"
	case 32:
		return "32"
	case 64:
		return "64"
	}
	return "?"
}
