// Package ast defines the declaration, statement, expression and pattern
// nodes this core consumes from the upstream parser. The nodes arrive free
// of syntax errors; an upstream checker is expected to have validated match
// exhaustiveness and name binding, though compilation fails safely when it
// has not.
//
// Node names are plain strings rather than interned IDs because programs
// cross the process boundary as msgpack; the types and symbols layers intern
// on their side.
package ast

import "quill/internal/source"

// Program is the closed world of declarations handed to the compiler.
// It must be fully populated before any function body compiles.
type Program struct {
	Funcs   []*FuncDecl   `msgpack:"funcs"`
	Enums   []*EnumDecl   `msgpack:"enums"`
	Structs []*StructDecl `msgpack:"structs"`
}

// FuncDecl declares a function. A non-empty TypeParams list makes it
// generic: the body compiles once per distinct concrete instantiation.
type FuncDecl struct {
	Name       string     `msgpack:"name"`
	TypeParams []string   `msgpack:"type_params"`
	Params     []Param    `msgpack:"params"`
	Ret        *TypeExpr  `msgpack:"ret"` // nil for unit
	Body       *Expr      `msgpack:"body"`
	Span       source.Span `msgpack:"span"`
}

// IsGeneric reports whether the function declares type parameters.
func (f *FuncDecl) IsGeneric() bool { return len(f.TypeParams) > 0 }

type Param struct {
	Name string    `msgpack:"name"`
	Type *TypeExpr `msgpack:"type"`
}

// EnumDecl declares a sum type. Immutable once registered.
type EnumDecl struct {
	Name       string      `msgpack:"name"`
	TypeParams []string    `msgpack:"type_params"`
	Variants   []Variant   `msgpack:"variants"`
	Span       source.Span `msgpack:"span"`
}

// Variant is one alternative of an enum. Payload is nil for bare variants.
type Variant struct {
	Name    string    `msgpack:"name"`
	Payload *TypeExpr `msgpack:"payload"`
}

// VariantIndex returns the declaration-order index of the named variant.
func (d *EnumDecl) VariantIndex(name string) (int, bool) {
	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

type StructDecl struct {
	Name       string      `msgpack:"name"`
	TypeParams []string    `msgpack:"type_params"`
	Fields     []Field     `msgpack:"fields"`
	Span       source.Span `msgpack:"span"`
}

type Field struct {
	Name string    `msgpack:"name"`
	Type *TypeExpr `msgpack:"type"`
}
