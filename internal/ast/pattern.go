package ast

import "quill/internal/source"

// PatternKind enumerates the pattern forms a match arm may carry.
type PatternKind uint8

const (
	PatInvalid PatternKind = iota
	PatWildcard
	PatLiteral // Lit holds the literal expression
	PatBinding // bind the whole scrutinee to Name
	PatVariant // Enum.Variant, optionally binding the payload
)

// Pattern describes one arm's shape. A non-nil Guard gates the arm after the
// structural test passes; guard bindings see the pattern's own bindings.
type Pattern struct {
	Kind PatternKind `msgpack:"kind"`
	Span source.Span `msgpack:"span"`

	// PatLiteral
	Lit *Expr `msgpack:"lit"`

	// PatBinding, PatVariant (payload binding; empty means no binding)
	Name string `msgpack:"name"`

	// PatVariant. EnumName may be empty when the scrutinee type pins it.
	EnumName    string `msgpack:"enum_name"`
	VariantName string `msgpack:"variant_name"`

	Guard *Expr `msgpack:"guard"`
}

// Wildcard reports whether the pattern matches unconditionally (wildcard or
// bare binding, with no guard).
func (p *Pattern) Wildcard() bool {
	if p == nil || p.Guard != nil {
		return false
	}
	return p.Kind == PatWildcard || p.Kind == PatBinding
}
