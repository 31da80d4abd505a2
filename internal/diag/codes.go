package diag

import (
	"fmt"
)

// Code is a compact, stable identifier for a diagnostic kind.
//
// The 3xxx block belongs to type resolution, the 4xxx block to code
// generation. NonExhaustiveTrap has no code on purpose: a bypassed checker
// surfaces as a runtime trap instruction, never as a compile diagnostic.
type Code uint16

const (
	UnknownCode Code = 0

	// Type resolution
	TypeUnboundGeneric  Code = 3001
	TypeArityMismatch   Code = 3002
	TypeMismatch        Code = 3003
	TypeUnknownName     Code = 3004
	TypeUnresolvedSize  Code = 3005

	// Code generation
	GenUnknownIdentifier Code = 4001
	GenArmTypeMismatch   Code = 4002
	GenUnknownVariant    Code = 4003
	GenBadCall           Code = 4004
)

var codeDescription = map[Code]string{
	UnknownCode:          "unknown error",
	TypeUnboundGeneric:   "generic parameter has no binding in the current context",
	TypeArityMismatch:    "type argument count does not match the declaration",
	TypeMismatch:         "expression type does not match the expected type",
	TypeUnknownName:      "reference to an undeclared type",
	TypeUnresolvedSize:   "type size could not be resolved",
	GenUnknownIdentifier: "reference to an undeclared identifier",
	GenArmTypeMismatch:   "match arms produce values of different types",
	GenUnknownVariant:    "enum has no such variant",
	GenBadCall:           "call does not match the callee's signature",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("GEN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
