package ast

import "quill/internal/source"

// ExprKind enumerates expression nodes. The compiler dispatches with a
// switch over this closed set, one arm per kind.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIntLit
	ExprBoolLit
	ExprStringLit
	ExprIdent
	ExprUnary
	ExprBinary
	ExprCall
	ExprEnumCtor
	ExprStructLit
	ExprField
	ExprMatch
	ExprBlock
	ExprReturn
)

// UnaryOp / BinaryOp are the operator subsets that reach this core; richer
// operators are desugared upstream.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

// Expr is a tagged expression node. Exactly the fields for its Kind are set.
type Expr struct {
	Kind ExprKind    `msgpack:"kind"`
	Span source.Span `msgpack:"span"`

	// ExprIntLit / ExprBoolLit / ExprStringLit
	Int  int64  `msgpack:"int"`
	Bool bool   `msgpack:"bool"`
	Str  string `msgpack:"str"`

	// ExprIdent, ExprCall (callee), ExprEnumCtor (enum name), ExprStructLit,
	// ExprField (field name)
	Name string `msgpack:"name"`

	// ExprUnary / ExprBinary
	UnOp  UnaryOp  `msgpack:"un_op"`
	BinOp BinaryOp `msgpack:"bin_op"`
	Left  *Expr    `msgpack:"left"`
	Right *Expr    `msgpack:"right"`

	// ExprCall
	Args     []*Expr     `msgpack:"args"`
	TypeArgs []*TypeExpr `msgpack:"type_args"` // explicit instantiation, may be empty

	// ExprEnumCtor: Name is the enum, VariantName the variant, Payload the
	// optional constructor argument.
	VariantName string `msgpack:"variant_name"`
	Payload     *Expr  `msgpack:"payload"`

	// ExprStructLit
	FieldInits []FieldInit `msgpack:"field_inits"`

	// ExprField: Left is the struct value.

	// ExprMatch
	Scrutinee *Expr `msgpack:"scrutinee"`
	Arms      []Arm `msgpack:"arms"`

	// ExprBlock
	Stmts []*Stmt `msgpack:"stmts"`
	Tail  *Expr   `msgpack:"tail"` // nil for a unit block

	// ExprReturn
	Value *Expr `msgpack:"value"` // nil for a bare return
}

type FieldInit struct {
	Name  string `msgpack:"name"`
	Value *Expr  `msgpack:"value"`
}

// Arm is one pattern arm of a match expression. Arms test in declaration
// order; the first match wins.
type Arm struct {
	Pattern *Pattern `msgpack:"pattern"`
	Body    *Expr    `msgpack:"body"`
}

// StmtKind enumerates statement nodes.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtLet
	StmtExpr
	StmtReturn
)

type Stmt struct {
	Kind StmtKind    `msgpack:"kind"`
	Span source.Span `msgpack:"span"`

	// StmtLet
	Name string    `msgpack:"name"`
	Type *TypeExpr `msgpack:"type"` // nil: take the initializer's type

	// StmtLet (initializer), StmtExpr, StmtReturn (nil for bare return)
	Value *Expr `msgpack:"value"`
}
