package codegen_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quill/internal/ast"
	"quill/internal/backend/ssamod"
	"quill/internal/diag"
	"quill/internal/driver"
)

// Expression builders. Spans are zero; nothing under test reads positions.

func intLit(v int64) *ast.Expr { return &ast.Expr{Kind: ast.ExprIntLit, Int: v} }

func strLit(s string) *ast.Expr { return &ast.Expr{Kind: ast.ExprStringLit, Str: s} }

func ident(name string) *ast.Expr { return &ast.Expr{Kind: ast.ExprIdent, Name: name} }

func binary(op ast.BinaryOp, l, r *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprBinary, BinOp: op, Left: l, Right: r}
}

func call(name string, args ...*ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprCall, Name: name, Args: args}
}

func ctor(enum, variant string, payload *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprEnumCtor, Name: enum, VariantName: variant, Payload: payload}
}

func ret(v *ast.Expr) *ast.Expr { return &ast.Expr{Kind: ast.ExprReturn, Value: v} }

func match(scrut *ast.Expr, arms ...ast.Arm) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprMatch, Scrutinee: scrut, Arms: arms}
}

func block(tail *ast.Expr, stmts ...*ast.Stmt) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprBlock, Stmts: stmts, Tail: tail}
}

func let(name string, typ *ast.TypeExpr, init *ast.Expr) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtLet, Name: name, Type: typ, Value: init}
}

func variantArm(enum, variant, bind string, body *ast.Expr) ast.Arm {
	return ast.Arm{
		Pattern: &ast.Pattern{Kind: ast.PatVariant, EnumName: enum, VariantName: variant, Name: bind},
		Body:    body,
	}
}

func literalArm(lit, body *ast.Expr) ast.Arm {
	return ast.Arm{Pattern: &ast.Pattern{Kind: ast.PatLiteral, Lit: lit}, Body: body}
}

func bindingArm(name string, guard, body *ast.Expr) ast.Arm {
	return ast.Arm{Pattern: &ast.Pattern{Kind: ast.PatBinding, Name: name, Guard: guard}, Body: body}
}

func wildcardArm(body *ast.Expr) ast.Arm {
	return ast.Arm{Pattern: &ast.Pattern{Kind: ast.PatWildcard}, Body: body}
}

func optionDecl() *ast.EnumDecl {
	return &ast.EnumDecl{
		Name:       "Option",
		TypeParams: []string{"T"},
		Variants: []ast.Variant{
			{Name: "None"},
			{Name: "Some", Payload: ast.NamedType("T")},
		},
	}
}

func resultDecl() *ast.EnumDecl {
	return &ast.EnumDecl{
		Name:       "Result",
		TypeParams: []string{"T", "E"},
		Variants: []ast.Variant{
			{Name: "Ok", Payload: ast.NamedType("T")},
			{Name: "Err", Payload: ast.NamedType("E")},
		},
	}
}

func fn(name string, retT *ast.TypeExpr, body *ast.Expr, params ...ast.Param) *ast.FuncDecl {
	return &ast.FuncDecl{Name: name, Params: params, Ret: retT, Body: body}
}

func compile(t *testing.T, prog *ast.Program) *driver.Build {
	t.Helper()
	b, err := driver.Compile(context.Background(), prog, driver.Options{Jobs: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if b.Bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", b.Bag.Items())
	}
	return b
}

func run(t *testing.T, b *driver.Build, entry string, args ...int64) int64 {
	t.Helper()
	sym, ok := b.Entry[entry]
	if !ok {
		t.Fatalf("no entry symbol for %q", entry)
	}
	m := ssamod.NewMachine(b.Module)
	res, err := m.Run(sym, args...)
	if err != nil {
		t.Fatalf("run %s: %v", entry, err)
	}
	if !res.HasValue {
		t.Fatalf("run %s: no result value", entry)
	}
	return res.Word
}

func TestMatchSomeBindsPayload(t *testing.T) {
	// let x: Option<i32> = Option.Some(42)
	// match x { Some(v) => v + 1, None => 0 }
	body := block(
		match(ident("x"),
			variantArm("Option", "Some", "v", binary(ast.BinAdd, ident("v"), intLit(1))),
			variantArm("Option", "None", "", intLit(0)),
		),
		let("x", ast.NamedType("Option", ast.IntType(32)), ctor("Option", "Some", intLit(42))),
	)
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)},
		Enums: []*ast.EnumDecl{optionDecl()},
	}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 43 {
		t.Fatalf("main() = %d, want 43", got)
	}
}

func TestLetAnnotationScopedToInitializer(t *testing.T) {
	// let a: Option<string> = Option.Some("x")
	// let b = Option.Some(1)
	// match b { Some(v) => v, None => 0 }
	// Deduction on b must see Option<int>, not a's Option<string>.
	body := block(
		match(ident("b"),
			variantArm("Option", "Some", "v", ident("v")),
			variantArm("Option", "None", "", intLit(0)),
		),
		let("a", ast.NamedType("Option", ast.StringType()), ctor("Option", "Some", strLit("x"))),
		let("b", nil, ctor("Option", "Some", intLit(1))),
	)
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{fn("main", ast.IntType(0), body)},
		Enums: []*ast.EnumDecl{optionDecl()},
	}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 1 {
		t.Fatalf("main() = %d, want 1", got)
	}
}

func TestMatchErrArm(t *testing.T) {
	body := block(
		match(ident("r"),
			variantArm("Result", "Ok", "v", ident("v")),
			variantArm("Result", "Err", "", intLit(-1)),
		),
		let("r", ast.NamedType("Result", ast.IntType(32), ast.StringType()),
			ctor("Result", "Err", strLit("bad"))),
	)
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)},
		Enums: []*ast.EnumDecl{resultDecl()},
	}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != -1 {
		t.Fatalf("main() = %d, want -1", got)
	}
}

// A nested enum payload must survive construction and extraction with its
// own discriminant intact: Ok(Ok(42)) unwraps twice to 42.
func TestNestedEnumPayloadRoundTrip(t *testing.T) {
	innerT := ast.NamedType("Result", ast.IntType(32), ast.StringType())
	outerT := ast.NamedType("Result", innerT, ast.StringType())
	body := block(
		match(ident("outer"),
			variantArm("Result", "Ok", "mid",
				match(ident("mid"),
					variantArm("Result", "Ok", "v", ident("v")),
					variantArm("Result", "Err", "", intLit(-1)),
				)),
			variantArm("Result", "Err", "", intLit(-2)),
		),
		let("inner", innerT, ctor("Result", "Ok", intLit(42))),
		let("outer", outerT, ctor("Result", "Ok", ident("inner"))),
	)
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)},
		Enums: []*ast.EnumDecl{resultDecl()},
	}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 42 {
		t.Fatalf("main() = %d, want 42", got)
	}
}

func TestGenericInstantiationsShareBodies(t *testing.T) {
	identity := &ast.FuncDecl{
		Name:       "identity",
		TypeParams: []string{"T"},
		Params:     []ast.Param{{Name: "x", Type: ast.NamedType("T")}},
		Ret:        ast.NamedType("T"),
		Body:       ident("x"),
	}
	// identity over int is reached twice, identity over string once;
	// exactly two bodies must exist afterwards.
	mainBody := binary(ast.BinAdd,
		call("identity", intLit(1)),
		call("identity", intLit(2)))
	strBody := block(intLit(0),
		let("s", nil, call("identity", strLit("hi"))))
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{
			identity,
			fn("main", ast.IntType(0), mainBody),
			fn("use_str", ast.IntType(0), strBody),
		},
	}
	b := compile(t, prog)
	var bodies []string
	for _, name := range b.Module.FuncNames() {
		if strings.HasPrefix(name, "identity") {
			bodies = append(bodies, name)
		}
	}
	if len(bodies) != 2 {
		t.Fatalf("identity bodies = %v, want exactly 2", bodies)
	}
	if got := run(t, b, "main"); got != 3 {
		t.Fatalf("main() = %d, want 3", got)
	}
}

func TestAllDivergingMatchCompiles(t *testing.T) {
	// Every arm returns out of the function, so the match produces no
	// value; the function must still compile and run.
	body := block(
		match(ident("x"),
			variantArm("Option", "Some", "v", ret(binary(ast.BinAdd, ident("v"), intLit(1)))),
			variantArm("Option", "None", "", ret(intLit(0))),
		),
		let("x", ast.NamedType("Option", ast.IntType(32)), ctor("Option", "Some", intLit(1))),
	)
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)},
		Enums: []*ast.EnumDecl{optionDecl()},
	}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 2 {
		t.Fatalf("main() = %d, want 2", got)
	}
}

func TestNonExhaustiveMatchTraps(t *testing.T) {
	body := block(
		match(ident("x"),
			variantArm("Option", "None", "", intLit(0)),
		),
		let("x", ast.NamedType("Option", ast.IntType(32)), ctor("Option", "Some", intLit(1))),
	)
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)},
		Enums: []*ast.EnumDecl{optionDecl()},
	}
	b := compile(t, prog)
	m := ssamod.NewMachine(b.Module)
	_, err := m.Run(b.Entry["main"])
	var trap *ssamod.TrapError
	if !errors.As(err, &trap) {
		t.Fatalf("err = %v, want trap", err)
	}
	if !strings.Contains(trap.Msg, "exhaustive") {
		t.Fatalf("trap message %q does not mention exhaustiveness", trap.Msg)
	}
}

func TestFirstMatchingArmWins(t *testing.T) {
	body := match(intLit(1),
		literalArm(intLit(1), intLit(10)),
		wildcardArm(intLit(99)),
	)
	prog := &ast.Program{Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)}}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 10 {
		t.Fatalf("main() = %d, want 10", got)
	}
}

func TestGuardFallsThroughToNextArm(t *testing.T) {
	// The binding arm's guard fails, so the wildcard arm runs.
	body := match(intLit(2),
		bindingArm("n", binary(ast.BinGt, ident("n"), intLit(3)),
			binary(ast.BinMul, ident("n"), intLit(100))),
		wildcardArm(intLit(7)),
	)
	prog := &ast.Program{Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)}}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 7 {
		t.Fatalf("main() = %d, want 7", got)
	}
}

func TestGuardPassesWithBinding(t *testing.T) {
	body := match(intLit(5),
		literalArm(intLit(1), intLit(10)),
		bindingArm("n", binary(ast.BinGt, ident("n"), intLit(3)),
			binary(ast.BinMul, ident("n"), intLit(2))),
		wildcardArm(intLit(0)),
	)
	prog := &ast.Program{Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)}}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 10 {
		t.Fatalf("main() = %d, want 10", got)
	}
}

func TestStringLiteralPattern(t *testing.T) {
	body := block(
		match(ident("a"),
			literalArm(strLit("hi"), intLit(1)),
			wildcardArm(intLit(0)),
		),
		let("a", nil, strLit("hi")),
	)
	prog := &ast.Program{Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)}}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 1 {
		t.Fatalf("main() = %d, want 1", got)
	}
}

func TestStructLiteralAndFieldAccess(t *testing.T) {
	point := &ast.StructDecl{
		Name: "Point",
		Fields: []ast.Field{
			{Name: "x", Type: ast.IntType(32)},
			{Name: "y", Type: ast.IntType(32)},
		},
	}
	body := block(
		binary(ast.BinAdd,
			&ast.Expr{Kind: ast.ExprField, Name: "x", Left: ident("p")},
			&ast.Expr{Kind: ast.ExprField, Name: "y", Left: ident("p")}),
		let("p", nil, &ast.Expr{
			Kind: ast.ExprStructLit,
			Name: "Point",
			FieldInits: []ast.FieldInit{
				{Name: "x", Value: intLit(3)},
				{Name: "y", Value: intLit(4)},
			},
		}),
	)
	prog := &ast.Program{
		Funcs:   []*ast.FuncDecl{fn("main", ast.IntType(32), body)},
		Structs: []*ast.StructDecl{point},
	}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 7 {
		t.Fatalf("main() = %d, want 7", got)
	}
}

func TestExplicitTypeArguments(t *testing.T) {
	wrap := &ast.FuncDecl{
		Name:       "wrap",
		TypeParams: []string{"T"},
		Params:     []ast.Param{{Name: "x", Type: ast.NamedType("T")}},
		Ret:        ast.NamedType("Option", ast.NamedType("T")),
		Body:       ctor("Option", "Some", ident("x")),
	}
	body := match(
		&ast.Expr{Kind: ast.ExprCall, Name: "wrap", Args: []*ast.Expr{intLit(9)},
			TypeArgs: []*ast.TypeExpr{ast.IntType(32)}},
		variantArm("Option", "Some", "v", ident("v")),
		variantArm("Option", "None", "", intLit(0)),
	)
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{wrap, fn("main", ast.IntType(32), body)},
		Enums: []*ast.EnumDecl{optionDecl()},
	}
	b := compile(t, prog)
	if got := run(t, b, "main"); got != 9 {
		t.Fatalf("main() = %d, want 9", got)
	}
}

func TestMismatchedArmTypesDiagnosed(t *testing.T) {
	body := match(intLit(1),
		literalArm(intLit(1), intLit(10)),
		wildcardArm(strLit("oops")),
	)
	prog := &ast.Program{Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), body)}}
	b, err := driver.Compile(context.Background(), prog, driver.Options{Jobs: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !b.Bag.HasErrors() {
		t.Fatal("expected an arm type mismatch diagnostic")
	}
	found := false
	for _, d := range b.Bag.Items() {
		if d.Code == diag.GenArmTypeMismatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics %+v lack GenArmTypeMismatch", b.Bag.Items())
	}
}

func TestUnknownIdentifierDiagnosed(t *testing.T) {
	prog := &ast.Program{Funcs: []*ast.FuncDecl{fn("main", ast.IntType(32), ident("nope"))}}
	b, err := driver.Compile(context.Background(), prog, driver.Options{Jobs: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	found := false
	for _, d := range b.Bag.Items() {
		if d.Code == diag.GenUnknownIdentifier {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics %+v lack GenUnknownIdentifier", b.Bag.Items())
	}
}

func TestRecursiveFunctionCompiles(t *testing.T) {
	// fact(n) = n <= 1 ? 1 : n * fact(n - 1), written as a match.
	fact := fn("fact", ast.IntType(0),
		match(ident("n"),
			bindingArm("m", binary(ast.BinLe, ident("m"), intLit(1)), intLit(1)),
			bindingArm("m", nil,
				binary(ast.BinMul, ident("m"),
					call("fact", binary(ast.BinSub, ident("m"), intLit(1))))),
		),
		ast.Param{Name: "n", Type: ast.IntType(0)})
	prog := &ast.Program{Funcs: []*ast.FuncDecl{fact}}
	b := compile(t, prog)
	if got := run(t, b, "fact", 5); got != 120 {
		t.Fatalf("fact(5) = %d, want 120", got)
	}
}
