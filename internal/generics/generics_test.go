package generics_test

import (
	"errors"
	"testing"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/generics"
	"quill/internal/source"
	"quill/internal/symbols"
	"quill/internal/types"
)

func newInterner() *types.Interner {
	return types.NewInterner(source.NewInterner())
}

func newResolver(t *testing.T, prog *ast.Program) (*types.Interner, *generics.Resolver) {
	t.Helper()
	syms, err := symbols.Populate(prog, source.NewInterner())
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	in := newInterner()
	return in, generics.NewResolver(in, syms)
}

func codeOf(t *testing.T, err error) diag.Code {
	t.Helper()
	var ce *diag.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want a CompileError", err)
	}
	return ce.Code
}

func TestContextLookupIsInnermostFirst(t *testing.T) {
	in := newInterner()
	b := in.Builtins()
	ctx := generics.NewContext()
	ctx.Bind("T", b.Int)

	sc := ctx.Scope()
	ctx.Bind("T", b.String)
	if got, _ := ctx.Lookup("T"); got != b.String {
		t.Fatalf("inner lookup = %v, want the shadowing binding", got)
	}
	sc.Release()

	if got, _ := ctx.Lookup("T"); got != b.Int {
		t.Fatalf("outer lookup = %v, want the original binding", got)
	}
	if _, ok := ctx.Lookup("U"); ok {
		t.Fatal("lookup of an unbound key succeeded")
	}
}

// Releasing an outer guard pops any scope leaked above it, so one missed
// release cannot corrupt the enclosing bindings.
func TestScopeGuardPopsLeakedScopes(t *testing.T) {
	in := newInterner()
	b := in.Builtins()
	ctx := generics.NewContext()
	base := ctx.Depth()

	outer := ctx.Scope()
	ctx.Scope() // leaked on purpose
	ctx.Bind("T", b.Bool)
	outer.Release()

	if ctx.Depth() != base {
		t.Fatalf("depth = %d after release, want %d", ctx.Depth(), base)
	}
	if _, ok := ctx.Lookup("T"); ok {
		t.Fatal("binding from a leaked scope survived the outer release")
	}
	// A second release is a no-op.
	outer.Release()
	if ctx.Depth() != base {
		t.Fatalf("depth = %d after double release, want %d", ctx.Depth(), base)
	}
}

func TestResolveSubstitutesBoundParameter(t *testing.T) {
	in, res := newResolver(t, &ast.Program{})
	b := in.Builtins()

	ctx := generics.NewContext()
	ctx.Bind("T", b.String)
	got, err := res.Resolve(ast.NamedType("T"), ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != b.String {
		t.Fatalf("resolved to %v, want the bound string type", got)
	}
}

func TestResolveUnboundParameterFails(t *testing.T) {
	_, res := newResolver(t, &ast.Program{})
	_, err := res.Resolve(ast.NamedType("T"), generics.NewContext())
	if code := codeOf(t, err); code != diag.TypeUnboundGeneric {
		t.Fatalf("code = %v, want TypeUnboundGeneric", code)
	}
}

func TestResolveNestedInstantiation(t *testing.T) {
	option := &ast.EnumDecl{
		Name:       "Option",
		TypeParams: []string{"T"},
		Variants: []ast.Variant{
			{Name: "None"},
			{Name: "Some", Payload: ast.NamedType("T")},
		},
	}
	in, res := newResolver(t, &ast.Program{Enums: []*ast.EnumDecl{option}})
	b := in.Builtins()

	ctx := generics.NewContext()
	ctx.Bind("E", b.String)
	// Option<Option<E>> with E bound to string.
	id, err := res.Resolve(ast.NamedType("Option", ast.NamedType("Option", ast.NamedType("E"))), ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	info, ok := in.EnumInfo(id)
	if !ok || len(info.TypeArgs) != 1 {
		t.Fatalf("outer instantiation missing type args: %+v", info)
	}
	innerInfo, ok := in.EnumInfo(info.TypeArgs[0])
	if !ok || len(innerInfo.TypeArgs) != 1 || innerInfo.TypeArgs[0] != b.String {
		t.Fatalf("inner instantiation is not Option<string>: %+v", innerInfo)
	}
}

func TestResolveArityMismatch(t *testing.T) {
	option := &ast.EnumDecl{
		Name:       "Option",
		TypeParams: []string{"T"},
		Variants:   []ast.Variant{{Name: "None"}},
	}
	_, res := newResolver(t, &ast.Program{Enums: []*ast.EnumDecl{option}})
	_, err := res.Resolve(ast.NamedType("Option", ast.BoolType(), ast.BoolType()), generics.NewContext())
	if code := codeOf(t, err); code != diag.TypeArityMismatch {
		t.Fatalf("code = %v, want TypeArityMismatch", code)
	}
}

func identityDecl() *ast.FuncDecl {
	return &ast.FuncDecl{
		Name:       "identity",
		TypeParams: []string{"T"},
		Params:     []ast.Param{{Name: "x", Type: ast.NamedType("T")}},
		Ret:        ast.NamedType("T"),
	}
}

func TestMatchTypeArgsFromArgument(t *testing.T) {
	in := newInterner()
	i32 := in.Intern(types.MakeInt(types.Width32))

	got, err := generics.MatchTypeArgs(in, identityDecl(), []types.TypeID{i32}, source.Span{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(got) != 1 || got[0] != i32 {
		t.Fatalf("type args = %v, want [i32]", got)
	}
}

func TestMatchTypeArgsThroughNominalShape(t *testing.T) {
	option := &ast.EnumDecl{
		Name:       "Option",
		TypeParams: []string{"T"},
		Variants: []ast.Variant{
			{Name: "None"},
			{Name: "Some", Payload: ast.NamedType("T")},
		},
	}
	in, res := newResolver(t, &ast.Program{Enums: []*ast.EnumDecl{option}})
	b := in.Builtins()
	inst, err := res.InstantiateEnum(option, []types.TypeID{b.String})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	unwrap := &ast.FuncDecl{
		Name:       "unwrap",
		TypeParams: []string{"T"},
		Params:     []ast.Param{{Name: "o", Type: ast.NamedType("Option", ast.NamedType("T"))}},
		Ret:        ast.NamedType("T"),
	}
	got, err := generics.MatchTypeArgs(in, unwrap, []types.TypeID{inst}, source.Span{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(got) != 1 || got[0] != b.String {
		t.Fatalf("type args = %v, want [string]", got)
	}
}

func TestMatchTypeArgsConflict(t *testing.T) {
	in := newInterner()
	b := in.Builtins()
	pair := &ast.FuncDecl{
		Name:       "pair",
		TypeParams: []string{"T"},
		Params: []ast.Param{
			{Name: "a", Type: ast.NamedType("T")},
			{Name: "b", Type: ast.NamedType("T")},
		},
	}
	_, err := generics.MatchTypeArgs(in, pair, []types.TypeID{b.Int, b.String}, source.Span{})
	if code := codeOf(t, err); code != diag.TypeMismatch {
		t.Fatalf("code = %v, want TypeMismatch", code)
	}
}

func TestMatchTypeArgsUndeducible(t *testing.T) {
	in := newInterner()
	b := in.Builtins()
	produce := &ast.FuncDecl{
		Name:       "produce",
		TypeParams: []string{"T"},
		Params:     []ast.Param{{Name: "n", Type: ast.IntType(32)}},
		Ret:        ast.NamedType("T"),
	}
	_, err := generics.MatchTypeArgs(in, produce, []types.TypeID{b.Int}, source.Span{})
	if code := codeOf(t, err); code != diag.TypeUnboundGeneric {
		t.Fatalf("code = %v, want TypeUnboundGeneric", code)
	}
}
