package layout_test

import (
	"errors"
	"testing"

	"quill/internal/ast"
	"quill/internal/generics"
	"quill/internal/layout"
	"quill/internal/source"
	"quill/internal/symbols"
	"quill/internal/types"
)

func TestDiscrWidthFor(t *testing.T) {
	cases := []struct {
		variants int
		want     int
	}{
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{256, 8},
		{257, 9},
	}
	for _, c := range cases {
		if got := layout.DiscrWidthFor(c.variants); got != c.want {
			t.Errorf("DiscrWidthFor(%d) = %d, want %d", c.variants, got, c.want)
		}
	}
}

func setup(t *testing.T, prog *ast.Program) (*types.Interner, *generics.Resolver, *layout.Engine) {
	t.Helper()
	strs := source.NewInterner()
	syms, err := symbols.Populate(prog, strs)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	in := types.NewInterner(source.NewInterner())
	res := generics.NewResolver(in, syms)
	eng := layout.New(layout.X86_64LinuxGNU(), in)
	return in, res, eng
}

func TestOptionOfI32Layout(t *testing.T) {
	option := &ast.EnumDecl{
		Name:       "Option",
		TypeParams: []string{"T"},
		Variants: []ast.Variant{
			{Name: "None"},
			{Name: "Some", Payload: ast.NamedType("T")},
		},
	}
	in, res, eng := setup(t, &ast.Program{Enums: []*ast.EnumDecl{option}})

	i32 := in.Intern(types.MakeInt(types.Width32))
	id, err := res.InstantiateEnum(option, []types.TypeID{i32})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	l, err := eng.LayoutOf(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if l.DiscrWidth != 1 || l.DiscrBytes() != 1 {
		t.Fatalf("discriminant = %d bits / %d bytes, want 1/1", l.DiscrWidth, l.DiscrBytes())
	}
	if l.PayloadSize != 4 {
		t.Fatalf("payload size = %d, want 4", l.PayloadSize)
	}
	if l.PayloadOffset != 4 {
		t.Fatalf("payload offset = %d, want 4", l.PayloadOffset)
	}
	if l.Size != 8 || l.Align != 4 {
		t.Fatalf("size/align = %d/%d, want 8/4", l.Size, l.Align)
	}
}

func TestFiveVariantEnumNeedsThreeBits(t *testing.T) {
	color := &ast.EnumDecl{
		Name: "Color",
		Variants: []ast.Variant{
			{Name: "Red"}, {Name: "Green"}, {Name: "Blue"},
			{Name: "Cyan"}, {Name: "Magenta"},
		},
	}
	_, res, eng := setup(t, &ast.Program{Enums: []*ast.EnumDecl{color}})

	id, err := res.InstantiateEnum(color, nil)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	l, err := eng.LayoutOf(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if l.DiscrWidth != 3 {
		t.Fatalf("discriminant width = %d, want 3", l.DiscrWidth)
	}
	if l.DiscrBytes() != 1 {
		t.Fatalf("discriminant bytes = %d, want 1", l.DiscrBytes())
	}
	if l.PayloadSize != 0 {
		t.Fatalf("payload size = %d, want 0", l.PayloadSize)
	}
}

// A nested enum payload reserves room for the inner enum's whole value,
// discriminant included.
func TestNestedEnumPayloadLayout(t *testing.T) {
	result := &ast.EnumDecl{
		Name:       "Result",
		TypeParams: []string{"T", "E"},
		Variants: []ast.Variant{
			{Name: "Ok", Payload: ast.NamedType("T")},
			{Name: "Err", Payload: ast.NamedType("E")},
		},
	}
	in, res, eng := setup(t, &ast.Program{Enums: []*ast.EnumDecl{result}})

	b := in.Builtins()
	i32 := in.Intern(types.MakeInt(types.Width32))
	inner, err := res.InstantiateEnum(result, []types.TypeID{i32, b.String})
	if err != nil {
		t.Fatalf("inner: %v", err)
	}
	outer, err := res.InstantiateEnum(result, []types.TypeID{inner, b.String})
	if err != nil {
		t.Fatalf("outer: %v", err)
	}

	li, err := eng.LayoutOf(inner)
	if err != nil {
		t.Fatalf("inner layout: %v", err)
	}
	// 1 tag byte, string handle payload at its 8-byte alignment.
	if li.PayloadOffset != 8 || li.Size != 16 {
		t.Fatalf("inner offset/size = %d/%d, want 8/16", li.PayloadOffset, li.Size)
	}

	lo, err := eng.LayoutOf(outer)
	if err != nil {
		t.Fatalf("outer layout: %v", err)
	}
	if lo.PayloadSize != li.Size {
		t.Fatalf("outer payload size = %d, want the inner enum's %d", lo.PayloadSize, li.Size)
	}
	if lo.Size != 24 {
		t.Fatalf("outer size = %d, want 24", lo.Size)
	}
}

// Layout is a pure function of the instantiation: repeated queries agree.
func TestLayoutStableAcrossQueries(t *testing.T) {
	option := &ast.EnumDecl{
		Name:       "Option",
		TypeParams: []string{"T"},
		Variants: []ast.Variant{
			{Name: "None"},
			{Name: "Some", Payload: ast.NamedType("T")},
		},
	}
	in, res, eng := setup(t, &ast.Program{Enums: []*ast.EnumDecl{option}})

	i32 := in.Intern(types.MakeInt(types.Width32))
	a, err := res.InstantiateEnum(option, []types.TypeID{i32})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := res.InstantiateEnum(option, []types.TypeID{i32})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a != b {
		t.Fatalf("instantiations interned to %d and %d, want one ID", a, b)
	}
	la, _ := eng.LayoutOf(a)
	lb, _ := eng.LayoutOf(b)
	if la.Size != lb.Size || la.DiscrWidth != lb.DiscrWidth || la.PayloadOffset != lb.PayloadOffset {
		t.Fatalf("layouts differ: %+v vs %+v", la, lb)
	}
}

func TestRecursiveEnumHasNoLayout(t *testing.T) {
	list := &ast.EnumDecl{
		Name: "List",
		Variants: []ast.Variant{
			{Name: "Nil"},
			{Name: "Cons", Payload: ast.NamedType("List")},
		},
	}
	_, res, eng := setup(t, &ast.Program{Enums: []*ast.EnumDecl{list}})

	id, err := res.InstantiateEnum(list, nil)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	_, err = eng.LayoutOf(id)
	var lerr *layout.Error
	if !errors.As(err, &lerr) || lerr.Kind != layout.ErrRecursiveUnsized {
		t.Fatalf("err = %v, want ErrRecursiveUnsized", err)
	}
}

func TestUnsubstitutedGenericHasNoSize(t *testing.T) {
	in := types.NewInterner(source.NewInterner())
	eng := layout.New(layout.X86_64LinuxGNU(), in)

	param := in.GenericParam(in.Strings().Intern("T"))
	_, err := eng.SizeOf(param)
	var lerr *layout.Error
	if !errors.As(err, &lerr) || lerr.Kind != layout.ErrUnresolvedSize {
		t.Fatalf("err = %v, want ErrUnresolvedSize", err)
	}
}

func TestStructFieldOffsets(t *testing.T) {
	pair := &ast.StructDecl{
		Name: "Pair",
		Fields: []ast.Field{
			{Name: "flag", Type: ast.BoolType()},
			{Name: "count", Type: ast.IntType(64)},
		},
	}
	_, res, eng := setup(t, &ast.Program{Structs: []*ast.StructDecl{pair}})

	id, err := res.InstantiateStruct(pair, nil)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	l, err := eng.LayoutOf(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	want := []int{0, 8}
	if len(l.FieldOffsets) != 2 || l.FieldOffsets[0] != want[0] || l.FieldOffsets[1] != want[1] {
		t.Fatalf("field offsets = %v, want %v", l.FieldOffsets, want)
	}
	if l.Size != 16 || l.Align != 8 {
		t.Fatalf("size/align = %d/%d, want 16/8", l.Size, l.Align)
	}
}

func TestTargetByTriple(t *testing.T) {
	for _, triple := range []string{"", "x86_64-linux-gnu", "aarch64-linux-gnu"} {
		tgt, ok := layout.TargetByTriple(triple)
		if !ok || tgt.PtrSize != 8 || tgt.PtrAlign != 8 {
			t.Fatalf("TargetByTriple(%q) = %+v, %v", triple, tgt, ok)
		}
	}
	if tgt, _ := layout.TargetByTriple(""); tgt.Triple != "x86_64-linux-gnu" {
		t.Fatalf("empty triple resolved to %q, want the default", tgt.Triple)
	}
	if tgt, ok := layout.TargetByTriple("riscv64-linux-gnu"); ok {
		t.Fatalf("unknown triple resolved to %+v", tgt)
	}
}
