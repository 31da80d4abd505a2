package types

import (
	"testing"

	"quill/internal/source"
)

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner(source.NewInterner())

	a := in.Intern(MakeInt(Width32))
	b := in.Intern(MakeInt(Width32))
	if a != b {
		t.Fatalf("i32 interned twice: %d and %d", a, b)
	}
	if c := in.Intern(MakeInt(Width64)); c == a {
		t.Fatal("i32 and i64 share a TypeID")
	}

	p1 := in.Intern(MakePointer(a))
	p2 := in.Intern(MakePointer(a))
	if p1 != p2 {
		t.Fatalf("*i32 interned twice: %d and %d", p1, p2)
	}
}

func TestBuiltinsAreStable(t *testing.T) {
	in := NewInterner(source.NewInterner())
	b := in.Builtins()

	if got := in.Intern(Type{Kind: KindBool}); got != b.Bool {
		t.Fatalf("bool re-interned to %d, builtin is %d", got, b.Bool)
	}
	if got := in.Intern(MakeInt(WidthAny)); got != b.Int {
		t.Fatalf("int re-interned to %d, builtin is %d", got, b.Int)
	}
	if in.String(b.Unit) != "unit" || in.String(b.String) != "string" {
		t.Fatalf("builtin rendering broken: %q %q", in.String(b.Unit), in.String(b.String))
	}
}

func TestEnumInstanceIdentity(t *testing.T) {
	in := NewInterner(source.NewInterner())
	b := in.Builtins()
	name := in.Strings().Intern("Option")
	i32 := in.Intern(MakeInt(Width32))

	first := in.RegisterEnumInstance(name, source.Span{}, []TypeID{i32})
	second := in.RegisterEnumInstance(name, source.Span{}, []TypeID{i32})
	if first != second {
		t.Fatalf("Option<i32> registered twice: %d and %d", first, second)
	}
	other := in.RegisterEnumInstance(name, source.Span{}, []TypeID{b.String})
	if other == first {
		t.Fatal("Option<i32> and Option<string> share a TypeID")
	}

	in.SetEnumVariants(first, []EnumVariantInfo{
		{Name: in.Strings().Intern("None"), Payload: NoTypeID},
		{Name: in.Strings().Intern("Some"), Payload: i32},
	})
	idx, payload, ok := in.EnumVariant(first, in.Strings().Intern("Some"))
	if !ok || idx != 1 || payload != i32 {
		t.Fatalf("EnumVariant(Some) = (%d, %d, %v)", idx, payload, ok)
	}
	if _, _, ok := in.EnumVariant(first, in.Strings().Intern("Nope")); ok {
		t.Fatal("unknown variant resolved")
	}
}

func TestGenericParamIdentity(t *testing.T) {
	in := NewInterner(source.NewInterner())
	tname := in.Strings().Intern("T")

	a := in.GenericParam(tname)
	b := in.GenericParam(tname)
	if a != b {
		t.Fatalf("param T interned twice: %d and %d", a, b)
	}
	u := in.GenericParam(in.Strings().Intern("U"))
	if u == a {
		t.Fatal("T and U share a TypeID")
	}
	got, ok := in.ParamName(a)
	if !ok || got != tname {
		t.Fatalf("ParamName = (%v, %v)", got, ok)
	}
}

func TestFunctionTypeIdentity(t *testing.T) {
	in := NewInterner(source.NewInterner())
	b := in.Builtins()

	f1 := in.MakeFunction([]TypeID{b.Int, b.String}, b.Bool)
	f2 := in.MakeFunction([]TypeID{b.Int, b.String}, b.Bool)
	if f1 != f2 {
		t.Fatalf("identical signatures interned twice: %d and %d", f1, f2)
	}
	f3 := in.MakeFunction([]TypeID{b.String, b.Int}, b.Bool)
	if f3 == f1 {
		t.Fatal("parameter order was ignored")
	}
}

func TestStringAndMangle(t *testing.T) {
	in := NewInterner(source.NewInterner())
	b := in.Builtins()
	i32 := in.Intern(MakeInt(Width32))

	name := in.Strings().Intern("Result")
	id := in.RegisterEnumInstance(name, source.Span{}, []TypeID{i32, b.String})
	if got := in.String(id); got != "Result<i32, string>" {
		t.Fatalf("String = %q", got)
	}
	if got := in.Mangle(id); got != "Result_i32_string" {
		t.Fatalf("Mangle = %q", got)
	}
	ptr := in.Intern(MakePointer(i32))
	if got := in.Mangle(ptr); got != "ptr_i32" {
		t.Fatalf("Mangle(*i32) = %q", got)
	}
}
