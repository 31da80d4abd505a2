// Package symbols holds the closed-world declaration table shared by all
// compilation workers. The table is populated from the upstream program in
// one pass and then frozen; after Freeze it is read-only and safe to share
// across goroutines without locks.
package symbols

import (
	"fmt"

	"quill/internal/ast"
	"quill/internal/source"
)

// Table indexes the program's function, enum and struct declarations.
type Table struct {
	Strings *source.Interner

	funcs   map[string]*ast.FuncDecl
	enums   map[string]*ast.EnumDecl
	structs map[string]*ast.StructDecl

	frozen bool
}

// NewTable builds an empty table. If strings is nil, a fresh interner is
// allocated.
func NewTable(strings *source.Interner) *Table {
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Table{
		Strings: strings,
		funcs:   make(map[string]*ast.FuncDecl, 16),
		enums:   make(map[string]*ast.EnumDecl, 8),
		structs: make(map[string]*ast.StructDecl, 8),
	}
}

// Populate registers every declaration of the program, then freezes the
// table. Duplicate names are a populate-time error; the upstream checker
// should have rejected them already.
func Populate(prog *ast.Program, strings *source.Interner) (*Table, error) {
	t := NewTable(strings)
	for _, e := range prog.Enums {
		if err := t.AddEnum(e); err != nil {
			return nil, err
		}
	}
	for _, s := range prog.Structs {
		if err := t.AddStruct(s); err != nil {
			return nil, err
		}
	}
	for _, f := range prog.Funcs {
		if err := t.AddFunc(f); err != nil {
			return nil, err
		}
	}
	t.Freeze()
	return t, nil
}

// Freeze makes the table immutable. Registration after Freeze panics:
// workers may already be reading concurrently.
func (t *Table) Freeze() { t.frozen = true }

// Frozen reports whether the table has been frozen.
func (t *Table) Frozen() bool { return t.frozen }

func (t *Table) mutable(what, name string) error {
	if t.frozen {
		panic(fmt.Sprintf("symbols: %s %q registered after Freeze", what, name))
	}
	return nil
}

// AddFunc registers a function declaration.
func (t *Table) AddFunc(f *ast.FuncDecl) error {
	_ = t.mutable("function", f.Name)
	if _, dup := t.funcs[f.Name]; dup {
		return fmt.Errorf("symbols: duplicate function %q", f.Name)
	}
	t.Strings.Intern(f.Name)
	t.funcs[f.Name] = f
	return nil
}

// AddEnum registers an enum declaration.
func (t *Table) AddEnum(e *ast.EnumDecl) error {
	_ = t.mutable("enum", e.Name)
	if _, dup := t.enums[e.Name]; dup {
		return fmt.Errorf("symbols: duplicate enum %q", e.Name)
	}
	t.Strings.Intern(e.Name)
	for i := range e.Variants {
		t.Strings.Intern(e.Variants[i].Name)
	}
	t.enums[e.Name] = e
	return nil
}

// AddStruct registers a struct declaration.
func (t *Table) AddStruct(s *ast.StructDecl) error {
	_ = t.mutable("struct", s.Name)
	if _, dup := t.structs[s.Name]; dup {
		return fmt.Errorf("symbols: duplicate struct %q", s.Name)
	}
	t.Strings.Intern(s.Name)
	t.structs[s.Name] = s
	return nil
}

// Func looks up a function declaration by name.
func (t *Table) Func(name string) (*ast.FuncDecl, bool) {
	f, ok := t.funcs[name]
	return f, ok
}

// Enum looks up an enum declaration by name.
func (t *Table) Enum(name string) (*ast.EnumDecl, bool) {
	e, ok := t.enums[name]
	return e, ok
}

// Struct looks up a struct declaration by name.
func (t *Table) Struct(name string) (*ast.StructDecl, bool) {
	s, ok := t.structs[name]
	return s, ok
}

// EnumOfVariant finds the unique enum declaring the named variant. Used when
// a constructor or pattern omits the enum name and the scrutinee type does
// not pin it. Ambiguous variants return ok=false.
func (t *Table) EnumOfVariant(variant string) (*ast.EnumDecl, bool) {
	var found *ast.EnumDecl
	for _, e := range t.enums {
		if _, ok := e.VariantIndex(variant); ok {
			if found != nil {
				return nil, false
			}
			found = e
		}
	}
	return found, found != nil
}

// Funcs returns all function declarations in no particular order; the
// caller sorts when determinism matters.
func (t *Table) Funcs() []*ast.FuncDecl {
	out := make([]*ast.FuncDecl, 0, len(t.funcs))
	for _, f := range t.funcs {
		out = append(out, f)
	}
	return out
}
