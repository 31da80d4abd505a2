// Package codegen translates AST function bodies into backend SSA. It hosts
// the expression compiler and the pattern-match compiler; generic payload
// and argument types flow through the generics.Context that each function
// compilation owns.
package codegen

import (
	"quill/internal/ast"
	"quill/internal/backend"
	"quill/internal/diag"
	"quill/internal/generics"
	"quill/internal/layout"
	"quill/internal/mono"
	"quill/internal/source"
	"quill/internal/symbols"
	"quill/internal/types"
)

// Emitter is one compilation worker's view of the world: its own layout
// engine, resolver and backend module, plus the shared frozen symbol table
// and the shared instantiation store.
type Emitter struct {
	Types  *types.Interner
	Syms   *symbols.Table
	Layout *layout.Engine
	Res    *generics.Resolver
	Mono   *mono.Store
	Mod    backend.Module
}

// NewEmitter wires an emitter for one worker. The symbol table must already
// be frozen: workers read it concurrently without locks.
func NewEmitter(in *types.Interner, syms *symbols.Table, target layout.Target, store *mono.Store, mod backend.Module) *Emitter {
	if !syms.Frozen() {
		panic("codegen: symbol table must be frozen before compilation starts")
	}
	return &Emitter{
		Types:  in,
		Syms:   syms,
		Layout: layout.New(target, in),
		Res:    generics.NewResolver(in, syms),
		Mono:   store,
		Mod:    mod,
	}
}

// Value is a compiled expression result. Aggregates (enums, structs) are
// address values: Ref points at their storage and Addr is set. A diverging
// value (the result of a return) carries no usable Ref; callers must stop
// emitting into the current block when they see one.
type Value struct {
	Ref      backend.Value
	Type     types.TypeID
	Addr     bool
	Diverges bool
}

func diverged() Value {
	return Value{Diverges: true}
}

// funcCompiler compiles one function instantiation. Strictly sequential
// recursive descent: one goroutine, one Context stack, one insertion point.
type funcCompiler struct {
	e *Emitter

	decl    *ast.FuncDecl
	name    string // mangled
	retType types.TypeID

	B   backend.Builder
	Ctx *generics.Context

	locals []map[string]Value
}

func (c *funcCompiler) pushLocals() {
	c.locals = append(c.locals, make(map[string]Value))
}

func (c *funcCompiler) popLocals() {
	c.locals = c.locals[:len(c.locals)-1]
}

func (c *funcCompiler) bindLocal(name string, v Value) {
	c.locals[len(c.locals)-1][name] = v
}

func (c *funcCompiler) lookupLocal(name string) (Value, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if v, ok := c.locals[i][name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// isAggregate reports whether values of t live in memory rather than in an
// SSA register.
func (c *funcCompiler) isAggregate(t types.TypeID) bool {
	tt, ok := c.e.Types.Lookup(t)
	if !ok {
		return false
	}
	return tt.Kind == types.KindEnum || tt.Kind == types.KindStruct
}

func (c *funcCompiler) sizeOf(t types.TypeID, span source.Span) (int, error) {
	size, err := c.e.Layout.SizeOf(t)
	if err != nil {
		return 0, diag.Errorf(diag.TypeUnresolvedSize, span, "%s: %v", c.e.Types.String(t), err)
	}
	return size, nil
}

// coerce checks that v is usable where want is expected. The only adjustment
// it performs is giving a default-width integer literal the expected integer
// width; everything else must match exactly.
func (c *funcCompiler) coerce(v Value, want types.TypeID, span source.Span) (Value, error) {
	if v.Type == want {
		return v, nil
	}
	b := c.e.Types.Builtins()
	if v.Type == b.Int {
		tt, ok := c.e.Types.Lookup(want)
		if ok && (tt.Kind == types.KindInt || tt.Kind == types.KindUint) {
			v.Type = want
			return v, nil
		}
	}
	return Value{}, diag.Errorf(diag.TypeMismatch, span, "expected %s, got %s",
		c.e.Types.String(want), c.e.Types.String(v.Type))
}

// expectType publishes an expected type into the innermost context scope so
// enum constructors below can resolve their concrete instantiation: the enum
// name binds to the instance and each "Enum.Variant" key binds to that
// variant's payload type. The caller owns the surrounding scope guard.
func (c *funcCompiler) expectType(t types.TypeID) {
	info, ok := c.e.Types.EnumInfo(t)
	if !ok {
		return
	}
	enumName := c.e.Types.Strings().MustLookup(info.Name)
	c.Ctx.Bind(enumName, t)
	for _, v := range info.Variants {
		key := enumName + "." + c.e.Types.Strings().MustLookup(v.Name)
		c.Ctx.Bind(key, v.Payload)
	}
}

// compileExpected compiles an expression with want published as the
// expected type for that expression only. The guard keeps the binding from
// leaking into whatever follows in the enclosing block.
func (c *funcCompiler) compileExpected(expr *ast.Expr, want types.TypeID) (Value, error) {
	sc := c.Ctx.Scope()
	defer sc.Release()
	if want != types.NoTypeID {
		c.expectType(want)
	}
	return c.compileExpr(expr)
}

// storeValue writes v into the storage behind ptr. Aggregates copy their
// full bytes; an enum payload that is itself an enum keeps its own
// discriminant this way instead of being flattened to its scalar.
func (c *funcCompiler) storeValue(ptr backend.Value, v Value, span source.Span) error {
	size, err := c.sizeOf(v.Type, span)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	if v.Addr {
		c.B.Copy(ptr, v.Ref, size)
		return nil
	}
	c.B.Store(ptr, v.Ref, size)
	return nil
}

// loadValue materializes a value of type t from ptr. Scalars load; an
// aggregate is copied whole into fresh storage, so a nested enum arrives
// with its inner discriminant intact and a second-level match can
// re-discriminate correctly.
func (c *funcCompiler) loadValue(ptr backend.Value, t types.TypeID, name string, span source.Span) (Value, error) {
	b := c.e.Types.Builtins()
	if t == b.Unit || t == types.NoTypeID {
		return Value{Type: b.Unit}, nil
	}
	size, err := c.sizeOf(t, span)
	if err != nil {
		return Value{}, err
	}
	if c.isAggregate(t) {
		l, lerr := c.e.Layout.LayoutOf(t)
		if lerr != nil {
			return Value{}, diag.Errorf(diag.TypeUnresolvedSize, span, "%s: %v", c.e.Types.String(t), lerr)
		}
		dst := c.B.Alloca(size, l.Align, name)
		c.B.Copy(dst, ptr, size)
		return Value{Ref: dst, Type: t, Addr: true}, nil
	}
	return Value{Ref: c.B.Load(ptr, size, name), Type: t}, nil
}
