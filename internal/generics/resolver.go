package generics

import (
	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/source"
	"quill/internal/symbols"
	"quill/internal/types"
)

// Resolver substitutes concrete types for generic parameter names in a
// syntactic type expression. It reads the Context and the frozen symbol
// table; it never writes the Context.
type Resolver struct {
	Types *types.Interner
	Syms  *symbols.Table

	// Enum/struct instantiations whose member types are being resolved
	// right now. Recursive payloads resolve to the instantiation handle
	// instead of recursing forever; the layout engine rejects the ones
	// that would have infinite size.
	resolving map[types.TypeID]bool
}

func NewResolver(in *types.Interner, syms *symbols.Table) *Resolver {
	return &Resolver{
		Types:     in,
		Syms:      syms,
		resolving: make(map[types.TypeID]bool),
	}
}

// Resolve maps a syntactic type to a concrete TypeID. Every generic
// parameter mentioned by te must already be bound in ctx; an unbound name
// that is not a declared enum or struct is an UnboundGeneric error.
func (r *Resolver) Resolve(te *ast.TypeExpr, ctx *Context) (types.TypeID, error) {
	if te == nil {
		return r.Types.Builtins().Unit, nil
	}
	b := r.Types.Builtins()
	switch te.Kind {
	case ast.TypeUnit:
		return b.Unit, nil
	case ast.TypeBool:
		return b.Bool, nil
	case ast.TypeString:
		return b.String, nil
	case ast.TypeInt:
		return r.Types.Intern(types.MakeInt(types.Width(te.Width))), nil
	case ast.TypeUint:
		return r.Types.Intern(types.MakeUint(types.Width(te.Width))), nil
	case ast.TypeFloat:
		return r.Types.Intern(types.MakeFloat(types.Width(te.Width))), nil
	case ast.TypePointer:
		elem, err := r.Resolve(te.Elem, ctx)
		if err != nil {
			return types.NoTypeID, err
		}
		return r.Types.Intern(types.MakePointer(elem)), nil
	case ast.TypeFunc:
		params := make([]types.TypeID, 0, len(te.Params))
		for _, p := range te.Params {
			id, err := r.Resolve(p, ctx)
			if err != nil {
				return types.NoTypeID, err
			}
			params = append(params, id)
		}
		ret, err := r.Resolve(te.Ret, ctx)
		if err != nil {
			return types.NoTypeID, err
		}
		return r.Types.MakeFunction(params, ret), nil
	case ast.TypeNamed:
		return r.resolveNamed(te, ctx)
	default:
		return types.NoTypeID, diag.Errorf(diag.TypeUnknownName, source.Span{},
			"unresolvable type expression kind %d", te.Kind)
	}
}

func (r *Resolver) resolveNamed(te *ast.TypeExpr, ctx *Context) (types.TypeID, error) {
	// A bare name bound in the context is a substituted generic parameter.
	if len(te.Args) == 0 {
		if t, ok := ctx.Lookup(te.Name); ok {
			return t, nil
		}
	}
	if decl, ok := r.Syms.Enum(te.Name); ok {
		args, err := r.resolveArgs(te, len(decl.TypeParams), ctx)
		if err != nil {
			return types.NoTypeID, err
		}
		return r.InstantiateEnum(decl, args)
	}
	if decl, ok := r.Syms.Struct(te.Name); ok {
		args, err := r.resolveArgs(te, len(decl.TypeParams), ctx)
		if err != nil {
			return types.NoTypeID, err
		}
		return r.InstantiateStruct(decl, args)
	}
	// Not a declared type and not bound: an unbound generic parameter.
	return types.NoTypeID, diag.Errorf(diag.TypeUnboundGeneric, source.Span{},
		"generic parameter %q has no binding in scope", te.Name)
}

func (r *Resolver) resolveArgs(te *ast.TypeExpr, arity int, ctx *Context) ([]types.TypeID, error) {
	if len(te.Args) != arity {
		return nil, diag.Errorf(diag.TypeArityMismatch, source.Span{},
			"%s expects %d type argument(s), got %d", te.Name, arity, len(te.Args))
	}
	if arity == 0 {
		return nil, nil
	}
	args := make([]types.TypeID, 0, arity)
	for _, a := range te.Args {
		id, err := r.Resolve(a, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, id)
	}
	return args, nil
}

// InstantiateEnum interns the enum instantiation for the given concrete
// arguments and resolves its variant payload types under a scope binding the
// declaration's parameters. The same (decl, args) pair always returns the
// same TypeID.
func (r *Resolver) InstantiateEnum(decl *ast.EnumDecl, args []types.TypeID) (types.TypeID, error) {
	if len(args) != len(decl.TypeParams) {
		return types.NoTypeID, diag.Errorf(diag.TypeArityMismatch, decl.Span,
			"enum %s expects %d type argument(s), got %d", decl.Name, len(decl.TypeParams), len(args))
	}
	name := r.Types.Strings().Intern(decl.Name)
	id := r.Types.RegisterEnumInstance(name, decl.Span, args)
	info, _ := r.Types.EnumInfo(id)
	if info != nil && info.Variants != nil {
		return id, nil
	}
	if r.resolving[id] {
		return id, nil
	}
	r.resolving[id] = true
	defer delete(r.resolving, id)

	ctx := NewContext()
	sc := ctx.Scope()
	defer sc.Release()
	for i, p := range decl.TypeParams {
		ctx.Bind(p, args[i])
	}
	variants := make([]types.EnumVariantInfo, 0, len(decl.Variants))
	for _, v := range decl.Variants {
		payload := types.NoTypeID
		if v.Payload != nil {
			resolved, err := r.Resolve(v.Payload, ctx)
			if err != nil {
				return types.NoTypeID, err
			}
			payload = resolved
		}
		variants = append(variants, types.EnumVariantInfo{
			Name:    r.Types.Strings().Intern(v.Name),
			Payload: payload,
		})
	}
	r.Types.SetEnumVariants(id, variants)
	return id, nil
}

// InstantiateStruct interns the struct instantiation for the given concrete
// arguments and resolves its field types.
func (r *Resolver) InstantiateStruct(decl *ast.StructDecl, args []types.TypeID) (types.TypeID, error) {
	if len(args) != len(decl.TypeParams) {
		return types.NoTypeID, diag.Errorf(diag.TypeArityMismatch, decl.Span,
			"struct %s expects %d type argument(s), got %d", decl.Name, len(decl.TypeParams), len(args))
	}
	name := r.Types.Strings().Intern(decl.Name)
	id := r.Types.RegisterStructInstance(name, decl.Span, args)
	info, _ := r.Types.StructInfo(id)
	if info != nil && info.Fields != nil {
		return id, nil
	}
	if r.resolving[id] {
		return id, nil
	}
	r.resolving[id] = true
	defer delete(r.resolving, id)

	ctx := NewContext()
	sc := ctx.Scope()
	defer sc.Release()
	for i, p := range decl.TypeParams {
		ctx.Bind(p, args[i])
	}
	fields := make([]types.StructField, 0, len(decl.Fields))
	for _, f := range decl.Fields {
		resolved, err := r.Resolve(f.Type, ctx)
		if err != nil {
			return types.NoTypeID, err
		}
		fields = append(fields, types.StructField{
			Name: r.Types.Strings().Intern(f.Name),
			Type: resolved,
		})
	}
	r.Types.SetStructFields(id, fields)
	return id, nil
}
