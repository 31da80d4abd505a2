package codegen

import (
	"quill/internal/ast"
	"quill/internal/backend"
	"quill/internal/diag"
	"quill/internal/generics"
	"quill/internal/types"
)

// compileCall resolves the callee's concrete instantiation, compiles it on
// first use through the shared store, and emits the call. Type arguments
// come from the call's explicit list when present and are otherwise derived
// from the compiled argument types.
func (c *funcCompiler) compileCall(expr *ast.Expr) (Value, error) {
	decl, ok := c.e.Syms.Func(expr.Name)
	if !ok {
		return Value{}, diag.Errorf(diag.GenUnknownIdentifier, expr.Span,
			"unknown function %q", expr.Name)
	}
	if len(expr.Args) != len(decl.Params) {
		return Value{}, diag.Errorf(diag.GenBadCall, expr.Span,
			"%s expects %d argument(s), got %d", decl.Name, len(decl.Params), len(expr.Args))
	}

	var typeArgs []types.TypeID
	if len(expr.TypeArgs) > 0 {
		if len(expr.TypeArgs) != len(decl.TypeParams) {
			return Value{}, diag.Errorf(diag.TypeArityMismatch, expr.Span,
				"%s expects %d type argument(s), got %d", decl.Name, len(decl.TypeParams), len(expr.TypeArgs))
		}
		typeArgs = make([]types.TypeID, 0, len(expr.TypeArgs))
		for _, te := range expr.TypeArgs {
			t, err := c.e.Res.Resolve(te, c.Ctx)
			if err != nil {
				return Value{}, err
			}
			typeArgs = append(typeArgs, t)
		}
	}

	// With the instantiation pinned, argument expressions see their
	// substituted parameter types; without it they compile bare and the
	// type arguments are derived from what they produce.
	var args []Value
	var err error
	if typeArgs != nil || !decl.IsGeneric() {
		args, err = c.compileArgsExpected(expr, decl, typeArgs)
	} else {
		args, err = c.compileArgsBare(expr)
	}
	if err != nil {
		return Value{}, err
	}
	if args == nil {
		return diverged(), nil
	}

	if typeArgs == nil && decl.IsGeneric() {
		argTypes := make([]types.TypeID, 0, len(args))
		for _, a := range args {
			argTypes = append(argTypes, a.Type)
		}
		typeArgs, err = generics.MatchTypeArgs(c.e.Types, decl, argTypes, expr.Span)
		if err != nil {
			return Value{}, err
		}
	}

	cf, err := c.e.CompileFunc(decl, typeArgs)
	if err != nil {
		return Value{}, err
	}
	c.e.Mono.RecordUse(c.e.Types, decl.Name, typeArgs, expr.Span, c.name, "call")

	// Coerce arguments and type the result against the instantiated
	// signature, resolved in this worker's interner. cf may have been
	// declared by another worker whose TypeIDs mean nothing here.
	ctx := generics.NewContext()
	sc := ctx.Scope()
	defer sc.Release()
	for i, p := range decl.TypeParams {
		ctx.Bind(p, typeArgs[i])
	}
	refs := make([]backend.Value, 0, len(args))
	for i, p := range decl.Params {
		want, rerr := c.e.Res.Resolve(p.Type, ctx)
		if rerr != nil {
			return Value{}, rerr
		}
		a, cerr := c.coerce(args[i], want, expr.Args[i].Span)
		if cerr != nil {
			return Value{}, cerr
		}
		refs = append(refs, a.Ref)
	}
	result, err := c.e.Res.Resolve(decl.Ret, ctx)
	if err != nil {
		return Value{}, err
	}

	ret := c.B.Call(cf.Fn, refs, expr.Name)
	b := c.e.Types.Builtins()
	if result == b.Unit {
		return Value{Type: b.Unit}, nil
	}
	return Value{Ref: ret, Type: result, Addr: c.isAggregate(result)}, nil
}

// compileArgsExpected compiles call arguments with their parameter types
// published as expected types. typeArgs is nil for non-generic callees.
// A nil, nil return means an argument diverged.
func (c *funcCompiler) compileArgsExpected(expr *ast.Expr, decl *ast.FuncDecl, typeArgs []types.TypeID) ([]Value, error) {
	ctx := generics.NewContext()
	sc := ctx.Scope()
	defer sc.Release()
	for i, p := range decl.TypeParams {
		ctx.Bind(p, typeArgs[i])
	}
	args := make([]Value, 0, len(expr.Args))
	for i, arg := range expr.Args {
		want, err := c.e.Res.Resolve(decl.Params[i].Type, ctx)
		if err != nil {
			return nil, err
		}
		v, err := c.compileExpected(arg, want)
		if err != nil {
			return nil, err
		}
		if v.Diverges {
			return nil, nil
		}
		args = append(args, v)
	}
	return args, nil
}

func (c *funcCompiler) compileArgsBare(expr *ast.Expr) ([]Value, error) {
	args := make([]Value, 0, len(expr.Args))
	for _, arg := range expr.Args {
		v, err := c.compileExpr(arg)
		if err != nil {
			return nil, err
		}
		if v.Diverges {
			return nil, nil
		}
		args = append(args, v)
	}
	return args, nil
}
