package codegen

import (
	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/generics"
	"quill/internal/mono"
	"quill/internal/types"
)

// CompileFunc returns the compiled body for one instantiation of decl,
// compiling it on first use. Identical concrete type arguments always share
// one body: the store's declare step is atomic, so parallel workers cannot
// end up with duplicate symbols, and a recursive call resolves to its own
// in-progress declaration.
func (e *Emitter) CompileFunc(decl *ast.FuncDecl, typeArgs []types.TypeID) (*mono.CompiledFunc, error) {
	if len(typeArgs) != len(decl.TypeParams) {
		return nil, diag.Errorf(diag.TypeArityMismatch, decl.Span,
			"%s expects %d type argument(s), got %d", decl.Name, len(decl.TypeParams), len(typeArgs))
	}
	key := mono.KeyFor(e.Types, decl.Name, typeArgs)
	cf, fresh, err := e.Mono.Declare(key, func() (*mono.CompiledFunc, error) {
		return e.declareFunc(decl, typeArgs)
	})
	if err != nil {
		return nil, err
	}
	if !fresh {
		if berr := e.Mono.Err(key); berr != nil {
			return nil, berr
		}
		return cf, nil
	}
	err = e.compileBody(cf, decl, typeArgs)
	e.Mono.Finish(key, err)
	if err != nil {
		return nil, err
	}
	cf.Builder = nil
	return cf, nil
}

// declareFunc resolves the instantiated signature and declares the backend
// function. Runs under the store lock; it must not recurse into the store.
func (e *Emitter) declareFunc(decl *ast.FuncDecl, typeArgs []types.TypeID) (*mono.CompiledFunc, error) {
	ctx := generics.NewContext()
	sc := ctx.Scope()
	defer sc.Release()
	for i, p := range decl.TypeParams {
		ctx.Bind(p, typeArgs[i])
	}
	retType, err := e.Res.Resolve(decl.Ret, ctx)
	if err != nil {
		return nil, err
	}
	paramNames := make([]string, 0, len(decl.Params))
	for _, p := range decl.Params {
		paramNames = append(paramNames, p.Name)
	}
	name := mono.MangledName(e.Types, decl.Name, typeArgs)
	fn, b := e.Mod.NewFunc(name, paramNames)
	return &mono.CompiledFunc{
		Name:    name,
		Fn:      fn,
		Result:  retType,
		Builder: b,
	}, nil
}

func (e *Emitter) compileBody(cf *mono.CompiledFunc, decl *ast.FuncDecl, typeArgs []types.TypeID) error {
	c := &funcCompiler{
		e:       e,
		decl:    decl,
		name:    cf.Name,
		retType: cf.Result,
		B:       cf.Builder,
		Ctx:     generics.NewContext(),
	}
	sc := c.Ctx.Scope()
	defer sc.Release()
	for i, p := range decl.TypeParams {
		c.Ctx.Bind(p, typeArgs[i])
	}

	c.pushLocals()
	defer c.popLocals()
	for i, p := range decl.Params {
		pt, err := e.Res.Resolve(p.Type, c.Ctx)
		if err != nil {
			return err
		}
		c.bindLocal(p.Name, Value{
			Ref:  cf.Fn.Param(i),
			Type: pt,
			Addr: c.isAggregate(pt),
		})
	}

	v, err := c.compileExpr(decl.Body)
	if err != nil {
		return err
	}
	if v.Diverges || c.B.Terminated() {
		return nil
	}
	b := e.Types.Builtins()
	if c.retType == b.Unit {
		c.B.RetVoid()
		return nil
	}
	v, err = c.coerce(v, c.retType, decl.Span)
	if err != nil {
		return err
	}
	c.B.Ret(v.Ref)
	return nil
}
