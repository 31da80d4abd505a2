package codegen

import (
	"quill/internal/ast"
	"quill/internal/backend"
	"quill/internal/diag"
	"quill/internal/source"
	"quill/internal/types"
)

// compileEnumCtor builds an enum value in memory: discriminant first, then
// the payload into the shared payload slot. The concrete instantiation comes
// from (in order) explicit type arguments, the context binding an expected
// type published, the zero-parameter declaration, or deduction from the
// payload's compiled type.
func (c *funcCompiler) compileEnumCtor(expr *ast.Expr) (Value, error) {
	decl, ok := c.lookupEnumDecl(expr)
	if !ok {
		return Value{}, diag.Errorf(diag.TypeUnknownName, expr.Span,
			"unknown enum %q", c.enumRefName(expr))
	}
	variantIdx, ok := decl.VariantIndex(expr.VariantName)
	if !ok {
		return Value{}, diag.Errorf(diag.GenUnknownVariant, expr.Span,
			"enum %s has no variant %s", decl.Name, expr.VariantName)
	}

	// The payload compiles at most once; deduction reuses the result.
	var payload Value
	payloadDone := false
	compilePayload := func(want types.TypeID) (Value, error) {
		if payloadDone {
			return payload, nil
		}
		v, err := c.compileExpected(expr.Payload, want)
		if err != nil {
			return Value{}, err
		}
		payload = v
		payloadDone = true
		return payload, nil
	}

	enumType, err := c.enumCtorInstance(expr, decl, variantIdx, compilePayload)
	if err != nil {
		return Value{}, err
	}
	if payloadDone && payload.Diverges {
		return diverged(), nil
	}

	l, lerr := c.e.Layout.LayoutOf(enumType)
	if lerr != nil {
		return Value{}, diag.Errorf(diag.TypeUnresolvedSize, expr.Span,
			"%s: %v", c.e.Types.String(enumType), lerr)
	}
	variantName := c.e.Types.Strings().Intern(expr.VariantName)
	idx, payloadType, ok := c.e.Types.EnumVariant(enumType, variantName)
	if !ok {
		return Value{}, diag.Errorf(diag.GenUnknownVariant, expr.Span,
			"enum %s has no variant %s", c.e.Types.String(enumType), expr.VariantName)
	}

	dst := c.B.Alloca(l.Size, l.Align, "enum")
	c.B.Store(dst, c.B.ConstInt(int64(idx)), l.DiscrBytes())

	if payloadType != types.NoTypeID {
		if expr.Payload == nil {
			return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
				"variant %s.%s carries a payload", c.e.Types.String(enumType), expr.VariantName)
		}
		pv, err := compilePayload(payloadType)
		if err != nil {
			return Value{}, err
		}
		if pv.Diverges {
			return diverged(), nil
		}
		pv, err = c.coerce(pv, payloadType, expr.Payload.Span)
		if err != nil {
			return Value{}, err
		}
		slot := c.B.FieldAddr(dst, l.PayloadOffset, "payload")
		// storeValue copies an aggregate payload whole, so a nested enum
		// keeps its own discriminant inside the outer payload slot.
		if err := c.storeValue(slot, pv, expr.Span); err != nil {
			return Value{}, err
		}
	} else if expr.Payload != nil {
		return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
			"variant %s.%s carries no payload", c.e.Types.String(enumType), expr.VariantName)
	}

	return Value{Ref: dst, Type: enumType, Addr: true}, nil
}

// lookupEnumDecl finds the declaration an enum-constructor expression refers
// to. An explicit enum name wins; a bare variant falls back to the unique
// enum declaring it.
func (c *funcCompiler) lookupEnumDecl(expr *ast.Expr) (*ast.EnumDecl, bool) {
	if expr.Name != "" {
		return c.e.Syms.Enum(expr.Name)
	}
	return c.e.Syms.EnumOfVariant(expr.VariantName)
}

func (c *funcCompiler) enumRefName(expr *ast.Expr) string {
	if expr.Name != "" {
		return expr.Name
	}
	return expr.VariantName
}

func (c *funcCompiler) enumCtorInstance(expr *ast.Expr, decl *ast.EnumDecl, variantIdx int, compilePayload func(types.TypeID) (Value, error)) (types.TypeID, error) {
	if len(expr.TypeArgs) > 0 {
		args := make([]types.TypeID, 0, len(expr.TypeArgs))
		for _, te := range expr.TypeArgs {
			t, err := c.e.Res.Resolve(te, c.Ctx)
			if err != nil {
				return types.NoTypeID, err
			}
			args = append(args, t)
		}
		return c.e.Res.InstantiateEnum(decl, args)
	}
	if t, ok := c.Ctx.Lookup(decl.Name); ok {
		return t, nil
	}
	if len(decl.TypeParams) == 0 {
		return c.e.Res.InstantiateEnum(decl, nil)
	}
	return c.deduceEnumInstance(expr, decl, variantIdx, compilePayload)
}

// deduceEnumInstance derives the type arguments of a generic enum from the
// constructed payload, e.g. Some(42) with no expected type yields
// Option<int>. Only type parameters the payload mentions can be deduced.
func (c *funcCompiler) deduceEnumInstance(expr *ast.Expr, decl *ast.EnumDecl, variantIdx int, compilePayload func(types.TypeID) (Value, error)) (types.TypeID, error) {
	payloadExpr := decl.Variants[variantIdx].Payload
	if expr.Payload == nil || payloadExpr == nil {
		return types.NoTypeID, diag.Errorf(diag.TypeUnboundGeneric, expr.Span,
			"cannot determine type arguments for %s.%s; annotate the expression",
			decl.Name, expr.VariantName)
	}
	pv, err := compilePayload(types.NoTypeID)
	if err != nil {
		return types.NoTypeID, err
	}
	if pv.Diverges {
		return types.NoTypeID, diag.Errorf(diag.TypeUnboundGeneric, expr.Span,
			"cannot determine type arguments for %s.%s from a diverging payload",
			decl.Name, expr.VariantName)
	}
	bound := make(map[string]types.TypeID, len(decl.TypeParams))
	if err := deducePayloadArgs(c.e.Types, decl, payloadExpr, pv.Type, bound, expr.Span); err != nil {
		return types.NoTypeID, err
	}
	args := make([]types.TypeID, 0, len(decl.TypeParams))
	for _, p := range decl.TypeParams {
		t, ok := bound[p]
		if !ok {
			return types.NoTypeID, diag.Errorf(diag.TypeUnboundGeneric, expr.Span,
				"type parameter %s of %s is not deducible from %s's payload; annotate the expression",
				p, decl.Name, expr.VariantName)
		}
		args = append(args, t)
	}
	return c.e.Res.InstantiateEnum(decl, args)
}

// deducePayloadArgs unifies a variant's declared payload type against the
// compiled payload's concrete type, binding declaration type parameters.
func deducePayloadArgs(in *types.Interner, decl *ast.EnumDecl, te *ast.TypeExpr, got types.TypeID, bound map[string]types.TypeID, span source.Span) error {
	if te.Kind == ast.TypeNamed && len(te.Args) == 0 {
		for _, p := range decl.TypeParams {
			if p != te.Name {
				continue
			}
			if prev, ok := bound[p]; ok && prev != got {
				return diag.Errorf(diag.TypeMismatch, span,
					"conflicting deductions for %s: %s vs %s", p, in.String(prev), in.String(got))
			}
			bound[p] = got
			return nil
		}
	}
	switch te.Kind {
	case ast.TypeNamed:
		args := in.EnumArgs(got)
		if args == nil {
			if info, ok := in.StructInfo(got); ok {
				args = info.TypeArgs
			}
		}
		if len(args) != len(te.Args) {
			return diag.Errorf(diag.TypeMismatch, span,
				"payload shape %s does not match %s", te.String(), in.String(got))
		}
		for i, a := range te.Args {
			if err := deducePayloadArgs(in, decl, a, args[i], bound, span); err != nil {
				return err
			}
		}
		return nil
	case ast.TypePointer:
		tt := in.MustLookup(got)
		if tt.Kind != types.KindPointer {
			return diag.Errorf(diag.TypeMismatch, span,
				"payload shape %s does not match %s", te.String(), in.String(got))
		}
		return deducePayloadArgs(in, decl, te.Elem, tt.Elem, bound, span)
	default:
		// Concrete leaves carry no parameters; nothing to bind.
		return nil
	}
}

// discriminantOf loads an enum value's discriminant as a word.
func (c *funcCompiler) discriminantOf(scrut Value, span source.Span) (backend.Value, *types.EnumInfo, error) {
	info, ok := c.e.Types.EnumInfo(scrut.Type)
	if !ok {
		return nil, nil, diag.Errorf(diag.TypeMismatch, span,
			"match requires an enum scrutinee, got %s", c.e.Types.String(scrut.Type))
	}
	l, lerr := c.e.Layout.LayoutOf(scrut.Type)
	if lerr != nil {
		return nil, nil, diag.Errorf(diag.TypeUnresolvedSize, span,
			"%s: %v", c.e.Types.String(scrut.Type), lerr)
	}
	discr := c.B.Load(scrut.Ref, l.DiscrBytes(), "discr")
	return discr, info, nil
}
