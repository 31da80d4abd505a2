package codegen

import (
	"quill/internal/ast"
	"quill/internal/backend"
	"quill/internal/diag"
	"quill/internal/source"
	"quill/internal/types"
)

func (c *funcCompiler) compileExpr(expr *ast.Expr) (Value, error) {
	if expr == nil {
		return Value{Type: c.e.Types.Builtins().Unit}, nil
	}
	switch expr.Kind {
	case ast.ExprIntLit:
		return Value{Ref: c.B.ConstInt(expr.Int), Type: c.e.Types.Builtins().Int}, nil
	case ast.ExprBoolLit:
		return Value{Ref: c.B.ConstBool(expr.Bool), Type: c.e.Types.Builtins().Bool}, nil
	case ast.ExprStringLit:
		return Value{Ref: c.B.ConstString(expr.Str), Type: c.e.Types.Builtins().String}, nil
	case ast.ExprIdent:
		return c.compileIdent(expr)
	case ast.ExprUnary:
		return c.compileUnary(expr)
	case ast.ExprBinary:
		return c.compileBinary(expr)
	case ast.ExprCall:
		return c.compileCall(expr)
	case ast.ExprEnumCtor:
		return c.compileEnumCtor(expr)
	case ast.ExprStructLit:
		return c.compileStructLit(expr)
	case ast.ExprField:
		return c.compileField(expr)
	case ast.ExprMatch:
		return c.compileMatch(expr)
	case ast.ExprBlock:
		return c.compileBlock(expr)
	case ast.ExprReturn:
		return c.compileReturn(expr.Value, expr.Span)
	default:
		return Value{}, diag.Errorf(diag.GenBadCall, expr.Span,
			"unsupported expression kind %d", expr.Kind)
	}
}

func (c *funcCompiler) compileIdent(expr *ast.Expr) (Value, error) {
	if v, ok := c.lookupLocal(expr.Name); ok {
		return v, nil
	}
	return Value{}, diag.Errorf(diag.GenUnknownIdentifier, expr.Span,
		"unknown identifier %q", expr.Name)
}

func (c *funcCompiler) compileUnary(expr *ast.Expr) (Value, error) {
	operand, err := c.compileExpr(expr.Left)
	if err != nil {
		return Value{}, err
	}
	if operand.Diverges {
		return diverged(), nil
	}
	b := c.e.Types.Builtins()
	switch expr.UnOp {
	case ast.UnaryNeg:
		tt := c.e.Types.MustLookup(operand.Type)
		if tt.Kind != types.KindInt && tt.Kind != types.KindFloat {
			return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
				"cannot negate %s", c.e.Types.String(operand.Type))
		}
		zero := c.B.ConstInt(0)
		return Value{
			Ref:  c.B.Bin(backend.OpSub, zero, operand.Ref, "neg"),
			Type: operand.Type,
		}, nil
	case ast.UnaryNot:
		if operand.Type != b.Bool {
			return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
				"expected bool, got %s", c.e.Types.String(operand.Type))
		}
		return Value{Ref: c.B.Not(operand.Ref, "not"), Type: b.Bool}, nil
	default:
		return Value{}, diag.Errorf(diag.GenBadCall, expr.Span, "unsupported unary operator")
	}
}

func (c *funcCompiler) compileBinary(expr *ast.Expr) (Value, error) {
	left, err := c.compileExpr(expr.Left)
	if err != nil {
		return Value{}, err
	}
	if left.Diverges {
		return diverged(), nil
	}
	right, err := c.compileExpr(expr.Right)
	if err != nil {
		return Value{}, err
	}
	if right.Diverges {
		return diverged(), nil
	}
	left, right, err = c.unifyOperands(left, right, expr.Span)
	if err != nil {
		return Value{}, err
	}

	b := c.e.Types.Builtins()
	tt := c.e.Types.MustLookup(left.Type)
	switch expr.BinOp {
	case ast.BinAdd, ast.BinSub, ast.BinMul, ast.BinDiv:
		if tt.Kind != types.KindInt && tt.Kind != types.KindUint && tt.Kind != types.KindFloat {
			return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
				"arithmetic on %s", c.e.Types.String(left.Type))
		}
		op := map[ast.BinaryOp]backend.BinOp{
			ast.BinAdd: backend.OpAdd, ast.BinSub: backend.OpSub,
			ast.BinMul: backend.OpMul, ast.BinDiv: backend.OpDiv,
		}[expr.BinOp]
		return Value{Ref: c.B.Bin(op, left.Ref, right.Ref, "bin"), Type: left.Type}, nil
	case ast.BinEq, ast.BinNe:
		if left.Type == b.String {
			eq := c.B.Bin(backend.OpStrEq, left.Ref, right.Ref, "streq")
			if expr.BinOp == ast.BinNe {
				eq = c.B.Not(eq, "strne")
			}
			return Value{Ref: eq, Type: b.Bool}, nil
		}
		if c.isAggregate(left.Type) {
			return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
				"cannot compare %s values directly; match on them instead",
				c.e.Types.String(left.Type))
		}
		op := backend.OpEq
		if expr.BinOp == ast.BinNe {
			op = backend.OpNe
		}
		return Value{Ref: c.B.Bin(op, left.Ref, right.Ref, "cmp"), Type: b.Bool}, nil
	case ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		if tt.Kind != types.KindInt && tt.Kind != types.KindUint && tt.Kind != types.KindFloat {
			return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
				"ordering comparison on %s", c.e.Types.String(left.Type))
		}
		op := map[ast.BinaryOp]backend.BinOp{
			ast.BinLt: backend.OpLt, ast.BinLe: backend.OpLe,
			ast.BinGt: backend.OpGt, ast.BinGe: backend.OpGe,
		}[expr.BinOp]
		return Value{Ref: c.B.Bin(op, left.Ref, right.Ref, "cmp"), Type: b.Bool}, nil
	default:
		return Value{}, diag.Errorf(diag.GenBadCall, expr.Span, "unsupported binary operator")
	}
}

// unifyOperands brings the two sides of a binary expression to one type,
// widening a default-width literal toward the sized side.
func (c *funcCompiler) unifyOperands(left, right Value, span source.Span) (Value, Value, error) {
	if left.Type == right.Type {
		return left, right, nil
	}
	b := c.e.Types.Builtins()
	if left.Type == b.Int {
		l, err := c.coerce(left, right.Type, span)
		if err != nil {
			return Value{}, Value{}, err
		}
		return l, right, nil
	}
	if right.Type == b.Int {
		r, err := c.coerce(right, left.Type, span)
		if err != nil {
			return Value{}, Value{}, err
		}
		return left, r, nil
	}
	return Value{}, Value{}, diag.Errorf(diag.TypeMismatch, span,
		"operand types %s and %s do not match",
		c.e.Types.String(left.Type), c.e.Types.String(right.Type))
}

func (c *funcCompiler) compileBlock(expr *ast.Expr) (Value, error) {
	sc := c.Ctx.Scope()
	defer sc.Release()
	c.pushLocals()
	defer c.popLocals()

	for _, stmt := range expr.Stmts {
		v, err := c.compileStmt(stmt)
		if err != nil {
			return Value{}, err
		}
		if v.Diverges {
			return diverged(), nil
		}
	}
	if expr.Tail == nil {
		return Value{Type: c.e.Types.Builtins().Unit}, nil
	}
	return c.compileExpr(expr.Tail)
}

func (c *funcCompiler) compileStmt(stmt *ast.Stmt) (Value, error) {
	switch stmt.Kind {
	case ast.StmtLet:
		return c.compileLet(stmt)
	case ast.StmtExpr:
		return c.compileExpr(stmt.Value)
	case ast.StmtReturn:
		return c.compileReturn(stmt.Value, stmt.Span)
	default:
		return Value{}, diag.Errorf(diag.GenBadCall, stmt.Span,
			"unsupported statement kind %d", stmt.Kind)
	}
}

func (c *funcCompiler) compileLet(stmt *ast.Stmt) (Value, error) {
	b := c.e.Types.Builtins()
	var declared types.TypeID
	if stmt.Type != nil {
		t, err := c.e.Res.Resolve(stmt.Type, c.Ctx)
		if err != nil {
			return Value{}, err
		}
		declared = t
	}
	// The annotation steers enum constructors in the initializer only; it
	// must not linger over later statements in the block.
	v, err := c.compileExpected(stmt.Value, declared)
	if err != nil {
		return Value{}, err
	}
	if v.Diverges {
		return diverged(), nil
	}
	if declared != types.NoTypeID {
		v, err = c.coerce(v, declared, stmt.Span)
		if err != nil {
			return Value{}, err
		}
	}
	c.bindLocal(stmt.Name, v)
	return Value{Type: b.Unit}, nil
}

func (c *funcCompiler) compileReturn(value *ast.Expr, span source.Span) (Value, error) {
	b := c.e.Types.Builtins()
	if value == nil {
		if c.retType != b.Unit {
			return Value{}, diag.Errorf(diag.TypeMismatch, span,
				"bare return in a function returning %s", c.e.Types.String(c.retType))
		}
		c.B.RetVoid()
		return diverged(), nil
	}
	v, err := c.compileExpected(value, c.retType)
	if err != nil {
		return Value{}, err
	}
	if v.Diverges {
		return diverged(), nil
	}
	if c.retType == b.Unit {
		c.B.RetVoid()
		return diverged(), nil
	}
	v, err = c.coerce(v, c.retType, span)
	if err != nil {
		return Value{}, err
	}
	c.B.Ret(v.Ref)
	return diverged(), nil
}

func (c *funcCompiler) compileStructLit(expr *ast.Expr) (Value, error) {
	decl, ok := c.e.Syms.Struct(expr.Name)
	if !ok {
		return Value{}, diag.Errorf(diag.TypeUnknownName, expr.Span,
			"unknown struct %q", expr.Name)
	}
	structType, err := c.nominalInstance(expr, decl.TypeParams, func(args []types.TypeID) (types.TypeID, error) {
		return c.e.Res.InstantiateStruct(decl, args)
	})
	if err != nil {
		return Value{}, err
	}

	l, lerr := c.e.Layout.LayoutOf(structType)
	if lerr != nil {
		return Value{}, diag.Errorf(diag.TypeUnresolvedSize, expr.Span,
			"%s: %v", c.e.Types.String(structType), lerr)
	}
	info, _ := c.e.Types.StructInfo(structType)
	if info == nil {
		return Value{}, diag.Errorf(diag.TypeUnknownName, expr.Span,
			"struct %q has no registered instance", expr.Name)
	}
	if len(expr.FieldInits) != len(info.Fields) {
		return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
			"%s literal initializes %d of %d fields",
			c.e.Types.String(structType), len(expr.FieldInits), len(info.Fields))
	}

	size := l.Size
	dst := c.B.Alloca(size, l.Align, "struct")
	for _, init := range expr.FieldInits {
		name := c.e.Types.Strings().Intern(init.Name)
		idx, fieldType, ok := c.e.Types.StructField(structType, name)
		if !ok {
			return Value{}, diag.Errorf(diag.TypeUnknownName, init.Value.Span,
				"%s has no field %q", c.e.Types.String(structType), init.Name)
		}
		fv, err := c.compileExpected(init.Value, fieldType)
		if err != nil {
			return Value{}, err
		}
		if fv.Diverges {
			return diverged(), nil
		}
		fv, err = c.coerce(fv, fieldType, init.Value.Span)
		if err != nil {
			return Value{}, err
		}
		addr := c.B.FieldAddr(dst, l.FieldOffsets[idx], init.Name)
		if err := c.storeValue(addr, fv, init.Value.Span); err != nil {
			return Value{}, err
		}
	}
	return Value{Ref: dst, Type: structType, Addr: true}, nil
}

func (c *funcCompiler) compileField(expr *ast.Expr) (Value, error) {
	base, err := c.compileExpr(expr.Left)
	if err != nil {
		return Value{}, err
	}
	if base.Diverges {
		return diverged(), nil
	}
	if !base.Addr {
		return Value{}, diag.Errorf(diag.TypeMismatch, expr.Span,
			"%s has no fields", c.e.Types.String(base.Type))
	}
	name := c.e.Types.Strings().Intern(expr.Name)
	idx, fieldType, ok := c.e.Types.StructField(base.Type, name)
	if !ok {
		return Value{}, diag.Errorf(diag.TypeUnknownName, expr.Span,
			"%s has no field %q", c.e.Types.String(base.Type), expr.Name)
	}
	offset, oerr := c.e.Layout.FieldOffset(base.Type, idx)
	if oerr != nil {
		return Value{}, diag.Errorf(diag.TypeUnresolvedSize, expr.Span,
			"%s: %v", c.e.Types.String(base.Type), oerr)
	}
	addr := c.B.FieldAddr(base.Ref, offset, expr.Name)
	return c.loadValue(addr, fieldType, expr.Name, expr.Span)
}

// nominalInstance resolves the concrete instantiation for an enum
// constructor or struct literal: explicit type arguments win, then a binding
// published by the expected type, then the zero-parameter declaration.
func (c *funcCompiler) nominalInstance(expr *ast.Expr, typeParams []string, instantiate func([]types.TypeID) (types.TypeID, error)) (types.TypeID, error) {
	if len(expr.TypeArgs) > 0 {
		args := make([]types.TypeID, 0, len(expr.TypeArgs))
		for _, te := range expr.TypeArgs {
			t, err := c.e.Res.Resolve(te, c.Ctx)
			if err != nil {
				return types.NoTypeID, err
			}
			args = append(args, t)
		}
		return instantiate(args)
	}
	if t, ok := c.Ctx.Lookup(expr.Name); ok {
		return t, nil
	}
	if len(typeParams) == 0 {
		return instantiate(nil)
	}
	return types.NoTypeID, diag.Errorf(diag.TypeUnboundGeneric, expr.Span,
		"cannot determine type arguments for %s; annotate the expression", expr.Name)
}
