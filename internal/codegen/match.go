package codegen

import (
	"fmt"

	"quill/internal/ast"
	"quill/internal/backend"
	"quill/internal/diag"
	"quill/internal/source"
	"quill/internal/types"
)

// compileMatch lowers a match expression to a chain of discriminant tests.
// Arms test in declaration order and the first structural match whose guard
// passes wins. Each arm body compiles in its own block under its own scope
// guard; producing arms branch to one merge block whose phi is typed by the
// first producing arm. Exhaustiveness is checked upstream: the chain ends in
// a trap block so a match that falls through every arm aborts at runtime
// instead of reading uninitialized memory.
func (c *funcCompiler) compileMatch(expr *ast.Expr) (Value, error) {
	scrut, err := c.compileExpr(expr.Scrutinee)
	if err != nil {
		return Value{}, err
	}
	if scrut.Diverges {
		return diverged(), nil
	}
	if len(expr.Arms) == 0 {
		c.B.Trap("match with no arms")
		return diverged(), nil
	}

	var discr backend.Value
	var enumInfo *types.EnumInfo
	for _, arm := range expr.Arms {
		if arm.Pattern != nil && arm.Pattern.Kind == ast.PatVariant {
			discr, enumInfo, err = c.discriminantOf(scrut, expr.Span)
			if err != nil {
				return Value{}, err
			}
			break
		}
	}

	b := c.e.Types.Builtins()
	var (
		mergeBlock backend.Block
		resultType types.TypeID
		incomings  []backend.Incoming
		produced   bool
	)
	ensureMerge := func() backend.Block {
		if mergeBlock == nil {
			mergeBlock = c.B.NewBlock("match.merge")
		}
		return mergeBlock
	}

	for i, arm := range expr.Arms {
		label := fmt.Sprintf("match.arm%d", i)
		elseName := fmt.Sprintf("match.next%d", i)
		if i == len(expr.Arms)-1 {
			elseName = "match.nomatch"
		}
		elseBlock := c.B.NewBlock(elseName)
		bindBlock := c.B.NewBlock(label + ".bind")

		if err := c.compileArmTest(arm.Pattern, scrut, discr, enumInfo, bindBlock, elseBlock); err != nil {
			return Value{}, err
		}

		// Scope covers bindings, guard and body. Released on every exit
		// path, including the error returns below.
		sc := c.Ctx.Scope()
		c.pushLocals()
		v, armErr := c.compileArmBody(arm, scrut, enumInfo, bindBlock, elseBlock, resultType)
		c.popLocals()
		sc.Release()
		if armErr != nil {
			return Value{}, armErr
		}

		if !v.Diverges && !c.B.Terminated() {
			if !produced {
				resultType = v.Type
			} else if v.Type != resultType {
				coerced, cerr := c.coerce(v, resultType, arm.Body.Span)
				if cerr != nil {
					return Value{}, diag.Errorf(diag.GenArmTypeMismatch, arm.Body.Span,
						"arm produces %s but earlier arms produce %s",
						c.e.Types.String(v.Type), c.e.Types.String(resultType))
				}
				v = coerced
			}
			produced = true
			pred := c.B.InsertBlock()
			c.B.Br(ensureMerge())
			if resultType != b.Unit {
				incomings = append(incomings, backend.Incoming{Value: v.Ref, Pred: pred})
			}
		}

		c.B.SetInsertPoint(elseBlock)
	}

	// Fallthrough past every arm. Exhaustive matches never reach this block.
	c.B.Trap("match was not exhaustive at runtime")

	if !produced {
		// Every arm diverges: the match has no value and no merge.
		return diverged(), nil
	}
	c.B.SetInsertPoint(mergeBlock)
	if resultType == b.Unit {
		return Value{Type: b.Unit}, nil
	}
	phi := c.B.Phi(incomings, "match.result")
	return Value{Ref: phi, Type: resultType, Addr: c.isAggregate(resultType)}, nil
}

// compileArmTest emits the structural test for one pattern in the current
// block, branching to bindBlock on match and elseBlock otherwise.
func (c *funcCompiler) compileArmTest(p *ast.Pattern, scrut Value, discr backend.Value, enumInfo *types.EnumInfo, bindBlock, elseBlock backend.Block) error {
	if p == nil {
		c.B.Br(bindBlock)
		return nil
	}
	switch p.Kind {
	case ast.PatWildcard, ast.PatBinding:
		c.B.Br(bindBlock)
		return nil
	case ast.PatLiteral:
		return c.compileLiteralTest(p, scrut, bindBlock, elseBlock)
	case ast.PatVariant:
		idx, _, err := c.variantOf(p, scrut, enumInfo)
		if err != nil {
			return err
		}
		eq := c.B.Bin(backend.OpEq, discr, c.B.ConstInt(int64(idx)), "is."+p.VariantName)
		c.B.CondBr(eq, bindBlock, elseBlock)
		return nil
	default:
		return diag.Errorf(diag.GenBadCall, p.Span, "unsupported pattern kind %d", p.Kind)
	}
}

func (c *funcCompiler) compileLiteralTest(p *ast.Pattern, scrut Value, bindBlock, elseBlock backend.Block) error {
	if c.isAggregate(scrut.Type) {
		return diag.Errorf(diag.TypeMismatch, p.Span,
			"literal pattern against %s; use a variant pattern", c.e.Types.String(scrut.Type))
	}
	lit, err := c.compileExpr(p.Lit)
	if err != nil {
		return err
	}
	lit, err = c.coerce(lit, scrut.Type, p.Span)
	if err != nil {
		return err
	}
	var eq backend.Value
	if scrut.Type == c.e.Types.Builtins().String {
		eq = c.B.Bin(backend.OpStrEq, scrut.Ref, lit.Ref, "lit.eq")
	} else {
		eq = c.B.Bin(backend.OpEq, scrut.Ref, lit.Ref, "lit.eq")
	}
	c.B.CondBr(eq, bindBlock, elseBlock)
	return nil
}

// variantOf resolves a variant pattern against the scrutinee's concrete enum
// instance and returns the variant's index and payload type.
func (c *funcCompiler) variantOf(p *ast.Pattern, scrut Value, enumInfo *types.EnumInfo) (int, types.TypeID, error) {
	if enumInfo == nil {
		return 0, types.NoTypeID, diag.Errorf(diag.TypeMismatch, p.Span,
			"variant pattern against non-enum %s", c.e.Types.String(scrut.Type))
	}
	if p.EnumName != "" {
		declared := c.e.Types.Strings().MustLookup(enumInfo.Name)
		if p.EnumName != declared {
			return 0, types.NoTypeID, diag.Errorf(diag.TypeMismatch, p.Span,
				"pattern names enum %s but the scrutinee is %s", p.EnumName, c.e.Types.String(scrut.Type))
		}
	}
	name := c.e.Types.Strings().Intern(p.VariantName)
	idx, payload, ok := c.e.Types.EnumVariant(scrut.Type, name)
	if !ok {
		return 0, types.NoTypeID, diag.Errorf(diag.GenUnknownVariant, p.Span,
			"enum %s has no variant %s", c.e.Types.String(scrut.Type), p.VariantName)
	}
	return idx, payload, nil
}

// compileArmBody fills the arm's bind block: pattern bindings, then the
// guard, then the body. The caller owns the scope guard and locals scope.
func (c *funcCompiler) compileArmBody(arm ast.Arm, scrut Value, enumInfo *types.EnumInfo, bindBlock, elseBlock backend.Block, resultType types.TypeID) (Value, error) {
	c.B.SetInsertPoint(bindBlock)
	p := arm.Pattern

	if p != nil {
		switch p.Kind {
		case ast.PatBinding:
			if p.Name != "" {
				c.bindLocal(p.Name, scrut)
			}
		case ast.PatVariant:
			if p.Name != "" {
				_, payloadType, err := c.variantOf(p, scrut, enumInfo)
				if err != nil {
					return Value{}, err
				}
				if payloadType == types.NoTypeID {
					return Value{}, diag.Errorf(diag.TypeMismatch, p.Span,
						"variant %s carries no payload to bind", p.VariantName)
				}
				bound, err := c.bindPayload(scrut, payloadType, p.Name, p.Span)
				if err != nil {
					return Value{}, err
				}
				c.bindLocal(p.Name, bound)
			}
		}
		if p.Guard != nil {
			guard, err := c.compileExpr(p.Guard)
			if err != nil {
				return Value{}, err
			}
			if guard.Diverges {
				return diverged(), nil
			}
			if guard.Type != c.e.Types.Builtins().Bool {
				return Value{}, diag.Errorf(diag.TypeMismatch, p.Guard.Span,
					"guard must be bool, got %s", c.e.Types.String(guard.Type))
			}
			bodyBlock := c.B.NewBlock("match.body")
			c.B.CondBr(guard.Ref, bodyBlock, elseBlock)
			c.B.SetInsertPoint(bodyBlock)
		}
	}

	if resultType != types.NoTypeID {
		c.expectType(resultType)
	}
	return c.compileExpr(arm.Body)
}

// bindPayload extracts a variant's payload out of the scrutinee. An
// aggregate payload is copied whole out of the payload slot, so a nested
// enum arrives with its own discriminant and matches correctly one level
// down.
func (c *funcCompiler) bindPayload(scrut Value, payloadType types.TypeID, name string, span source.Span) (Value, error) {
	l, lerr := c.e.Layout.LayoutOf(scrut.Type)
	if lerr != nil {
		return Value{}, diag.Errorf(diag.TypeUnresolvedSize, span,
			"%s: %v", c.e.Types.String(scrut.Type), lerr)
	}
	slot := c.B.FieldAddr(scrut.Ref, l.PayloadOffset, name+".slot")
	return c.loadValue(slot, payloadType, name, span)
}
