package generics

import (
	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/source"
	"quill/internal/types"
)

// MatchTypeArgs reads a generic function's concrete type arguments off its
// call-site argument types. This is not inference: each argument type is
// already concrete, and the parameter's syntactic shape says where inside it
// every type parameter sits. Conflicting or missing deductions are errors.
//
// Explicit call-site type arguments, when present, take precedence and are
// not re-derived here.
func MatchTypeArgs(in *types.Interner, decl *ast.FuncDecl, argTypes []types.TypeID, span source.Span) ([]types.TypeID, error) {
	if len(argTypes) != len(decl.Params) {
		return nil, diag.Errorf(diag.GenBadCall, span,
			"%s expects %d argument(s), got %d", decl.Name, len(decl.Params), len(argTypes))
	}
	bound := make(map[string]types.TypeID, len(decl.TypeParams))
	for i, p := range decl.Params {
		if err := matchTypeExpr(in, decl, p.Type, argTypes[i], bound, span); err != nil {
			return nil, err
		}
	}
	out := make([]types.TypeID, 0, len(decl.TypeParams))
	for _, name := range decl.TypeParams {
		t, ok := bound[name]
		if !ok {
			return nil, diag.Errorf(diag.TypeUnboundGeneric, span,
				"cannot determine type parameter %s of %s from the call's arguments", name, decl.Name)
		}
		out = append(out, t)
	}
	return out, nil
}

func matchTypeExpr(in *types.Interner, decl *ast.FuncDecl, param *ast.TypeExpr, arg types.TypeID, bound map[string]types.TypeID, span source.Span) error {
	if param == nil {
		return nil
	}
	switch param.Kind {
	case ast.TypeNamed:
		if isTypeParam(decl, param.Name) && len(param.Args) == 0 {
			if prev, ok := bound[param.Name]; ok && prev != arg {
				return diag.Errorf(diag.TypeMismatch, span,
					"type parameter %s bound to both %s and %s",
					param.Name, in.String(prev), in.String(arg))
			}
			bound[param.Name] = arg
			return nil
		}
		// A named generic instantiation: descend into the argument's own
		// type arguments positionally.
		var nominalArgs []types.TypeID
		if info, ok := in.EnumInfo(arg); ok {
			nominalArgs = info.TypeArgs
		} else if info, ok := in.StructInfo(arg); ok {
			nominalArgs = info.TypeArgs
		}
		if len(param.Args) > 0 {
			if len(nominalArgs) != len(param.Args) {
				return diag.Errorf(diag.TypeMismatch, span,
					"argument type %s does not match parameter shape %s",
					in.String(arg), param.String())
			}
			for i, pa := range param.Args {
				if err := matchTypeExpr(in, decl, pa, nominalArgs[i], bound, span); err != nil {
					return err
				}
			}
		}
		return nil
	case ast.TypePointer:
		tt, ok := in.Lookup(arg)
		if !ok || tt.Kind != types.KindPointer {
			return diag.Errorf(diag.TypeMismatch, span,
				"argument type %s is not a pointer", in.String(arg))
		}
		return matchTypeExpr(in, decl, param.Elem, tt.Elem, bound, span)
	default:
		// Concrete syntactic types carry no parameters to deduce.
		return nil
	}
}

func isTypeParam(decl *ast.FuncDecl, name string) bool {
	for _, p := range decl.TypeParams {
		if p == name {
			return true
		}
	}
	return false
}
