package ssamod

import (
	"fmt"
	"io"
	"strings"

	"quill/internal/backend"
)

// Print writes a readable dump of every function, in sorted name order.
func (m *Module) Print(w io.Writer) {
	for _, name := range m.FuncNames() {
		f, _ := m.FuncByName(name)
		f.print(w)
		fmt.Fprintln(w)
	}
}

func (f *Func) print(w io.Writer) {
	params := make([]string, 0, len(f.Params))
	for i, p := range f.Params {
		params = append(params, fmt.Sprintf("%%%d:%s", p, f.ParamName[i]))
	}
	fmt.Fprintf(w, "fn %s(%s) {\n", f.FnName, strings.Join(params, ", "))
	for _, bl := range f.Blocks {
		fmt.Fprintf(w, "%s.%d:\n", bl.Name, bl.ID)
		for i := range bl.Instrs {
			fmt.Fprintf(w, "  %s\n", bl.Instrs[i].String())
		}
		fmt.Fprintf(w, "  %s\n", bl.Term.String())
	}
	fmt.Fprintln(w, "}")
}

func (in *Instr) String() string {
	res := ""
	if in.Result != NoValue {
		res = fmt.Sprintf("%%%d = ", in.Result)
	}
	switch in.Kind {
	case InstrConstInt:
		return fmt.Sprintf("%sconst %d", res, in.Int)
	case InstrConstStr:
		return fmt.Sprintf("%sconst %q", res, in.Str)
	case InstrAlloca:
		return fmt.Sprintf("%salloca %d align %d ; %s", res, in.Size, in.Align, in.Name)
	case InstrLoad:
		return fmt.Sprintf("%sload %%%d, %d", res, in.A, in.Size)
	case InstrStore:
		return fmt.Sprintf("store %%%d <- %%%d, %d", in.A, in.B, in.Size)
	case InstrFieldAddr:
		return fmt.Sprintf("%saddr %%%d + %d", res, in.A, in.Offset)
	case InstrCopy:
		return fmt.Sprintf("copy %%%d <- %%%d, %d", in.A, in.B, in.Size)
	case InstrBin:
		return fmt.Sprintf("%s%s %%%d, %%%d", res, opName(in.Op), in.A, in.B)
	case InstrNot:
		return fmt.Sprintf("%snot %%%d", res, in.A)
	case InstrPhi:
		parts := make([]string, 0, len(in.Incoming))
		for _, e := range in.Incoming {
			parts = append(parts, fmt.Sprintf("[%%%d, b%d]", e.Value, e.Pred))
		}
		return fmt.Sprintf("%sphi %s", res, strings.Join(parts, " "))
	case InstrCall:
		args := make([]string, 0, len(in.Args))
		for _, a := range in.Args {
			args = append(args, fmt.Sprintf("%%%d", a))
		}
		return fmt.Sprintf("%scall %s(%s)", res, in.Callee.FnName, strings.Join(args, ", "))
	default:
		return fmt.Sprintf("%s<instr %d>", res, in.Kind)
	}
}

func (t Terminator) String() string {
	switch t.Kind {
	case TermRet:
		if t.HasValue {
			return fmt.Sprintf("ret %%%d", t.Value)
		}
		return "ret"
	case TermBr:
		return fmt.Sprintf("br b%d", t.Target)
	case TermCondBr:
		return fmt.Sprintf("condbr %%%d, b%d, b%d", t.Cond, t.Then, t.Else)
	case TermTrap:
		return fmt.Sprintf("trap %q", t.Msg)
	default:
		return "<no terminator>"
	}
}

func opName(op backend.BinOp) string {
	switch op {
	case backend.OpAdd:
		return "add"
	case backend.OpSub:
		return "sub"
	case backend.OpMul:
		return "mul"
	case backend.OpDiv:
		return "div"
	case backend.OpEq:
		return "eq"
	case backend.OpNe:
		return "ne"
	case backend.OpLt:
		return "lt"
	case backend.OpLe:
		return "le"
	case backend.OpGt:
		return "gt"
	case backend.OpGe:
		return "ge"
	case backend.OpStrEq:
		return "streq"
	default:
		return fmt.Sprintf("op%d", op)
	}
}
