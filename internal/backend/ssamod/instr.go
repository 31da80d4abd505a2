package ssamod

import "quill/internal/backend"

// ValueID indexes a function's virtual register file.
type ValueID int32

// NoValue marks instructions that produce nothing.
const NoValue ValueID = -1

// BlockID indexes a function's block list.
type BlockID int32

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	InstrConstInt InstrKind = iota
	InstrConstStr
	InstrAlloca
	InstrLoad
	InstrStore
	InstrFieldAddr
	InstrCopy
	InstrBin
	InstrNot
	InstrPhi
	InstrCall
)

// PhiIncoming is one (value, predecessor) edge of a phi.
type PhiIncoming struct {
	Value ValueID
	Pred  BlockID
}

// Instr is a tagged instruction. Exactly the fields for its Kind are set.
type Instr struct {
	Kind   InstrKind
	Result ValueID
	Name   string

	Int  int64  // ConstInt
	Str  string // ConstStr
	Size int    // Alloca/Load/Store/Copy byte count
	Align int   // Alloca

	Op backend.BinOp // Bin

	A, B     ValueID // operands: Load(ptr=A), Store(ptr=A, val=B), Copy(dst=A, src=B)
	Offset   int     // FieldAddr
	Args     []ValueID
	Callee   *Func
	Incoming []PhiIncoming
}

// TermKind enumerates block terminators.
type TermKind uint8

const (
	TermNone TermKind = iota
	TermRet
	TermBr
	TermCondBr
	TermTrap
)

type Terminator struct {
	Kind TermKind

	HasValue bool
	Value    ValueID // Ret

	Target BlockID // Br

	Cond ValueID // CondBr
	Then BlockID
	Else BlockID

	Msg string // Trap
}

// Block is a basic block: instructions plus one terminator.
type Block struct {
	ID     BlockID
	Name   string
	Instrs []Instr
	Term   Terminator
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}
