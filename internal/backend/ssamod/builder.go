package ssamod

import (
	"fmt"

	"quill/internal/backend"
)

type value struct {
	backend.ValueMarker
	id ValueID
}

type block struct {
	backend.BlockMarker
	id BlockID
	b  *Block
}

// Builder appends instructions to one function. Not safe for concurrent use;
// each worker owns its builders.
type Builder struct {
	mod *Module
	fn  *Func
	cur *Block
}

var (
	_ backend.Builder = (*Builder)(nil)
	_ backend.Value   = value{}
	_ backend.Block   = block{}
)

func (b *Builder) Func() backend.Func { return b.fn }

func (b *Builder) NewBlock(name string) backend.Block {
	bl := &Block{ID: BlockID(len(b.fn.Blocks)), Name: name}
	b.fn.Blocks = append(b.fn.Blocks, bl)
	return block{id: bl.ID, b: bl}
}

func (b *Builder) SetInsertPoint(bb backend.Block) {
	b.cur = bb.(block).b
}

func (b *Builder) InsertBlock() backend.Block {
	return block{id: b.cur.ID, b: b.cur}
}

func (b *Builder) Terminated() bool {
	return b.cur.Terminated()
}

func (b *Builder) newValue() ValueID {
	id := ValueID(b.fn.numValues)
	b.fn.numValues++
	return id
}

func (b *Builder) emit(in Instr) backend.Value {
	if b.cur == nil {
		panic("ssamod: emit with no insertion block")
	}
	if b.cur.Terminated() {
		panic(fmt.Sprintf("ssamod: emit %d into terminated block %q", in.Kind, b.cur.Name))
	}
	if in.Result != NoValue {
		in.Result = b.newValue()
	}
	b.cur.Instrs = append(b.cur.Instrs, in)
	return value{id: in.Result}
}

func (b *Builder) terminate(t Terminator) {
	if b.cur == nil {
		panic("ssamod: terminator with no insertion block")
	}
	if b.cur.Terminated() {
		panic(fmt.Sprintf("ssamod: double terminator in block %q", b.cur.Name))
	}
	b.cur.Term = t
}

func (b *Builder) ConstInt(v int64) backend.Value {
	return b.emit(Instr{Kind: InstrConstInt, Result: 0, Int: v})
}

func (b *Builder) ConstBool(v bool) backend.Value {
	n := int64(0)
	if v {
		n = 1
	}
	return b.emit(Instr{Kind: InstrConstInt, Result: 0, Int: n})
}

func (b *Builder) ConstString(s string) backend.Value {
	return b.emit(Instr{Kind: InstrConstStr, Result: 0, Str: s})
}

func (b *Builder) Alloca(size, align int, name string) backend.Value {
	if align <= 0 {
		align = 1
	}
	return b.emit(Instr{Kind: InstrAlloca, Result: 0, Size: size, Align: align, Name: name})
}

func (b *Builder) Load(ptr backend.Value, size int, name string) backend.Value {
	return b.emit(Instr{Kind: InstrLoad, Result: 0, A: vid(ptr), Size: size, Name: name})
}

func (b *Builder) Store(ptr, v backend.Value, size int) {
	b.emit(Instr{Kind: InstrStore, Result: NoValue, A: vid(ptr), B: vid(v), Size: size})
}

func (b *Builder) FieldAddr(ptr backend.Value, offset int, name string) backend.Value {
	return b.emit(Instr{Kind: InstrFieldAddr, Result: 0, A: vid(ptr), Offset: offset, Name: name})
}

func (b *Builder) Copy(dst, src backend.Value, size int) {
	b.emit(Instr{Kind: InstrCopy, Result: NoValue, A: vid(dst), B: vid(src), Size: size})
}

func (b *Builder) Bin(op backend.BinOp, x, y backend.Value, name string) backend.Value {
	return b.emit(Instr{Kind: InstrBin, Result: 0, Op: op, A: vid(x), B: vid(y), Name: name})
}

func (b *Builder) Not(x backend.Value, name string) backend.Value {
	return b.emit(Instr{Kind: InstrNot, Result: 0, A: vid(x), Name: name})
}

func (b *Builder) Br(target backend.Block) {
	b.terminate(Terminator{Kind: TermBr, Target: bid(target)})
}

func (b *Builder) CondBr(cond backend.Value, then, els backend.Block) {
	b.terminate(Terminator{Kind: TermCondBr, Cond: vid(cond), Then: bid(then), Else: bid(els)})
}

func (b *Builder) Phi(incoming []backend.Incoming, name string) backend.Value {
	in := make([]PhiIncoming, 0, len(incoming))
	for _, e := range incoming {
		in = append(in, PhiIncoming{Value: vid(e.Value), Pred: bid(e.Pred)})
	}
	return b.emit(Instr{Kind: InstrPhi, Result: 0, Incoming: in, Name: name})
}

func (b *Builder) Call(fn backend.Func, args []backend.Value, name string) backend.Value {
	f, ok := fn.(*Func)
	if !ok {
		panic("ssamod: call target from a different backend")
	}
	ids := make([]ValueID, 0, len(args))
	for _, a := range args {
		ids = append(ids, vid(a))
	}
	return b.emit(Instr{Kind: InstrCall, Result: 0, Callee: f, Args: ids, Name: name})
}

func (b *Builder) Ret(v backend.Value) {
	b.terminate(Terminator{Kind: TermRet, HasValue: true, Value: vid(v)})
}

func (b *Builder) RetVoid() {
	b.terminate(Terminator{Kind: TermRet})
}

func (b *Builder) Trap(msg string) {
	b.terminate(Terminator{Kind: TermTrap, Msg: msg})
}

func vid(v backend.Value) ValueID {
	return v.(value).id
}

func bid(b backend.Block) BlockID {
	return b.(block).id
}
