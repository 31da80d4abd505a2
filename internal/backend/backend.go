// Package backend is the boundary to the native SSA code-generation target.
// The compiler core treats the target as append-only: it creates blocks,
// emits instructions through a Builder and keeps only the opaque handles it
// was given. Handle internals are never inspected.
//
// internal/backend/ssamod carries the in-memory reference implementation the
// tests and `quill run` use; a native target (e.g. an LLVM emitter) plugs in
// behind the same interfaces.
package backend

// Value is an opaque SSA value handle. Implementations embed ValueMarker.
type Value interface {
	isValue()
}

// ValueMarker satisfies Value when embedded in a target's value handle.
type ValueMarker struct{}

func (ValueMarker) isValue() {}

// Block is an opaque basic-block handle. Implementations embed BlockMarker.
type Block interface {
	isBlock()
}

// BlockMarker satisfies Block when embedded in a target's block handle.
type BlockMarker struct{}

func (BlockMarker) isBlock() {}

// Func is an opaque function handle.
type Func interface {
	Name() string
	NumParams() int
	Param(i int) Value
}

// Incoming is one (value, predecessor-block) pair of a phi node.
type Incoming struct {
	Value Value
	Pred  Block
}

// BinOp enumerates the two-operand instructions the core emits.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpStrEq
)

// Module creates functions. One module instance belongs to one compilation
// worker; cross-worker sharing is the driver's problem, not the backend's.
type Module interface {
	// NewFunc declares a function and returns its handle plus a builder
	// positioned at a fresh entry block.
	NewFunc(name string, paramNames []string) (Func, Builder)
	// Lookup finds a previously declared function.
	Lookup(name string) (Func, bool)
}

// Builder appends instructions to the current insertion block of one
// function. All emission the core performs goes through this interface.
type Builder interface {
	Func() Func

	NewBlock(name string) Block
	SetInsertPoint(b Block)
	InsertBlock() Block
	// Terminated reports whether the insertion block already ends in a
	// terminator; emitting past one is a bug in the caller.
	Terminated() bool

	ConstInt(v int64) Value
	ConstBool(v bool) Value
	ConstString(s string) Value

	// Alloca reserves size bytes of caller-directed storage. All storage
	// the core uses is explicit; there is no implicit global allocator.
	Alloca(size, align int, name string) Value
	Load(ptr Value, size int, name string) Value
	Store(ptr Value, v Value, size int)
	// FieldAddr computes ptr+offset, for struct fields and enum payloads.
	FieldAddr(ptr Value, offset int, name string) Value
	// Copy moves size raw bytes from src to dst. Nested enum payloads are
	// copied with this so the inner discriminant travels with its payload.
	Copy(dst, src Value, size int)

	Bin(op BinOp, a, b Value, name string) Value
	Not(a Value, name string) Value

	Br(target Block)
	CondBr(cond Value, then, els Block)
	// Phi merges one value per predecessor edge.
	Phi(incoming []Incoming, name string) Value

	Call(fn Func, args []Value, name string) Value

	Ret(v Value)
	RetVoid()
	// Trap terminates the block with a runtime-fatal abort. The pattern
	// compiler plants one after the last arm so a non-exhaustive match can
	// never fall through to uninitialized bytes.
	Trap(msg string)
}
