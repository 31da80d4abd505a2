package ssamod

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"quill/internal/backend"
)

// TrapError is the runtime-fatal result of reaching a trap terminator, e.g.
// a match whose scrutinee no arm accepted. It is not a compile error.
type TrapError struct {
	Msg string
}

func (e *TrapError) Error() string {
	return "trap: " + e.Msg
}

// ErrNoEntry is returned when the requested function is not in the module.
var ErrNoEntry = errors.New("ssamod: no such function")

const maxCallDepth = 512

// Machine evaluates module functions. One machine per evaluation; it owns
// its memory and string pool.
type Machine struct {
	mod     *Module
	allocs  [][]byte
	strings []string
	strIdx  map[string]int64
}

func NewMachine(mod *Module) *Machine {
	return &Machine{
		mod:    mod,
		strIdx: make(map[string]int64),
	}
}

// Result is the outcome of running one function.
type Result struct {
	HasValue bool
	Word     int64
}

// Str resolves a string handle produced by the machine.
func (m *Machine) Str(word int64) (string, bool) {
	if word < 0 || word >= int64(len(m.strings)) {
		return "", false
	}
	return m.strings[word], true
}

// LoadBytes reads size bytes behind a pointer word, for tests inspecting
// enum storage directly.
func (m *Machine) LoadBytes(ptr int64, size int) ([]byte, error) {
	buf, off, err := m.deref(ptr, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, buf[off:off+size])
	return out, nil
}

// Run evaluates the named function with integer/handle words as arguments.
func (m *Machine) Run(name string, args ...int64) (Result, error) {
	f, ok := m.mod.FuncByName(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoEntry, name)
	}
	return m.call(f, args, 0)
}

func (m *Machine) intern(s string) int64 {
	s = norm.NFC.String(s)
	if id, ok := m.strIdx[s]; ok {
		return id
	}
	id := int64(len(m.strings))
	m.strings = append(m.strings, s)
	m.strIdx[s] = id
	return id
}

// Pointer words pack an allocation index and a byte offset.
func packPtr(alloc int, off int) int64 {
	return int64(alloc)<<32 | int64(off)
}

func (m *Machine) deref(word int64, size int) ([]byte, int, error) {
	alloc := int(word >> 32)
	off := int(word & 0xffffffff)
	if alloc < 0 || alloc >= len(m.allocs) {
		return nil, 0, fmt.Errorf("ssamod: wild pointer %#x", word)
	}
	buf := m.allocs[alloc]
	if off < 0 || off+size > len(buf) {
		return nil, 0, fmt.Errorf("ssamod: out-of-bounds access at %#x size %d", word, size)
	}
	return buf, off, nil
}

func (m *Machine) call(f *Func, args []int64, depth int) (Result, error) {
	if depth > maxCallDepth {
		return Result{}, errors.New("ssamod: call depth exceeded")
	}
	if len(args) != len(f.Params) {
		return Result{}, fmt.Errorf("ssamod: %s expects %d args, got %d", f.FnName, len(f.Params), len(args))
	}
	regs := make([]int64, f.NumValues())
	for i, p := range f.Params {
		regs[p] = args[i]
	}

	cur := f.Entry()
	if cur == nil {
		return Result{}, fmt.Errorf("ssamod: %s has no body", f.FnName)
	}
	prev := BlockID(-1)

	for steps := 0; ; steps++ {
		if steps > 1_000_000 {
			return Result{}, errors.New("ssamod: step budget exceeded")
		}
		for i := range cur.Instrs {
			if err := m.step(f, &cur.Instrs[i], regs, prev, depth); err != nil {
				return Result{}, err
			}
		}
		switch cur.Term.Kind {
		case TermRet:
			if cur.Term.HasValue {
				return Result{HasValue: true, Word: regs[cur.Term.Value]}, nil
			}
			return Result{}, nil
		case TermBr:
			prev, cur = cur.ID, f.Blocks[cur.Term.Target]
		case TermCondBr:
			next := cur.Term.Else
			if regs[cur.Term.Cond] != 0 {
				next = cur.Term.Then
			}
			prev, cur = cur.ID, f.Blocks[next]
		case TermTrap:
			return Result{}, &TrapError{Msg: cur.Term.Msg}
		default:
			return Result{}, fmt.Errorf("ssamod: block %q in %s lacks a terminator", cur.Name, f.FnName)
		}
	}
}

func (m *Machine) step(f *Func, in *Instr, regs []int64, prev BlockID, depth int) error {
	switch in.Kind {
	case InstrConstInt:
		regs[in.Result] = in.Int
	case InstrConstStr:
		regs[in.Result] = m.intern(in.Str)
	case InstrAlloca:
		m.allocs = append(m.allocs, make([]byte, in.Size))
		regs[in.Result] = packPtr(len(m.allocs)-1, 0)
	case InstrLoad:
		buf, off, err := m.deref(regs[in.A], in.Size)
		if err != nil {
			return err
		}
		regs[in.Result] = readWord(buf[off:], in.Size)
	case InstrStore:
		buf, off, err := m.deref(regs[in.A], in.Size)
		if err != nil {
			return err
		}
		writeWord(buf[off:], in.Size, regs[in.B])
	case InstrFieldAddr:
		regs[in.Result] = regs[in.A] + int64(in.Offset)
	case InstrCopy:
		dst, doff, err := m.deref(regs[in.A], in.Size)
		if err != nil {
			return err
		}
		src, soff, err := m.deref(regs[in.B], in.Size)
		if err != nil {
			return err
		}
		copy(dst[doff:doff+in.Size], src[soff:soff+in.Size])
	case InstrBin:
		r, err := m.binOp(in.Op, regs[in.A], regs[in.B])
		if err != nil {
			return err
		}
		regs[in.Result] = r
	case InstrNot:
		if regs[in.A] == 0 {
			regs[in.Result] = 1
		} else {
			regs[in.Result] = 0
		}
	case InstrPhi:
		found := false
		for _, e := range in.Incoming {
			if e.Pred == prev {
				regs[in.Result] = regs[e.Value]
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("ssamod: phi in %s has no edge from block %d", f.FnName, prev)
		}
	case InstrCall:
		args := make([]int64, 0, len(in.Args))
		for _, a := range in.Args {
			args = append(args, regs[a])
		}
		res, err := m.call(in.Callee, args, depth+1)
		if err != nil {
			return err
		}
		if in.Result != NoValue && res.HasValue {
			regs[in.Result] = res.Word
		}
	default:
		return fmt.Errorf("ssamod: unknown instruction kind %d", in.Kind)
	}
	return nil
}

func (m *Machine) binOp(op backend.BinOp, a, b int64) (int64, error) {
	switch op {
	case backend.OpAdd:
		return a + b, nil
	case backend.OpSub:
		return a - b, nil
	case backend.OpMul:
		return a * b, nil
	case backend.OpDiv:
		if b == 0 {
			return 0, &TrapError{Msg: "integer division by zero"}
		}
		return a / b, nil
	case backend.OpEq:
		return boolWord(a == b), nil
	case backend.OpNe:
		return boolWord(a != b), nil
	case backend.OpLt:
		return boolWord(a < b), nil
	case backend.OpLe:
		return boolWord(a <= b), nil
	case backend.OpGt:
		return boolWord(a > b), nil
	case backend.OpGe:
		return boolWord(a >= b), nil
	case backend.OpStrEq:
		sa, oka := m.Str(a)
		sb, okb := m.Str(b)
		if !oka || !okb {
			return 0, fmt.Errorf("ssamod: string compare on non-string handles %d, %d", a, b)
		}
		return boolWord(sa == sb), nil
	default:
		return 0, fmt.Errorf("ssamod: unknown binary op %d", op)
	}
}

func boolWord(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func readWord(buf []byte, size int) int64 {
	switch size {
	case 1:
		return int64(buf[0])
	case 2:
		return int64(binary.LittleEndian.Uint16(buf))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(buf)))
	case 8:
		return int64(binary.LittleEndian.Uint64(buf))
	default:
		var w int64
		for i := size - 1; i >= 0; i-- {
			w = w<<8 | int64(buf[i])
		}
		return w
	}
}

func writeWord(buf []byte, size int, w int64) {
	switch size {
	case 1:
		buf[0] = byte(w)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(w))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(w))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(w))
	default:
		for i := 0; i < size; i++ {
			buf[i] = byte(w >> (8 * i))
		}
	}
}
