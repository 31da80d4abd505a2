// Package ssamod is the in-memory reference implementation of the backend
// boundary: a small SSA module with basic blocks, phi nodes and byte-
// addressed allocas, plus an evaluator. Tests and `quill run` execute
// compiled functions through it.
package ssamod

import (
	"fmt"
	"sort"
	"sync"

	"quill/internal/backend"
)

// Module holds declared functions. Declaration is mutex-guarded because
// parallel workers may add monomorphized bodies concurrently.
type Module struct {
	mu    sync.Mutex
	funcs map[string]*Func
	order []string
}

func NewModule() *Module {
	return &Module{funcs: make(map[string]*Func, 16)}
}

// Func is one function's SSA body.
type Func struct {
	FnName    string
	Params    []ValueID
	ParamName []string
	Blocks    []*Block

	numValues int32
}

var _ backend.Func = (*Func)(nil)

func (f *Func) Name() string    { return f.FnName }
func (f *Func) NumParams() int  { return len(f.Params) }
func (f *Func) Param(i int) backend.Value {
	return value{id: f.Params[i]}
}

// NumValues returns the size of the function's virtual register file.
func (f *Func) NumValues() int { return int(f.numValues) }

// Entry returns the function's entry block.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewFunc declares a function with a fresh entry block and returns a builder
// positioned on it.
func (m *Module) NewFunc(name string, paramNames []string) (backend.Func, backend.Builder) {
	f := &Func{FnName: name, ParamName: paramNames}
	for range paramNames {
		f.Params = append(f.Params, ValueID(f.numValues))
		f.numValues++
	}
	m.mu.Lock()
	if _, dup := m.funcs[name]; dup {
		m.mu.Unlock()
		panic(fmt.Sprintf("ssamod: duplicate function %q", name))
	}
	m.funcs[name] = f
	m.order = append(m.order, name)
	m.mu.Unlock()

	b := &Builder{mod: m, fn: f}
	entry := b.NewBlock("entry")
	b.SetInsertPoint(entry)
	return f, b
}

// Lookup finds a declared function by name.
func (m *Module) Lookup(name string) (backend.Func, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.funcs[name]
	if !ok {
		return nil, false
	}
	return f, true
}

// Drop removes a declared function. The driver uses it to discard the
// half-built body of an instantiation whose compilation failed.
func (m *Module) Drop(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.funcs[name]; !ok {
		return
	}
	delete(m.funcs, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// FuncNames returns declared function names, sorted for determinism.
func (m *Module) FuncNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.order...)
	sort.Strings(out)
	return out
}

// FuncByName returns the concrete function body, mainly for the printer and
// the evaluator.
func (m *Module) FuncByName(name string) (*Func, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.funcs[name]
	return f, ok
}

var _ backend.Module = (*Module)(nil)
