package mono

import (
	"sort"
	"sync"

	"quill/internal/backend"
	"quill/internal/source"
	"quill/internal/types"
)

// CompiledFunc is one emitted body: the backend handle plus the metadata
// callers need to type a call to it.
type CompiledFunc struct {
	Name   string // mangled symbol name
	Fn     backend.Func
	Result types.TypeID

	// Builder is set while the body is being filled in by the worker that
	// declared the function, then cleared. Other workers never touch it.
	Builder backend.Builder
}

// Store is the one mutable resource compilation workers share: the
// instantiation cache mapping (function, concrete type args) to its single
// compiled body.
//
// Declaration is atomic under the store's lock, so two workers reaching the
// same instantiation can never emit conflicting duplicate symbols: exactly
// one caller sees fresh=true and compiles the body, every other caller gets
// the same declared handle and simply emits calls against it. Recursive
// instantiations resolve to their own in-progress declaration instead of
// deadlocking.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	uses    *InstantiationMap
}

type entry struct {
	cf  *CompiledFunc
	err error
}

func NewStore() *Store {
	return &Store{
		entries: make(map[Key]*entry),
		uses:    NewInstantiationMap(),
	}
}

// Declare returns the compiled-function handle for key, creating it with
// declare on first use. fresh is true for exactly one caller per key; that
// caller owns compiling the body and must report the outcome via Finish.
func (s *Store) Declare(key Key, declare func() (*CompiledFunc, error)) (cf *CompiledFunc, fresh bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.cf, false, e.err
	}
	cf, err = declare()
	s.entries[key] = &entry{cf: cf, err: err}
	return cf, err == nil, err
}

// Finish records the body-compilation outcome for key. A body error poisons
// the entry so later users of the instantiation see the failure instead of
// an incomplete body.
func (s *Store) Finish(key Key, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.err == nil {
		e.err = err
	}
}

// Lookup returns the declared body for key, if any.
func (s *Store) Lookup(key Key) (*CompiledFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.err != nil {
		return nil, false
	}
	return e.cf, true
}

// Len reports how many distinct instantiations have been declared.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Poisoned returns the symbol names of instantiations whose body
// compilation failed, sorted. Their declarations are half built; the driver
// drops them from the module so a failed build never exports them.
func (s *Store) Poisoned() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, e := range s.entries {
		if e.err != nil && e.cf != nil {
			names = append(names, e.cf.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Err returns the recorded body error for key, if any.
func (s *Store) Err(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.err
	}
	return nil
}

// RecordUse notes a use site for diagnostics and the inspect listing. The
// interner is the calling worker's own; only the map behind the lock is
// shared.
func (s *Store) RecordUse(in *types.Interner, fn string, typeArgs []types.TypeID, site source.Span, caller, note string) {
	key := KeyFor(in, fn, typeArgs)
	rendered := RenderTypeArgs(in, typeArgs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uses.Record(key, rendered, site, caller, note)
}

// Uses returns the recorded instantiation map. The caller must not mutate
// it while workers are running.
func (s *Store) Uses() *InstantiationMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uses
}
