// Package driver orchestrates compilation: it freezes the symbol table,
// fans function bodies out to parallel workers and aggregates diagnostics.
package driver

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"quill/internal/ast"
	"quill/internal/backend/ssamod"
	"quill/internal/codegen"
	"quill/internal/diag"
	"quill/internal/layout"
	"quill/internal/mono"
	"quill/internal/source"
	"quill/internal/symbols"
	"quill/internal/types"
)

// Options configures one build.
type Options struct {
	// Jobs is the worker count; <=0 means GOMAXPROCS.
	Jobs int
	// Target selects the layout rules. Zero value defaults to x86-64 Linux.
	Target layout.Target
	// MaxDiagnostics caps the aggregated bag.
	MaxDiagnostics int
	// Progress, when non-nil, receives one call per finished function. It
	// may be called from multiple goroutines, one at a time.
	Progress func(name string, done, total int)
}

const defaultMaxDiagnostics = 100

// Build is the outcome of compiling one program.
type Build struct {
	Module *ssamod.Module
	Store  *mono.Store
	Syms   *symbols.Table
	Bag    *diag.Bag
	// Entry maps declared function names to emitted symbol names for the
	// non-generic functions that compiled cleanly.
	Entry map[string]string
}

// Compile builds every non-generic function of prog. Generic functions
// compile lazily, once per instantiation reached from the roots. Workers
// share the frozen symbol table, the instantiation store and the backend
// module; each carries its own type interner and layout cache.
func Compile(ctx context.Context, prog *ast.Program, opts Options) (*Build, error) {
	if prog == nil {
		return nil, errors.New("driver: nil program")
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = defaultMaxDiagnostics
	}
	if opts.Target == (layout.Target{}) {
		opts.Target = layout.X86_64LinuxGNU()
	}

	strings := source.NewInterner()
	syms, err := symbols.Populate(prog, strings)
	if err != nil {
		return nil, err
	}

	mod := ssamod.NewModule()
	store := mono.NewStore()
	build := &Build{
		Module: mod,
		Store:  store,
		Syms:   syms,
		Bag:    diag.NewBag(opts.MaxDiagnostics),
		Entry:  make(map[string]string),
	}

	roots := rootFuncs(syms)
	if len(roots) == 0 {
		return build, nil
	}

	jobs := min(opts.Jobs, len(roots))
	work := make(chan *ast.FuncDecl)
	results := make([]rootResult, len(roots))
	index := make(map[string]int, len(roots))
	for i, f := range roots {
		index[f.Name] = i
	}

	var (
		progressMu sync.Mutex
		done       int
	)
	report := func(name string) {
		if opts.Progress == nil {
			return
		}
		progressMu.Lock()
		done++
		opts.Progress(name, done, len(roots))
		progressMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for _, f := range roots {
			select {
			case work <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < jobs; w++ {
		g.Go(func() error {
			em := codegen.NewEmitter(
				types.NewInterner(source.NewInterner()),
				syms, opts.Target, store, mod,
			)
			for f := range work {
				cf, cerr := em.CompileFunc(f, nil)
				slot := index[f.Name]
				if cerr != nil {
					results[slot] = rootResult{name: f.Name, err: cerr}
				} else {
					results[slot] = rootResult{name: f.Name, symbol: cf.Name}
				}
				report(f.Name)
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A poisoned instantiation was declared but its body never finished;
	// its symbol must not survive into the emitted module.
	for _, name := range store.Poisoned() {
		mod.Drop(name)
	}

	// Diagnostics attach in declaration order regardless of which worker
	// hit them, so two runs of the same program render identically.
	for _, r := range results {
		if r.err != nil {
			var ce *diag.CompileError
			if errors.As(r.err, &ce) {
				build.Bag.Add(ce.Diagnostic())
			} else {
				build.Bag.Add(diag.Diagnostic{
					Severity: diag.SevError,
					Code:     diag.UnknownCode,
					Message:  r.err.Error(),
				})
			}
			continue
		}
		if r.name != "" {
			build.Entry[r.name] = r.symbol
		}
	}
	return build, nil
}

type rootResult struct {
	name   string
	symbol string
	err    error
}

// rootFuncs returns the compilation roots: every non-generic function,
// sorted by name for a deterministic schedule.
func rootFuncs(syms *symbols.Table) []*ast.FuncDecl {
	var roots []*ast.FuncDecl
	for _, f := range syms.Funcs() {
		if !f.IsGeneric() {
			roots = append(roots, f)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots
}
