// Package translate runs the whole pipeline: parallel per-file expansion,
// corpus-wide symbol collection, a barrier, parallel per-module resolution,
// then deterministic emission.
//
// The barrier between collection and resolution is the load-bearing piece:
// the OS API surface freely references types declared later in the same
// file or in sibling files, so no reference may be resolved until every
// declaration has been collected. The symbol table is written by a single
// goroutine during collection and read-only afterwards, which is what lets
// resolution fan out without locks.
//
// Per-item failures (unsupported constructs, unresolved references, mapping
// errors, layout mismatches) never cancel a run; they are recorded and the
// pipeline proceeds item by item. The one global failure is a name
// collision: past that point the symbol table cannot be trusted, so the run
// aborts at the barrier.
package translate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/zigbind/zigbind/internal/ast"
	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/emit"
	"github.com/zigbind/zigbind/internal/expand"
	"github.com/zigbind/zigbind/internal/symtab"
	"github.com/zigbind/zigbind/internal/typemap"
)

// Module is one corpus module: a module path, the native library its
// functions link against, and its source files in order.
type Module struct {
	Path    []string
	LinkLib string
	Files   []*ast.File
}

// Key returns the module key ("um::winuser").
func (m *Module) Key() string {
	return strings.Join(m.Path, "::")
}

// Corpus is the whole input declaration set.
type Corpus struct {
	Modules []Module
}

// Result is everything one run produces. The engine holds no state between
// runs; the emitted text and the diagnostics report are the only outputs.
type Result struct {
	Modules     []emit.Module
	Diagnostics []diag.Diagnostic
	Summary     diag.Summary
	// Declarations is the number of IR declarations collected.
	Declarations int
}

// Translate converts the corpus into target-language modules under the
// given profile. The returned error is non-nil only for run-fatal failures
// (name collision, cancellation); all other failures surface as
// diagnostics on the Result.
func Translate(ctx context.Context, corpus *Corpus, prof *typemap.Profile) (*Result, error) {
	if corpus == nil || prof == nil {
		return nil, errors.New("translate: corpus and profile are required")
	}
	sink := diag.NewCollector()

	// Phase 1a: expand files in parallel. Results are kept in input order
	// so collection below is deterministic no matter which worker ran what.
	results := expandAll(ctx, corpus, sink)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 1b: collect every declaration, single writer.
	table := symtab.NewTable()
	skipped := make(map[string][]emit.Breadcrumb)
	for mi := range corpus.Modules {
		mod := &corpus.Modules[mi]
		key := mod.Key()
		for _, fr := range results[mi] {
			for _, d := range fr.Decls {
				if err := table.Collect(d); err != nil {
					var collision *symtab.CollisionError
					if errors.As(err, &collision) {
						sink.Addf(diag.SeverityFatal, diag.CodeNameCollision,
							collision.Name.String(), collision.Second.Loc, "%v", collision)
						return &Result{
							Diagnostics: sink.All(),
							Summary:     sink.Summarize(),
						}, fmt.Errorf("translate: %w", err)
					}
					return nil, err
				}
			}
			for _, sk := range fr.Skipped {
				skipped[key] = append(skipped[key], emit.Breadcrumb{Name: sk.Name})
			}
		}
	}

	// Barrier: no resolution before the table has seen every file.
	table.Seal()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 2: resolve per module in parallel against the sealed table.
	resolver := symtab.NewResolver(table)
	var wg sync.WaitGroup
	for _, moduleKey := range table.Modules() {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			resolver.ResolveModule(key, sink)
		}(moduleKey)
	}
	wg.Wait()
	res := resolver.Finish()

	excluded := symtab.AnalyzeValueCycles(res, sink)
	symtab.VerifyLayouts(res, uint64(prof.PointerBits)/8, excluded, sink)

	modules := emit.Modules(emit.Options{
		Profile:    prof,
		Resolution: res,
		Excluded:   excluded,
		Skipped:    skipped,
		Sink:       sink,
	})

	return &Result{
		Modules:      modules,
		Diagnostics:  sink.All(),
		Summary:      sink.Summarize(),
		Declarations: table.Len(),
	}, nil
}

// expandAll fans file expansion out to workers and returns per-module,
// per-file results in input order.
func expandAll(ctx context.Context, corpus *Corpus, sink *diag.Collector) [][]expand.FileResult {
	type job struct {
		module, file int
	}

	results := make([][]expand.FileResult, len(corpus.Modules))
	var jobs []job
	for mi := range corpus.Modules {
		results[mi] = make([]expand.FileResult, len(corpus.Modules[mi].Files))
		for fi := range corpus.Modules[mi].Files {
			jobs = append(jobs, job{module: mi, file: fi})
		}
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	ch := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range ch {
				mod := &corpus.Modules[j.module]
				ex := expand.New(mod.Path, mod.LinkLib, sink)
				results[j.module][j.file] = ex.File(mod.Files[j.file])
			}
		}()
	}
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		ch <- j
	}
	close(ch)
	wg.Wait()
	return results
}
