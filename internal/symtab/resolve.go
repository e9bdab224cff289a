package symtab

import (
	"strings"
	"sync"

	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/ir"
)

// reexport chains are short in practice; the bound only guards against a
// re-export loop.
const maxReexportDepth = 32

// Resolver performs Phase 2 over a sealed table. ResolveModule may run
// concurrently for different modules; the shared target map is the only
// mutable state and is mutex-guarded.
type Resolver struct {
	table *Table
	// imports maps module key → local name → re-export target path.
	imports map[string]map[string][]string

	mu      sync.Mutex
	targets map[string]ir.QualifiedName
}

// NewResolver builds a resolver over a sealed table, indexing every
// re-export so unqualified references can follow `use` paths.
func NewResolver(table *Table) *Resolver {
	r := &Resolver{
		table:   table,
		imports: make(map[string]map[string][]string),
		targets: make(map[string]ir.QualifiedName),
	}
	for _, mod := range table.Modules() {
		for _, d := range table.Module(mod) {
			if d.Kind != ir.DeclReexport {
				continue
			}
			byName := r.imports[mod]
			if byName == nil {
				byName = make(map[string][]string)
				r.imports[mod] = byName
			}
			byName[d.Name.Name] = d.Reexport.Target
		}
	}
	return r
}

func refKey(fromModule string, path *ir.PathType) string {
	return fromModule + "\x00" + path.Key()
}

// ResolveModule resolves every path reference in the module's declarations.
// Unresolved references are recorded against the referencing declaration
// and never abort the run.
func (r *Resolver) ResolveModule(moduleKey string, sink *diag.Collector) {
	for _, d := range r.table.Module(moduleKey) {
		r.resolveDecl(d, sink)
	}
}

func (r *Resolver) resolveDecl(d *ir.Declaration, sink *diag.Collector) {
	walk := func(t *ir.Type) {
		r.resolveType(t, d, sink)
	}
	switch d.Kind {
	case ir.DeclStruct:
		for _, f := range d.Struct.Fields {
			walk(f.Type)
		}
	case ir.DeclUnion:
		for _, f := range d.Union.Fields {
			walk(f.Type)
		}
	case ir.DeclFunction:
		for _, p := range d.Function.Params {
			walk(p.Type)
		}
		if d.Function.Ret != nil {
			walk(d.Function.Ret)
		}
	case ir.DeclAlias:
		walk(d.Alias.Target)
	case ir.DeclConstant:
		if d.Constant.Type != nil {
			walk(d.Constant.Type)
		}
	case ir.DeclReexport:
		// Cache under the local name so the emitter's single-segment
		// lookup lands on the followed target.
		from := d.Name.ModuleKey()
		if _, ok := r.resolvePath(from, &ir.PathType{Segments: []string{d.Name.Name}}); !ok {
			sink.Addf(diag.SeverityError, diag.CodeUnresolvedReference,
				d.Name.String(), d.Loc,
				"re-export target %s does not resolve to a declaration",
				strings.Join(d.Reexport.Target, "::"))
		}
	}
}

func (r *Resolver) resolveType(t *ir.Type, owner *ir.Declaration, sink *diag.Collector) {
	if t == nil {
		return
	}
	switch t.Kind {
	case ir.TypePointer:
		r.resolveType(t.Pointer.Elem, owner, sink)
	case ir.TypeArray:
		r.resolveType(t.Array.Elem, owner, sink)
	case ir.TypeFuncPtr:
		for _, p := range t.FuncPtr.Params {
			r.resolveType(p.Type, owner, sink)
		}
		r.resolveType(t.FuncPtr.Ret, owner, sink)
	case ir.TypePath:
		fromModule := owner.Name.ModuleKey()
		if _, ok := r.resolvePath(fromModule, t.Path); !ok {
			sink.Addf(diag.SeverityError, diag.CodeUnresolvedReference,
				owner.Name.String(), owner.Loc,
				"reference %s does not resolve to a declaration", t.Path.Key())
		}
		for _, g := range t.Path.Generics {
			r.resolveType(g, owner, sink)
		}
	}
}

// resolvePath resolves a path reference as seen from a module and caches
// the result. Lookup order: same module, then the module's re-exports,
// then a fully qualified corpus path.
func (r *Resolver) resolvePath(fromModule string, path *ir.PathType) (ir.QualifiedName, bool) {
	key := refKey(fromModule, path)
	r.mu.Lock()
	if q, ok := r.targets[key]; ok {
		r.mu.Unlock()
		return q, true
	}
	r.mu.Unlock()

	q, ok := r.resolveUncached(fromModule, path.Segments)
	if ok {
		r.mu.Lock()
		r.targets[key] = q
		r.mu.Unlock()
	}
	return q, ok
}

func (r *Resolver) resolveUncached(fromModule string, segments []string) (ir.QualifiedName, bool) {
	if len(segments) == 0 {
		return ir.QualifiedName{}, false
	}
	// Front ends root all multi-segment paths at the crate; tolerate an
	// explicit crate prefix.
	if segments[0] == "crate" && len(segments) > 1 {
		segments = segments[1:]
	}

	if len(segments) == 1 {
		name := segments[0]
		local := name
		if fromModule != "" {
			local = fromModule + "::" + name
		}
		if d, ok := r.table.Lookup(local); ok {
			if d.Kind == ir.DeclReexport {
				return r.followReexport(d.Reexport.Target, 0)
			}
			return d.Name, true
		}
		if target, ok := r.imports[fromModule][name]; ok {
			return r.followReexport(target, 0)
		}
		return ir.QualifiedName{}, false
	}

	full := strings.Join(segments, "::")
	if d, ok := r.table.Lookup(full); ok {
		if d.Kind == ir.DeclReexport {
			return r.followReexport(d.Reexport.Target, 0)
		}
		return d.Name, true
	}
	return ir.QualifiedName{}, false
}

// followReexport chases a `use` target until it lands on a concrete
// declaration, bounded against loops.
func (r *Resolver) followReexport(target []string, depth int) (ir.QualifiedName, bool) {
	if depth > maxReexportDepth || len(target) == 0 {
		return ir.QualifiedName{}, false
	}
	segments := target
	if segments[0] == "crate" && len(segments) > 1 {
		segments = segments[1:]
	}
	full := strings.Join(segments, "::")
	d, ok := r.table.Lookup(full)
	if !ok {
		return ir.QualifiedName{}, false
	}
	if d.Kind == ir.DeclReexport {
		return r.followReexport(d.Reexport.Target, depth+1)
	}
	return d.Name, true
}

// Resolution is the read-only outcome of Phase 2, consumed by the emitter.
type Resolution struct {
	table   *Table
	targets map[string]ir.QualifiedName
}

// Finish freezes the resolver into a Resolution.
func (r *Resolver) Finish() *Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	targets := make(map[string]ir.QualifiedName, len(r.targets))
	for k, v := range r.targets {
		targets[k] = v
	}
	return &Resolution{table: r.table, targets: targets}
}

// Table exposes the underlying (sealed, read-only) symbol table.
func (res *Resolution) Table() *Table {
	return res.table
}

// Target returns the declaration a path resolved to, as seen from the
// given module, or false if the path never resolved.
func (res *Resolution) Target(fromModule string, path *ir.PathType) (*ir.Declaration, bool) {
	q, ok := res.targets[refKey(fromModule, path)]
	if !ok {
		return nil, false
	}
	d, ok := res.table.Lookup(q.String())
	return d, ok
}
