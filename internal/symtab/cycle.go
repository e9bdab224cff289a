package symtab

import (
	"sort"
	"strings"

	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/ir"
)

// ValueDeps returns the declarations d depends on BY VALUE, as sorted
// qualified-name keys: field types for structs and unions, the target for
// aliases, the declared type for constants, and parameter/return types for
// function signatures. Pointers and function pointers break containment:
// laying out a pointer never requires the pointee's size, which is exactly
// why pointer cycles are legal and value cycles are not.
func (res *Resolution) ValueDeps(d *ir.Declaration) []string {
	seen := make(map[string]bool)
	fromModule := d.Name.ModuleKey()

	var visit func(t *ir.Type)
	visit = func(t *ir.Type) {
		if t == nil {
			return
		}
		switch t.Kind {
		case ir.TypeArray:
			visit(t.Array.Elem)
		case ir.TypePath:
			if target, ok := res.Target(fromModule, t.Path); ok {
				seen[target.Name.String()] = true
			}
		}
	}

	switch d.Kind {
	case ir.DeclStruct:
		for _, f := range d.Struct.Fields {
			visit(f.Type)
		}
	case ir.DeclUnion:
		for _, f := range d.Union.Fields {
			visit(f.Type)
		}
	case ir.DeclAlias:
		visit(d.Alias.Target)
	case ir.DeclConstant:
		visit(d.Constant.Type)
	case ir.DeclFunction:
		for _, p := range d.Function.Params {
			visit(p.Type)
		}
		visit(d.Function.Ret)
	}

	deps := make([]string, 0, len(seen))
	for k := range seen {
		deps = append(deps, k)
	}
	sort.Strings(deps)
	return deps
}

// AnalyzeValueCycles finds declarations that contain each other by value,
// cyclically. Such declarations have no finite layout and can never be
// emitted; each member of a cycle gets an error diagnostic and is excluded
// from emission. The returned set holds the qualified-name keys of every
// cycle member.
//
// The algorithm builds the by-value containment graph and finds strongly
// connected components with Tarjan's algorithm; an SCC is a cycle when it
// has more than one member or a self-loop.
func AnalyzeValueCycles(res *Resolution, sink *diag.Collector) map[string]bool {
	graph := make(map[string][]string)
	for _, mod := range res.table.Modules() {
		for _, d := range res.table.Module(mod) {
			key := d.Name.String()
			if graph[key] == nil {
				graph[key] = []string{}
			}
			graph[key] = append(graph[key], res.ValueDeps(d)...)
		}
	}

	bad := make(map[string]bool)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		sort.Strings(scc)
		path := strings.Join(scc, " -> ")
		for _, key := range scc {
			bad[key] = true
			d, ok := res.table.Lookup(key)
			if !ok {
				continue
			}
			sink.Addf(diag.SeverityError, diag.CodeValueCycle, key, d.Loc,
				"declaration contains itself by value through %s; only pointer cycles are representable", path)
		}
	}
	return bad
}

func hasSelfLoop(node string, graph map[string][]string) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Returns a list of SCCs,
// each a list of qualified-name keys. Single-node SCCs without self-loops
// are not cycles.
func tarjanSCC(graph map[string][]string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Deterministic visit order keeps diagnostics stable across runs.
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}
