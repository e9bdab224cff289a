package emit

import (
	"sort"

	"github.com/zigbind/zigbind/internal/ir"
	"github.com/zigbind/zigbind/internal/symtab"
)

// orderDecls returns the module's non-re-export declarations in an order
// where every by-value dependency inside the module precedes its
// dependents. Pointer references impose no ordering. Ties break on
// declaration order, so output is stable across runs.
//
// Value cycles were removed before this runs, so the graph restricted to
// the input set is acyclic (a defensive fallback appends any leftovers in
// declaration order rather than dropping them).
func orderDecls(decls []*ir.Declaration, res *symtab.Resolution) []*ir.Declaration {
	index := make(map[string]int, len(decls))
	for i, d := range decls {
		index[d.Name.String()] = i
	}

	// dependents[k] lists declarations that contain k by value; indegree
	// counts in-module by-value dependencies.
	dependents := make(map[string][]int)
	indegree := make([]int, len(decls))
	for i, d := range decls {
		for _, dep := range res.ValueDeps(d) {
			if _, inModule := index[dep]; !inModule || dep == d.Name.String() {
				continue
			}
			dependents[dep] = append(dependents[dep], i)
			indegree[i]++
		}
	}

	ready := make([]int, 0, len(decls))
	for i := range decls {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	out := make([]*ir.Declaration, 0, len(decls))
	emitted := make([]bool, len(decls))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		out = append(out, decls[i])
		emitted[i] = true
		released := dependents[decls[i].Name.String()]
		changed := false
		for _, j := range released {
			indegree[j]--
			if indegree[j] == 0 {
				ready = append(ready, j)
				changed = true
			}
		}
		if changed {
			sort.Ints(ready)
		}
	}

	for i, d := range decls {
		if !emitted[i] {
			out = append(out, d)
		}
	}
	return out
}
