package symtab

import (
	"fmt"
	"sort"

	"github.com/zigbind/zigbind/internal/ir"
)

// CollisionError reports two distinct declarations claiming one qualified
// name. This is fatal to the run: the symbol table cannot be trusted past
// this point, and resolving against it would produce misleading
// diagnostics.
type CollisionError struct {
	Name   ir.QualifiedName
	First  *ir.Declaration
	Second *ir.Declaration
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("name collision: %s declared at %s:%d and %s:%d",
		e.Name, e.First.Loc.File, e.First.Loc.Line, e.Second.Loc.File, e.Second.Loc.Line)
}

// Table is the corpus-wide symbol table. It is filled by a single writer
// during collection and read-only afterwards; that discipline is what lets
// resolution run lock-free in parallel.
type Table struct {
	decls  map[string]*ir.Declaration
	hashes map[string]string
	// order preserves insertion order per module so emission order is
	// derived from declaration order, not map iteration.
	order map[string][]*ir.Declaration

	sealed bool
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{
		decls:  make(map[string]*ir.Declaration),
		hashes: make(map[string]string),
		order:  make(map[string][]*ir.Declaration),
	}
}

// Collect registers one declaration. A duplicate qualified name with an
// identical content hash is tolerated (file re-inclusion); a duplicate with
// a different hash is a CollisionError.
func (t *Table) Collect(d *ir.Declaration) error {
	if t.sealed {
		panic("symtab: Collect after Seal")
	}
	key := d.Name.String()
	hash, err := ir.DeclarationHash(d)
	if err != nil {
		return fmt.Errorf("hash %s: %w", key, err)
	}
	if existing, ok := t.decls[key]; ok {
		if t.hashes[key] == hash {
			return nil
		}
		return &CollisionError{Name: d.Name, First: existing, Second: d}
	}
	t.decls[key] = d
	t.hashes[key] = hash
	mod := d.Name.ModuleKey()
	t.order[mod] = append(t.order[mod], d)
	return nil
}

// Seal marks the end of Phase 1. Further Collect calls panic; this is the
// barrier the resolver relies on.
func (t *Table) Seal() {
	t.sealed = true
}

// Lookup finds a declaration by fully qualified key ("um::winuser::MSG").
func (t *Table) Lookup(key string) (*ir.Declaration, bool) {
	d, ok := t.decls[key]
	return d, ok
}

// Module returns the module's declarations in declaration order.
func (t *Table) Module(moduleKey string) []*ir.Declaration {
	return t.order[moduleKey]
}

// Modules returns every module key, sorted.
func (t *Table) Modules() []string {
	keys := make([]string, 0, len(t.order))
	for k := range t.order {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered declarations.
func (t *Table) Len() int {
	return len(t.decls)
}
