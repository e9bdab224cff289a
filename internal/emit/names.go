package emit

import (
	"fmt"
	"strings"

	"github.com/zigbind/zigbind/internal/ir"
	"github.com/zigbind/zigbind/internal/symtab"
	"github.com/zigbind/zigbind/internal/typemap"
)

// nameTable assigns every declaration its emitted local name up front, so
// cross-module references spell the same name the defining module emitted.
//
// Disambiguation rule: a declared name that is a target reserved word, or
// that is already taken in its module, gains "_" suffixes until free.
// Assignment walks modules and declarations in declaration order, so the
// outcome is identical on every run. Functions keep their linkage name as
// the emitted identifier (the identifier IS the native symbol); reserved
// linkage names are escaped at print time instead of renamed.
type nameTable struct {
	prof  *typemap.Profile
	local map[string]map[string]string // module key → declared name → emitted name
	taken map[string]map[string]bool   // module key → emitted name → taken
	// clash marks functions whose linkage name was already emitted in the
	// module. The identifier IS the native symbol, so it cannot be renamed;
	// the function is diagnosed and skipped instead.
	clash map[string]bool // qualified-name key → true
}

func buildNameTable(res *symtab.Resolution, prof *typemap.Profile) *nameTable {
	nt := &nameTable{
		prof:  prof,
		local: make(map[string]map[string]string),
		taken: make(map[string]map[string]bool),
		clash: make(map[string]bool),
	}
	table := res.Table()
	for _, mod := range table.Modules() {
		nt.local[mod] = make(map[string]string)
		nt.taken[mod] = make(map[string]bool)
		for _, d := range table.Module(mod) {
			nt.assign(mod, d)
		}
	}
	return nt
}

func (nt *nameTable) assign(mod string, d *ir.Declaration) {
	if d.Kind == ir.DeclFunction {
		link := d.Function.LinkName
		if nt.taken[mod][link] {
			nt.clash[d.Name.String()] = true
		}
		nt.taken[mod][link] = true
		if d.Name.Name == link {
			nt.local[mod][d.Name.Name] = link
			return
		}
		// A renamed function keeps the linkage name on the fn itself; the
		// declared name becomes an alias and takes the normal suffix rule.
	}
	name := d.Name.Name
	for nt.prof.IsReserved(name) || nt.taken[mod][name] {
		name += "_"
	}
	nt.local[mod][d.Name.Name] = name
	nt.taken[mod][name] = true
}

// reserveAlias claims a module-level import alias, suffixing past reserved
// words and already-claimed names.
func (nt *nameTable) reserveAlias(mod, base string) string {
	name := base
	for nt.prof.IsReserved(name) || nt.taken[mod][name] {
		name += "_"
	}
	nt.taken[mod][name] = true
	return name
}

// moduleNamer implements typemap.Namer for one module's emission pass. It
// records which sibling modules the emitted text ends up referencing so the
// header can import exactly those.
type moduleNamer struct {
	names *nameTable
	res   *symtab.Resolution

	module  string
	aliases map[string]string // target module key → import alias
	// aliasOrder preserves first-use order for the import block.
	aliasOrder []string
}

func newModuleNamer(names *nameTable, res *symtab.Resolution, module string) *moduleNamer {
	return &moduleNamer{
		names:   names,
		res:     res,
		module:  module,
		aliases: make(map[string]string),
	}
}

// TargetName spells a resolved path reference as seen from this module.
func (m *moduleNamer) TargetName(fromModule string, path *ir.PathType) (string, bool) {
	// A single-segment reference resolves through a local declaration or a
	// local re-export; either way the local emitted name is the spelling.
	if len(path.Segments) == 1 {
		if n, ok := m.names.local[fromModule][path.Segments[0]]; ok {
			return n, true
		}
	}
	target, ok := m.res.Target(fromModule, path)
	if !ok {
		return "", false
	}
	targetMod := target.Name.ModuleKey()
	local, ok := m.names.local[targetMod][target.Name.Name]
	if !ok {
		return "", false
	}
	if targetMod == fromModule {
		return local, true
	}
	return m.importAlias(targetMod) + "." + local, true
}

// importAlias returns (claiming on first use) the alias this module imports
// a sibling module under.
func (m *moduleNamer) importAlias(targetMod string) string {
	if a, ok := m.aliases[targetMod]; ok {
		return a
	}
	parts := strings.Split(targetMod, "::")
	base := parts[len(parts)-1]
	alias := m.names.reserveAlias(m.module, base)
	m.aliases[targetMod] = alias
	m.aliasOrder = append(m.aliasOrder, targetMod)
	return alias
}

// relImportPath computes the import path from this module's file to a
// sibling module's file, in forward-slash form.
func relImportPath(fromModule, toModule, ext string) string {
	fromParts := strings.Split(fromModule, "::")
	toParts := strings.Split(toModule, "::")
	fromDir := fromParts[:len(fromParts)-1]

	common := 0
	for common < len(fromDir) && common < len(toParts)-1 && fromDir[common] == toParts[common] {
		common++
	}
	var b strings.Builder
	for i := common; i < len(fromDir); i++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(toParts[common:], "/"))
	b.WriteString(ext)
	return b.String()
}

// escapeIdent spells an identifier that would shadow a target reserved
// word. Member and parameter names are escaped rather than renamed: their
// spelling is not part of the module namespace.
func escapeIdent(name string, prof *typemap.Profile) string {
	if prof.IsReserved(name) {
		return fmt.Sprintf("@%q", name)
	}
	return name
}
