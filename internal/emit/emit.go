package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/ir"
	"github.com/zigbind/zigbind/internal/symtab"
	"github.com/zigbind/zigbind/internal/typemap"
)

// Breadcrumb marks an item the expander skipped; the generated module keeps
// a comment for it so readers see where manual porting is needed.
type Breadcrumb struct {
	Name string
}

// Options configures one emission pass.
type Options struct {
	Profile    *typemap.Profile
	Resolution *symtab.Resolution
	// Excluded lists qualified-name keys that must not be emitted
	// (value-cycle members).
	Excluded map[string]bool
	// Skipped carries per-module breadcrumbs from expansion.
	Skipped map[string][]Breadcrumb
	Sink    *diag.Collector
}

// Module is one emitted target source unit.
type Module struct {
	Key    string // "um::winuser"
	Path   string // "um/winuser.zig"
	Source string
}

// Modules emits every module of the resolved corpus, sorted by module key.
func Modules(opts Options) []Module {
	names := buildNameTable(opts.Resolution, opts.Profile)
	table := opts.Resolution.Table()

	out := make([]Module, 0, len(table.Modules()))
	for _, key := range table.Modules() {
		me := &moduleEmitter{
			opts:  opts,
			names: names,
			namer: newModuleNamer(names, opts.Resolution, key),
			key:   key,
		}
		out = append(out, Module{
			Key:    key,
			Path:   strings.ReplaceAll(key, "::", "/") + opts.Profile.FileExtension,
			Source: me.emit(),
		})
	}
	return out
}

type moduleEmitter struct {
	opts  Options
	names *nameTable
	namer *moduleNamer
	key   string

	body strings.Builder
}

func (me *moduleEmitter) emit() string {
	table := me.opts.Resolution.Table()

	var reexports, decls []*ir.Declaration
	for _, d := range table.Module(me.key) {
		if me.opts.Excluded[d.Name.String()] {
			continue
		}
		if d.Kind == ir.DeclReexport {
			reexports = append(reexports, d)
		} else {
			decls = append(decls, d)
		}
	}
	ordered := orderDecls(decls, me.opts.Resolution)

	for _, d := range reexports {
		me.reexport(d)
	}
	me.forwardStubs(ordered)
	for _, d := range ordered {
		me.decl(d)
	}
	for _, bc := range me.opts.Skipped[me.key] {
		fmt.Fprintf(&me.body, "\n// unhandled: %s\n", bc.Name)
	}

	// Imports are discovered while rendering the body, so the header is
	// assembled last.
	var header strings.Builder
	for _, targetMod := range me.namer.aliasOrder {
		fmt.Fprintf(&header, "const %s = @import(%q);\n",
			me.namer.aliases[targetMod], relImportPath(me.key, targetMod, me.opts.Profile.FileExtension))
	}
	if header.Len() > 0 {
		return header.String() + me.body.String()
	}
	return me.body.String()
}

// reexport emits `pub const X = sibling.X;` plus the import it needs.
func (me *moduleEmitter) reexport(d *ir.Declaration) {
	target, ok := me.opts.Resolution.Target(me.key, &ir.PathType{Segments: []string{d.Name.Name}})
	if !ok {
		me.breadcrumbOnly(d)
		return
	}
	targetMod := target.Name.ModuleKey()
	local := me.names.local[targetMod][target.Name.Name]
	spelling := local
	if targetMod != me.key {
		spelling = me.namer.importAlias(targetMod) + "." + local
	}
	fmt.Fprintf(&me.body, "%sconst %s = %s;\n",
		visibility(d.Public), me.names.local[me.key][d.Name.Name], spelling)
}

// forwardStubs emits forward-declaration stubs for targets that require
// them: any in-module name referenced (through a pointer) before the
// declaration itself is emitted gets one stub line.
func (me *moduleEmitter) forwardStubs(ordered []*ir.Declaration) {
	prof := me.opts.Profile
	if !prof.ForwardDeclarations || prof.Syntax.ForwardDecl == "" {
		return
	}
	position := make(map[string]int, len(ordered))
	for i, d := range ordered {
		position[d.Name.String()] = i
	}
	stubbed := make(map[string]bool)
	for i, d := range ordered {
		for _, ref := range me.pointerRefs(d) {
			if j, ok := position[ref]; ok && j >= i && !stubbed[ref] {
				target, _ := me.opts.Resolution.Table().Lookup(ref)
				fmt.Fprintf(&me.body, prof.Syntax.ForwardDecl+"\n",
					me.names.local[me.key][target.Name.Name])
				stubbed[ref] = true
			}
		}
	}
	if len(stubbed) > 0 {
		me.body.WriteString("\n")
	}
}

// pointerRefs collects in-module declarations d references behind pointers.
func (me *moduleEmitter) pointerRefs(d *ir.Declaration) []string {
	var refs []string
	var walk func(t *ir.Type, behindPtr bool)
	walk = func(t *ir.Type, behindPtr bool) {
		if t == nil {
			return
		}
		switch t.Kind {
		case ir.TypePointer:
			walk(t.Pointer.Elem, true)
		case ir.TypeArray:
			walk(t.Array.Elem, behindPtr)
		case ir.TypeFuncPtr:
			for _, p := range t.FuncPtr.Params {
				walk(p.Type, true)
			}
			walk(t.FuncPtr.Ret, true)
		case ir.TypePath:
			if !behindPtr {
				return
			}
			if target, ok := me.opts.Resolution.Target(me.key, t.Path); ok {
				if target.Name.ModuleKey() == me.key {
					refs = append(refs, target.Name.String())
				}
			}
		}
	}
	switch d.Kind {
	case ir.DeclStruct:
		for _, f := range d.Struct.Fields {
			walk(f.Type, false)
		}
	case ir.DeclUnion:
		for _, f := range d.Union.Fields {
			walk(f.Type, false)
		}
	case ir.DeclAlias:
		walk(d.Alias.Target, false)
	case ir.DeclFunction:
		for _, p := range d.Function.Params {
			walk(p.Type, false)
		}
		walk(d.Function.Ret, false)
	}
	return refs
}

func (me *moduleEmitter) decl(d *ir.Declaration) {
	var err error
	switch d.Kind {
	case ir.DeclAlias:
		err = me.alias(d)
	case ir.DeclConstant:
		err = me.constant(d)
	case ir.DeclStruct:
		err = me.structDecl(d)
	case ir.DeclUnion:
		err = me.unionDecl(d)
	case ir.DeclEnum:
		err = me.enumDecl(d)
	case ir.DeclFunction:
		err = me.function(d)
	}
	if err != nil {
		// A mapping failure skips the enclosing declaration; siblings
		// continue. Unresolved references were already diagnosed.
		if !typemap.IsUnresolved(err) {
			me.opts.Sink.Addf(diag.SeverityError, diag.CodeMappingError,
				d.Name.String(), d.Loc, "%v", err)
		}
		me.breadcrumbOnly(d)
	}
}

func (me *moduleEmitter) breadcrumbOnly(d *ir.Declaration) {
	fmt.Fprintf(&me.body, "// unhandled: %s\n", d.Name.Name)
}

func (me *moduleEmitter) mapType(t *ir.Type) (string, error) {
	return typemap.Map(t, me.key, me.namer, me.opts.Profile)
}

func (me *moduleEmitter) localName(d *ir.Declaration) string {
	return me.names.local[me.key][d.Name.Name]
}

func (me *moduleEmitter) alias(d *ir.Declaration) error {
	target, err := me.mapType(d.Alias.Target)
	if err != nil {
		return err
	}
	fmt.Fprintf(&me.body, "%sconst %s = %s;\n", visibility(d.Public), me.localName(d), target)
	return nil
}

func (me *moduleEmitter) constant(d *ir.Declaration) error {
	value, err := me.literal(d.Constant.Value, d)
	if err != nil {
		return err
	}
	if d.Constant.Type != nil {
		// GUID-shaped struct literals read better with the type on the
		// right-hand side; scalars keep the annotation.
		if d.Constant.Value.Kind == ir.LitStruct {
			fmt.Fprintf(&me.body, "%sconst %s = %s;\n", visibility(d.Public), me.localName(d), value)
			return nil
		}
		ty, err := me.mapType(d.Constant.Type)
		if err != nil {
			return err
		}
		fmt.Fprintf(&me.body, "%sconst %s: %s = %s;\n", visibility(d.Public), me.localName(d), ty, value)
		return nil
	}
	fmt.Fprintf(&me.body, "%sconst %s = %s;\n", visibility(d.Public), me.localName(d), value)
	return nil
}

func (me *moduleEmitter) literal(lit ir.Literal, owner *ir.Declaration) (string, error) {
	switch lit.Kind {
	case ir.LitScalar:
		return formatInt(*lit.Scalar), nil
	case ir.LitString:
		return strconv.Quote(lit.Str), nil
	case ir.LitBytes:
		parts := make([]string, len(lit.Bytes))
		for i, b := range lit.Bytes {
			parts[i] = fmt.Sprintf("0x%02X", b)
		}
		return fmt.Sprintf("[%d]u8{ %s }", len(lit.Bytes), strings.Join(parts, ", ")), nil
	case ir.LitStruct:
		var tyName string
		if owner != nil && owner.Constant != nil && owner.Constant.Type != nil {
			mapped, err := me.mapType(owner.Constant.Type)
			if err != nil {
				return "", err
			}
			tyName = mapped
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s{\n", tyName)
		for _, f := range lit.Struct.Fields {
			val, err := me.fieldLiteral(f.Value)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "    .%s = %s,\n", escapeIdent(f.Name, me.opts.Profile), val)
		}
		b.WriteString("}")
		return b.String(), nil
	default:
		return "", fmt.Errorf("unsupported literal kind %q", lit.Kind)
	}
}

// fieldLiteral renders nested literal values; scalars inside composite
// constants print in hex, matching how GUIDs are read.
func (me *moduleEmitter) fieldLiteral(lit ir.Literal) (string, error) {
	switch lit.Kind {
	case ir.LitScalar:
		if lit.Scalar.Negative {
			return fmt.Sprintf("-0x%X", lit.Scalar.Magnitude), nil
		}
		return fmt.Sprintf("0x%X", lit.Scalar.Magnitude), nil
	default:
		return me.literal(lit, nil)
	}
}

func (me *moduleEmitter) structDecl(d *ir.Declaration) error {
	prof := me.opts.Profile
	name := me.localName(d)

	if d.Struct.Opaque {
		fmt.Fprintf(&me.body, "%sconst %s = %s;\n", visibility(d.Public), name, prof.Syntax.Opaque)
		return nil
	}

	keyword := prof.Syntax.StructC
	switch d.Struct.Layout {
	case ir.LayoutPacked:
		keyword = prof.Syntax.StructPacked
	case ir.LayoutDefault:
		keyword = prof.Syntax.StructPlain
	}

	fields := make([]string, 0, len(d.Struct.Fields))
	for _, f := range d.Struct.Fields {
		ty, err := me.mapType(f.Type)
		if err != nil {
			return err
		}
		fields = append(fields, fmt.Sprintf("    %s: %s,", escapeIdent(f.Name, prof), ty))
	}

	fmt.Fprintf(&me.body, "%sconst %s = %s {\n", visibility(d.Public), name, keyword)
	for _, f := range fields {
		me.body.WriteString(f + "\n")
	}
	for i, c := range d.Struct.AssocConsts {
		if i == 0 {
			me.body.WriteString("\n")
		}
		fmt.Fprintf(&me.body, "    pub const %s = %s{ .bits = %s };\n",
			c.Name, name, formatHex(c.Value))
	}
	me.body.WriteString("};\n")
	return nil
}

func (me *moduleEmitter) unionDecl(d *ir.Declaration) error {
	prof := me.opts.Profile
	fields := make([]string, 0, len(d.Union.Fields))
	for _, f := range d.Union.Fields {
		ty, err := me.mapType(f.Type)
		if err != nil {
			return err
		}
		fields = append(fields, fmt.Sprintf("    %s: %s,", escapeIdent(f.Name, prof), ty))
	}
	fmt.Fprintf(&me.body, "%sconst %s = %s {\n", visibility(d.Public), me.localName(d), prof.Syntax.UnionC)
	for _, f := range fields {
		me.body.WriteString(f + "\n")
	}
	me.body.WriteString("};\n")
	return nil
}

// enumDecl emits the two enum encodings differently: a C-style enum stays a
// plain integer alias plus named constants (calling code does arithmetic on
// it), while a tagged enum becomes a closed target enum of the same width.
func (me *moduleEmitter) enumDecl(d *ir.Declaration) error {
	repr, err := me.mapType(ir.PrimitiveType(d.Enum.Discriminant))
	if err != nil {
		return err
	}
	name := me.localName(d)
	vis := visibility(d.Public)

	if d.Enum.EnumKind == ir.EnumCLike {
		fmt.Fprintf(&me.body, "%sconst %s = %s;\n", vis, name, repr)
		for _, v := range d.Enum.Variants {
			variant := v.Name
			for me.opts.Profile.IsReserved(variant) || me.names.taken[me.key][variant] {
				variant += "_"
			}
			me.names.taken[me.key][variant] = true
			fmt.Fprintf(&me.body, "%sconst %s: %s = %s;\n", vis, variant, name, formatInt(v.Value))
		}
		return nil
	}

	fmt.Fprintf(&me.body, "%sconst %s = %s {\n", vis, name,
		fmt.Sprintf(me.opts.Profile.Syntax.TaggedEnum, repr))
	for _, v := range d.Enum.Variants {
		fmt.Fprintf(&me.body, "    %s = %s,\n", escapeIdent(v.Name, me.opts.Profile), formatInt(v.Value))
	}
	me.body.WriteString("};\n")
	return nil
}

func (me *moduleEmitter) function(d *ir.Declaration) error {
	prof := me.opts.Profile
	fn := d.Function

	if me.names.clash[d.Name.String()] {
		return fmt.Errorf("linkage name %q is already emitted in this module and cannot be renamed", fn.LinkName)
	}

	conv, err := typemap.MapCallConv(fn.CallConv, prof)
	if err != nil {
		return err
	}
	ret, err := typemap.MapReturn(fn.Ret, me.key, me.namer, prof)
	if err != nil {
		return err
	}
	params := make([]string, 0, len(fn.Params)+1)
	for _, p := range fn.Params {
		ty, err := me.mapType(p.Type)
		if err != nil {
			return err
		}
		params = append(params, fmt.Sprintf("    %s: %s,", escapeIdent(p.Name, prof), ty))
	}
	if fn.Variadic {
		params = append(params, "    ...,")
	}

	ident := escapeIdent(fn.LinkName, prof)
	vis := visibility(d.Public)
	if len(params) == 0 {
		fmt.Fprintf(&me.body, "%sextern %q fn %s() callconv(%s) %s;\n",
			vis, fn.LinkLib, ident, conv, ret)
	} else {
		fmt.Fprintf(&me.body, "%sextern %q fn %s(\n", vis, fn.LinkLib, ident)
		for _, p := range params {
			me.body.WriteString(p + "\n")
		}
		fmt.Fprintf(&me.body, ") callconv(%s) %s;\n", conv, ret)
	}

	// A declared name differing from the linkage name keeps the native
	// symbol on the fn and re-exposes the friendly name as an alias.
	if d.Name.Name != fn.LinkName {
		fmt.Fprintf(&me.body, "%sconst %s = %s;\n", vis, me.localName(d), ident)
	}
	return nil
}

func visibility(public bool) string {
	if public {
		return "pub "
	}
	return ""
}

func formatInt(v ir.IntValue) string {
	if v.Negative {
		return fmt.Sprintf("-%d", v.Magnitude)
	}
	return fmt.Sprintf("%d", v.Magnitude)
}

func formatHex(v ir.IntValue) string {
	if v.Negative {
		return fmt.Sprintf("-0x%X", v.Magnitude)
	}
	return fmt.Sprintf("0x%X", v.Magnitude)
}
