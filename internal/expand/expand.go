package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zigbind/zigbind/internal/ast"
	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/ir"
)

// Skipped records an item the expander could not translate; the emitter
// leaves a breadcrumb comment for it in the generated module.
type Skipped struct {
	Name string
	Loc  ast.SourceLoc
}

// FileResult is the expansion of one source file.
type FileResult struct {
	Decls   []*ir.Declaration
	Skipped []Skipped
}

// Expander turns one file's items into IR declarations.
type Expander struct {
	module  []string
	linkLib string
	sink    *diag.Collector

	result FileResult
}

// New creates an expander for the module at the given path. linkLib is the
// native library functions in this module link against.
func New(module []string, linkLib string, sink *diag.Collector) *Expander {
	if linkLib == "" {
		linkLib = "user32"
	}
	return &Expander{module: module, linkLib: linkLib, sink: sink}
}

// File expands every item of f in declaration order.
func (e *Expander) File(f *ast.File) FileResult {
	for i := range f.Items {
		e.item(&f.Items[i])
	}
	return e.result
}

func (e *Expander) item(it *ast.Item) {
	switch it.Kind {
	case ast.KindUse:
		e.useItem(it.Use, it.Loc)
	case ast.KindTypeAlias:
		e.typeAlias(it.TypeAlias, it.Loc)
	case ast.KindConst:
		e.constItem(it.Const, it.Loc)
	case ast.KindForeignMod:
		e.foreignMod(it.ForeignMod)
	case ast.KindStruct:
		e.structItem(it.Struct, it.Loc)
	case ast.KindEnum:
		e.enumItem(it.Enum, ir.EnumTagged, it.Loc)
	case ast.KindUnion:
		e.unionItem(it.Union, it.Loc)
	case ast.KindMacro:
		e.macro(it.Macro, it.Loc)
	case ast.KindMod:
		e.modItem(it.Mod)
	default:
		e.unsupported(diag.Unknown, it.Loc, "unknown item kind %q", it.Kind)
	}
}

func (e *Expander) add(d *ir.Declaration) {
	if errs := ir.Validate(d); len(errs) > 0 {
		for _, err := range errs {
			e.sink.Addf(diag.SeverityWarning, diag.CodeUnsupportedConstruct,
				d.Name.String(), d.Loc, "invalid declaration: %v", err)
		}
		e.result.Skipped = append(e.result.Skipped, Skipped{Name: d.Name.Name, Loc: d.Loc})
		return
	}
	e.result.Decls = append(e.result.Decls, d)
}

func (e *Expander) unsupported(name string, loc ast.SourceLoc, format string, args ...any) {
	e.sink.Addf(diag.SeverityWarning, diag.CodeUnsupportedConstruct, name, loc, format, args...)
	short := name
	if i := strings.LastIndex(short, "::"); i >= 0 {
		short = short[i+2:]
	}
	e.result.Skipped = append(e.result.Skipped, Skipped{Name: short, Loc: loc})
}

func (e *Expander) qualify(name string) ir.QualifiedName {
	return ir.QualifiedName{Module: e.module, Name: name}
}

// useItem expands pre-flattened use paths into re-export declarations.
// Imports of the ctypes shim module are dropped: those names are lowered to
// primitives during type conversion, so nothing is left to re-export.
func (e *Expander) useItem(u *ast.UseItem, loc ast.SourceLoc) {
	for _, path := range u.Paths {
		if len(path) == 0 || path[0] == "ctypes" {
			continue
		}
		if len(path) < 2 {
			e.unsupported(path[0], loc, "use path with a single segment")
			continue
		}
		name := path[len(path)-1]
		e.add(&ir.Declaration{
			Kind:     ir.DeclReexport,
			Name:     e.qualify(name),
			Public:   u.Public,
			Loc:      loc,
			Reexport: &ir.ReexportDecl{Target: path},
		})
	}
}

func (e *Expander) typeAlias(t *ast.TypeAliasItem, loc ast.SourceLoc) {
	target, err := e.convertType(t.Type)
	if err != nil {
		e.unsupported(e.qualify(t.Name).String(), loc, "type alias: %v", err)
		return
	}
	e.add(&ir.Declaration{
		Kind:   ir.DeclAlias,
		Name:   e.qualify(t.Name),
		Public: t.Public,
		Loc:    loc,
		Alias:  &ir.AliasDecl{Target: target},
	})
}

func (e *Expander) constItem(c *ast.ConstItem, loc ast.SourceLoc) {
	lit, err := e.convertLit(c.Value)
	if err != nil {
		e.unsupported(e.qualify(c.Name).String(), loc, "constant: %v", err)
		return
	}
	var ty *ir.Type
	if c.Type != nil {
		ty, err = e.convertType(c.Type)
		if err != nil {
			e.unsupported(e.qualify(c.Name).String(), loc, "constant type: %v", err)
			return
		}
	}
	e.add(&ir.Declaration{
		Kind:     ir.DeclConstant,
		Name:     e.qualify(c.Name),
		Public:   c.Public,
		Loc:      loc,
		Constant: &ir.ConstantDecl{Type: ty, Value: lit},
	})
}

func (e *Expander) foreignMod(fm *ast.ForeignModItem) {
	for i := range fm.Functions {
		fn := &fm.Functions[i]
		params, err := e.convertParams(fn.Params)
		if err != nil {
			e.unsupported(e.qualify(fn.Name).String(), fn.Loc, "function parameters: %v", err)
			continue
		}
		var ret *ir.Type
		if fn.Ret != nil {
			ret, err = e.convertType(fn.Ret)
			if err != nil {
				e.unsupported(e.qualify(fn.Name).String(), fn.Loc, "return type: %v", err)
				continue
			}
		}
		linkName := fn.LinkName
		if linkName == "" {
			linkName = fn.Name
		}
		e.add(&ir.Declaration{
			Kind:   ir.DeclFunction,
			Name:   e.qualify(fn.Name),
			Public: fn.Public,
			Loc:    fn.Loc,
			Function: &ir.FunctionDecl{
				CallConv: fm.ABI,
				Params:   params,
				Ret:      ret,
				LinkName: linkName,
				LinkLib:  e.linkLib,
				Variadic: fn.Variadic,
			},
		})
	}
}

func (e *Expander) structItem(s *ast.StructItem, loc ast.SourceLoc) {
	layout, err := layoutOf(s.Repr)
	if err != nil {
		e.unsupported(e.qualify(s.Name).String(), loc, "%v", err)
		return
	}
	fields, err := e.convertFields(s.Fields)
	if err != nil {
		e.unsupported(e.qualify(s.Name).String(), loc, "struct fields: %v", err)
		return
	}
	e.add(&ir.Declaration{
		Kind:   ir.DeclStruct,
		Name:   e.qualify(s.Name),
		Public: s.Public,
		Loc:    loc,
		Struct: &ir.StructDecl{Layout: layout, Fields: fields},
	})
}

func (e *Expander) enumItem(en *ast.EnumItem, kind ir.EnumKind, loc ast.SourceLoc) {
	disc, ok := ir.ParsePrimitive(en.Discriminant)
	if !ok || (disc.Class != ir.Signed && disc.Class != ir.Unsigned) || disc.Bits == 0 {
		e.unsupported(e.qualify(en.Name).String(), loc,
			"enum backing type %q is not a fixed-width integer", en.Discriminant)
		return
	}
	variants := make([]ir.EnumVariant, 0, len(en.Variants))
	next := ir.IntValue{}
	for _, v := range en.Variants {
		val := next
		if v.Value != nil {
			parsed, err := parseIntLit(v.Value)
			if err != nil {
				e.unsupported(e.qualify(en.Name).String(), loc, "variant %s: %v", v.Name, err)
				return
			}
			val = parsed
		}
		variants = append(variants, ir.EnumVariant{Name: v.Name, Value: val})
		next = increment(val)
	}
	e.add(&ir.Declaration{
		Kind:   ir.DeclEnum,
		Name:   e.qualify(en.Name),
		Public: en.Public,
		Loc:    loc,
		Enum: &ir.EnumDecl{
			EnumKind:     kind,
			Discriminant: disc,
			Variants:     variants,
		},
	})
}

func (e *Expander) unionItem(u *ast.UnionItem, loc ast.SourceLoc) {
	layout, err := layoutOf(u.Repr)
	if err != nil {
		e.unsupported(e.qualify(u.Name).String(), loc, "%v", err)
		return
	}
	if layout == ir.LayoutDefault {
		// Unions crossing the native boundary always need C layout.
		layout = ir.LayoutC
	}
	fields, err := e.convertFields(u.Fields)
	if err != nil {
		e.unsupported(e.qualify(u.Name).String(), loc, "union fields: %v", err)
		return
	}
	e.add(&ir.Declaration{
		Kind:   ir.DeclUnion,
		Name:   e.qualify(u.Name),
		Public: u.Public,
		Loc:    loc,
		Union:  &ir.UnionDecl{Layout: layout, Fields: fields},
	})
}

func (e *Expander) modItem(m *ast.ModItem) {
	child := New(append(append([]string{}, e.module...), m.Name), e.linkLib, e.sink)
	for i := range m.Items {
		child.item(&m.Items[i])
	}
	e.result.Decls = append(e.result.Decls, child.result.Decls...)
	e.result.Skipped = append(e.result.Skipped, child.result.Skipped...)
}

// layoutOf maps the recognized repr attribute combinations to a LayoutMode.
// Anything outside the recognized set is an unsupported construct; guessing
// a "safe" equivalent would risk silent ABI drift.
func layoutOf(r ast.Repr) (ir.LayoutMode, error) {
	if r.Align != 0 {
		return "", fmt.Errorf("repr(align(%d)) has no recognized layout mapping", r.Align)
	}
	switch {
	case r.Transparent && !r.Packed:
		return ir.LayoutTransparent, nil
	case r.Packed:
		return ir.LayoutPacked, nil
	case r.C:
		return ir.LayoutC, nil
	default:
		return ir.LayoutDefault, nil
	}
}

func (e *Expander) convertFields(fields []ast.FieldItem) ([]ir.Field, error) {
	out := make([]ir.Field, 0, len(fields))
	for _, f := range fields {
		ty, err := e.convertType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out = append(out, ir.Field{Name: f.Name, Type: ty})
	}
	return out, nil
}

func (e *Expander) convertParams(params []ast.Param) ([]ir.Field, error) {
	out := make([]ir.Field, 0, len(params))
	for _, p := range params {
		ty, err := e.convertType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		out = append(out, ir.Field{Name: p.Name, Type: ty})
	}
	return out, nil
}

func (e *Expander) convertLit(l *ast.Lit) (ir.Literal, error) {
	if l == nil {
		return ir.Literal{}, fmt.Errorf("missing literal value")
	}
	switch l.Kind {
	case ast.LitInt:
		v, err := parseIntLit(l)
		if err != nil {
			return ir.Literal{}, err
		}
		return ir.Literal{Kind: ir.LitScalar, Scalar: &v}, nil
	case ast.LitStr:
		return ir.Literal{Kind: ir.LitString, Str: l.Text}, nil
	default:
		return ir.Literal{}, fmt.Errorf("unsupported literal kind %q", l.Kind)
	}
}

// parseIntLit parses a source integer literal, tolerating hex/octal/binary
// prefixes, digit-group underscores, and a trailing width suffix.
func parseIntLit(l *ast.Lit) (ir.IntValue, error) {
	text := strings.ReplaceAll(l.Text, "_", "")
	neg := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	for _, suffix := range []string{"u8", "u16", "u32", "u64", "usize", "i8", "i16", "i32", "i64", "isize"} {
		if strings.HasSuffix(text, suffix) && len(text) > len(suffix) {
			text = text[:len(text)-len(suffix)]
			break
		}
	}
	mag, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return ir.IntValue{}, fmt.Errorf("integer literal %q: %w", l.Text, err)
	}
	return ir.IntValue{Magnitude: mag, Negative: neg && mag != 0}, nil
}

// increment computes v+1 for implicit enum discriminants.
func increment(v ir.IntValue) ir.IntValue {
	if v.Negative {
		if v.Magnitude == 1 {
			return ir.IntValue{}
		}
		return ir.IntValue{Magnitude: v.Magnitude - 1, Negative: true}
	}
	return ir.IntValue{Magnitude: v.Magnitude + 1}
}
