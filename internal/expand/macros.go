package expand

import (
	"fmt"

	"github.com/zigbind/zigbind/internal/ast"
	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/ir"
)

// macro dispatches one macro invocation against the closed set of
// recognized shorthand forms. This is deliberately not a general macro
// interpreter: an unrecognized name degrades to a diagnosed skip.
func (e *Expander) macro(m *ast.MacroItem, loc ast.SourceLoc) {
	switch m.Name {
	case "STRUCT":
		e.structMacro(m, loc)
	case "UNION":
		e.unionMacro(m, loc)
	case "ENUM":
		e.enumMacro(m, loc)
	case "DEFINE_GUID":
		e.defineGUID(m, loc)
	case "DECLARE_HANDLE":
		e.declareHandle(m, loc)
	case "bitflags":
		e.bitflags(m, loc)
	default:
		e.unsupported(macroItemName(m), loc, "unrecognized macro %s!", m.Name)
	}
}

// macroItemName derives a qualified-name hint for diagnostics when the
// macro body carries one.
func macroItemName(m *ast.MacroItem) string {
	switch {
	case m.Struct != nil:
		return m.Struct.Name
	case m.Enum != nil:
		return m.Enum.Name
	case m.Union != nil:
		return m.Union.Name
	case m.Flags != nil:
		return m.Flags.Name
	case len(m.Tokens) > 0 && m.Tokens[0].Kind == ast.TokenIdent:
		return m.Tokens[0].Text
	default:
		return diag.Unknown
	}
}

// structMacro expands STRUCT! { struct Name { ... } }. The shorthand always
// means C-compatible layout, whatever attributes the body omitted.
func (e *Expander) structMacro(m *ast.MacroItem, loc ast.SourceLoc) {
	if m.Struct == nil {
		e.unsupported(macroItemName(m), loc, "STRUCT! without a struct body")
		return
	}
	body := *m.Struct
	body.Repr = ast.Repr{C: true}
	e.structItem(&body, loc)
}

// unionMacro expands UNION! { union Name { ... } } to a C-layout union.
func (e *Expander) unionMacro(m *ast.MacroItem, loc ast.SourceLoc) {
	if m.Union == nil {
		e.unsupported(macroItemName(m), loc, "UNION! without a union body")
		return
	}
	body := *m.Union
	body.Repr = ast.Repr{C: true}
	e.unionItem(&body, loc)
}

// enumMacro expands ENUM! { enum Name: u32 { ... } }. The shorthand
// produces a flat C-style constant set, not a tagged union: calling code
// combines these values arithmetically.
func (e *Expander) enumMacro(m *ast.MacroItem, loc ast.SourceLoc) {
	if m.Enum == nil {
		e.unsupported(macroItemName(m), loc, "ENUM! without an enum body")
		return
	}
	e.enumItem(m.Enum, ir.EnumCLike, loc)
}

// defineGUID expands DEFINE_GUID! { Name, l, w1, w2, b1..b8 } into a
// constant whose value is the native 16-byte GUID layout: one 32-bit field,
// two 16-bit fields, and an 8-element byte array. This expansion is the
// highest-risk spot for silent ABI drift, so it is strict: any token-shape
// deviation is a skip, never a guess.
func (e *Expander) defineGUID(m *ast.MacroItem, loc ast.SourceLoc) {
	name, ints, err := guidTokens(m.Tokens)
	if err != nil {
		e.unsupported(macroItemName(m), loc, "DEFINE_GUID!: %v", err)
		return
	}

	if ints[0] > 0xFFFFFFFF {
		e.unsupported(name, loc, "DEFINE_GUID!: Data1 %#x exceeds 32 bits", ints[0])
		return
	}
	for i, v := range ints[1:3] {
		if v > 0xFFFF {
			e.unsupported(name, loc, "DEFINE_GUID!: Data%d %#x exceeds 16 bits", i+2, v)
			return
		}
	}
	data4 := make([]byte, 8)
	for i, v := range ints[3:] {
		if v > 0xFF {
			e.unsupported(name, loc, "DEFINE_GUID!: Data4[%d] %#x exceeds 8 bits", i, v)
			return
		}
		data4[i] = byte(v)
	}

	e.add(&ir.Declaration{
		Kind:   ir.DeclConstant,
		Name:   e.qualify(name),
		Public: true,
		Loc:    loc,
		Constant: &ir.ConstantDecl{
			Type: ir.PathTypeOf("GUID"),
			Value: ir.Literal{
				Kind: ir.LitStruct,
				Struct: &ir.StructLiteral{
					Fields: []ir.FieldLiteral{
						{Name: "Data1", Value: scalarLit(ints[0])},
						{Name: "Data2", Value: scalarLit(ints[1])},
						{Name: "Data3", Value: scalarLit(ints[2])},
						{Name: "Data4", Value: ir.Literal{Kind: ir.LitBytes, Bytes: data4}},
					},
				},
			},
		},
	})
}

func scalarLit(v uint64) ir.Literal {
	return ir.Literal{Kind: ir.LitScalar, Scalar: &ir.IntValue{Magnitude: v}}
}

// guidTokens validates the DEFINE_GUID token shape: an ident followed by
// eleven integers, comma separated.
func guidTokens(tokens []ast.Token) (string, []uint64, error) {
	fields := make([]ast.Token, 0, 12)
	for _, t := range tokens {
		if t.Kind == ast.TokenPunct {
			continue
		}
		fields = append(fields, t)
	}
	if len(fields) != 12 {
		return "", nil, fmt.Errorf("want name plus 11 integers, have %d tokens", len(fields))
	}
	if fields[0].Kind != ast.TokenIdent {
		return "", nil, fmt.Errorf("first token is %q, want an identifier", fields[0].Text)
	}
	name := fields[0].Text
	ints := make([]uint64, 0, 11)
	for i, t := range fields[1:] {
		if t.Kind != ast.TokenInt {
			return name, nil, fmt.Errorf("token %d is %q, want an integer", i+1, t.Text)
		}
		v, err := parseIntLit(&ast.Lit{Kind: ast.LitInt, Text: t.Text})
		if err != nil || v.Negative {
			return name, nil, fmt.Errorf("token %d: bad integer %q", i+1, t.Text)
		}
		ints = append(ints, v.Magnitude)
	}
	return name, ints, nil
}

// declareHandle expands DECLARE_HANDLE! { HANDLE, OPAQUE } into an opaque
// struct plus a mutable-pointer alias, so handle values stay pointer-sized
// and type-distinct.
func (e *Expander) declareHandle(m *ast.MacroItem, loc ast.SourceLoc) {
	var idents []string
	for _, t := range m.Tokens {
		switch t.Kind {
		case ast.TokenIdent:
			idents = append(idents, t.Text)
		case ast.TokenPunct:
		default:
			e.unsupported(macroItemName(m), loc, "DECLARE_HANDLE!: unexpected token %q", t.Text)
			return
		}
	}
	if len(idents) != 2 {
		e.unsupported(macroItemName(m), loc, "DECLARE_HANDLE!: want handle and opaque identifiers, have %d", len(idents))
		return
	}
	handle, opaque := idents[0], idents[1]

	e.add(&ir.Declaration{
		Kind:   ir.DeclStruct,
		Name:   e.qualify(opaque),
		Public: true,
		Loc:    loc,
		Struct: &ir.StructDecl{Layout: ir.LayoutC, Opaque: true},
	})
	e.add(&ir.Declaration{
		Kind:   ir.DeclAlias,
		Name:   e.qualify(handle),
		Public: true,
		Loc:    loc,
		Alias: &ir.AliasDecl{Target: &ir.Type{
			Kind:    ir.TypePointer,
			Pointer: &ir.PointerType{Const: false, Elem: ir.PathTypeOf(opaque)},
		}},
	})
}

// bitflags expands bitflags! { struct Flags: u32 { const A = ...; } } into
// a single-field transparent wrapper with associated constants. Not a
// tagged enum: flags combine with bitwise OR, so the field stays a plain
// integer.
func (e *Expander) bitflags(m *ast.MacroItem, loc ast.SourceLoc) {
	if m.Flags == nil {
		e.unsupported(macroItemName(m), loc, "bitflags! without a flags body")
		return
	}
	body := m.Flags
	repr, ok := ir.ParsePrimitive(body.Repr)
	if !ok || (repr.Class != ir.Signed && repr.Class != ir.Unsigned) {
		e.unsupported(e.qualify(body.Name).String(), loc,
			"bitflags! backing type %q is not a fixed-width integer", body.Repr)
		return
	}

	consts := make([]ir.EnumVariant, 0, len(body.Consts))
	for _, c := range body.Consts {
		v, err := parseIntLit(c.Value)
		if err != nil {
			e.unsupported(e.qualify(body.Name).String(), loc, "flag %s: %v", c.Name, err)
			return
		}
		consts = append(consts, ir.EnumVariant{Name: c.Name, Value: v})
	}

	e.add(&ir.Declaration{
		Kind:   ir.DeclStruct,
		Name:   e.qualify(body.Name),
		Public: body.Public,
		Loc:    loc,
		Struct: &ir.StructDecl{
			Layout:      ir.LayoutTransparent,
			Fields:      []ir.Field{{Name: "bits", Type: ir.PrimitiveType(repr)}},
			AssocConsts: consts,
		},
	})
}
