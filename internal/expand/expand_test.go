package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigbind/zigbind/internal/ast"
	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/ir"
)

func expandItems(t *testing.T, module []string, linkLib string, items ...ast.Item) (FileResult, *diag.Collector) {
	t.Helper()
	sink := diag.NewCollector()
	ex := New(module, linkLib, sink)
	res := ex.File(&ast.File{Path: "test.rs", Items: items})
	return res, sink
}

func pathType(segments ...string) *ast.Type {
	return &ast.Type{Kind: ast.TypePath, Path: &ast.PathType{Segments: segments}}
}

// TestFile_StructFieldOrder tests that struct fields survive in declaration
// order with repr(C) mapped to C layout.
func TestFile_StructFieldOrder(t *testing.T) {
	res, sink := expandItems(t, []string{"shared", "windef"}, "",
		ast.Item{Kind: ast.KindStruct, Struct: &ast.StructItem{
			Name:   "RECT",
			Public: true,
			Repr:   ast.Repr{C: true},
			Fields: []ast.FieldItem{
				{Name: "left", Type: pathType("i32")},
				{Name: "top", Type: pathType("i32")},
				{Name: "right", Type: pathType("i32")},
				{Name: "bottom", Type: pathType("i32")},
			},
		}},
	)
	require.Equal(t, 0, sink.Count())
	require.Len(t, res.Decls, 1)

	d := res.Decls[0]
	assert.Equal(t, ir.DeclStruct, d.Kind)
	assert.Equal(t, "shared::windef::RECT", d.Name.String())
	assert.Equal(t, ir.LayoutC, d.Struct.Layout)
	names := make([]string, 0, 4)
	for _, f := range d.Struct.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"left", "top", "right", "bottom"}, names)
}

// TestFile_ReprAlignUnsupported tests that repr(align(n)) degrades to a
// diagnosed skip instead of a guessed layout.
func TestFile_ReprAlignUnsupported(t *testing.T) {
	res, sink := expandItems(t, []string{"um", "winnt"}, "",
		ast.Item{Kind: ast.KindStruct, Struct: &ast.StructItem{
			Name: "SLIST_HEADER",
			Repr: ast.Repr{C: true, Align: 16},
		}},
	)
	assert.Empty(t, res.Decls)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "SLIST_HEADER", res.Skipped[0].Name)
	assert.Equal(t, 1, sink.CountSeverity(diag.SeverityWarning))
	assert.False(t, sink.HasErrors(), "unsupported constructs are warnings, not errors")
}

// TestFile_EnumImplicitIncrement tests implicit discriminant assignment.
func TestFile_EnumImplicitIncrement(t *testing.T) {
	res, sink := expandItems(t, []string{"um", "dcommon"}, "",
		ast.Item{Kind: ast.KindEnum, Enum: &ast.EnumItem{
			Name:         "D2D1_GAMMA",
			Public:       true,
			Discriminant: "u32",
			Variants: []ast.EnumVariant{
				{Name: "GAMMA_2_2"},
				{Name: "GAMMA_1_0"},
				{Name: "GAMMA_FORCE_DWORD", Value: &ast.Lit{Kind: ast.LitInt, Text: "0xffffffff"}},
			},
		}},
	)
	require.Equal(t, 0, sink.Count())
	require.Len(t, res.Decls, 1)

	e := res.Decls[0].Enum
	assert.Equal(t, ir.EnumTagged, e.EnumKind)
	assert.Equal(t, ir.Primitive{Class: ir.Unsigned, Bits: 32}, e.Discriminant)
	assert.Equal(t, uint64(0), e.Variants[0].Value.Magnitude)
	assert.Equal(t, uint64(1), e.Variants[1].Value.Magnitude)
	assert.Equal(t, uint64(0xffffffff), e.Variants[2].Value.Magnitude)
}

// TestFile_EnumNegativeIncrement tests implicit increments through negative
// values (-2 follows -3).
func TestFile_EnumNegativeIncrement(t *testing.T) {
	res, _ := expandItems(t, nil, "",
		ast.Item{Kind: ast.KindEnum, Enum: &ast.EnumItem{
			Name:         "E",
			Discriminant: "i32",
			Variants: []ast.EnumVariant{
				{Name: "A", Value: &ast.Lit{Kind: ast.LitInt, Text: "-3"}},
				{Name: "B"},
				{Name: "C"},
			},
		}},
	)
	require.Len(t, res.Decls, 1)
	v := res.Decls[0].Enum.Variants
	assert.Equal(t, ir.IntValue{Magnitude: 3, Negative: true}, v[0].Value)
	assert.Equal(t, ir.IntValue{Magnitude: 2, Negative: true}, v[1].Value)
	assert.Equal(t, ir.IntValue{Magnitude: 1, Negative: true}, v[2].Value)
}

// TestFile_UseDropsCtypes tests that imports of the C scalar shim module
// vanish while real imports become re-exports.
func TestFile_UseDropsCtypes(t *testing.T) {
	res, sink := expandItems(t, []string{"um", "winuser"}, "",
		ast.Item{Kind: ast.KindUse, Use: &ast.UseItem{
			Public: true,
			Paths: [][]string{
				{"ctypes", "c_int"},
				{"shared", "minwindef", "DWORD"},
			},
		}},
	)
	require.Equal(t, 0, sink.Count())
	require.Len(t, res.Decls, 1)

	d := res.Decls[0]
	assert.Equal(t, ir.DeclReexport, d.Kind)
	assert.Equal(t, "um::winuser::DWORD", d.Name.String())
	assert.Equal(t, []string{"shared", "minwindef", "DWORD"}, d.Reexport.Target)
}

// TestFile_CtypeAliasLowering tests that C scalar alias names become IR
// primitives in type positions.
func TestFile_CtypeAliasLowering(t *testing.T) {
	res, _ := expandItems(t, []string{"shared", "minwindef"}, "",
		ast.Item{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
			Name: "ULONG", Public: true, Type: pathType("c_ulong"),
		}},
		ast.Item{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
			Name: "WCHAR", Public: true, Type: pathType("wchar_t"),
		}},
		ast.Item{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
			Name: "INT64", Public: true, Type: pathType("ctypes", "c_longlong"),
		}},
	)
	require.Len(t, res.Decls, 3)

	ulong := res.Decls[0].Alias.Target
	require.Equal(t, ir.TypePrimitive, ulong.Kind)
	assert.Equal(t, ir.Primitive{Class: ir.Unsigned, Bits: 32}, *ulong.Primitive)

	wchar := res.Decls[1].Alias.Target
	assert.Equal(t, ir.Primitive{Class: ir.Unsigned, Bits: 16}, *wchar.Primitive)

	int64ty := res.Decls[2].Alias.Target
	assert.Equal(t, ir.Primitive{Class: ir.Signed, Bits: 64}, *int64ty.Primitive)
}

// TestFile_ForeignFn tests extern-block expansion: ABI, link library, and
// the default linkage name.
func TestFile_ForeignFn(t *testing.T) {
	res, sink := expandItems(t, []string{"um", "processthreadsapi"}, "kernel32",
		ast.Item{Kind: ast.KindForeignMod, ForeignMod: &ast.ForeignModItem{
			ABI: "system",
			Functions: []ast.ForeignFn{
				{
					Name:   "GetCurrentProcessId",
					Public: true,
					Ret:    pathType("u32"),
				},
				{
					Name:     "ExitProcess",
					Public:   true,
					LinkName: "ExitProcess",
					Params: []ast.Param{
						{Name: "uExitCode", Type: pathType("u32")},
					},
				},
			},
		}},
	)
	require.Equal(t, 0, sink.Count())
	require.Len(t, res.Decls, 2)

	fn := res.Decls[0].Function
	assert.Equal(t, "system", fn.CallConv)
	assert.Equal(t, "kernel32", fn.LinkLib)
	assert.Equal(t, "GetCurrentProcessId", fn.LinkName, "linkage name defaults to the declared name")
	assert.Empty(t, fn.Params)
	require.NotNil(t, fn.Ret)
}

// TestFile_UnionDefaultsToCLayout tests that unions never keep default
// layout across the native boundary.
func TestFile_UnionDefaultsToCLayout(t *testing.T) {
	res, _ := expandItems(t, []string{"um", "winnt"}, "",
		ast.Item{Kind: ast.KindUnion, Union: &ast.UnionItem{
			Name: "LARGE_INTEGER_u",
			Fields: []ast.FieldItem{
				{Name: "QuadPart", Type: pathType("i64")},
			},
		}},
	)
	require.Len(t, res.Decls, 1)
	assert.Equal(t, ir.LayoutC, res.Decls[0].Union.Layout)
}

// TestFile_NestedMod tests that inline modules extend the module path.
func TestFile_NestedMod(t *testing.T) {
	res, _ := expandItems(t, []string{"um"}, "",
		ast.Item{Kind: ast.KindMod, Mod: &ast.ModItem{
			Name: "inner",
			Items: []ast.Item{
				{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
					Name: "X", Type: pathType("u8"),
				}},
			},
		}},
	)
	require.Len(t, res.Decls, 1)
	assert.Equal(t, "um::inner::X", res.Decls[0].Name.String())
}

// TestFile_ResilienceAcrossItems tests that one bad item never loses its
// siblings: nine good declarations survive a tenth unsupported one.
func TestFile_ResilienceAcrossItems(t *testing.T) {
	items := make([]ast.Item, 0, 10)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"} {
		items = append(items, ast.Item{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
			Name: name, Public: true, Type: pathType("u32"),
		}})
	}
	bad := ast.Item{Kind: ast.KindStruct, Struct: &ast.StructItem{
		Name: "BAD", Repr: ast.Repr{Align: 8},
	}}
	items = append(items[:4], append([]ast.Item{bad}, items[4:]...)...)

	res, sink := expandItems(t, []string{"um", "mixed"}, "", items...)
	assert.Len(t, res.Decls, 9)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "BAD", res.Skipped[0].Name)
	assert.Equal(t, 1, sink.CountSeverity(diag.SeverityWarning))
}

// TestParseIntLit tests radix prefixes, underscores, and width suffixes.
func TestParseIntLit(t *testing.T) {
	cases := []struct {
		text string
		want ir.IntValue
	}{
		{"0", ir.IntValue{}},
		{"42", ir.IntValue{Magnitude: 42}},
		{"0xFFFF_FFFF", ir.IntValue{Magnitude: 0xFFFFFFFF}},
		{"0o777", ir.IntValue{Magnitude: 0o777}},
		{"0b1010", ir.IntValue{Magnitude: 10}},
		{"-1", ir.IntValue{Magnitude: 1, Negative: true}},
		{"4294967295u32", ir.IntValue{Magnitude: 4294967295}},
		{"1_000_000", ir.IntValue{Magnitude: 1000000}},
		{"-0", ir.IntValue{}},
	}
	for _, tc := range cases {
		got, err := parseIntLit(&ast.Lit{Kind: ast.LitInt, Text: tc.text})
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}

	_, err := parseIntLit(&ast.Lit{Kind: ast.LitInt, Text: "banana"})
	assert.Error(t, err)
}
