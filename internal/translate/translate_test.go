package translate

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigbind/zigbind/internal/ast"
	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/profile"
)

func pathType(segments ...string) *ast.Type {
	return &ast.Type{Kind: ast.TypePath, Path: &ast.PathType{Segments: segments}}
}

func ptrTo(constPtr bool, elem *ast.Type) *ast.Type {
	return &ast.Type{Kind: ast.TypePtr, Ptr: &ast.PtrType{Const: constPtr, Elem: elem}}
}

// fileHandleCorpus is the classic two-module slice of the OS surface: a
// shared header declaring the handle and string types, and an API module
// re-exporting them and importing CreateFileW against them.
func fileHandleCorpus() *Corpus {
	ntdef := &ast.File{
		Path: "shared/ntdef.json",
		Items: []ast.Item{
			{Kind: ast.KindMacro, Macro: &ast.MacroItem{
				Name: "DECLARE_HANDLE",
				Tokens: []ast.Token{
					{Kind: ast.TokenIdent, Text: "HANDLE"},
					{Kind: ast.TokenPunct, Text: ","},
					{Kind: ast.TokenIdent, Text: "HANDLE__"},
				},
			}},
			{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
				Name: "LPCWSTR", Public: true,
				Type: ptrTo(true, pathType("u16")),
			}},
		},
	}
	fileapi := &ast.File{
		Path: "um/fileapi.json",
		Items: []ast.Item{
			{Kind: ast.KindUse, Use: &ast.UseItem{
				Public: true,
				Paths: [][]string{
					{"shared", "ntdef", "HANDLE"},
					{"shared", "ntdef", "LPCWSTR"},
				},
			}},
			{Kind: ast.KindMacro, Macro: &ast.MacroItem{
				Name: "STRUCT",
				Struct: &ast.StructItem{
					Name: "SECURITY_ATTRIBUTES", Public: true,
					Fields: []ast.FieldItem{
						{Name: "nLength", Type: pathType("u32")},
						{Name: "lpSecurityDescriptor", Type: ptrTo(false, pathType("c_void"))},
						{Name: "bInheritHandle", Type: pathType("i32")},
					},
				},
			}},
			{Kind: ast.KindForeignMod, ForeignMod: &ast.ForeignModItem{
				ABI: "system",
				Functions: []ast.ForeignFn{{
					Name: "CreateFileW", Public: true,
					Params: []ast.Param{
						{Name: "lpFileName", Type: pathType("LPCWSTR")},
						{Name: "dwDesiredAccess", Type: pathType("u32")},
						{Name: "dwShareMode", Type: pathType("u32")},
						{Name: "lpSecurityAttributes", Type: ptrTo(false, pathType("SECURITY_ATTRIBUTES"))},
						{Name: "dwCreationDisposition", Type: pathType("u32")},
					},
					Ret: pathType("HANDLE"),
				}},
			}},
		},
	}
	return &Corpus{Modules: []Module{
		{Path: []string{"shared", "ntdef"}, LinkLib: "ntdll", Files: []*ast.File{ntdef}},
		{Path: []string{"um", "fileapi"}, LinkLib: "kernel32", Files: []*ast.File{fileapi}},
	}}
}

func moduleSource(t *testing.T, res *Result, key string) string {
	t.Helper()
	for _, m := range res.Modules {
		if m.Key == key {
			return m.Source
		}
	}
	t.Fatalf("module %s not in result", key)
	return ""
}

// TestTranslate_FileHandleEndToEnd runs the whole pipeline over the
// two-module corpus and checks the emitted sources byte for byte.
func TestTranslate_FileHandleEndToEnd(t *testing.T) {
	res, err := Translate(context.Background(), fileHandleCorpus(), profile.Zig())
	require.NoError(t, err)
	require.Equal(t, 0, res.Summary.Errors, "diagnostics: %v", res.Diagnostics)
	assert.Equal(t, 7, res.Declarations)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "ntdef", []byte(moduleSource(t, res, "shared::ntdef")))
	g.Assert(t, "fileapi", []byte(moduleSource(t, res, "um::fileapi")))
}

// TestTranslate_Deterministic runs the same corpus twice and requires
// byte-identical output, whatever the worker interleaving was.
func TestTranslate_Deterministic(t *testing.T) {
	first, err := Translate(context.Background(), fileHandleCorpus(), profile.Zig())
	require.NoError(t, err)
	second, err := Translate(context.Background(), fileHandleCorpus(), profile.Zig())
	require.NoError(t, err)

	require.Equal(t, len(first.Modules), len(second.Modules))
	for i := range first.Modules {
		assert.Equal(t, first.Modules[i].Path, second.Modules[i].Path)
		assert.Equal(t, first.Modules[i].Source, second.Modules[i].Source)
	}
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

// TestTranslate_SkipsUnsupportedItems tests per-item resilience: a macro
// nobody recognizes is skipped with a warning and a breadcrumb while its
// neighbors translate.
func TestTranslate_SkipsUnsupportedItems(t *testing.T) {
	corpus := &Corpus{Modules: []Module{{
		Path:    []string{"um", "shobjidl"},
		LinkLib: "shell32",
		Files: []*ast.File{{
			Path: "um/shobjidl.json",
			Items: []ast.Item{
				{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
					Name: "DWORD", Public: true, Type: pathType("u32"),
				}},
				{Kind: ast.KindMacro, Loc: ast.SourceLoc{File: "um/shobjidl.json", Line: 40},
					Macro: &ast.MacroItem{
						Name:   "RIDL",
						Tokens: []ast.Token{{Kind: ast.TokenIdent, Text: "ITaskbarList"}},
					}},
				{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
					Name: "UINT", Public: true, Type: pathType("u32"),
				}},
			},
		}},
	}}}

	res, err := Translate(context.Background(), corpus, profile.Zig())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Declarations)
	assert.Equal(t, 0, res.Summary.Errors)
	assert.Equal(t, 1, res.Summary.ByCode[diag.CodeUnsupportedConstruct])

	src := moduleSource(t, res, "um::shobjidl")
	assert.Contains(t, src, "pub const DWORD = u32;\n")
	assert.Contains(t, src, "pub const UINT = u32;\n")
	assert.Contains(t, src, "// unhandled: ITaskbarList\n")
}

// TestTranslate_GUIDBeforeItsType tests that an identifier constant
// declared ahead of the GUID struct in the same file is still emitted after
// it, since the constant contains the struct by value.
func TestTranslate_GUIDBeforeItsType(t *testing.T) {
	tok := func(kind ast.TokenKind, text string) ast.Token {
		return ast.Token{Kind: kind, Text: text}
	}
	guidTokens := []ast.Token{tok(ast.TokenIdent, "IID_IUnknown")}
	for _, v := range []string{"0", "0", "0", "0xc0", "0", "0", "0", "0", "0", "0", "0x46"} {
		guidTokens = append(guidTokens, tok(ast.TokenPunct, ","), tok(ast.TokenInt, v))
	}

	corpus := &Corpus{Modules: []Module{{
		Path: []string{"shared", "guiddef"},
		Files: []*ast.File{{
			Path: "shared/guiddef.json",
			Items: []ast.Item{
				{Kind: ast.KindMacro, Macro: &ast.MacroItem{Name: "DEFINE_GUID", Tokens: guidTokens}},
				{Kind: ast.KindMacro, Macro: &ast.MacroItem{Name: "STRUCT", Struct: &ast.StructItem{
					Name: "GUID", Public: true,
					Fields: []ast.FieldItem{
						{Name: "Data1", Type: pathType("u32")},
						{Name: "Data2", Type: pathType("u16")},
						{Name: "Data3", Type: pathType("u16")},
						{Name: "Data4", Type: &ast.Type{Kind: ast.TypeArray, Array: &ast.ArrayType{
							Len: 8, Elem: pathType("u8"),
						}}},
					},
				}}},
			},
		}},
	}}}

	res, err := Translate(context.Background(), corpus, profile.Zig())
	require.NoError(t, err)
	require.Equal(t, 0, res.Summary.Errors, "diagnostics: %v", res.Diagnostics)

	src := moduleSource(t, res, "shared::guiddef")
	structAt := strings.Index(src, "pub const GUID = extern struct")
	constAt := strings.Index(src, "pub const IID_IUnknown = GUID{")
	require.GreaterOrEqual(t, structAt, 0, "source:\n%s", src)
	require.GreaterOrEqual(t, constAt, 0, "source:\n%s", src)
	assert.Less(t, structAt, constAt)
}

// TestTranslate_CollisionAborts tests the one run-fatal condition: the same
// qualified name bound to two different definitions.
func TestTranslate_CollisionAborts(t *testing.T) {
	structItem := func(fieldType *ast.Type) ast.Item {
		return ast.Item{Kind: ast.KindStruct, Struct: &ast.StructItem{
			Name: "POINT", Public: true, Repr: ast.Repr{C: true},
			Fields: []ast.FieldItem{{Name: "x", Type: fieldType}},
		}}
	}
	corpus := &Corpus{Modules: []Module{{
		Path: []string{"shared", "windef"},
		Files: []*ast.File{
			{Path: "a.json", Items: []ast.Item{structItem(pathType("i32"))}},
			{Path: "b.json", Items: []ast.Item{structItem(pathType("i64"))}},
		},
	}}}

	res, err := Translate(context.Background(), corpus, profile.Zig())
	require.Error(t, err)
	require.NotNil(t, res, "the partial result carries the fatal diagnostic")

	assert.Empty(t, res.Modules)
	require.NotEmpty(t, res.Diagnostics)
	found := false
	for _, d := range res.Diagnostics {
		if d.Code == diag.CodeNameCollision && d.Severity == diag.SeverityFatal {
			found = true
		}
	}
	assert.True(t, found, "fatal NAME_COLLISION diagnostic reported: %v", res.Diagnostics)
}

// TestTranslate_IdenticalReinclusion tests that the same definition seen in
// two files is folded, not treated as a collision.
func TestTranslate_IdenticalReinclusion(t *testing.T) {
	alias := ast.Item{Kind: ast.KindTypeAlias, TypeAlias: &ast.TypeAliasItem{
		Name: "BOOL", Public: true, Type: pathType("i32"),
	}}
	corpus := &Corpus{Modules: []Module{{
		Path: []string{"shared", "minwindef"},
		Files: []*ast.File{
			{Path: "a.json", Items: []ast.Item{alias}},
			{Path: "b.json", Items: []ast.Item{alias}},
		},
	}}}

	res, err := Translate(context.Background(), corpus, profile.Zig())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Declarations)

	src := moduleSource(t, res, "shared::minwindef")
	assert.Equal(t, "pub const BOOL = i32;\n", src)
}

// TestTranslate_Cancellation tests that a cancelled context stops the run.
func TestTranslate_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Translate(ctx, fileHandleCorpus(), profile.Zig())
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}
