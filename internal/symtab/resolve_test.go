package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigbind/zigbind/internal/ast"
	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/ir"
)

func reexportDecl(module, name string, target ...string) *ir.Declaration {
	return &ir.Declaration{
		Kind:     ir.DeclReexport,
		Name:     qn(module, name),
		Public:   true,
		Reexport: &ir.ReexportDecl{Target: target},
	}
}

func resolveAll(t *testing.T, decls ...*ir.Declaration) (*Resolution, *diag.Collector) {
	t.Helper()
	table := NewTable()
	for _, d := range decls {
		require.NoError(t, table.Collect(d))
	}
	table.Seal()
	sink := diag.NewCollector()
	r := NewResolver(table)
	for _, mod := range table.Modules() {
		r.ResolveModule(mod, sink)
	}
	return r.Finish(), sink
}

// TestResolve_LocalForwardReference tests that a reference to a
// declaration later in the same module resolves: collection finished
// before resolution started.
func TestResolve_LocalForwardReference(t *testing.T) {
	user := structDecl("um::winuser", "WNDCLASSW", ir.LayoutC,
		ir.Field{Name: "hIcon", Type: ir.PathTypeOf("HICON")})
	target := aliasDecl("um::winuser", "HICON",
		&ir.Type{Kind: ir.TypePointer, Pointer: &ir.PointerType{Elem: u32Type()}}, ast.SourceLoc{})

	res, sink := resolveAll(t, user, target)
	assert.Equal(t, 0, sink.Count())

	d, ok := res.Target("um::winuser", &ir.PathType{Segments: []string{"HICON"}})
	require.True(t, ok)
	assert.Equal(t, "um::winuser::HICON", d.Name.String())
}

// TestResolve_ThroughReexport tests that an unqualified name resolves
// through the module's `use` imports to the defining module.
func TestResolve_ThroughReexport(t *testing.T) {
	def := aliasDecl("shared::minwindef", "DWORD", u32Type(), ast.SourceLoc{})
	use := reexportDecl("um::winuser", "DWORD", "shared", "minwindef", "DWORD")
	user := structDecl("um::winuser", "MSG", ir.LayoutC,
		ir.Field{Name: "message", Type: ir.PathTypeOf("DWORD")})

	res, sink := resolveAll(t, def, use, user)
	assert.Equal(t, 0, sink.Count())

	d, ok := res.Target("um::winuser", &ir.PathType{Segments: []string{"DWORD"}})
	require.True(t, ok)
	assert.Equal(t, "shared::minwindef::DWORD", d.Name.String(), "re-export chases to the definition")
}

// TestResolve_ChainedReexport tests a use of a use.
func TestResolve_ChainedReexport(t *testing.T) {
	def := aliasDecl("shared::ntdef", "HANDLE", u32Type(), ast.SourceLoc{})
	mid := reexportDecl("shared::windef", "HANDLE", "shared", "ntdef", "HANDLE")
	use := reexportDecl("um::fileapi", "HANDLE", "shared", "windef", "HANDLE")
	user := aliasDecl("um::fileapi", "HFILE", ir.PathTypeOf("HANDLE"), ast.SourceLoc{})

	res, sink := resolveAll(t, def, mid, use, user)
	assert.Equal(t, 0, sink.Count())

	d, ok := res.Target("um::fileapi", &ir.PathType{Segments: []string{"HANDLE"}})
	require.True(t, ok)
	assert.Equal(t, "shared::ntdef::HANDLE", d.Name.String())
}

// TestResolve_QualifiedPath tests fully qualified references, with and
// without a crate prefix.
func TestResolve_QualifiedPath(t *testing.T) {
	def := aliasDecl("shared::guiddef", "GUID", u32Type(), ast.SourceLoc{})
	a := aliasDecl("um::combaseapi", "IID", ir.PathTypeOf("shared", "guiddef", "GUID"), ast.SourceLoc{})
	b := aliasDecl("um::objbase", "CLSID", ir.PathTypeOf("crate", "shared", "guiddef", "GUID"), ast.SourceLoc{})

	res, sink := resolveAll(t, def, a, b)
	assert.Equal(t, 0, sink.Count())

	d, ok := res.Target("um::combaseapi", &ir.PathType{Segments: []string{"shared", "guiddef", "GUID"}})
	require.True(t, ok)
	assert.Equal(t, "shared::guiddef::GUID", d.Name.String())

	d, ok = res.Target("um::objbase", &ir.PathType{Segments: []string{"crate", "shared", "guiddef", "GUID"}})
	require.True(t, ok)
	assert.Equal(t, "shared::guiddef::GUID", d.Name.String())
}

// TestResolve_UnresolvedReference tests that a dangling reference is an
// error pinned to the referencing declaration, and the run continues.
func TestResolve_UnresolvedReference(t *testing.T) {
	user := structDecl("um::winuser", "PAINTSTRUCT", ir.LayoutC,
		ir.Field{Name: "hdc", Type: ir.PathTypeOf("HDC")})

	res, sink := resolveAll(t, user)
	require.Equal(t, 1, sink.Count())

	d := sink.All()[0]
	assert.Equal(t, diag.SeverityError, d.Severity)
	assert.Equal(t, diag.CodeUnresolvedReference, d.Code)
	assert.Equal(t, "um::winuser::PAINTSTRUCT", d.QualifiedName)

	_, ok := res.Target("um::winuser", &ir.PathType{Segments: []string{"HDC"}})
	assert.False(t, ok)
}

// TestResolve_ReexportLoop tests that a re-export cycle is diagnosed
// instead of looping.
func TestResolve_ReexportLoop(t *testing.T) {
	a := reexportDecl("um::a", "X", "um", "b", "X")
	b := reexportDecl("um::b", "X", "um", "a", "X")

	_, sink := resolveAll(t, a, b)
	assert.True(t, sink.HasErrors())
}

// TestResolve_FunctionSignature tests resolution walks parameter and
// return types.
func TestResolve_FunctionSignature(t *testing.T) {
	handle := aliasDecl("shared::ntdef", "HANDLE", u32Type(), ast.SourceLoc{})
	use := reexportDecl("um::fileapi", "HANDLE", "shared", "ntdef", "HANDLE")
	fn := &ir.Declaration{
		Kind:   ir.DeclFunction,
		Name:   qn("um::fileapi", "CreateFileW"),
		Public: true,
		Function: &ir.FunctionDecl{
			CallConv: "system",
			LinkName: "CreateFileW",
			LinkLib:  "kernel32",
			Params:   []ir.Field{{Name: "hTemplateFile", Type: ir.PathTypeOf("HANDLE")}},
			Ret:      ir.PathTypeOf("HANDLE"),
		},
	}

	res, sink := resolveAll(t, handle, use, fn)
	assert.Equal(t, 0, sink.Count())

	d, ok := res.Target("um::fileapi", &ir.PathType{Segments: []string{"HANDLE"}})
	require.True(t, ok)
	assert.Equal(t, "shared::ntdef::HANDLE", d.Name.String())
}
