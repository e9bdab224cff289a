package diag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigbind/zigbind/internal/ast"
)

// TestAll_DeterministicOrder tests that report order depends on diagnostic
// content, not on the order workers happened to append.
func TestAll_DeterministicOrder(t *testing.T) {
	build := func(order []int) []Diagnostic {
		all := []Diagnostic{
			{Severity: SeverityError, Code: CodeUnresolvedReference, QualifiedName: "um::a::X",
				Message: "unresolved", Loc: ast.SourceLoc{File: "um/a.json", Line: 3}},
			{Severity: SeverityWarning, Code: CodeUnsupportedConstruct, QualifiedName: "um::a::Y",
				Message: "skipped", Loc: ast.SourceLoc{File: "um/a.json", Line: 1}},
			{Severity: SeverityError, Code: CodeMappingError, QualifiedName: "shared::b::Z",
				Message: "no width", Loc: ast.SourceLoc{File: "shared/b.json", Line: 9}},
		}
		c := NewCollector()
		for _, i := range order {
			c.Add(all[i])
		}
		return c.All()
	}

	first := build([]int{0, 1, 2})
	second := build([]int{2, 0, 1})
	require.Equal(t, first, second)

	assert.Equal(t, "shared/b.json", first[0].Loc.File)
	assert.Equal(t, 1, first[1].Loc.Line, "same file sorts by line")
	assert.Equal(t, 3, first[2].Loc.Line)
}

// TestAdd_Concurrent tests that concurrent workers lose no diagnostics.
func TestAdd_Concurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c.Addf(SeverityWarning, CodeUnsupportedConstruct, "um::m::X",
					ast.SourceLoc{File: "um/m.json", Line: w*50 + i}, "skipped %d", i)
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 400, c.Count())
}

func TestAdd_DefaultsUnknownName(t *testing.T) {
	c := NewCollector()
	c.Add(Diagnostic{Severity: SeverityWarning, Code: CodeUnsupportedConstruct, Message: "m"})
	assert.Equal(t, Unknown, c.All()[0].QualifiedName)
}

func TestHasErrors(t *testing.T) {
	c := NewCollector()
	c.Addf(SeverityWarning, CodeUnsupportedConstruct, "n", ast.SourceLoc{}, "w")
	assert.False(t, c.HasErrors())

	c.Addf(SeverityError, CodeUnresolvedReference, "n", ast.SourceLoc{}, "e")
	assert.True(t, c.HasErrors())
}

func TestSummarize(t *testing.T) {
	c := NewCollector()
	c.Addf(SeverityWarning, CodeUnsupportedConstruct, "a", ast.SourceLoc{}, "w1")
	c.Addf(SeverityWarning, CodeUnsupportedConstruct, "b", ast.SourceLoc{}, "w2")
	c.Addf(SeverityError, CodeUnresolvedReference, "c", ast.SourceLoc{}, "e1")
	c.Addf(SeverityFatal, CodeNameCollision, "d", ast.SourceLoc{}, "f1")

	s := c.Summarize()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Errors, "fatal counts as an error")
	assert.Equal(t, 2, s.Warnings)
	assert.Equal(t, 2, s.ByCode[CodeUnsupportedConstruct])
	assert.Equal(t, 1, s.ByCode[CodeNameCollision])
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Severity:      SeverityError,
		Code:          CodeUnresolvedReference,
		QualifiedName: "um::winuser::PAINTSTRUCT",
		Message:       "unresolved reference HDC",
		Loc:           ast.SourceLoc{File: "um/winuser.json", Line: 12},
	}
	assert.Equal(t,
		"um/winuser.json:12: error [UNRESOLVED_REFERENCE] um::winuser::PAINTSTRUCT: unresolved reference HDC",
		d.String())

	assert.Equal(t, "<no location>: error [UNRESOLVED_REFERENCE] x: m",
		Diagnostic{Severity: SeverityError, Code: CodeUnresolvedReference,
			QualifiedName: "x", Message: "m"}.String())
}
