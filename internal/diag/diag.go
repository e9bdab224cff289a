// Package diag accumulates per-item translation failures without halting a
// run. The collector is safe for concurrent append during the parallel
// pipeline phases; the final report order is deterministic so two runs over
// the same corpus produce byte-identical diagnostics.
package diag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zigbind/zigbind/internal/ast"
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	// SeverityFatal marks the run as aborted (name collisions only).
	SeverityFatal Severity = "fatal"
)

// Code categorizes a diagnostic. The set mirrors the translation failure
// taxonomy; everything here except NAME_COLLISION is local to one item.
type Code string

const (
	// CodeUnsupportedConstruct: a macro/attribute combination with no
	// expansion rule. The item is skipped, the run continues.
	CodeUnsupportedConstruct Code = "UNSUPPORTED_CONSTRUCT"
	// CodeUnresolvedReference: a type path that never resolves to a known
	// declaration by the end of resolution.
	CodeUnresolvedReference Code = "UNRESOLVED_REFERENCE"
	// CodeNameCollision: two distinct declarations claim the same qualified
	// name. Fatal to the run.
	CodeNameCollision Code = "NAME_COLLISION"
	// CodeMappingError: a resolved type has no valid target representation.
	CodeMappingError Code = "MAPPING_ERROR"
	// CodeLayoutMismatch: a layout-sensitive type's computed size/alignment
	// would diverge from the source's implied layout.
	CodeLayoutMismatch Code = "LAYOUT_MISMATCH"
	// CodeValueCycle: struct declarations contain each other by value,
	// cyclically. Unlike pointer cycles this can never be laid out.
	CodeValueCycle Code = "VALUE_CYCLE"
)

// Unknown is the qualified-name placeholder when no name is derivable.
const Unknown = "<unknown>"

// Diagnostic is one recorded translation failure or warning.
type Diagnostic struct {
	Severity      Severity      `json:"severity"`
	Code          Code          `json:"code"`
	QualifiedName string        `json:"qualified_name"` // Unknown when not derivable
	Message       string        `json:"message"`
	Loc           ast.SourceLoc `json:"loc"`
}

// String renders one line of the diagnostics report.
func (d Diagnostic) String() string {
	loc := d.Loc.File
	if d.Loc.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.Loc.File, d.Loc.Line)
	}
	if loc == "" {
		loc = "<no location>"
	}
	return fmt.Sprintf("%s: %s [%s] %s: %s", loc, d.Severity, d.Code, d.QualifiedName, d.Message)
}

// Collector accumulates diagnostics from concurrent pipeline workers.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records one diagnostic. Safe for concurrent use.
func (c *Collector) Add(d Diagnostic) {
	if d.QualifiedName == "" {
		d.QualifiedName = Unknown
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// Addf records a diagnostic with a formatted message.
func (c *Collector) Addf(sev Severity, code Code, name string, loc ast.SourceLoc, format string, args ...any) {
	c.Add(Diagnostic{
		Severity:      sev,
		Code:          code,
		QualifiedName: name,
		Message:       fmt.Sprintf(format, args...),
		Loc:           loc,
	})
}

// All returns the diagnostics in deterministic report order: by file, line,
// code, qualified name, then message. Workers race only on append, so
// sorting here is what makes two identical runs report identically.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Loc.File != b.Loc.File {
			return a.Loc.File < b.Loc.File
		}
		if a.Loc.Line != b.Loc.Line {
			return a.Loc.Line < b.Loc.Line
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.QualifiedName != b.QualifiedName {
			return a.QualifiedName < b.QualifiedName
		}
		return a.Message < b.Message
	})
	return out
}

// Count returns the number of diagnostics recorded so far.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diags)
}

// CountSeverity returns how many diagnostics carry the given severity.
func (c *Collector) CountSeverity(sev Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diags {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error- or fatal-severity diagnostic was
// recorded. A true result is the caller's signal that the emitted output is
// incomplete.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.diags {
		if d.Severity == SeverityError || d.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Summary is the per-code tally used by report footers and the run history.
type Summary struct {
	Total    int          `json:"total"`
	Errors   int          `json:"errors"`
	Warnings int          `json:"warnings"`
	ByCode   map[Code]int `json:"by_code"`
}

// Summarize tallies the collected diagnostics.
func (c *Collector) Summarize() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{ByCode: make(map[Code]int)}
	for _, d := range c.diags {
		s.Total++
		s.ByCode[d.Code]++
		switch d.Severity {
		case SeverityError, SeverityFatal:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		}
	}
	return s
}
