// Package expand desugars front-end syntax items into canonical IR
// declarations. It recognizes a closed set of declaration-shorthand macros
// (STRUCT!, UNION!, ENUM!, DEFINE_GUID!, DECLARE_HANDLE!, bitflags!) plus
// literal items; anything outside that set degrades to an
// UNSUPPORTED_CONSTRUCT diagnostic and a skipped item, never a failed run.
//
// The expander has no visible side effects beyond appending declarations to
// its result and diagnostics to the collector. It performs no resolution and
// never reads the symbol table.
package expand
