// Package symtab implements the corpus-wide symbol table and the two-phase
// name resolution the native API surface demands.
//
// Phase 1 (Collect) registers every declaration the expander produced.
// Registration is write-once per qualified name: a duplicate is a fatal
// NameCollision unless its content hash is identical, which tolerates
// re-included files. Phase 2 (Resolve) may only start once Phase 1 has seen
// every input file, because the corpus freely references types defined later
// in the same file or in sibling files.
//
// After the barrier the table is read-only; resolution workers share it
// without locks and record their results in a per-module target map.
// Pointer cycles between struct declarations are legal (pointers never need
// the pointee's size); value-containment cycles are impossible to lay out
// and are reported per declaration.
package symtab
