// Package ast defines the syntax-tree node types the translation engine
// consumes. Nodes are produced by an external front end (or loaded from its
// JSON serialization); this package never parses source text itself.
//
// This is the foundational input layer: every other internal package may
// import ast; ast imports nothing internal.
//
// The node taxonomy mirrors the top-level items found in Rust FFI declaration
// crates: type aliases, constants, extern blocks, use re-exports, inline
// modules, literal struct/enum/union definitions, and declarative macro
// invocations (STRUCT!, ENUM!, DEFINE_GUID!, and friends). Macro bodies that
// are themselves item-shaped arrive pre-parsed by the front end; flat macro
// arguments arrive as a token list.
package ast
