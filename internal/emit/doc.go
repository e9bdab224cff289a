// Package emit serializes resolved IR into target-language source text, one
// unit per source module, with the module hierarchy preserved on disk.
//
// Within a module, declarations are ordered so every by-value dependency
// precedes its dependents; pointer-only cycles need no special handling for
// targets that allow complete forward reference by name, and get stub lines
// for profiles that require them. Names that collide with target reserved
// words are disambiguated by a fixed suffixing rule, stable across runs.
//
// The emitter performs no resolution of its own: every reference it prints
// was resolved (or diagnosed) before it ran.
package emit
