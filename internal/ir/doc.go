// Package ir defines the canonical intermediate representation of an FFI
// declaration corpus: structs, enums, unions, function signatures, type
// aliases, constants, and module re-exports, plus the recursive type
// descriptors their fields and parameters use.
//
// IR values are built once by the expander, are immutable during resolution,
// and are read-only to the emitter. The package is pure data plus structural
// validation and content hashing; it performs no resolution and no emission.
// ir imports only ast (for source locations).
//
// Key constraints:
//   - Field order on structs and unions is load-bearing (memory offsets) and
//     is preserved exactly as declared.
//   - Integer values are carried as sign+magnitude (Magnitude uint64), never
//     as floats, so canonical hashing stays exact for 64-bit constants.
//   - All JSON tags use snake_case.
package ir
