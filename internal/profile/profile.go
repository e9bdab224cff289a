// Package profile holds the target-language profiles the type mapper and
// emitter consume. The zig profile is built in; additional profiles load
// from CUE files validated against an embedded schema.
package profile

import (
	"fmt"
	"sort"

	"github.com/zigbind/zigbind/internal/typemap"
)

// Zig is the built-in profile for the Zig target. Spellings match the
// generated-binding conventions: optional raw pointers (`?*const T`),
// `extern struct` for C layout, `callconv(.Stdcall)` for the OS standard
// convention, and `@Type(.Opaque)` handle targets. Zig allows complete
// forward reference by name, so pointer cycles need no stubs.
func Zig() *typemap.Profile {
	return &typemap.Profile{
		Name:            "zig",
		IntegerWidths:   []int{8, 16, 32, 64, 128},
		FloatWidths:     []int{16, 32, 64, 128},
		HasPointerSized: true,
		CallConvs: map[string]string{
			"system":   ".Stdcall",
			"stdcall":  ".Stdcall",
			"C":        ".C",
			"cdecl":    ".C",
			"fastcall": ".Fastcall",
			"thiscall": ".Thiscall",
		},
		ReservedWords: []string{
			"align", "allowzero", "and", "anyframe", "anytype", "asm",
			"async", "await", "break", "callconv", "catch", "comptime",
			"const", "continue", "defer", "else", "enum", "errdefer",
			"error", "export", "extern", "fn", "for", "if", "inline",
			"noalias", "nosuspend", "opaque", "or", "orelse", "packed",
			"pub", "resume", "return", "struct", "suspend", "switch",
			"test", "threadlocal", "try", "union", "unreachable", "usingnamespace",
			"var", "volatile", "while",
			// Primitive type names shadowing a declaration is as bad as a
			// keyword clash.
			"void", "bool", "usize", "isize", "type", "anyerror",
			"u8", "u16", "u32", "u64", "u128", "i8", "i16", "i32", "i64", "i128",
			"f16", "f32", "f64", "f128", "c_void",
		},
		OpaquePlaceholder:   "c_void",
		ForwardDeclarations: false,
		VariadicFuncPtrs:    false,
		PointerBits:         64,
		FileExtension:       ".zig",
		Syntax: typemap.Syntax{
			ConstPointer:         "?*const %s",
			MutPointer:           "?*%s",
			VoidPointee:          "c_void",
			Array:                "[%d]%s",
			FuncPtr:              "?fn (%s) callconv(%s) %s",
			SignedInt:            "i%d",
			UnsignedInt:          "u%d",
			Float:                "f%d",
			PointerSizedSigned:   "isize",
			PointerSizedUnsigned: "usize",
			Bool:                 "bool",
			Void:                 "void",
			StructC:              "extern struct",
			StructPacked:         "packed struct",
			StructPlain:          "struct",
			UnionC:               "extern union",
			Opaque:               "@Type(.Opaque)",
			TaggedEnum:           "enum(%s)",
		},
	}
}

// builtin profiles by name.
func builtin() map[string]func() *typemap.Profile {
	return map[string]func() *typemap.Profile{
		"zig": Zig,
	}
}

// Get returns a built-in profile by name.
func Get(name string) (*typemap.Profile, error) {
	if ctor, ok := builtin()[name]; ok {
		return ctor(), nil
	}
	return nil, fmt.Errorf("unknown target profile %q (built-in: %v)", name, Names())
}

// Names lists the built-in profile names, sorted.
func Names() []string {
	b := builtin()
	names := make([]string, 0, len(b))
	for k := range b {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
