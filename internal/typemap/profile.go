// Package typemap converts IR type descriptors into ABI-equivalent target
// type spellings. Mapping is a pure function of the type, the target
// profile, and the resolved names; it never widens, narrows, or otherwise
// approximates a representation. A source construct the target cannot
// express is a MappingError, reported rather than silently approximated.
package typemap

import (
	"sort"

	"github.com/zigbind/zigbind/internal/ir"
)

// Profile enumerates the target-language capabilities the mapper needs for
// correct ABI mapping. Profiles are pure data; the registry and loader live
// in the profile package.
type Profile struct {
	// Name identifies the profile ("zig").
	Name string `json:"name"`

	// IntegerWidths are the exact fixed integer widths the target offers.
	// A source integer with any other width is a MappingError.
	IntegerWidths []int `json:"integer_widths"`

	// FloatWidths are the available float widths.
	FloatWidths []int `json:"float_widths"`

	// HasPointerSized reports whether the target has native pointer-sized
	// integer types.
	HasPointerSized bool `json:"has_pointer_sized"`

	// CallConvs maps source calling-convention names to the target
	// spelling. A convention absent here is untranslatable: hard error.
	CallConvs map[string]string `json:"call_convs"`

	// ReservedWords are target identifiers a declaration name must not
	// shadow; the emitter disambiguates deterministically.
	ReservedWords []string `json:"reserved_words"`

	// OpaquePlaceholder, when non-empty, is the type spelled for references
	// that never resolved (the declaration is emitted with the placeholder
	// instead of being omitted).
	OpaquePlaceholder string `json:"opaque_placeholder,omitempty"`

	// ForwardDeclarations reports whether the target needs explicit stubs
	// to break pointer cycles. False means complete forward reference by
	// name is legal and no stub is emitted.
	ForwardDeclarations bool `json:"forward_declarations"`

	// VariadicFuncPtrs reports whether function-pointer types may be
	// C-variadic. Variadic extern function declarations are always legal.
	VariadicFuncPtrs bool `json:"variadic_func_ptrs"`

	// PointerBits is the target pointer width used for layout checks.
	PointerBits int `json:"pointer_bits"`

	// FileExtension is the emitted source-unit extension (".zig").
	FileExtension string `json:"file_extension"`

	// Syntax carries the target spellings the mapper composes.
	Syntax Syntax `json:"syntax"`

	reserved map[string]bool
}

// Syntax is the spelling table for composed types. Verb slots are
// fmt.Sprintf style.
type Syntax struct {
	ConstPointer         string `json:"const_pointer"` // "?*const %s"
	MutPointer           string `json:"mut_pointer"`   // "?*%s"
	VoidPointee          string `json:"void_pointee"`  // "c_void"
	Array                string `json:"array"`         // "[%d]%s"
	FuncPtr              string `json:"func_ptr"`      // "?fn (%s) callconv(%s) %s"
	SignedInt            string `json:"signed_int"`    // "i%d"
	UnsignedInt          string `json:"unsigned_int"`  // "u%d"
	Float                string `json:"float"`         // "f%d"
	PointerSizedSigned   string `json:"pointer_sized_signed"`
	PointerSizedUnsigned string `json:"pointer_sized_unsigned"`
	Bool                 string `json:"bool"`
	Void                 string `json:"void"`

	// Declaration-level spellings used by the emitter.
	StructC      string `json:"struct_c"`      // "extern struct"
	StructPacked string `json:"struct_packed"` // "packed struct"
	StructPlain  string `json:"struct_plain"`  // "struct"
	UnionC       string `json:"union_c"`       // "extern union"
	Opaque       string `json:"opaque"`        // "@Type(.Opaque)"
	TaggedEnum   string `json:"tagged_enum"`   // "enum(%s)"
	ForwardDecl  string `json:"forward_decl,omitempty"`
}

// IsReserved reports whether name collides with a target reserved word.
func (p *Profile) IsReserved(name string) bool {
	if p.reserved == nil {
		p.reserved = make(map[string]bool, len(p.ReservedWords))
		for _, w := range p.ReservedWords {
			p.reserved[w] = true
		}
	}
	return p.reserved[name]
}

// HasIntegerWidth reports whether the target offers the exact width.
func (p *Profile) HasIntegerWidth(bits int) bool {
	for _, w := range p.IntegerWidths {
		if w == bits {
			return true
		}
	}
	return false
}

// HasFloatWidth reports whether the target offers the exact float width.
func (p *Profile) HasFloatWidth(bits int) bool {
	for _, w := range p.FloatWidths {
		if w == bits {
			return true
		}
	}
	return false
}

// CallConvNames returns the supported source conventions, sorted, for
// error messages.
func (p *Profile) CallConvNames() []string {
	names := make([]string, 0, len(p.CallConvs))
	for k := range p.CallConvs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Namer supplies the target spelling of a resolved path reference as seen
// from a given module. The resolver implements this; the mapper stays free
// of symbol-table knowledge.
type Namer interface {
	// TargetName returns the emission spelling for the path, or false when
	// the path never resolved.
	TargetName(fromModule string, path *ir.PathType) (string, bool)
}
