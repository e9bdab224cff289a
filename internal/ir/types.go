package ir

import (
	"strings"

	"github.com/zigbind/zigbind/internal/ast"
)

// QualifiedName is a declaration's module-path-prefixed name, unique across
// the whole corpus.
type QualifiedName struct {
	Module []string `json:"module"`
	Name   string   `json:"name"`
}

// String renders the name in source spelling, e.g. "um::winuser::MSG".
func (q QualifiedName) String() string {
	if len(q.Module) == 0 {
		return q.Name
	}
	return strings.Join(q.Module, "::") + "::" + q.Name
}

// ModuleKey renders just the module path, e.g. "um::winuser".
func (q QualifiedName) ModuleKey() string {
	return strings.Join(q.Module, "::")
}

// DeclKind discriminates the Declaration variants.
type DeclKind string

const (
	DeclStruct   DeclKind = "struct"
	DeclEnum     DeclKind = "enum"
	DeclUnion    DeclKind = "union"
	DeclFunction DeclKind = "function"
	DeclAlias    DeclKind = "alias"
	DeclConstant DeclKind = "constant"
	DeclReexport DeclKind = "reexport"
)

// Declaration is one named unit of the IR. Exactly one variant pointer is
// non-nil, selected by Kind.
type Declaration struct {
	Kind   DeclKind      `json:"kind"`
	Name   QualifiedName `json:"name"`
	Public bool          `json:"public"`
	Loc    ast.SourceLoc `json:"loc"`

	Struct   *StructDecl   `json:"struct,omitempty"`
	Enum     *EnumDecl     `json:"enum,omitempty"`
	Union    *UnionDecl    `json:"union,omitempty"`
	Function *FunctionDecl `json:"function,omitempty"`
	Alias    *AliasDecl    `json:"alias,omitempty"`
	Constant *ConstantDecl `json:"constant,omitempty"`
	Reexport *ReexportDecl `json:"reexport,omitempty"`
}

// LayoutMode is the layout discipline a struct or union demands.
type LayoutMode string

const (
	// LayoutDefault leaves layout to the target language.
	LayoutDefault LayoutMode = "default"
	// LayoutC demands field order and padding identical to a C compiler's.
	LayoutC LayoutMode = "c"
	// LayoutPacked is C layout with all padding removed.
	LayoutPacked LayoutMode = "packed"
	// LayoutTransparent wraps exactly one field with the field's own layout.
	LayoutTransparent LayoutMode = "transparent"
)

// Field is one (name, type) pair. Order within the containing declaration
// determines memory offset and must never be permuted.
type Field struct {
	Name string `json:"name"`
	Type *Type  `json:"type"`
}

// StructDecl is a struct-shaped declaration. Opaque structs have no fields
// and exist only to be pointed at (DECLARE_HANDLE targets).
type StructDecl struct {
	Layout LayoutMode `json:"layout"`
	Fields []Field    `json:"fields"`
	Opaque bool       `json:"opaque,omitempty"`
	// AssocConsts carries bitflag values declared inside the wrapper.
	AssocConsts []EnumVariant `json:"assoc_consts,omitempty"`
}

// UnionDecl is a union-shaped declaration.
type UnionDecl struct {
	Layout LayoutMode `json:"layout"`
	Fields []Field    `json:"fields"`
}

// EnumKind separates the two enum encodings the corpus uses.
type EnumKind string

const (
	// EnumCLike is a flat set of named integer constants with no tag. Values
	// combine arithmetically and bitwise in calling code, so the target
	// encoding must stay a plain integer type.
	EnumCLike EnumKind = "c_like"
	// EnumTagged is a closed tagged set and may map to a target enum type.
	EnumTagged EnumKind = "tagged"
)

// EnumDecl is an enum with an explicit, OS-fixed discriminant width.
type EnumDecl struct {
	EnumKind     EnumKind      `json:"enum_kind"`
	Discriminant Primitive     `json:"discriminant"`
	Variants     []EnumVariant `json:"variants"`
}

// EnumVariant is one named discriminant value.
type EnumVariant struct {
	Name  string   `json:"name"`
	Value IntValue `json:"value"`
}

// FunctionDecl is an imported native function signature. LinkName is the
// symbol the native library exports; it passes through untranslated even
// when the declared name is adjusted for the target language.
type FunctionDecl struct {
	CallConv string  `json:"call_conv"`
	Params   []Field `json:"params"`
	Ret      *Type   `json:"ret,omitempty"` // nil means no return value
	LinkName string  `json:"link_name"`
	LinkLib  string  `json:"link_lib"`
	Variadic bool    `json:"variadic,omitempty"`
}

// AliasDecl is `type NAME = TY`.
type AliasDecl struct {
	Target *Type `json:"target"`
}

// ConstantDecl is a named literal value. Type may be nil for untyped
// integer constants.
type ConstantDecl struct {
	Type  *Type   `json:"type,omitempty"`
	Value Literal `json:"value"`
}

// ReexportDecl re-exports a declaration from another module under this
// module's namespace (a `use` item).
type ReexportDecl struct {
	Target []string `json:"target"` // full path, last segment is the name
}

// TypeKind discriminates the Type variants.
type TypeKind string

const (
	TypePrimitive TypeKind = "primitive"
	TypePointer   TypeKind = "pointer"
	TypeArray     TypeKind = "array"
	TypeFuncPtr   TypeKind = "func_ptr"
	TypePath      TypeKind = "path"
)

// Type is a recursive type descriptor. Exactly one variant pointer is
// non-nil (Primitive is a value since it is tiny and common).
type Type struct {
	Kind TypeKind `json:"kind"`

	Primitive *Primitive   `json:"primitive,omitempty"`
	Pointer   *PointerType `json:"pointer,omitempty"`
	Array     *ArrayType   `json:"array,omitempty"`
	FuncPtr   *FuncPtrType `json:"func_ptr,omitempty"`
	Path      *PathType    `json:"path,omitempty"`
}

// PrimitiveClass is the primitive kind family.
type PrimitiveClass string

const (
	Signed   PrimitiveClass = "signed"
	Unsigned PrimitiveClass = "unsigned"
	Float    PrimitiveClass = "float"
	Bool     PrimitiveClass = "bool"
	Void     PrimitiveClass = "void"
)

// Primitive is a fixed-width scalar. Bits == 0 means pointer-sized
// (usize/isize). Widths are never widened or narrowed downstream.
type Primitive struct {
	Class PrimitiveClass `json:"class"`
	Bits  int            `json:"bits"`
}

// PointerType is a raw, single-owner native pointer. Never translated into
// an ownership-tracked reference.
type PointerType struct {
	Const bool  `json:"const"`
	Elem  *Type `json:"elem"`
}

// ArrayType is a fixed-size array with length fixed at translation time.
type ArrayType struct {
	Len  uint64 `json:"len"`
	Elem *Type  `json:"elem"`
}

// FuncPtrType is a function pointer with a named calling convention.
type FuncPtrType struct {
	CallConv string  `json:"call_conv"`
	Params   []Field `json:"params"`
	Ret      *Type   `json:"ret,omitempty"`
	Variadic bool    `json:"variadic,omitempty"`
}

// PathType is an unresolved reference to another declaration by name.
// Segments keep the source spelling; resolution maps them to a
// QualifiedName without mutating the IR.
type PathType struct {
	Segments []string `json:"segments"`
	Generics []*Type  `json:"generics,omitempty"`
}

// Key is the resolution key for this path (segments joined by "::").
func (p *PathType) Key() string {
	return strings.Join(p.Segments, "::")
}

// LiteralKind discriminates constant literal forms.
type LiteralKind string

const (
	LitScalar LiteralKind = "scalar"
	LitString LiteralKind = "string"
	LitBytes  LiteralKind = "bytes"
	LitStruct LiteralKind = "struct"
)

// Literal is a constant value: a scalar, a byte sequence, a string, or a
// nested struct literal (GUIDs are struct literals of total size 16).
type Literal struct {
	Kind   LiteralKind    `json:"kind"`
	Scalar *IntValue      `json:"scalar,omitempty"`
	Str    string         `json:"str,omitempty"`
	Bytes  []byte         `json:"bytes,omitempty"`
	Struct *StructLiteral `json:"struct,omitempty"`
}

// StructLiteral is a composite constant value with named fields in
// declaration order.
type StructLiteral struct {
	Fields []FieldLiteral `json:"fields"`
}

// FieldLiteral is one field of a struct literal.
type FieldLiteral struct {
	Name  string  `json:"name"`
	Value Literal `json:"value"`
}

// IntValue is an integer as sign and magnitude, wide enough for any 64-bit
// constant in the corpus without float contamination.
type IntValue struct {
	Magnitude uint64 `json:"magnitude"`
	Negative  bool   `json:"negative,omitempty"`
}

// ParsePrimitive recognizes the IR spellings of fixed-width scalars
// ("u8".."u128", "i8".."i128", "f32", "f64", "usize", "isize", "bool",
// "void"). It does not know source-language alias names; those are the
// expander's to normalize first.
func ParsePrimitive(name string) (Primitive, bool) {
	switch name {
	case "usize":
		return Primitive{Class: Unsigned, Bits: 0}, true
	case "isize":
		return Primitive{Class: Signed, Bits: 0}, true
	case "bool":
		return Primitive{Class: Bool, Bits: 8}, true
	case "void":
		return Primitive{Class: Void, Bits: 0}, true
	case "f32":
		return Primitive{Class: Float, Bits: 32}, true
	case "f64":
		return Primitive{Class: Float, Bits: 64}, true
	}
	if len(name) < 2 {
		return Primitive{}, false
	}
	var class PrimitiveClass
	switch name[0] {
	case 'u':
		class = Unsigned
	case 'i':
		class = Signed
	default:
		return Primitive{}, false
	}
	switch name[1:] {
	case "8":
		return Primitive{Class: class, Bits: 8}, true
	case "16":
		return Primitive{Class: class, Bits: 16}, true
	case "32":
		return Primitive{Class: class, Bits: 32}, true
	case "64":
		return Primitive{Class: class, Bits: 64}, true
	case "128":
		return Primitive{Class: class, Bits: 128}, true
	}
	return Primitive{}, false
}

// PrimitiveType wraps a Primitive as a Type.
func PrimitiveType(p Primitive) *Type {
	return &Type{Kind: TypePrimitive, Primitive: &p}
}

// PathTypeOf builds a Path type from source segments.
func PathTypeOf(segments ...string) *Type {
	return &Type{Kind: TypePath, Path: &PathType{Segments: segments}}
}
