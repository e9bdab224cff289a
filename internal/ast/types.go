package ast

// SourceLoc identifies where an item appeared in the source corpus.
// The zero value means "unknown location".
type SourceLoc struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// File is one source file's worth of top-level items, in declaration order.
type File struct {
	Path  string `json:"path"`
	Items []Item `json:"items"`
}

// ItemKind discriminates the Item variants.
type ItemKind string

const (
	KindUse        ItemKind = "use"
	KindTypeAlias  ItemKind = "type_alias"
	KindConst      ItemKind = "const"
	KindForeignMod ItemKind = "foreign_mod"
	KindMacro      ItemKind = "macro"
	KindStruct     ItemKind = "struct"
	KindEnum       ItemKind = "enum"
	KindUnion      ItemKind = "union"
	KindMod        ItemKind = "mod"
)

// Item is one top-level declaration or macro invocation. Exactly one of the
// variant pointers is non-nil, selected by Kind.
type Item struct {
	Kind ItemKind  `json:"kind"`
	Loc  SourceLoc `json:"loc"`

	Use        *UseItem        `json:"use,omitempty"`
	TypeAlias  *TypeAliasItem  `json:"type_alias,omitempty"`
	Const      *ConstItem      `json:"const,omitempty"`
	ForeignMod *ForeignModItem `json:"foreign_mod,omitempty"`
	Macro      *MacroItem      `json:"macro,omitempty"`
	Struct     *StructItem     `json:"struct,omitempty"`
	Enum       *EnumItem       `json:"enum,omitempty"`
	Union      *UnionItem      `json:"union,omitempty"`
	Mod        *ModItem        `json:"mod,omitempty"`
}

// UseItem is a re-export. Paths are already expanded by the front end:
// `use shared::minwindef::{DWORD, WORD}` arrives as two paths.
type UseItem struct {
	Public bool       `json:"public"`
	Paths  [][]string `json:"paths"`
}

// TypeAliasItem is `type NAME = TY;`.
type TypeAliasItem struct {
	Name   string `json:"name"`
	Public bool   `json:"public"`
	Type   *Type  `json:"type"`
}

// ConstItem is `const NAME: TY = LIT;`.
type ConstItem struct {
	Name   string `json:"name"`
	Public bool   `json:"public"`
	Type   *Type  `json:"type,omitempty"`
	Value  *Lit   `json:"value"`
}

// ForeignModItem is an `extern "ABI" { ... }` block of imported functions.
type ForeignModItem struct {
	ABI       string      `json:"abi"` // "system", "C", ...
	Functions []ForeignFn `json:"functions"`
}

// ForeignFn is one function signature inside an extern block.
type ForeignFn struct {
	Name     string    `json:"name"`
	Public   bool      `json:"public"`
	LinkName string    `json:"link_name,omitempty"` // #[link_name] override
	Params   []Param   `json:"params"`
	Ret      *Type     `json:"ret,omitempty"` // nil means no return value
	Variadic bool      `json:"variadic,omitempty"`
	Loc      SourceLoc `json:"loc"`
}

// Param is a named function parameter. Name may be "_".
type Param struct {
	Name string `json:"name"`
	Type *Type  `json:"type"`
}

// MacroItem is a declarative macro invocation. Item-shaped bodies arrive
// pre-parsed in the matching field; flat argument lists arrive in Tokens.
type MacroItem struct {
	Name   string      `json:"name"` // "STRUCT", "DEFINE_GUID", ...
	Tokens []Token     `json:"tokens,omitempty"`
	Struct *StructItem `json:"struct,omitempty"`
	Enum   *EnumItem   `json:"enum,omitempty"`
	Union  *UnionItem  `json:"union,omitempty"`
	Flags  *FlagsBody  `json:"flags,omitempty"`
}

// Token is one lexical token of a flat macro argument list.
type Token struct {
	Kind TokenKind `json:"kind"`
	Text string    `json:"text"`
}

// TokenKind discriminates macro tokens.
type TokenKind string

const (
	TokenIdent TokenKind = "ident"
	TokenInt   TokenKind = "int"
	TokenPunct TokenKind = "punct"
)

// StructItem is a struct definition, literal or from a STRUCT! body.
type StructItem struct {
	Name   string      `json:"name"`
	Public bool        `json:"public"`
	Repr   Repr        `json:"repr"`
	Fields []FieldItem `json:"fields"`
}

// FieldItem is one struct/union field.
type FieldItem struct {
	Name string `json:"name"`
	Type *Type  `json:"type"`
}

// Repr carries the recognized layout attributes of a definition. Attribute
// combinations outside this set are the front end's to reject or ours to
// diagnose as unsupported.
type Repr struct {
	C           bool `json:"c,omitempty"`
	Packed      bool `json:"packed,omitempty"`
	Transparent bool `json:"transparent,omitempty"`
	Align       int  `json:"align,omitempty"` // non-zero only for repr(align(n))
}

// EnumItem is an enum definition. A literal item yields a tagged enum; an
// ENUM! body yields a flat C-style constant set. Discriminant is the
// explicit backing type name ("u32", "i16", ...).
type EnumItem struct {
	Name         string        `json:"name"`
	Public       bool          `json:"public"`
	Discriminant string        `json:"discriminant"`
	Variants     []EnumVariant `json:"variants"`
}

// EnumVariant is one named discriminant.
type EnumVariant struct {
	Name  string `json:"name"`
	Value *Lit   `json:"value"`
}

// UnionItem is a union definition, literal or from a UNION! body.
type UnionItem struct {
	Name   string      `json:"name"`
	Public bool        `json:"public"`
	Repr   Repr        `json:"repr"`
	Fields []FieldItem `json:"fields"`
}

// FlagsBody is the pre-parsed body of a bitflags! invocation.
type FlagsBody struct {
	Name   string      `json:"name"`
	Public bool        `json:"public"`
	Repr   string      `json:"repr"` // backing integer type name
	Consts []FlagConst `json:"consts"`
}

// FlagConst is one named flag value.
type FlagConst struct {
	Name  string `json:"name"`
	Value *Lit   `json:"value"`
}

// ModItem is an inline `mod name { ... }`.
type ModItem struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// TypeKind discriminates type expressions.
type TypeKind string

const (
	TypePath   TypeKind = "path"
	TypePtr    TypeKind = "ptr"
	TypeArray  TypeKind = "array"
	TypeBareFn TypeKind = "bare_fn"
)

// Type is a type expression. Exactly one variant pointer is non-nil.
type Type struct {
	Kind TypeKind `json:"kind"`

	Path   *PathType   `json:"path,omitempty"`
	Ptr    *PtrType    `json:"ptr,omitempty"`
	Array  *ArrayType  `json:"array,omitempty"`
	BareFn *BareFnType `json:"bare_fn,omitempty"`
}

// PathType is a (possibly qualified) named type reference.
type PathType struct {
	Segments []string `json:"segments"`
	Generics []*Type  `json:"generics,omitempty"`
}

// PtrType is a raw pointer. Const distinguishes *const from *mut.
type PtrType struct {
	Const bool  `json:"const"`
	Elem  *Type `json:"elem"`
}

// ArrayType is a fixed-length array with the length known at translation
// time.
type ArrayType struct {
	Len  uint64 `json:"len"`
	Elem *Type  `json:"elem"`
}

// BareFnType is a function-pointer type.
type BareFnType struct {
	ABI      string  `json:"abi"`
	Params   []Param `json:"params"`
	Ret      *Type   `json:"ret,omitempty"`
	Variadic bool    `json:"variadic,omitempty"`
}

// LitKind discriminates literal values.
type LitKind string

const (
	LitInt LitKind = "int"
	LitStr LitKind = "str"
)

// Lit is a literal constant value. Integer literals keep their source text
// so radix and width survive to expansion.
type Lit struct {
	Kind LitKind `json:"kind"`
	Text string  `json:"text"`
}
