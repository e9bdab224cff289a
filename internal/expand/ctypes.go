package expand

import (
	"fmt"

	"github.com/zigbind/zigbind/internal/ast"
	"github.com/zigbind/zigbind/internal/ir"
)

// ctypeAliases lowers the source corpus's C scalar alias names to IR
// primitives before anything downstream sees them. This is the same table
// the OS headers fix: c_long is 32-bit on this ABI regardless of host.
var ctypeAliases = map[string]ir.Primitive{
	"c_char":      {Class: ir.Signed, Bits: 8},
	"c_schar":     {Class: ir.Signed, Bits: 8},
	"c_uchar":     {Class: ir.Unsigned, Bits: 8},
	"c_short":     {Class: ir.Signed, Bits: 16},
	"c_ushort":    {Class: ir.Unsigned, Bits: 16},
	"c_int":       {Class: ir.Signed, Bits: 32},
	"c_uint":      {Class: ir.Unsigned, Bits: 32},
	"c_long":      {Class: ir.Signed, Bits: 32},
	"c_ulong":     {Class: ir.Unsigned, Bits: 32},
	"c_longlong":  {Class: ir.Signed, Bits: 64},
	"c_ulonglong": {Class: ir.Unsigned, Bits: 64},
	"c_float":     {Class: ir.Float, Bits: 32},
	"c_double":    {Class: ir.Float, Bits: 64},
	"c_void":      {Class: ir.Void, Bits: 0},
	"wchar_t":     {Class: ir.Unsigned, Bits: 16},
	"__int8":      {Class: ir.Signed, Bits: 8},
	"__uint8":     {Class: ir.Unsigned, Bits: 8},
	"__int16":     {Class: ir.Signed, Bits: 16},
	"__uint16":    {Class: ir.Unsigned, Bits: 16},
	"__int32":     {Class: ir.Signed, Bits: 32},
	"__uint32":    {Class: ir.Unsigned, Bits: 32},
	"__int64":     {Class: ir.Signed, Bits: 64},
	"__uint64":    {Class: ir.Unsigned, Bits: 64},
}

// convertType lowers a front-end type expression into an IR type. Known
// scalar spellings become primitives here; every other path stays symbolic
// for the resolver.
func (e *Expander) convertType(t *ast.Type) (*ir.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("missing type expression")
	}
	switch t.Kind {
	case ast.TypePath:
		return e.convertPath(t.Path)
	case ast.TypePtr:
		elem, err := e.convertType(t.Ptr.Elem)
		if err != nil {
			return nil, err
		}
		return &ir.Type{
			Kind:    ir.TypePointer,
			Pointer: &ir.PointerType{Const: t.Ptr.Const, Elem: elem},
		}, nil
	case ast.TypeArray:
		elem, err := e.convertType(t.Array.Elem)
		if err != nil {
			return nil, err
		}
		return &ir.Type{
			Kind:  ir.TypeArray,
			Array: &ir.ArrayType{Len: t.Array.Len, Elem: elem},
		}, nil
	case ast.TypeBareFn:
		params, err := e.convertParams(t.BareFn.Params)
		if err != nil {
			return nil, err
		}
		var ret *ir.Type
		if t.BareFn.Ret != nil {
			ret, err = e.convertType(t.BareFn.Ret)
			if err != nil {
				return nil, err
			}
		}
		return &ir.Type{
			Kind: ir.TypeFuncPtr,
			FuncPtr: &ir.FuncPtrType{
				CallConv: t.BareFn.ABI,
				Params:   params,
				Ret:      ret,
				Variadic: t.BareFn.Variadic,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported type expression kind %q", t.Kind)
	}
}

func (e *Expander) convertPath(p *ast.PathType) (*ir.Type, error) {
	if p == nil || len(p.Segments) == 0 {
		return nil, fmt.Errorf("empty type path")
	}

	segments := p.Segments
	// ctypes::c_int and bare c_int both lower through the alias table.
	if segments[0] == "ctypes" && len(segments) == 2 {
		segments = segments[1:]
	}
	if len(segments) == 1 && len(p.Generics) == 0 {
		if prim, ok := ctypeAliases[segments[0]]; ok {
			return ir.PrimitiveType(prim), nil
		}
		if prim, ok := ir.ParsePrimitive(segments[0]); ok {
			return ir.PrimitiveType(prim), nil
		}
	}

	generics := make([]*ir.Type, 0, len(p.Generics))
	for _, g := range p.Generics {
		gt, err := e.convertType(g)
		if err != nil {
			return nil, err
		}
		generics = append(generics, gt)
	}
	return &ir.Type{
		Kind: ir.TypePath,
		Path: &ir.PathType{Segments: segments, Generics: generics},
	}, nil
}
