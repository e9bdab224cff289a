package typemap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zigbind/zigbind/internal/ir"
)

// MappingError reports a source construct with no valid target equivalent.
type MappingError struct {
	Construct  string // "integer", "calling convention", "path", ...
	Message    string
	Unresolved bool // set when the failure is an unresolved reference
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map %s: %s", e.Construct, e.Message)
}

// IsUnresolved reports whether err is a MappingError caused by an
// unresolved reference (already diagnosed by the resolver; the emitter
// omits rather than re-reports).
func IsUnresolved(err error) bool {
	var me *MappingError
	return errors.As(err, &me) && me.Unresolved
}

// Map converts one IR type into the target spelling under the profile.
// fromModule is the module key of the referencing declaration (path
// references are module-relative). Pure function: identical inputs yield
// identical output on every run.
func Map(t *ir.Type, fromModule string, names Namer, p *Profile) (string, error) {
	switch t.Kind {
	case ir.TypePrimitive:
		return mapPrimitive(*t.Primitive, p)
	case ir.TypePointer:
		return mapPointer(t.Pointer, fromModule, names, p)
	case ir.TypeArray:
		elem, err := Map(t.Array.Elem, fromModule, names, p)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(p.Syntax.Array, t.Array.Len, elem), nil
	case ir.TypeFuncPtr:
		return mapFuncPtr(t.FuncPtr, fromModule, names, p)
	case ir.TypePath:
		return mapPath(t.Path, fromModule, names, p)
	default:
		return "", &MappingError{Construct: "type", Message: fmt.Sprintf("unknown type kind %q", t.Kind)}
	}
}

// MapReturn converts a function return type; nil means no return value.
func MapReturn(t *ir.Type, fromModule string, names Namer, p *Profile) (string, error) {
	if t == nil {
		return p.Syntax.Void, nil
	}
	return Map(t, fromModule, names, p)
}

// MapCallConv converts a source calling-convention name to the target
// spelling. An untranslatable convention is a hard error: approximating a
// parameter-passing protocol corrupts every call through the signature.
func MapCallConv(conv string, p *Profile) (string, error) {
	if spelled, ok := p.CallConvs[conv]; ok {
		return spelled, nil
	}
	return "", &MappingError{
		Construct: "calling convention",
		Message:   fmt.Sprintf("%q has no target equivalent (supported: %s)", conv, strings.Join(p.CallConvNames(), ", ")),
	}
}

func mapPrimitive(prim ir.Primitive, p *Profile) (string, error) {
	switch prim.Class {
	case ir.Bool:
		return p.Syntax.Bool, nil
	case ir.Void:
		return p.Syntax.Void, nil
	case ir.Float:
		if !p.HasFloatWidth(prim.Bits) {
			return "", &MappingError{
				Construct: "float",
				Message:   fmt.Sprintf("target has no %d-bit float type", prim.Bits),
			}
		}
		return fmt.Sprintf(p.Syntax.Float, prim.Bits), nil
	case ir.Signed, ir.Unsigned:
		if prim.Bits == 0 {
			if !p.HasPointerSized {
				return "", &MappingError{
					Construct: "integer",
					Message:   "target has no pointer-sized integer type",
				}
			}
			if prim.Class == ir.Signed {
				return p.Syntax.PointerSizedSigned, nil
			}
			return p.Syntax.PointerSizedUnsigned, nil
		}
		if !p.HasIntegerWidth(prim.Bits) {
			return "", &MappingError{
				Construct: "integer",
				Message:   fmt.Sprintf("target has no %d-bit integer type", prim.Bits),
			}
		}
		if prim.Class == ir.Signed {
			return fmt.Sprintf(p.Syntax.SignedInt, prim.Bits), nil
		}
		return fmt.Sprintf(p.Syntax.UnsignedInt, prim.Bits), nil
	default:
		return "", &MappingError{Construct: "primitive", Message: fmt.Sprintf("unknown class %q", prim.Class)}
	}
}

// mapPointer keeps constness bit-for-bit and always produces the target's
// raw pointer, never an ownership-tracked reference.
func mapPointer(ptr *ir.PointerType, fromModule string, names Namer, p *Profile) (string, error) {
	var pointee string
	if ptr.Elem.Kind == ir.TypePrimitive && ptr.Elem.Primitive.Class == ir.Void {
		pointee = p.Syntax.VoidPointee
	} else {
		mapped, err := Map(ptr.Elem, fromModule, names, p)
		if err != nil {
			return "", err
		}
		pointee = mapped
	}
	if ptr.Const {
		return fmt.Sprintf(p.Syntax.ConstPointer, pointee), nil
	}
	return fmt.Sprintf(p.Syntax.MutPointer, pointee), nil
}

func mapFuncPtr(fp *ir.FuncPtrType, fromModule string, names Namer, p *Profile) (string, error) {
	conv, err := MapCallConv(fp.CallConv, p)
	if err != nil {
		return "", err
	}
	if fp.Variadic && !p.VariadicFuncPtrs {
		return "", &MappingError{
			Construct: "function pointer",
			Message:   "target does not support C-variadic function-pointer types",
		}
	}
	params := make([]string, 0, len(fp.Params)+1)
	for _, param := range fp.Params {
		mapped, err := Map(param.Type, fromModule, names, p)
		if err != nil {
			return "", err
		}
		params = append(params, mapped)
	}
	if fp.Variadic {
		params = append(params, "...")
	}
	ret, err := MapReturn(fp.Ret, fromModule, names, p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(p.Syntax.FuncPtr, strings.Join(params, ", "), conv, ret), nil
}

func mapPath(path *ir.PathType, fromModule string, names Namer, p *Profile) (string, error) {
	if len(path.Generics) > 0 {
		return "", &MappingError{
			Construct: "path",
			Message:   fmt.Sprintf("%s: generic type arguments have no target equivalent", path.Key()),
		}
	}
	if name, ok := names.TargetName(fromModule, path); ok {
		return name, nil
	}
	if p.OpaquePlaceholder != "" {
		return p.OpaquePlaceholder, nil
	}
	return "", &MappingError{
		Construct:  "path",
		Message:    fmt.Sprintf("%s does not resolve to a declaration", path.Key()),
		Unresolved: true,
	}
}
