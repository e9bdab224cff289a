package symtab

import (
	"fmt"

	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/ir"
)

// Layout is the computed memory shape of a layout-sensitive declaration.
type Layout struct {
	Size    uint64
	Align   uint64
	Offsets []uint64 // per field, structs only
}

// maxScalarAlign caps natural alignment the way the native C ABI does
// (16 for 128-bit scalars).
const maxScalarAlign = 16

// LayoutComputer derives C-compatible sizes, alignments, and field offsets
// from resolved IR. PtrBytes is the target pointer width in bytes.
type LayoutComputer struct {
	res      *Resolution
	ptrBytes uint64
	memo     map[string]Layout
	visiting map[string]bool
}

// NewLayoutComputer builds a computer over a resolution.
func NewLayoutComputer(res *Resolution, ptrBytes uint64) *LayoutComputer {
	return &LayoutComputer{
		res:      res,
		ptrBytes: ptrBytes,
		memo:     make(map[string]Layout),
		visiting: make(map[string]bool),
	}
}

// Declaration computes the layout of a struct, union, enum, or alias
// declaration. Declarations with no by-value layout (functions, opaque
// structs, constants) are errors.
func (lc *LayoutComputer) Declaration(d *ir.Declaration) (Layout, error) {
	key := d.Name.String()
	if l, ok := lc.memo[key]; ok {
		return l, nil
	}
	if lc.visiting[key] {
		// Value cycles are diagnosed separately; refuse to recurse forever.
		return Layout{}, fmt.Errorf("%s: cyclic by-value containment", key)
	}
	lc.visiting[key] = true
	defer delete(lc.visiting, key)

	var (
		l   Layout
		err error
	)
	switch d.Kind {
	case ir.DeclStruct:
		if d.Struct.Opaque {
			return Layout{}, fmt.Errorf("%s: opaque type has no size", key)
		}
		l, err = lc.structLayout(d.Name.ModuleKey(), d.Struct.Fields, d.Struct.Layout)
	case ir.DeclUnion:
		l, err = lc.unionLayout(d.Name.ModuleKey(), d.Union.Fields)
	case ir.DeclEnum:
		size := uint64(d.Enum.Discriminant.Bits) / 8
		l = Layout{Size: size, Align: size}
	case ir.DeclAlias:
		var size, align uint64
		size, align, err = lc.typeLayout(d.Name.ModuleKey(), d.Alias.Target)
		l = Layout{Size: size, Align: align}
	default:
		return Layout{}, fmt.Errorf("%s: %s declaration has no by-value layout", key, d.Kind)
	}
	if err != nil {
		return Layout{}, err
	}
	lc.memo[key] = l
	return l, nil
}

func (lc *LayoutComputer) structLayout(fromModule string, fields []ir.Field, mode ir.LayoutMode) (Layout, error) {
	packed := mode == ir.LayoutPacked
	var (
		offset   uint64
		maxAlign uint64 = 1
		offsets  []uint64
	)
	for _, f := range fields {
		size, align, err := lc.typeLayout(fromModule, f.Type)
		if err != nil {
			return Layout{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if packed {
			align = 1
		}
		offset = alignUp(offset, align)
		offsets = append(offsets, offset)
		offset += size
		if align > maxAlign {
			maxAlign = align
		}
	}
	return Layout{
		Size:    alignUp(offset, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}, nil
}

func (lc *LayoutComputer) unionLayout(fromModule string, fields []ir.Field) (Layout, error) {
	var (
		maxSize  uint64
		maxAlign uint64 = 1
	)
	for _, f := range fields {
		size, align, err := lc.typeLayout(fromModule, f.Type)
		if err != nil {
			return Layout{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if size > maxSize {
			maxSize = size
		}
		if align > maxAlign {
			maxAlign = align
		}
	}
	return Layout{Size: alignUp(maxSize, maxAlign), Align: maxAlign}, nil
}

func (lc *LayoutComputer) typeLayout(fromModule string, t *ir.Type) (size, align uint64, err error) {
	switch t.Kind {
	case ir.TypePrimitive:
		return lc.primitiveLayout(*t.Primitive)
	case ir.TypePointer, ir.TypeFuncPtr:
		return lc.ptrBytes, lc.ptrBytes, nil
	case ir.TypeArray:
		elemSize, elemAlign, err := lc.typeLayout(fromModule, t.Array.Elem)
		if err != nil {
			return 0, 0, err
		}
		return elemSize * t.Array.Len, elemAlign, nil
	case ir.TypePath:
		target, ok := lc.res.Target(fromModule, t.Path)
		if !ok {
			return 0, 0, fmt.Errorf("unresolved reference %s", t.Path.Key())
		}
		l, err := lc.Declaration(target)
		if err != nil {
			return 0, 0, err
		}
		return l.Size, l.Align, nil
	default:
		return 0, 0, fmt.Errorf("unknown type kind %q", t.Kind)
	}
}

func (lc *LayoutComputer) primitiveLayout(p ir.Primitive) (size, align uint64, err error) {
	switch p.Class {
	case ir.Void:
		return 0, 0, fmt.Errorf("void has no by-value layout")
	case ir.Bool:
		return 1, 1, nil
	default:
		if p.Bits == 0 {
			return lc.ptrBytes, lc.ptrBytes, nil
		}
		size = uint64(p.Bits) / 8
		align = size
		if align > maxScalarAlign {
			align = maxScalarAlign
		}
		return size, align, nil
	}
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

// VerifyLayouts computes the layout of every layout-sensitive declaration
// and records a LayoutMismatch diagnostic where the computation fails (an
// unresolved or unsized by-value field means the emitted layout cannot be
// proven equal to the source's). Severity is error when the source
// explicitly demanded exact native layout (C or packed), warning otherwise.
// Declarations already condemned by cycle analysis are skipped.
func VerifyLayouts(res *Resolution, ptrBytes uint64, skip map[string]bool, sink *diag.Collector) {
	lc := NewLayoutComputer(res, ptrBytes)
	for _, mod := range res.table.Modules() {
		for _, d := range res.table.Module(mod) {
			key := d.Name.String()
			if skip[key] {
				continue
			}
			var mode ir.LayoutMode
			switch d.Kind {
			case ir.DeclStruct:
				if d.Struct.Opaque {
					continue
				}
				mode = d.Struct.Layout
			case ir.DeclUnion:
				mode = d.Union.Layout
			default:
				continue
			}
			if _, err := lc.Declaration(d); err != nil {
				sev := diag.SeverityWarning
				if mode == ir.LayoutC || mode == ir.LayoutPacked {
					sev = diag.SeverityError
				}
				sink.Addf(sev, diag.CodeLayoutMismatch, key, d.Loc,
					"cannot prove native layout: %v", err)
			}
		}
	}
}
