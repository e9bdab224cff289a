package ir

import "fmt"

// ValidationError reports one structural defect in a declaration.
type ValidationError struct {
	Name    QualifiedName
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Name, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Validate checks a declaration's structural invariants. It collects every
// defect rather than stopping at the first, so diagnostics stay complete.
func Validate(d *Declaration) []error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Name:    d.Name,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if d.Name.Name == "" {
		fail("name", "declaration has no name")
	}

	variants := 0
	for _, set := range []bool{
		d.Struct != nil, d.Enum != nil, d.Union != nil,
		d.Function != nil, d.Alias != nil, d.Constant != nil, d.Reexport != nil,
	} {
		if set {
			variants++
		}
	}
	if variants != 1 {
		fail("", "declaration must have exactly one variant, has %d", variants)
		return errs
	}

	switch d.Kind {
	case DeclStruct:
		if d.Struct == nil {
			fail("", "kind %q without matching variant", d.Kind)
			break
		}
		if d.Struct.Layout == LayoutTransparent && len(d.Struct.Fields) != 1 {
			fail("layout", "transparent layout requires exactly one field, has %d", len(d.Struct.Fields))
		}
		if d.Struct.Opaque && len(d.Struct.Fields) != 0 {
			fail("fields", "opaque struct must have no fields")
		}
		for i, f := range d.Struct.Fields {
			if f.Type == nil {
				fail("fields", "field %d (%s) has no type", i, f.Name)
			}
		}
	case DeclUnion:
		if d.Union == nil {
			fail("", "kind %q without matching variant", d.Kind)
			break
		}
		if len(d.Union.Fields) == 0 {
			fail("fields", "union must have at least one field")
		}
		for i, f := range d.Union.Fields {
			if f.Type == nil {
				fail("fields", "field %d (%s) has no type", i, f.Name)
			}
		}
	case DeclEnum:
		if d.Enum == nil {
			fail("", "kind %q without matching variant", d.Kind)
			break
		}
		switch d.Enum.Discriminant.Class {
		case Signed, Unsigned:
		default:
			fail("discriminant", "enum discriminant must be an integer type")
		}
		if d.Enum.Discriminant.Bits == 0 {
			fail("discriminant", "enum discriminant width must be explicit")
		}
		seen := make(map[string]bool, len(d.Enum.Variants))
		for _, v := range d.Enum.Variants {
			if seen[v.Name] {
				fail("variants", "duplicate variant %q", v.Name)
			}
			seen[v.Name] = true
		}
	case DeclFunction:
		if d.Function == nil {
			fail("", "kind %q without matching variant", d.Kind)
			break
		}
		if d.Function.LinkName == "" {
			fail("link_name", "function must carry its native linkage name")
		}
		if d.Function.CallConv == "" {
			fail("call_conv", "function must carry a calling convention")
		}
		for i, p := range d.Function.Params {
			if p.Type == nil {
				fail("params", "parameter %d (%s) has no type", i, p.Name)
			}
		}
	case DeclAlias:
		if d.Alias == nil || d.Alias.Target == nil {
			fail("target", "alias must have a target type")
		}
	case DeclConstant:
		if d.Constant == nil {
			fail("", "kind %q without matching variant", d.Kind)
		}
	case DeclReexport:
		if d.Reexport == nil || len(d.Reexport.Target) < 2 {
			fail("target", "re-export must name a module-qualified target")
		}
	default:
		fail("kind", "unknown declaration kind %q", d.Kind)
	}

	return errs
}
