package profile

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/zigbind/zigbind/internal/typemap"
)

// schema constrains profile files. CUE unification rejects a malformed
// profile before it can misconfigure the mapper; defaults fill in what a
// file omits.
const schema = `
#Syntax: {
	const_pointer:          string
	mut_pointer:            string
	void_pointee:           string
	array:                  string
	func_ptr:               string
	signed_int:             string
	unsigned_int:           string
	float:                  string
	pointer_sized_signed:   string
	pointer_sized_unsigned: string
	bool:                   string
	void:                   string
	struct_c:               string
	struct_packed:          string
	struct_plain:           string
	union_c:                string
	opaque:                 string
	tagged_enum:            string
	forward_decl?:          string
}

#Profile: {
	name:                 string & !=""
	integer_widths:       [...int & >0]
	float_widths:         [...int & >0]
	has_pointer_sized:    bool | *true
	call_convs:           {[string]: string}
	reserved_words:       [...string]
	opaque_placeholder?:  string
	forward_declarations: bool | *false
	variadic_func_ptrs:   bool | *false
	pointer_bits:         int & >0 | *64
	file_extension:       string & !=""
	syntax:               #Syntax
}

profile: #Profile
`

// LoadError reports a profile file that failed schema validation.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("profile %s: %s", e.Path, e.Message)
}

// Load reads a profile definition from a CUE file and validates it against
// the embedded schema.
func Load(path string) (*typemap.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(schema)
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("profile schema: %w", err)
	}

	fileVal := ctx.CompileBytes(data)
	if err := fileVal.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: formatCUEError(err)}
	}

	unified := schemaVal.Unify(fileVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Path: path, Message: formatCUEError(err)}
	}

	var p typemap.Profile
	if err := unified.LookupPath(cue.ParsePath("profile")).Decode(&p); err != nil {
		return nil, &LoadError{Path: path, Message: formatCUEError(err)}
	}
	return &p, nil
}

// formatCUEError flattens CUE's error list into one readable message.
func formatCUEError(err error) string {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return err.Error()
	}
	msg := ""
	for i, e := range list {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return msg
}
