package dna

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/hcore/internal/ir"
)

// CompileError is a compilation error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile converts the value of a "dna" struct into an ir.Dna.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	d, err := dna.Compile(v.LookupPath(cue.ParsePath("dna")))
func Compile(v cue.Value) (*ir.Dna, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "dna", Message: "dna is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	d := &ir.Dna{Zomes: map[string]ir.Zome{}}

	name, err := requiredString(v, "name")
	if err != nil {
		return nil, err
	}
	d.Name = name

	if d.Version, err = optionalString(v, "version"); err != nil {
		return nil, err
	}
	if d.UUID, err = optionalString(v, "uuid"); err != nil {
		return nil, err
	}

	zomesVal := v.LookupPath(cue.ParsePath("zome"))
	if !zomesVal.Exists() {
		return nil, &CompileError{Field: "zome", Message: "at least one zome is required", Pos: v.Pos()}
	}
	iter, err := zomesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		zome, err := compileZome(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		d.Zomes[iter.Label()] = zome
	}
	if len(d.Zomes) == 0 {
		return nil, &CompileError{Field: "zome", Message: "at least one zome is required", Pos: zomesVal.Pos()}
	}

	return d, nil
}

func compileZome(name string, v cue.Value) (ir.Zome, error) {
	zome := ir.Zome{EntryTypes: map[string]ir.EntryTypeDef{}}

	desc, err := optionalString(v, "description")
	if err != nil {
		return zome, err
	}
	zome.Description = desc

	if typesVal := v.LookupPath(cue.ParsePath("entry_type")); typesVal.Exists() {
		iter, err := typesVal.Fields()
		if err != nil {
			return zome, formatCUEError(err)
		}
		for iter.Next() {
			def, err := compileEntryType(name, iter.Label(), iter.Value())
			if err != nil {
				return zome, err
			}
			zome.EntryTypes[iter.Label()] = def
		}
	}

	if fnsVal := v.LookupPath(cue.ParsePath("function")); fnsVal.Exists() {
		iter, err := fnsVal.Fields()
		if err != nil {
			return zome, formatCUEError(err)
		}
		for iter.Next() {
			fn, err := compileFunction(iter.Label(), iter.Value())
			if err != nil {
				return zome, err
			}
			zome.Functions = append(zome.Functions, fn)
		}
	}

	return zome, nil
}

func compileEntryType(zome, name string, v cue.Value) (ir.EntryTypeDef, error) {
	var def ir.EntryTypeDef

	desc, err := optionalString(v, "description")
	if err != nil {
		return def, err
	}
	def.Description = desc

	sharing, err := optionalString(v, "sharing")
	if err != nil {
		return def, err
	}
	switch ir.Sharing(sharing) {
	case "":
		def.Sharing = ir.SharingPublic
	case ir.SharingPublic, ir.SharingPrivate:
		def.Sharing = ir.Sharing(sharing)
	default:
		return def, &CompileError{
			Field:   fmt.Sprintf("zome.%s.entry_type.%s.sharing", zome, name),
			Message: fmt.Sprintf("sharing must be %q or %q, got %q", ir.SharingPublic, ir.SharingPrivate, sharing),
			Pos:     v.LookupPath(cue.ParsePath("sharing")).Pos(),
		}
	}
	return def, nil
}

func compileFunction(name string, v cue.Value) (ir.FnDeclaration, error) {
	fn := ir.FnDeclaration{Name: name}

	var err error
	if fn.Inputs, err = compileParams(v, "inputs"); err != nil {
		return fn, err
	}
	if fn.Outputs, err = compileParams(v, "outputs"); err != nil {
		return fn, err
	}
	return fn, nil
}

// compileParams renders each field of v.field as "name:type", in
// declaration order.
func compileParams(v cue.Value, field string) ([]string, error) {
	paramsVal := v.LookupPath(cue.ParsePath(field))
	if !paramsVal.Exists() {
		return nil, nil
	}
	iter, err := paramsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var params []string
	for iter.Next() {
		typ, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		params = append(params, iter.Label()+":"+typ)
	}
	return params, nil
}

// extractTypeName maps a CUE kind to a JSON parameter type. Floats are
// rejected because canonical JSON carries integers only.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.ListKind:
		return "array", nil
	case cue.StructKind:
		return "object", nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are not supported, use int",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError returns the first CUE error as a CompileError carrying
// its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
