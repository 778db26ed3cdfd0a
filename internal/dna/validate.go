package dna

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/hcore/internal/ir"
)

// Validation error codes.
const (
	ErrNameEmpty          = "E101" // dna name is required
	ErrNoZomes            = "E102" // at least one zome
	ErrNoFunctions        = "E103" // zome declares no functions
	ErrDuplicateFunction  = "E104" // function declared twice in a zome
	ErrDuplicateEntryType = "E105" // app entry type declared by two zomes
	ErrReservedEntryType  = "E106" // app entry type uses the system prefix
	ErrInvalidSharing     = "E107" // sharing is neither public nor private
)

// ValidationError is one rule violation found in a compiled DNA.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks d against the rules Compile cannot express in CUE. It
// returns every violation, in zome-name order.
func Validate(d *ir.Dna) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required and must be non-empty", Code: ErrNameEmpty})
	}
	if len(d.Zomes) == 0 {
		errs = append(errs, ValidationError{Field: "zome", Message: "at least one zome is required", Code: ErrNoZomes})
	}

	names := make([]string, 0, len(d.Zomes))
	for name := range d.Zomes {
		names = append(names, name)
	}
	slices.Sort(names)

	declaredBy := map[string]string{}
	for _, zomeName := range names {
		zome := d.Zomes[zomeName]

		if len(zome.Functions) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("zome.%s.function", zomeName),
				Message: fmt.Sprintf("zome %q declares no functions", zomeName),
				Code:    ErrNoFunctions,
			})
		}
		seen := map[string]bool{}
		for _, fn := range zome.Functions {
			if seen[fn.Name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("zome.%s.function.%s", zomeName, fn.Name),
					Message: fmt.Sprintf("duplicate function name: %q", fn.Name),
					Code:    ErrDuplicateFunction,
				})
			}
			seen[fn.Name] = true
		}

		types := make([]string, 0, len(zome.EntryTypes))
		for t := range zome.EntryTypes {
			types = append(types, t)
		}
		slices.Sort(types)
		for _, t := range types {
			field := fmt.Sprintf("zome.%s.entry_type.%s", zomeName, t)
			if strings.HasPrefix(t, "%") {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("entry type %q uses the reserved %% prefix", t),
					Code:    ErrReservedEntryType,
				})
			}
			if other, ok := declaredBy[t]; ok {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("entry type %q is already declared by zome %q", t, other),
					Code:    ErrDuplicateEntryType,
				})
			} else {
				declaredBy[t] = zomeName
			}
			switch zome.EntryTypes[t].Sharing {
			case ir.SharingPublic, ir.SharingPrivate:
			default:
				errs = append(errs, ValidationError{
					Field:   field + ".sharing",
					Message: fmt.Sprintf("invalid sharing %q", zome.EntryTypes[t].Sharing),
					Code:    ErrInvalidSharing,
				})
			}
		}
	}
	return errs
}
