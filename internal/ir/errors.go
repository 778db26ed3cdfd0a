package ir

import "errors"

var (
	// ErrZomeNotFound is returned when a DNA does not declare a zome.
	ErrZomeNotFound = errors.New("zome not found")

	// ErrFunctionNotFound is returned when a zome does not declare a function.
	ErrFunctionNotFound = errors.New("function not found")

	// ErrInvalidGrant is returned for a grant whose assignees do not fit its type.
	ErrInvalidGrant = errors.New("invalid capability grant")
)
