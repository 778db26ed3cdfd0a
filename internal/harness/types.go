package harness

import "fmt"

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool

	// Kinds lists the event kind of every signal, in emission order.
	Kinds []string

	// Trace holds the exported signals, one JSON line each, with every
	// known address replaced by "@alias".
	Trace []string

	// Errors describes each failed expectation.
	Errors []string
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
