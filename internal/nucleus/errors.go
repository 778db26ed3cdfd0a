package nucleus

import (
	"errors"
	"fmt"
)

// CallErrorCode categorizes zome call failures.
type CallErrorCode string

const (
	// CodeDnaMissing indicates the instance has no DNA installed.
	CodeDnaMissing CallErrorCode = "DNA_MISSING"

	// CodeZomeNotFound indicates the DNA has no zome with the call's name.
	CodeZomeNotFound CallErrorCode = "ZOME_NOT_FOUND"

	// CodeFunctionNotFound indicates the zome does not declare the function.
	CodeFunctionNotFound CallErrorCode = "FUNCTION_NOT_FOUND"

	// CodeCapabilityCheckFailed indicates neither a grant nor the self-call
	// rule admits the caller.
	CodeCapabilityCheckFailed CallErrorCode = "CAPABILITY_CHECK_FAILED"

	// CodeStateNotInitialized indicates state was read before the instance
	// published its first snapshot.
	CodeStateNotInitialized CallErrorCode = "STATE_NOT_INITIALIZED"

	// CodeActionChannelClosed indicates the instance stopped accepting or
	// processing actions.
	CodeActionChannelClosed CallErrorCode = "ACTION_CHANNEL_CLOSED"

	// CodeFunctionFailed indicates the zome function ran and returned an
	// error of its own.
	CodeFunctionFailed CallErrorCode = "FUNCTION_FAILED"

	// CodeResultExpired indicates the call returned but its result was
	// dropped from state before the caller read it.
	CodeResultExpired CallErrorCode = "RESULT_EXPIRED"
)

// CallError is the error returned by Bridge operations. No CallError is
// retried.
type CallError struct {
	Code     CallErrorCode
	Message  string
	Zome     string
	Function string
	Err      error
}

func (e *CallError) Error() string {
	if e.Zome != "" {
		return fmt.Sprintf("%s: %s (zome=%s, function=%s)", e.Code, e.Message, e.Zome, e.Function)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the CallError in err's chain, or "".
func CodeOf(err error) CallErrorCode {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCapabilityError reports whether err is a failed capability check.
func IsCapabilityError(err error) bool {
	return CodeOf(err) == CodeCapabilityCheckFailed
}

// IsConfigurationError reports whether err names a DNA, zome or function
// the instance does not have.
func IsConfigurationError(err error) bool {
	switch CodeOf(err) {
	case CodeDnaMissing, CodeZomeNotFound, CodeFunctionNotFound:
		return true
	}
	return false
}

// IsInfrastructureError reports whether err comes from the instance rather
// than the call.
func IsInfrastructureError(err error) bool {
	switch CodeOf(err) {
	case CodeStateNotInitialized, CodeActionChannelClosed:
		return true
	}
	return false
}

func newCallError(code CallErrorCode, zome, fn string, err error) *CallError {
	return &CallError{Code: code, Message: err.Error(), Zome: zome, Function: fn, Err: err}
}
