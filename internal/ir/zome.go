package ir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CapabilityRequest accompanies every zome call: the token being exercised
// and the caller's signed provenance.
type CapabilityRequest struct {
	CapToken   Address    `json:"cap_token"`
	Provenance Provenance `json:"provenance"`
}

// ZomeFnCall describes one invocation of a zome function. ID keys the
// completion future and pairs SignalZomeFunctionCall with
// ReturnZomeFunctionResult.
type ZomeFnCall struct {
	ID         string            `json:"id"`
	ZomeName   string            `json:"zome_name"`
	FnName     string            `json:"fn_name"`
	Cap        CapabilityRequest `json:"capability_request"`
	Parameters json.RawMessage   `json:"parameters"`
}

// ParametersString returns the parameters exactly as they were signed.
func (c ZomeFnCall) ParametersString() string {
	if len(c.Parameters) == 0 {
		return "null"
	}
	return string(c.Parameters)
}

// ZomeFnResult is the outcome of a zome function: an opaque JSON value on
// success or an error message. It serializes as {"Ok":<value>} or
// {"Err":"<message>"}.
type ZomeFnResult struct {
	Value json.RawMessage
	Err   string
}

// OkResult wraps a successful JSON value.
func OkResult(v json.RawMessage) ZomeFnResult {
	if len(v) == 0 {
		v = json.RawMessage("null")
	}
	return ZomeFnResult{Value: v}
}

// ErrResult wraps a failure.
func ErrResult(err error) ZomeFnResult {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return ZomeFnResult{Err: msg}
}

// IsErr reports whether the result is a failure.
func (r ZomeFnResult) IsErr() bool {
	return r.Err != ""
}

// Unwrap returns the value or the failure as an error.
func (r ZomeFnResult) Unwrap() (json.RawMessage, error) {
	if r.IsErr() {
		return nil, errors.New(r.Err)
	}
	return r.Value, nil
}

func (r ZomeFnResult) MarshalJSON() ([]byte, error) {
	if r.IsErr() {
		return json.Marshal(map[string]string{"Err": r.Err})
	}
	v := r.Value
	if len(v) == 0 {
		v = json.RawMessage("null")
	}
	return json.Marshal(map[string]json.RawMessage{"Ok": v})
}

func (r *ZomeFnResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("zome fn result: expected exactly one of Ok or Err")
	}
	if v, ok := raw["Ok"]; ok {
		*r = ZomeFnResult{Value: v}
		return nil
	}
	if v, ok := raw["Err"]; ok {
		var msg string
		if err := json.Unmarshal(v, &msg); err != nil {
			return fmt.Errorf("zome fn result: Err: %w", err)
		}
		*r = ErrResult(errors.New(msg))
		return nil
	}
	return fmt.Errorf("zome fn result: expected Ok or Err")
}

// ExecuteZomeFnResponse pairs a call with its result.
type ExecuteZomeFnResponse struct {
	Call   ZomeFnCall   `json:"call"`
	Result ZomeFnResult `json:"result"`
}
