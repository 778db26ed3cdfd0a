package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/hcore/internal/state"
)

// evaluate checks one assertion against the run's signals and final state.
func (h *Harness) evaluate(a Assertion, result *Result, final *state.State) error {
	switch a.Type {
	case AssertSignalOrder:
		return assertOrder(result.Kinds, a.Kinds)
	case AssertSignalCount:
		n := 0
		for _, k := range result.Kinds {
			if k == a.Kind {
				n++
			}
		}
		if n != a.Count {
			return fmt.Errorf("expected %d %s signal(s), got %d", a.Count, a.Kind, n)
		}
	case AssertChainLength:
		if got := final.Agent.ChainLength(); got != a.Count {
			return fmt.Errorf("expected chain length %d, got %d", a.Count, got)
		}
	case AssertHeld:
		addr, err := h.address(a.Entry)
		if err != nil {
			return err
		}
		if _, ok := final.Dht.Held(addr); !ok {
			return fmt.Errorf("%s is not held", a.Entry)
		}
	case AssertPendingValidations:
		if got := final.Nucleus.PendingValidationCount(); got != a.Count {
			return fmt.Errorf("expected %d pending validation(s), got %d", a.Count, got)
		}
	case AssertMessagesSent:
		if h.loopback == nil {
			return fmt.Errorf("scenario has no network")
		}
		if got := len(h.loopback.Sent()); got != a.Count {
			return fmt.Errorf("expected %d message(s) sent, got %d", a.Count, got)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// assertOrder checks that want appears in got as a subsequence.
func assertOrder(got, want []string) error {
	rest := got
	for _, kind := range want {
		i := slices.Index(rest, kind)
		if i < 0 {
			return fmt.Errorf("%s not found in order; signals were %v", kind, got)
		}
		rest = rest[i+1:]
	}
	return nil
}
