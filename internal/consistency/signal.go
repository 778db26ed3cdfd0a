package consistency

import (
	"encoding/json"
	"fmt"
)

// Group is the population of nodes expected to observe a pending event.
type Group string

const (
	// Source is the authoring node itself.
	Source Group = "Source"
	// Validators are the peers responsible for holding the content.
	Validators Group = "Validators"
)

// Pending is a predicted follow-up event.
type Pending[E any] struct {
	Event E     `json:"event"`
	Group Group `json:"group"`
}

// Signal is a headline event plus its predicted follow-ups. A signal with
// no pending events is terminal.
type Signal[E any] struct {
	Event   E            `json:"event"`
	Pending []Pending[E] `json:"pending"`
}

// NewTerminal returns a signal with no follow-ups.
func NewTerminal[E any](event E) Signal[E] {
	return Signal[E]{Event: event, Pending: []Pending[E]{}}
}

// NewPending returns a signal whose follow-ups all belong to group.
func NewPending[E any](event E, group Group, pending ...E) Signal[E] {
	p := make([]Pending[E], 0, len(pending))
	for _, e := range pending {
		p = append(p, Pending[E]{Event: e, Group: group})
	}
	return Signal[E]{Event: event, Pending: p}
}

// Terminal reports whether the signal has no follow-ups.
func (s Signal[E]) Terminal() bool {
	return len(s.Pending) == 0
}

// Export converts a signal to its out-of-process form, in which the
// headline and each pending event are independently JSON encoded strings.
func Export(s Signal[Event]) (Signal[string], error) {
	head, err := json.Marshal(s.Event)
	if err != nil {
		return Signal[string]{}, fmt.Errorf("export signal: %w", err)
	}
	out := Signal[string]{Event: string(head), Pending: make([]Pending[string], 0, len(s.Pending))}
	for i, p := range s.Pending {
		data, err := json.Marshal(p.Event)
		if err != nil {
			return Signal[string]{}, fmt.Errorf("export signal: pending[%d]: %w", i, err)
		}
		out.Pending = append(out.Pending, Pending[string]{Event: string(data), Group: p.Group})
	}
	return out, nil
}
