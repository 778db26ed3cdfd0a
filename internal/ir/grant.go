package ir

import (
	"fmt"
	"slices"
)

// CapabilityType determines who may exercise a grant.
type CapabilityType string

const (
	// CapPublic admits any caller presenting the token with a valid signature.
	CapPublic CapabilityType = "public"
	// CapTransferable admits any holder of the token.
	CapTransferable CapabilityType = "transferable"
	// CapAssigned admits only the listed assignees.
	CapAssigned CapabilityType = "assigned"
)

// CapFunctions maps zome names to the functions a grant authorizes.
type CapFunctions map[string][]string

// Allows reports whether fn of zome is authorized.
func (f CapFunctions) Allows(zome, fn string) bool {
	fns, ok := f[zome]
	return ok && slices.Contains(fns, fn)
}

// CapTokenGrant binds a token to a capability type and an authorized set of
// zome functions. The token is the address of the grant's own chain entry.
type CapTokenGrant struct {
	ID        string         `json:"id"`
	Type      CapabilityType `json:"cap_type"`
	Assignees []Address      `json:"assignees,omitempty"`
	Functions CapFunctions   `json:"functions"`
}

// NewCapTokenGrant builds a grant, checking that the assignee list fits
// the type: Public and Transferable grants carry none, Assigned grants at
// least one.
func NewCapTokenGrant(id string, typ CapabilityType, assignees []Address, functions CapFunctions) (CapTokenGrant, error) {
	switch typ {
	case CapPublic, CapTransferable:
		if len(assignees) > 0 {
			return CapTokenGrant{}, fmt.Errorf("%w: %s grant cannot have assignees", ErrInvalidGrant, typ)
		}
	case CapAssigned:
		if len(assignees) == 0 {
			return CapTokenGrant{}, fmt.Errorf("%w: assigned grant needs at least one assignee", ErrInvalidGrant)
		}
	default:
		return CapTokenGrant{}, fmt.Errorf("%w: unknown capability type %q", ErrInvalidGrant, typ)
	}
	if functions == nil {
		functions = CapFunctions{}
	}
	return CapTokenGrant{
		ID:        id,
		Type:      typ,
		Assignees: slices.Clone(assignees),
		Functions: functions,
	}, nil
}

// Token returns the grant's token: the address of its chain entry.
func (g CapTokenGrant) Token() (Address, error) {
	return AddressOf(CapTokenGrantEntry{Grant: g})
}

// IsAssignee reports whether addr is listed as an assignee.
func (g CapTokenGrant) IsAssignee(addr Address) bool {
	return slices.Contains(g.Assignees, addr)
}
