package network

import (
	"encoding/json"
	"errors"
	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/window"
)

// ErrNotInitialized is returned by State.Initialized until a network is
// attached and both the dna address and agent id are known.
var ErrNotInitialized = errors.New("network not initialized")

// ActionResponse is the recorded result of a dispatched network action.
type ActionResponse struct {
	Kind    ir.ActionKind
	Address ir.Address
	Err     string
}

// OK reports whether the action succeeded.
func (r ActionResponse) OK() bool {
	return r.Err == ""
}

// State is an immutable snapshot of the network ledger. Readers may hold
// it indefinitely; the reducer never mutates a State it has returned.
type State struct {
	handle     *Handle
	dnaAddress ir.Address
	agentID    ir.Address

	// actions and customReplies are keyed by id and keep only the most
	// recent entries.
	actions            window.Map[string, ActionResponse]
	queryResults       map[ir.QueryKey]Outcome[ir.QueryResult]
	validationPackages map[ir.Address]Outcome[*ir.ValidationPackage]
	directMessages     map[string]ir.DirectMessage
	customReplies      window.Map[string, Outcome[json.RawMessage]]
}

// NewState returns an empty ledger sharing handle.
func NewState(handle *Handle) *State {
	if handle == nil {
		handle = NewHandle()
	}
	return &State{
		handle:             handle,
		queryResults:       map[ir.QueryKey]Outcome[ir.QueryResult]{},
		validationPackages: map[ir.Address]Outcome[*ir.ValidationPackage]{},
		directMessages:     map[string]ir.DirectMessage{},
	}
}

// Initialized returns nil when a network is attached and the dna address
// and agent id are set, else ErrNotInitialized.
func (s *State) Initialized() error {
	if s.handle.Present() && !s.dnaAddress.IsZero() && !s.agentID.IsZero() {
		return nil
	}
	return ErrNotInitialized
}

// Handle returns the shared transport handle.
func (s *State) Handle() *Handle {
	return s.handle
}

// DnaAddress returns the dna address set when the network was initialized.
func (s *State) DnaAddress() ir.Address {
	return s.dnaAddress
}

// AgentID returns the agent id set when the network was initialized.
func (s *State) AgentID() ir.Address {
	return s.agentID
}

// ActionResponse returns the response recorded for the action with id.
func (s *State) ActionResponse(id string) (ActionResponse, bool) {
	return s.actions.Get(id)
}

// QueryResult returns the outcome of the query keyed by key.
func (s *State) QueryResult(key ir.QueryKey) Outcome[ir.QueryResult] {
	return s.queryResults[key]
}

// ValidationPackageResult returns the outcome of fetching the validation
// package for addr. An arrived nil package means the author had none.
func (s *State) ValidationPackageResult(addr ir.Address) Outcome[*ir.ValidationPackage] {
	return s.validationPackages[addr]
}

// DirectMessage returns the open conversation with id.
func (s *State) DirectMessage(id string) (ir.DirectMessage, bool) {
	m, ok := s.directMessages[id]
	return m, ok
}

// CustomReply returns the outcome of a custom direct message.
func (s *State) CustomReply(id string) Outcome[json.RawMessage] {
	r, _ := s.customReplies.Get(id)
	return r
}

// OpenConversations returns the number of open direct-message conversations.
func (s *State) OpenConversations() int {
	return len(s.directMessages)
}

// clone returns a shallow copy; callers replace any map they modify with
// a copy before writing to it.
func (s *State) clone() *State {
	next := *s
	return &next
}

func (s *State) withAction(id string, r ActionResponse) *State {
	next := s.clone()
	next.actions = s.actions.With(id, r)
	return next
}
