package consistency

import (
	"log/slog"

	"github.com/roach88/hcore/internal/ir"
)

// DnaSource returns the DNA used to decide whether committed entries are
// published. ok is false while the DNA or state is not yet available.
type DnaSource func() (dna *ir.Dna, ok bool)

// Model derives consistency signals from the action stream. It keeps state
// between actions and must only be driven by the single reducer loop.
type Model struct {
	dna         DnaSource
	logger      *slog.Logger
	commitCache map[ir.Address]Signal[Event]
	agentID     ir.Address
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the model's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// New returns a Model reading the DNA through dna. A nil dna is treated as
// never available.
func New(dna DnaSource, opts ...Option) *Model {
	m := &Model{
		dna:         dna,
		logger:      slog.Default(),
		commitCache: map[ir.Address]Signal[Event]{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AgentID returns the local agent id once its identity entry is committed.
func (m *Model) AgentID() (ir.Address, bool) {
	return m.agentID, !m.agentID.IsZero()
}

// Awaiting returns the number of commits whose Publish has not been seen.
func (m *Model) Awaiting() int {
	return len(m.commitCache)
}

// Process observes one action and returns the signal it produces, if any.
func (m *Model) Process(w ir.ActionWrapper) (Signal[Event], bool) {
	switch a := w.Action.(type) {
	case ir.Commit:
		m.commit(a)
		return Signal[Event]{}, false
	case ir.Publish:
		sig, ok := m.commitCache[a.Address]
		if !ok {
			m.logger.Warn("publish without a cached commit; content was not committed by this node",
				"address", a.Address,
				"action_id", w.ID,
			)
			return Signal[Event]{}, false
		}
		delete(m.commitCache, a.Address)
		return sig, true
	case ir.Hold:
		addr, err := ir.AddressOf(a.EntryWithHeader.Entry)
		if err != nil {
			m.logger.Error("hold: cannot address entry", "action_id", w.ID, "error", err)
			return Signal[Event]{}, false
		}
		return NewTerminal(Hold(addr)), true
	case ir.UpdateEntry:
		return NewTerminal(UpdateEntry(a.Old, a.New)), true
	case ir.RemoveEntry:
		return NewTerminal(RemoveEntry(a.Old, a.New)), true
	case ir.AddLink:
		return NewTerminal(AddLink(a.Link)), true
	case ir.RemoveLink:
		return NewTerminal(RemoveLink(a.Entry)), true
	case ir.AddPendingValidation:
		addr, err := ir.AddressOf(a.Validation.EntryWithHeader.Entry)
		if err != nil {
			m.logger.Error("add pending validation: cannot address entry", "action_id", w.ID, "error", err)
			return Signal[Event]{}, false
		}
		return NewPending(AddPendingValidation(addr), Source, RemovePendingValidation(addr)), true
	case ir.RemovePendingValidation:
		return NewTerminal(RemovePendingValidation(a.Address)), true
	case ir.SignalZomeFunctionCall:
		return NewPending(SignalZomeFunctionCall(a.Call.ID), Source, ReturnZomeFunctionResult(a.Call.ID)), true
	case ir.ReturnZomeFunctionResult:
		return NewTerminal(ReturnZomeFunctionResult(a.Response.Call.ID)), true
	default:
		return Signal[Event]{}, false
	}
}

func (m *Model) commit(a ir.Commit) {
	if agent, ok := a.Entry.(ir.AgentIDEntry); ok {
		m.agentID = agent.PubSignKey
		return
	}

	if !m.publishable(a.Entry.EntryType()) {
		return
	}
	addr, err := ir.AddressOf(a.Entry)
	if err != nil {
		m.logger.Error("commit: cannot address entry", "entry_type", a.Entry.EntryType(), "error", err)
		return
	}

	pending := []Event{Hold(addr)}
	if meta, ok := metaEvent(a, addr); ok {
		pending = append(pending, meta)
	}
	m.commitCache[addr] = NewPending(Publish(addr), Validators, pending...)
}

// publishable assumes true when the DNA is not yet known so that early
// commits are tracked rather than dropped.
func (m *Model) publishable(t ir.EntryType) bool {
	if m.dna == nil {
		return true
	}
	dna, ok := m.dna()
	if !ok || dna == nil {
		return true
	}
	return t.CanPublish(dna)
}

// metaEvent returns the DHT metadata change a published commit implies.
// Only commits carrying a crud link produce one.
func metaEvent(a ir.Commit, addr ir.Address) (Event, bool) {
	if a.CrudLink.IsZero() {
		return Event{}, false
	}
	switch e := a.Entry.(type) {
	case ir.AppEntry:
		return UpdateEntry(a.CrudLink, addr), true
	case ir.DeletionEntry:
		return RemoveEntry(a.CrudLink, addr), true
	case ir.LinkAddEntry:
		return AddLink(e.Link), true
	case ir.LinkRemoveEntry:
		return RemoveLink(e), true
	default:
		return Event{}, false
	}
}
