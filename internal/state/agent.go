package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/keystore"
	"github.com/roach88/hcore/internal/window"
)

// ChainWriter persists one commit. It returns the address of the stored
// header.
type ChainWriter interface {
	WriteCommit(ctx context.Context, entry ir.Entry, header ir.ChainHeader) (ir.Address, error)
}

// CommitResponse is the recorded result of a Commit action.
type CommitResponse struct {
	Address ir.Address
	Err     string
}

// AgentState tracks the local source chain.
type AgentState struct {
	agentID   ir.Address
	topHeader *ir.ChainHeader
	topAddr   ir.Address
	length    int
	commits   window.Map[string, CommitResponse]
}

func newAgentState() *AgentState {
	return &AgentState{}
}

// AgentID returns the agent address recorded by the AgentId entry commit.
func (a *AgentState) AgentID() ir.Address {
	return a.agentID
}

// TopHeader returns the most recent header and its address.
func (a *AgentState) TopHeader() (ir.ChainHeader, ir.Address, bool) {
	if a.topHeader == nil {
		return ir.ChainHeader{}, "", false
	}
	return *a.topHeader, a.topAddr, true
}

// ChainLength returns the number of commits on the chain.
func (a *AgentState) ChainLength() int {
	return a.length
}

// CommitResponse returns the result of the Commit action with id. Only the
// most recent responses are retained.
func (a *AgentState) CommitResponse(id string) (CommitResponse, bool) {
	return a.commits.Get(id)
}

type agentReducer struct {
	chain  ChainWriter
	signer keystore.Signer
	now    func() time.Time
	logger *slog.Logger
}

func (r *agentReducer) reduce(ctx context.Context, a *AgentState, w ir.ActionWrapper) *AgentState {
	commit, ok := w.Action.(ir.Commit)
	if !ok {
		return a
	}

	fail := func(err error) *AgentState {
		r.logger.Error("commit failed", "action_id", w.ID, "error", err)
		next := *a
		next.commits = a.commits.With(w.ID, CommitResponse{Err: err.Error()})
		return &next
	}

	entryAddr, err := ir.AddressOf(commit.Entry)
	if err != nil {
		return fail(err)
	}

	provenances := commit.Provenances
	if len(provenances) == 0 && r.signer != nil {
		provenances = []ir.Provenance{{
			Source:    r.signer.Address(),
			Signature: r.signer.Sign(string(entryAddr)),
		}}
	}

	header := ir.ChainHeader{
		EntryType:    commit.Entry.EntryType(),
		EntryAddress: entryAddr,
		Provenances:  provenances,
		Link:         a.topAddr,
		CrudLink:     commit.CrudLink,
		Timestamp:    r.now().UTC(),
	}

	var headerAddr ir.Address
	if r.chain != nil {
		headerAddr, err = r.chain.WriteCommit(ctx, commit.Entry, header)
	} else {
		headerAddr, err = header.Address()
	}
	if err != nil {
		return fail(err)
	}

	next := *a
	next.topHeader = &header
	next.topAddr = headerAddr
	next.length = a.length + 1
	next.commits = a.commits.With(w.ID, CommitResponse{Address: entryAddr})
	if agent, ok := commit.Entry.(ir.AgentIDEntry); ok {
		next.agentID = agent.PubSignKey
	}

	r.logger.Debug("entry committed",
		"entry_type", header.EntryType,
		"entry_address", entryAddr,
		"header_address", headerAddr,
	)
	return &next
}
