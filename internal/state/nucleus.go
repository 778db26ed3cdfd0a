package state

import (
	"log/slog"
	"maps"

	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/window"
)

// NucleusStatus tracks DNA installation.
type NucleusStatus int

const (
	NucleusUninitialized NucleusStatus = iota
	NucleusInitialized
)

func (s NucleusStatus) String() string {
	if s == NucleusInitialized {
		return "initialized"
	}
	return "uninitialized"
}

// NucleusState holds the DNA and the results of zome calls.
type NucleusState struct {
	dna    *ir.Dna
	status NucleusStatus

	// running holds calls announced and not yet returned. Returned results
	// move to results, which keeps only the most recent ones.
	running            map[string]struct{}
	results            window.Map[string, ir.ZomeFnResult]
	pendingValidations map[ir.Address]ir.PendingValidation
}

func newNucleusState() *NucleusState {
	return &NucleusState{
		running:            map[string]struct{}{},
		pendingValidations: map[ir.Address]ir.PendingValidation{},
	}
}

// Dna returns the installed DNA.
func (n *NucleusState) Dna() (*ir.Dna, bool) {
	return n.dna, n.dna != nil
}

// Status returns the installation status.
func (n *NucleusState) Status() NucleusStatus {
	return n.status
}

// ZomeCallResult returns the result of the call with id once it returned.
// A result is dropped once enough later calls have returned.
func (n *NucleusState) ZomeCallResult(id string) (ir.ZomeFnResult, bool) {
	return n.results.Get(id)
}

// ZomeCallRunning reports whether the call with id was announced and has
// not returned.
func (n *NucleusState) ZomeCallRunning(id string) bool {
	_, ok := n.running[id]
	return ok
}

// ZomeCallsRunning returns the number of calls announced and not returned.
func (n *NucleusState) ZomeCallsRunning() int {
	return len(n.running)
}

// PendingValidation returns the queued validation for addr.
func (n *NucleusState) PendingValidation(addr ir.Address) (ir.PendingValidation, bool) {
	v, ok := n.pendingValidations[addr]
	return v, ok
}

// PendingValidationCount returns the number of queued validations.
func (n *NucleusState) PendingValidationCount() int {
	return len(n.pendingValidations)
}

func (n *NucleusState) reduce(logger *slog.Logger, w ir.ActionWrapper) *NucleusState {
	switch a := w.Action.(type) {
	case ir.InitializeChain:
		if n.status == NucleusInitialized {
			logger.Warn("nucleus already initialized, ignoring InitializeChain", "dna", a.Dna.Name)
			return n
		}
		next := *n
		dna := a.Dna
		next.dna = &dna
		next.status = NucleusInitialized
		return &next
	case ir.SignalZomeFunctionCall:
		next := *n
		next.running = maps.Clone(n.running)
		next.running[a.Call.ID] = struct{}{}
		return &next
	case ir.ReturnZomeFunctionResult:
		id := a.Response.Call.ID
		next := *n
		if _, ok := n.running[id]; ok {
			next.running = maps.Clone(n.running)
			delete(next.running, id)
		}
		next.results = n.results.With(id, a.Response.Result)
		return &next
	case ir.AddPendingValidation:
		addr, err := ir.AddressOf(a.Validation.EntryWithHeader.Entry)
		if err != nil {
			logger.Error("pending validation has no address", "error", err)
			return n
		}
		next := *n
		next.pendingValidations = maps.Clone(n.pendingValidations)
		next.pendingValidations[addr] = a.Validation
		return &next
	case ir.RemovePendingValidation:
		if _, ok := n.pendingValidations[a.Address]; !ok {
			return n
		}
		next := *n
		next.pendingValidations = maps.Clone(n.pendingValidations)
		delete(next.pendingValidations, a.Address)
		return &next
	default:
		return n
	}
}
