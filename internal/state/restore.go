package state

import (
	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/network"
)

// Chain describes a source chain committed by an earlier run.
type Chain struct {
	Dna        ir.Dna
	AgentID    ir.Address
	Top        ir.ChainHeader
	TopAddress ir.Address
	Length     int
}

// Restore returns the state of an instance resuming c. The DNA counts as
// installed; zome calls, DHT and network state start empty.
func Restore(handle *network.Handle, c Chain) *State {
	s := New(handle)

	dna := c.Dna
	s.Nucleus.dna = &dna
	s.Nucleus.status = NucleusInitialized

	top := c.Top
	s.Agent.agentID = c.AgentID
	s.Agent.topHeader = &top
	s.Agent.topAddr = c.TopAddress
	s.Agent.length = c.Length
	return s
}
