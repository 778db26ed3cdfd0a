package state

import (
	"github.com/roach88/hcore/internal/network"
)

// State is one immutable snapshot. Seq is the sequence number of the last
// action reduced into it.
type State struct {
	Seq     int64
	Nucleus *NucleusState
	Agent   *AgentState
	Dht     *DhtState
	Network *network.State
}

// New returns the empty state that precedes the first action.
func New(handle *network.Handle) *State {
	return &State{
		Nucleus: newNucleusState(),
		Agent:   newAgentState(),
		Dht:     newDhtState(),
		Network: network.NewState(handle),
	}
}
