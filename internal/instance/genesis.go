package instance

import (
	"context"
	"fmt"

	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/state"
)

// Initialize brings a running instance to the point where zome calls can
// be made.
//
// On a fresh chain it installs dna and commits the genesis entries: the
// DNA entry followed by agent. On a resumed chain it checks that the chain
// was created with dna. In both cases it then initializes the network if
// one is configured.
func (i *Instance) Initialize(ctx context.Context, dna ir.Dna, agent ir.AgentIDEntry) error {
	s, err := i.WaitFor(ctx, func(*state.State) bool { return true })
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	dnaAddr, err := dna.Address()
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	agentID := agent.PubSignKey
	if installed, ok := s.Nucleus.Dna(); ok {
		have, err := installed.Address()
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		if have != dnaAddr {
			return fmt.Errorf("initialize: chain was created with dna %s, not %s", have, dnaAddr)
		}
		agentID = s.Agent.AgentID()
	} else if err := i.genesis(ctx, dna, agent); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if i.factory != nil {
		w, err := i.Dispatch(ir.InitNetwork{Settings: ir.NetworkSettings{
			DnaAddress: dnaAddr,
			AgentID:    string(agentID),
		}})
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		s, err := i.WaitFor(ctx, func(s *state.State) bool {
			_, ok := s.Network.ActionResponse(w.ID)
			return ok
		})
		if err != nil {
			return fmt.Errorf("initialize network: %w", err)
		}
		if resp, _ := s.Network.ActionResponse(w.ID); !resp.OK() {
			return fmt.Errorf("initialize network: %s", resp.Err)
		}
	}

	i.logger.Info("instance initialized", "dna", dna.Name, "dna_address", dnaAddr, "agent_id", agentID)
	return nil
}

func (i *Instance) genesis(ctx context.Context, dna ir.Dna, agent ir.AgentIDEntry) error {
	if _, err := i.Dispatch(ir.InitializeChain{Dna: dna}); err != nil {
		return err
	}
	dnaCommit, err := i.Dispatch(ir.Commit{Entry: ir.DnaEntry{Dna: dna}})
	if err != nil {
		return err
	}
	agentCommit, err := i.Dispatch(ir.Commit{Entry: agent})
	if err != nil {
		return err
	}

	s, err := i.WaitFor(ctx, func(s *state.State) bool {
		_, ok := s.Agent.CommitResponse(agentCommit.ID)
		return ok
	})
	if err != nil {
		return err
	}
	for _, w := range []ir.ActionWrapper{dnaCommit, agentCommit} {
		if resp, _ := s.Agent.CommitResponse(w.ID); resp.Err != "" {
			return fmt.Errorf("genesis commit: %s", resp.Err)
		}
	}
	return nil
}
