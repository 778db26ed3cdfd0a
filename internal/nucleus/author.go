package nucleus

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/network"
	"github.com/roach88/hcore/internal/state"
	"github.com/roach88/hcore/internal/store"
)

// AuthorEntry commits entry to the source chain and, when its type is
// published, announces it to the network. It returns the entry address.
//
// An instance without a network still dispatches the Publish, so the
// commit's consistency signal is emitted; the network's refusal is not an
// error.
func (b *Bridge) AuthorEntry(ctx context.Context, entry ir.Entry, crudLink ir.Address) (ir.Address, error) {
	commit, err := b.rt.Dispatch(ir.Commit{Entry: entry, CrudLink: crudLink})
	if err != nil {
		return "", newCallError(CodeActionChannelClosed, "", "", err)
	}

	s, err := b.waitFor(ctx, "", "", func(s *state.State) bool {
		_, ok := s.Agent.CommitResponse(commit.ID)
		return ok
	})
	if err != nil {
		return "", err
	}
	resp, _ := s.Agent.CommitResponse(commit.ID)
	if resp.Err != "" {
		return "", fmt.Errorf("commit %s: %s", entry.EntryType(), resp.Err)
	}

	dna, _ := s.Nucleus.Dna()
	if !entry.EntryType().CanPublish(dna) {
		return resp.Address, nil
	}

	publish, err := b.rt.Dispatch(ir.Publish{Address: resp.Address})
	if err != nil {
		return "", newCallError(CodeActionChannelClosed, "", "", err)
	}
	s, err = b.waitFor(ctx, "", "", func(s *state.State) bool {
		_, ok := s.Network.ActionResponse(publish.ID)
		return ok
	})
	if err != nil {
		return "", err
	}
	netResp, _ := s.Network.ActionResponse(publish.ID)
	switch {
	case netResp.OK():
	case netResp.Err == network.ErrNotInitialized.Error():
		b.logger.Debug("entry not published: no network", "address", resp.Address)
	default:
		return "", fmt.Errorf("publish %s: %s", resp.Address, netResp.Err)
	}
	return resp.Address, nil
}

// GetGrant finds the capability grant committed at token by walking the
// source chain back from the top header of the current snapshot.
func (b *Bridge) GetGrant(ctx context.Context, token ir.Address) (ir.CapTokenGrant, bool, error) {
	if b.chain == nil {
		return ir.CapTokenGrant{}, false, nil
	}
	s, err := b.rt.State()
	if err != nil {
		return ir.CapTokenGrant{}, false, err
	}
	_, top, ok := s.Agent.TopHeader()
	if !ok {
		return ir.CapTokenGrant{}, false, nil
	}

	entry, err := b.chain.EntryFromChain(ctx, top, token)
	if errors.Is(err, store.ErrNotFound) {
		return ir.CapTokenGrant{}, false, nil
	}
	if err != nil {
		return ir.CapTokenGrant{}, false, fmt.Errorf("get grant %s: %w", token, err)
	}
	grant, ok := entry.(ir.CapTokenGrantEntry)
	if !ok {
		return ir.CapTokenGrant{}, false, nil
	}
	return grant.Grant, true, nil
}
