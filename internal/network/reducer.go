package network

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"

	"github.com/roach88/hcore/internal/ir"
)

// Factory builds the transport for InitNetwork.
type Factory func(settings ir.NetworkSettings) (P2pNetwork, error)

// ContentSource supplies committed content for Publish messages.
type ContentSource interface {
	EntryWithHeader(ctx context.Context, addr ir.Address) (ir.EntryWithHeader, bool, error)
}

// Reducer applies network actions to State.
type Reducer struct {
	factory Factory
	content ContentSource
	logger  *slog.Logger
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// WithFactory sets the transport factory used by InitNetwork.
func WithFactory(f Factory) ReducerOption {
	return func(r *Reducer) {
		r.factory = f
	}
}

// WithContentSource sets where Publish reads the content it announces.
func WithContentSource(c ContentSource) ReducerOption {
	return func(r *Reducer) {
		r.content = c
	}
}

// WithLogger sets the reducer's logger.
func WithLogger(l *slog.Logger) ReducerOption {
	return func(r *Reducer) {
		r.logger = l
	}
}

// NewReducer returns a Reducer.
func NewReducer(opts ...ReducerOption) *Reducer {
	r := &Reducer{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reduce returns the state after w. Actions that do not concern the
// network return s itself.
func (r *Reducer) Reduce(ctx context.Context, s *State, w ir.ActionWrapper) *State {
	switch a := w.Action.(type) {
	case ir.InitNetwork:
		return r.initNetwork(s, w, a)
	case ir.ShutdownNetwork:
		return r.shutdown(s, w)
	case ir.Publish:
		return r.publish(ctx, s, w, a)
	case ir.GetValidationPackage:
		return r.getValidationPackage(ctx, s, a)
	case ir.HandleGetValidationPackage:
		next := s.clone()
		next.validationPackages = maps.Clone(s.validationPackages)
		if a.Err != "" {
			next.validationPackages[a.Address] = Failed[*ir.ValidationPackage](a.Err)
		} else {
			next.validationPackages[a.Address] = Arrived(a.Package)
		}
		return next
	case ir.Query:
		return r.query(ctx, s, a)
	case ir.HandleQuery:
		next := s.clone()
		next.queryResults = maps.Clone(s.queryResults)
		if a.Err != "" {
			next.queryResults[a.Key] = Failed[ir.QueryResult](a.Err)
		} else {
			var result ir.QueryResult
			if a.Result != nil {
				result = *a.Result
			}
			next.queryResults[a.Key] = Arrived(result)
		}
		return next
	case ir.SendDirectMessage:
		return r.sendDirect(ctx, s, w, a)
	case ir.ResolveDirectConnection:
		if _, ok := s.directMessages[a.ID]; !ok {
			return s
		}
		next := s.clone()
		next.directMessages = maps.Clone(s.directMessages)
		delete(next.directMessages, a.ID)
		return next
	case ir.HandleCustomSendResponse:
		next := s.clone()
		if a.Err != "" {
			next.customReplies = s.customReplies.With(a.ID, Failed[json.RawMessage](a.Err))
		} else {
			next.customReplies = s.customReplies.With(a.ID, Arrived(a.Reply))
		}
		return next
	default:
		return s
	}
}

func (r *Reducer) initNetwork(s *State, w ir.ActionWrapper, a ir.InitNetwork) *State {
	if r.factory == nil {
		r.logger.Error("init network: no network factory configured")
		return s.withAction(w.ID, ActionResponse{Kind: ir.KindInitNetwork, Err: "no network factory configured"})
	}
	n, err := r.factory(a.Settings)
	if err != nil {
		r.logger.Error("init network failed", "error", err)
		return s.withAction(w.ID, ActionResponse{Kind: ir.KindInitNetwork, Err: err.Error()})
	}
	if prev := s.handle.Attach(n); prev != nil {
		_ = prev.Close()
	}

	next := s.withAction(w.ID, ActionResponse{Kind: ir.KindInitNetwork})
	next.dnaAddress = a.Settings.DnaAddress
	next.agentID = ir.Address(a.Settings.AgentID)
	r.logger.Info("network initialized",
		"dna_address", next.dnaAddress,
		"agent_id", next.agentID,
	)
	return next
}

func (r *Reducer) shutdown(s *State, w ir.ActionWrapper) *State {
	if n := s.handle.Detach(); n != nil {
		if err := n.Close(); err != nil {
			r.logger.Warn("network close failed", "error", err)
		}
	}
	r.logger.Info("network shut down")
	return s.withAction(w.ID, ActionResponse{Kind: ir.KindShutdownNetwork})
}

func (r *Reducer) message(s *State, kind MessageKind) Message {
	return Message{Kind: kind, DnaAddress: s.dnaAddress, From: s.agentID}
}

func (r *Reducer) publish(ctx context.Context, s *State, w ir.ActionWrapper, a ir.Publish) *State {
	if err := s.Initialized(); err != nil {
		return s.withAction(w.ID, ActionResponse{Kind: ir.KindPublish, Address: a.Address, Err: err.Error()})
	}

	msg := r.message(s, MsgPublish)
	msg.Address = a.Address
	if r.content != nil {
		ewh, ok, err := r.content.EntryWithHeader(ctx, a.Address)
		switch {
		case err != nil:
			return s.withAction(w.ID, ActionResponse{Kind: ir.KindPublish, Address: a.Address, Err: err.Error()})
		case ok:
			env, err := ir.EncodeEntry(ewh.Entry)
			if err != nil {
				return s.withAction(w.ID, ActionResponse{Kind: ir.KindPublish, Address: a.Address, Err: err.Error()})
			}
			msg.Entry = &env
			msg.Header = &ewh.Header
		}
	}

	resp := ActionResponse{Kind: ir.KindPublish, Address: a.Address}
	if err := s.handle.Send(ctx, msg); err != nil {
		r.logger.Warn("publish send failed", "address", a.Address, "error", err)
		resp.Err = err.Error()
	}
	return s.withAction(w.ID, resp)
}

func (r *Reducer) getValidationPackage(ctx context.Context, s *State, a ir.GetValidationPackage) *State {
	addr := a.Header.EntryAddress
	next := s.clone()
	next.validationPackages = maps.Clone(s.validationPackages)

	if err := s.Initialized(); err != nil {
		next.validationPackages[addr] = Failed[*ir.ValidationPackage](err.Error())
		return next
	}

	msg := r.message(s, MsgGetValidationPackage)
	msg.Address = addr
	msg.Header = &a.Header
	if len(a.Header.Provenances) > 0 {
		msg.To = a.Header.Provenances[0].Source
	}
	if err := s.handle.Send(ctx, msg); err != nil {
		next.validationPackages[addr] = Failed[*ir.ValidationPackage](err.Error())
		return next
	}
	next.validationPackages[addr] = Awaiting[*ir.ValidationPackage]()
	return next
}

func (r *Reducer) query(ctx context.Context, s *State, a ir.Query) *State {
	next := s.clone()
	next.queryResults = maps.Clone(s.queryResults)

	if err := s.Initialized(); err != nil {
		next.queryResults[a.Key] = Failed[ir.QueryResult](err.Error())
		return next
	}

	msg := r.message(s, MsgQuery)
	key := a.Key
	msg.Query = &key
	if err := s.handle.Send(ctx, msg); err != nil {
		next.queryResults[a.Key] = Failed[ir.QueryResult](err.Error())
		return next
	}
	next.queryResults[a.Key] = Awaiting[ir.QueryResult]()
	return next
}

func (r *Reducer) sendDirect(ctx context.Context, s *State, w ir.ActionWrapper, a ir.SendDirectMessage) *State {
	if err := s.Initialized(); err != nil {
		return s.withAction(w.ID, ActionResponse{Kind: ir.KindSendDirectMessage, Err: err.Error()})
	}

	msg := r.message(s, MsgDirect)
	msg.To = a.To
	msg.ID = a.ID
	direct := a.Message
	msg.Direct = &direct
	if err := s.handle.Send(ctx, msg); err != nil {
		return s.withAction(w.ID, ActionResponse{Kind: ir.KindSendDirectMessage, Err: err.Error()})
	}

	next := s.withAction(w.ID, ActionResponse{Kind: ir.KindSendDirectMessage})
	next.directMessages = maps.Clone(s.directMessages)
	next.directMessages[a.ID] = a.Message
	if a.Message.Kind == ir.DirectCustom {
		next.customReplies = s.customReplies.With(a.ID, Awaiting[json.RawMessage]())
	}
	return next
}
