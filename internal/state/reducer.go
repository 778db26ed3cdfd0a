package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/keystore"
	"github.com/roach88/hcore/internal/network"
)

// Reducer advances State by one action.
type Reducer struct {
	agent   agentReducer
	network *network.Reducer
	logger  *slog.Logger
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithChain sets where commits are persisted.
func WithChain(c ChainWriter) Option {
	return func(r *Reducer) {
		r.agent.chain = c
	}
}

// WithSigner sets the agent key used to sign commits that carry no
// provenance of their own.
func WithSigner(s keystore.Signer) Option {
	return func(r *Reducer) {
		r.agent.signer = s
	}
}

// WithTimeSource sets the clock used to stamp chain headers.
func WithTimeSource(now func() time.Time) Option {
	return func(r *Reducer) {
		r.agent.now = now
	}
}

// WithNetworkReducer sets the reducer for network actions.
func WithNetworkReducer(nr *network.Reducer) Option {
	return func(r *Reducer) {
		r.network = nr
	}
}

// WithLogger sets the reducer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reducer) {
		r.logger = l
	}
}

// NewReducer returns a Reducer.
func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.agent.now == nil {
		r.agent.now = time.Now
	}
	r.agent.logger = r.logger
	if r.network == nil {
		r.network = network.NewReducer(network.WithLogger(r.logger))
	}
	return r
}

// Reduce returns the state after w. s is never modified; parts of the
// state an action does not touch are shared with s.
func (r *Reducer) Reduce(ctx context.Context, s *State, w ir.ActionWrapper) *State {
	return &State{
		Seq:     w.Seq,
		Nucleus: s.Nucleus.reduce(r.logger, w),
		Agent:   r.agent.reduce(ctx, s.Agent, w),
		Dht:     s.Dht.reduce(w),
		Network: r.network.Reduce(ctx, s.Network, w),
	}
}
