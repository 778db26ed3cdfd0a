package nucleus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/hcore/internal/capability"
	"github.com/roach88/hcore/internal/instance"
	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/state"
)

// Runtime is the part of a running instance the bridge drives.
// *instance.Instance implements it.
type Runtime interface {
	Dispatch(a ir.Action) (ir.ActionWrapper, error)
	State() (*state.State, error)
	Changed() <-chan struct{}
	Closed() bool
}

// ChainReader finds entries on the local source chain. *store.Store
// implements it.
type ChainReader interface {
	EntryFromChain(ctx context.Context, top, target ir.Address) (ir.Entry, error)
}

// Bridge runs capability-checked zome calls against a Runtime.
//
// Thread-safety: every method is safe for concurrent use. Each call gets
// its own worker goroutine.
type Bridge struct {
	rt       Runtime
	ribosome Ribosome
	verifier *capability.Verifier
	chain    ChainReader
	grants   capability.GrantSource
	logger   *slog.Logger

	workers sync.WaitGroup
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithChain sets where grants are looked up. Without a chain only self
// calls are admitted.
func WithChain(c ChainReader) Option {
	return func(b *Bridge) {
		b.chain = c
	}
}

// WithGrantSource replaces chain traversal as the grant lookup.
func WithGrantSource(g capability.GrantSource) Option {
	return func(b *Bridge) {
		b.grants = g
	}
}

// WithLogger sets the bridge's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// NewBridge returns a Bridge executing calls with ribosome and admitting
// them with verifier.
func NewBridge(rt Runtime, ribosome Ribosome, verifier *capability.Verifier, opts ...Option) *Bridge {
	b := &Bridge{
		rt:       rt,
		ribosome: ribosome,
		verifier: verifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.grants == nil {
		b.grants = grantFunc(b.GetGrant)
	}
	return b
}

// ValidateCall resolves the call's zome and function and checks its
// capability. It dispatches nothing.
func (b *Bridge) ValidateCall(ctx context.Context, call ir.ZomeFnCall) (*ir.Dna, ir.Address, error) {
	s, err := b.rt.State()
	if err != nil {
		return nil, "", newCallError(CodeStateNotInitialized, call.ZomeName, call.FnName, err)
	}
	dna, ok := s.Nucleus.Dna()
	if !ok {
		return nil, "", newCallError(CodeDnaMissing, call.ZomeName, call.FnName, errors.New("no dna installed"))
	}
	if _, err := dna.GetZome(call.ZomeName); err != nil {
		return nil, "", newCallError(CodeZomeNotFound, call.ZomeName, call.FnName, err)
	}
	if _, err := dna.GetFunction(call.ZomeName, call.FnName); err != nil {
		return nil, "", newCallError(CodeFunctionNotFound, call.ZomeName, call.FnName, err)
	}

	agent := s.Agent.AgentID()
	if !b.verifier.Allowed(ctx, b.grants, agent, call) {
		return nil, "", newCallError(CodeCapabilityCheckFailed, call.ZomeName, call.FnName,
			fmt.Errorf("caller %s not admitted by token %s", call.Cap.Provenance.Source, call.Cap.CapToken))
	}
	return dna, agent, nil
}

// CallZomeFunction validates call, runs it on a worker and blocks until its
// result is in state.
//
// A call without an id is given a UUIDv7. Cancelling ctx abandons the wait
// but not the work: the worker still completes and dispatches its result.
func (b *Bridge) CallZomeFunction(ctx context.Context, call ir.ZomeFnCall) (json.RawMessage, error) {
	dna, agent, err := b.ValidateCall(ctx, call)
	if err != nil {
		b.logger.Debug("zome call rejected", "zome", call.ZomeName, "function", call.FnName, "error", err)
		return nil, err
	}
	if call.ID == "" {
		call.ID = uuid.Must(uuid.NewV7()).String()
	}

	announced, err := b.rt.Dispatch(ir.SignalZomeFunctionCall{Call: call})
	if err != nil {
		return nil, newCallError(CodeActionChannelClosed, call.ZomeName, call.FnName, err)
	}

	b.workers.Add(1)
	go b.execute(context.WithoutCancel(ctx), Invocation{Call: call, Dna: dna, Agent: agent})

	return b.await(ctx, call, announced.Seq)
}

// Wait blocks until every worker started so far has dispatched its result.
func (b *Bridge) Wait() {
	b.workers.Wait()
}

func (b *Bridge) execute(ctx context.Context, inv Invocation) {
	defer b.workers.Done()

	result := b.run(ctx, inv)
	_, err := b.rt.Dispatch(ir.ReturnZomeFunctionResult{Response: ir.ExecuteZomeFnResponse{
		Call:   inv.Call,
		Result: result,
	}})
	if err != nil {
		b.logger.Error("zome call result not dispatched",
			"call_id", inv.Call.ID,
			"zome", inv.Call.ZomeName,
			"function", inv.Call.FnName,
			"error", err,
		)
	}
}

func (b *Bridge) run(ctx context.Context, inv Invocation) (result ir.ZomeFnResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ir.ErrResult(fmt.Errorf("zome function panicked: %v", r))
		}
	}()
	value, err := b.ribosome.Call(ctx, inv)
	if err != nil {
		return ir.ErrResult(err)
	}
	return ir.OkResult(value)
}

// await waits for the result of call, announced at seq. Once state has
// reduced the announcement, a call that is neither running nor holding a
// result has had its result dropped.
func (b *Bridge) await(ctx context.Context, call ir.ZomeFnCall, seq int64) (json.RawMessage, error) {
	var (
		result  ir.ZomeFnResult
		expired bool
	)
	_, err := b.waitFor(ctx, call.ZomeName, call.FnName, func(s *state.State) bool {
		r, ok := s.Nucleus.ZomeCallResult(call.ID)
		result = r
		expired = !ok && s.Seq >= seq && !s.Nucleus.ZomeCallRunning(call.ID)
		return ok || expired
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, newCallError(CodeResultExpired, call.ZomeName, call.FnName,
			fmt.Errorf("result of call %s no longer retained", call.ID))
	}
	value, err := result.Unwrap()
	if err != nil {
		return nil, newCallError(CodeFunctionFailed, call.ZomeName, call.FnName, err)
	}
	return value, nil
}

// waitFor re-evaluates pred on every state change. A closed action
// channel ends the wait before state is consulted.
func (b *Bridge) waitFor(ctx context.Context, zome, fn string, pred func(*state.State) bool) (*state.State, error) {
	for {
		changed := b.rt.Changed()
		if b.rt.Closed() {
			return nil, newCallError(CodeActionChannelClosed, zome, fn, instance.ErrActionChannelClosed)
		}
		s, err := b.rt.State()
		if err != nil {
			return nil, newCallError(CodeStateNotInitialized, zome, fn, err)
		}
		if pred(s) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

type grantFunc func(ctx context.Context, token ir.Address) (ir.CapTokenGrant, bool, error)

func (f grantFunc) Grant(ctx context.Context, token ir.Address) (ir.CapTokenGrant, bool, error) {
	return f(ctx, token)
}
