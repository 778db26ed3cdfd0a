package instance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/hcore/internal/consistency"
	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/keystore"
	"github.com/roach88/hcore/internal/network"
	"github.com/roach88/hcore/internal/state"
	"github.com/roach88/hcore/internal/store"
)

// Instance is a running agent.
//
// Thread-safety model:
//   - Dispatch, State, Changed, Closed, WaitFor, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Instance struct {
	queue  *actionQueue
	ids    IDGenerator
	logger *slog.Logger

	store   *store.Store
	signer  keystore.Signer
	factory network.Factory
	now     func() time.Time
	handle  *network.Handle

	reducer  *state.Reducer
	model    *consistency.Model
	handlers []SignalHandler
	sinks    []consistency.Sink

	current atomic.Pointer[state.State]
	running atomic.Bool

	mu      sync.Mutex
	changed chan struct{}
}

// New creates an Instance. Nothing is processed until Run is called.
func New(opts ...Option) *Instance {
	i := &Instance{
		queue:   newActionQueue(NewClock()),
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		now:     time.Now,
		handle:  network.NewHandle(),
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}

	netOpts := []network.ReducerOption{network.WithLogger(i.logger)}
	stateOpts := []state.Option{state.WithTimeSource(i.now), state.WithLogger(i.logger)}
	if i.factory != nil {
		netOpts = append(netOpts, network.WithFactory(i.factory))
	}
	if i.store != nil {
		netOpts = append(netOpts, network.WithContentSource(i.store))
		stateOpts = append(stateOpts, state.WithChain(i.store))
	}
	if i.signer != nil {
		stateOpts = append(stateOpts, state.WithSigner(i.signer))
	}
	stateOpts = append(stateOpts, state.WithNetworkReducer(network.NewReducer(netOpts...)))

	i.reducer = state.NewReducer(stateOpts...)
	i.model = consistency.New(i.installedDna, consistency.WithLogger(i.logger))
	return i
}

// Dispatch queues a for the Run loop and returns it wrapped with its id
// and seq. It never blocks. After Stop it returns ErrActionChannelClosed.
func (i *Instance) Dispatch(a ir.Action) (ir.ActionWrapper, error) {
	w, ok := i.queue.Enqueue(i.ids.Generate(), a)
	if !ok {
		return ir.ActionWrapper{}, fmt.Errorf("dispatch %s: %w", a.Kind(), ErrActionChannelClosed)
	}
	i.logger.Debug("action dispatched", "kind", a.Kind(), "id", w.ID, "seq", w.Seq)
	return w, nil
}

// State returns the latest snapshot.
func (i *Instance) State() (*state.State, error) {
	s := i.current.Load()
	if s == nil {
		return nil, ErrStateNotInitialized
	}
	return s, nil
}

// Changed returns a channel that is closed when the next snapshot is
// published or the instance stops.
func (i *Instance) Changed() <-chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.changed
}

// Closed reports whether the instance has stopped accepting actions.
func (i *Instance) Closed() bool {
	return i.queue.Closed()
}

// Handle returns the network handle shared by every snapshot.
func (i *Instance) Handle() *network.Handle {
	return i.handle
}

// WaitFor blocks until pred holds for the latest snapshot and returns that
// snapshot. A closed instance returns ErrActionChannelClosed even if pred
// would hold.
func (i *Instance) WaitFor(ctx context.Context, pred func(*state.State) bool) (*state.State, error) {
	for {
		changed := i.Changed()
		if i.Closed() {
			return nil, ErrActionChannelClosed
		}
		if s := i.current.Load(); s != nil && pred(s) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

// Stop closes the action channel. Run drains queued actions and returns.
func (i *Instance) Stop() {
	i.queue.Close()
	i.broadcast()
}

// Run is the single-writer loop. It blocks until ctx is cancelled or Stop
// is called and the queue has drained.
//
// Every state mutation happens on this goroutine.
func (i *Instance) Run(ctx context.Context) error {
	if !i.running.CompareAndSwap(false, true) {
		return errors.New("instance already running")
	}

	initial, err := i.initialState(ctx)
	if err != nil {
		return fmt.Errorf("load chain: %w", err)
	}
	i.current.Store(initial)
	i.broadcast()
	i.logger.Info("instance starting", "chain_length", initial.Agent.ChainLength())

	for {
		if w, ok := i.queue.TryDequeue(); ok {
			i.process(ctx, w)
			continue
		}

		select {
		case <-ctx.Done():
			i.logger.Info("instance stopping: context cancelled")
			i.Stop()
			return ctx.Err()

		case <-i.queue.Wait():
			// The signal channel is closed with the queue, so a closed
			// queue fires here on every iteration.
			if i.queue.Closed() && i.queue.Len() == 0 {
				i.logger.Info("instance stopping: action channel closed")
				i.broadcast()
				return nil
			}
		}
	}
}

func (i *Instance) process(ctx context.Context, w ir.ActionWrapper) {
	next := i.reducer.Reduce(ctx, i.current.Load(), w)
	i.current.Store(next)

	if sig, ok := i.model.Process(w); ok {
		i.emit(sig)
	}
	i.broadcast()
}

func (i *Instance) emit(sig consistency.Signal[consistency.Event]) {
	for _, h := range i.handlers {
		h(sig)
	}
	if len(i.sinks) == 0 {
		return
	}
	exported, err := consistency.Export(sig)
	if err != nil {
		i.logger.Error("export signal failed", "event", sig.Event.Kind, "error", err)
		return
	}
	for _, s := range i.sinks {
		if err := s.Emit(exported); err != nil {
			i.logger.Warn("signal sink failed", "event", sig.Event.Kind, "error", err)
		}
	}
}

func (i *Instance) broadcast() {
	i.mu.Lock()
	defer i.mu.Unlock()
	close(i.changed)
	i.changed = make(chan struct{})
}

func (i *Instance) installedDna() (*ir.Dna, bool) {
	s := i.current.Load()
	if s == nil {
		return nil, false
	}
	return s.Nucleus.Dna()
}

// initialState resumes the chain held by the store, if any.
func (i *Instance) initialState(ctx context.Context) (*state.State, error) {
	if i.store == nil {
		return state.New(i.handle), nil
	}
	top, topAddr, ok, err := i.store.Top(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return state.New(i.handle), nil
	}

	dnaEntry, err := i.store.FirstOfType(ctx, ir.EntryTypeDna)
	if err != nil {
		return nil, err
	}
	agentEntry, err := i.store.FirstOfType(ctx, ir.EntryTypeAgentID)
	if err != nil {
		return nil, err
	}
	length, err := i.store.Length(ctx)
	if err != nil {
		return nil, err
	}

	dna, ok := dnaEntry.(ir.DnaEntry)
	if !ok {
		return nil, fmt.Errorf("genesis dna entry has type %s", dnaEntry.EntryType())
	}
	agent, ok := agentEntry.(ir.AgentIDEntry)
	if !ok {
		return nil, fmt.Errorf("genesis agent entry has type %s", agentEntry.EntryType())
	}

	// The model learns the agent from the Commit it never saw.
	i.model.Process(ir.ActionWrapper{Action: ir.Commit{Entry: agent}})

	i.logger.Info("resuming chain", "dna", dna.Dna.Name, "agent_id", agent.PubSignKey, "chain_length", length)
	return state.Restore(i.handle, state.Chain{
		Dna:        dna.Dna,
		AgentID:    agent.PubSignKey,
		Top:        top,
		TopAddress: topAddr,
		Length:     length,
	}), nil
}
