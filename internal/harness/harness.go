package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/hcore/internal/capability"
	"github.com/roach88/hcore/internal/consistency"
	"github.com/roach88/hcore/internal/dna"
	"github.com/roach88/hcore/internal/instance"
	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/keystore"
	"github.com/roach88/hcore/internal/network"
	"github.com/roach88/hcore/internal/nucleus"
	"github.com/roach88/hcore/internal/state"
	"github.com/roach88/hcore/internal/store"
	"github.com/roach88/hcore/internal/testutil"
)

// Agent and stranger keys are fixed so traces are reproducible.
var (
	agentSeed    = bytes.Repeat([]byte{1}, 32)
	strangerSeed = bytes.Repeat([]byte{2}, 32)
)

// Options configures a run.
type Options struct {
	// StorePath is the SQLite database used for the chain. Empty means an
	// in-memory database.
	StorePath string

	// Network attaches a loopback network.
	Network bool

	Logger *slog.Logger
}

// Harness holds one scenario run.
type Harness struct {
	inst     *instance.Instance
	bridge   *nucleus.Bridge
	store    *store.Store
	loopback *network.Loopback
	agent    *keystore.KeyPair
	stranger *keystore.KeyPair
	logger   *slog.Logger

	mu      sync.Mutex
	signals []consistency.Signal[consistency.Event]

	aliases map[string]ir.Address
	entries map[string]ir.Entry
	calls   int
}

// Run executes s against a fresh instance and evaluates its step
// expectations and assertions.
//
// An error is returned when the run itself cannot proceed (bad DNA, store
// failure, unknown alias); failed expectations are reported in the Result.
func Run(ctx context.Context, s *Scenario, opts Options) (*Result, error) {
	h, err := newHarness(s, opts)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	d, err := dna.LoadDir(s.Dna)
	if err != nil {
		return nil, fmt.Errorf("load dna: %w", err)
	}
	if verrs := dna.Validate(d); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid dna: %s", verrs[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.inst.Run(ctx) }()
	defer func() {
		h.inst.Stop()
		h.bridge.Wait()
		<-done
	}()

	agentEntry := ir.AgentIDEntry{Nick: "agent", PubSignKey: h.agent.Address()}
	if err := h.inst.Initialize(ctx, *d, agentEntry); err != nil {
		return nil, err
	}

	result := &Result{Pass: true}
	for i, step := range s.Steps {
		before := h.signalCount()
		if err := h.runStep(ctx, step, result, i); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if step.Expect != nil {
			got := kinds(h.signalsSince(before))
			if !slices.Equal(got, step.Expect) {
				result.AddError("step %d: expected signals %v, got %v", i, step.Expect, got)
			}
		}
	}

	final, err := h.inst.State()
	if err != nil {
		return nil, err
	}
	if err := h.record(result); err != nil {
		return nil, err
	}
	for i, a := range s.Assertions {
		if err := h.evaluate(a, result, final); err != nil {
			result.AddError("assertion %d (%s): %v", i, a.Type, err)
		}
	}
	return result, nil
}

func newHarness(s *Scenario, opts Options) (*Harness, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	path := opts.StorePath
	if path == "" {
		path = ":memory:"
	}

	agent, err := keystore.FromSeed(agentSeed)
	if err != nil {
		return nil, err
	}
	stranger, err := keystore.FromSeed(strangerSeed)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:    st,
		agent:    agent,
		stranger: stranger,
		logger:   logger,
		aliases:  map[string]ir.Address{"agent": agent.Address(), "stranger": stranger.Address()},
		entries:  map[string]ir.Entry{},
	}

	clock := testutil.NewDeterministicClock()
	instOpts := []instance.Option{
		instance.WithStore(st),
		instance.WithSigner(agent),
		instance.WithIDGenerator(testutil.NewSequentialIDGenerator("action")),
		instance.WithTimeSource(clock.Now),
		instance.WithSignalHandler(h.observe),
		instance.WithLogger(logger),
	}
	if opts.Network || s.Network {
		h.loopback = network.NewLoopback(nil)
		instOpts = append(instOpts, instance.WithNetwork(h.loopback.Factory()))
	}
	h.inst = instance.New(instOpts...)
	h.bridge = nucleus.NewBridge(h.inst, nucleus.Echo{},
		capability.New(keystore.Ed25519Verifier{}, capability.WithLogger(logger)),
		nucleus.WithChain(st),
		nucleus.WithLogger(logger),
	)
	return h, nil
}

// observe runs on the instance loop.
func (h *Harness) observe(sig consistency.Signal[consistency.Event]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, sig)
}

func (h *Harness) signalCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.signals)
}

func (h *Harness) signalsSince(n int) []consistency.Signal[consistency.Event] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.signals[n:])
}

func kinds(sigs []consistency.Signal[consistency.Event]) []string {
	out := make([]string, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, string(s.Event.Kind))
	}
	return out
}

func (h *Harness) runStep(ctx context.Context, step Step, result *Result, index int) error {
	switch {
	case step.Commit != nil:
		return h.commit(ctx, *step.Commit)
	case step.Publish != "":
		addr, err := h.address(step.Publish)
		if err != nil {
			return err
		}
		w, err := h.inst.Dispatch(ir.Publish{Address: addr})
		if err != nil {
			return err
		}
		_, err = h.inst.WaitFor(ctx, func(s *state.State) bool {
			_, ok := s.Network.ActionResponse(w.ID)
			return ok
		})
		return err
	case step.Hold != "":
		ewh, err := h.held(ctx, step.Hold)
		if err != nil {
			return err
		}
		return h.apply(ctx, ir.Hold{EntryWithHeader: ewh})
	case step.UpdateEntry != nil:
		old, replacement, err := h.pair(*step.UpdateEntry)
		if err != nil {
			return err
		}
		return h.apply(ctx, ir.UpdateEntry{Old: old, New: replacement})
	case step.RemoveEntry != nil:
		old, deletion, err := h.pair(*step.RemoveEntry)
		if err != nil {
			return err
		}
		return h.apply(ctx, ir.RemoveEntry{Old: old, New: deletion})
	case step.AddLink != "":
		add, ok := h.entries[step.AddLink].(ir.LinkAddEntry)
		if !ok {
			return fmt.Errorf("add_link: %q is not a %s commit", step.AddLink, ir.EntryTypeLinkAdd)
		}
		return h.apply(ctx, ir.AddLink{Link: add.Link})
	case step.RemoveLink != "":
		remove, ok := h.entries[step.RemoveLink].(ir.LinkRemoveEntry)
		if !ok {
			return fmt.Errorf("remove_link: %q is not a %s commit", step.RemoveLink, ir.EntryTypeLinkRemove)
		}
		return h.apply(ctx, ir.RemoveLink{Entry: remove})
	case step.AddPendingValidation != "":
		ewh, err := h.held(ctx, step.AddPendingValidation)
		if err != nil {
			return err
		}
		return h.apply(ctx, ir.AddPendingValidation{Validation: ir.PendingValidation{
			EntryWithHeader: ewh,
			Workflow:        ir.WorkflowHoldEntry,
		}})
	case step.RemovePendingValidation != "":
		addr, err := h.address(step.RemovePendingValidation)
		if err != nil {
			return err
		}
		return h.apply(ctx, ir.RemovePendingValidation{Address: addr, Workflow: ir.WorkflowHoldEntry})
	case step.Call != nil:
		return h.call(ctx, *step.Call, result, index)
	default:
		return errors.New("no action")
	}
}

// apply dispatches a and waits until the loop has processed it.
func (h *Harness) apply(ctx context.Context, a ir.Action) error {
	w, err := h.inst.Dispatch(a)
	if err != nil {
		return err
	}
	_, err = h.inst.WaitFor(ctx, func(s *state.State) bool { return s.Seq >= w.Seq })
	return err
}

func (h *Harness) commit(ctx context.Context, c CommitStep) error {
	entry, err := h.buildEntry(c)
	if err != nil {
		return fmt.Errorf("commit %s: %w", c.As, err)
	}
	crudLink, err := h.optionalAddress(c.CrudLink)
	if err != nil {
		return err
	}

	w, err := h.inst.Dispatch(ir.Commit{Entry: entry, CrudLink: crudLink})
	if err != nil {
		return err
	}
	s, err := h.inst.WaitFor(ctx, func(s *state.State) bool {
		_, ok := s.Agent.CommitResponse(w.ID)
		return ok
	})
	if err != nil {
		return err
	}
	resp, _ := s.Agent.CommitResponse(w.ID)
	if resp.Err != "" {
		return fmt.Errorf("commit %s: %s", c.As, resp.Err)
	}
	h.aliases[c.As] = resp.Address
	h.entries[c.As] = entry
	return nil
}

func (h *Harness) buildEntry(c CommitStep) (ir.Entry, error) {
	switch ir.EntryType(c.Type) {
	case ir.EntryTypeDeletion:
		deleted, err := h.address(c.Deletes)
		if err != nil {
			return nil, err
		}
		return ir.DeletionEntry{Deleted: deleted}, nil
	case ir.EntryTypeLinkAdd, ir.EntryTypeLinkRemove:
		base, err := h.address(c.Base)
		if err != nil {
			return nil, err
		}
		target, err := h.address(c.Target)
		if err != nil {
			return nil, err
		}
		link := ir.LinkData{Base: base, Target: target, LinkType: c.LinkType, Tag: c.Tag}
		if ir.EntryType(c.Type) == ir.EntryTypeLinkAdd {
			return ir.LinkAddEntry{Link: link}, nil
		}
		removed := make([]ir.Address, 0, len(c.Removes))
		for _, alias := range c.Removes {
			addr, err := h.address(alias)
			if err != nil {
				return nil, err
			}
			removed = append(removed, addr)
		}
		return ir.LinkRemoveEntry{Link: link, Removed: removed}, nil
	}

	if ir.EntryType(c.Type).IsSys() {
		return nil, fmt.Errorf("system entry type %s cannot be committed from a scenario", c.Type)
	}
	value, err := json.Marshal(c.Value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return ir.AppEntry{Type: ir.EntryType(c.Type), Value: value}, nil
}

func (h *Harness) call(ctx context.Context, c CallStep, result *Result, index int) error {
	h.calls++
	id := c.As
	if id == "" {
		id = fmt.Sprintf("call-%d", h.calls)
	}

	var signer keystore.Signer = h.agent
	switch c.Signer {
	case "", "agent":
	case "stranger":
		signer = h.stranger
	default:
		return fmt.Errorf("call %s: unknown signer %q", id, c.Signer)
	}

	params := "{}"
	if c.Params != nil {
		data, err := json.Marshal(c.Params)
		if err != nil {
			return fmt.Errorf("call %s: encode params: %w", id, err)
		}
		params = string(data)
	}

	call := ir.ZomeFnCall{
		ID:         id,
		ZomeName:   c.Zome,
		FnName:     c.Function,
		Cap:        capability.MakeCapRequestForCall(signer, h.agent.Address(), c.Function, params),
		Parameters: json.RawMessage(params),
	}
	_, err := h.bridge.CallZomeFunction(ctx, call)
	got := string(nucleus.CodeOf(err))
	if err != nil && got == "" {
		return err
	}
	if got != c.Error {
		result.AddError("step %d: call %s: expected error %q, got %q", index, id, c.Error, got)
	}
	return nil
}

func (h *Harness) held(ctx context.Context, alias string) (ir.EntryWithHeader, error) {
	addr, err := h.address(alias)
	if err != nil {
		return ir.EntryWithHeader{}, err
	}
	ewh, ok, err := h.store.EntryWithHeader(ctx, addr)
	if err != nil {
		return ir.EntryWithHeader{}, err
	}
	if !ok {
		return ir.EntryWithHeader{}, fmt.Errorf("%s (%s) is not on the chain", alias, addr)
	}
	return ewh, nil
}

func (h *Harness) pair(c CrudStep) (ir.Address, ir.Address, error) {
	old, err := h.address(c.Old)
	if err != nil {
		return "", "", err
	}
	replacement, err := h.address(c.New)
	if err != nil {
		return "", "", err
	}
	return old, replacement, nil
}

func (h *Harness) address(alias string) (ir.Address, error) {
	addr, ok := h.aliases[alias]
	if !ok {
		return "", fmt.Errorf("unknown alias %q", alias)
	}
	return addr, nil
}

func (h *Harness) optionalAddress(alias string) (ir.Address, error) {
	if alias == "" {
		return "", nil
	}
	return h.address(alias)
}

// record fills the result's kinds and aliased trace.
func (h *Harness) record(result *Result) error {
	sigs := h.signalsSince(0)
	result.Kinds = kinds(sigs)

	replacer := h.replacer()
	for _, sig := range sigs {
		exported, err := consistency.Export(sig)
		if err != nil {
			return err
		}
		line, err := json.Marshal(exported)
		if err != nil {
			return err
		}
		result.Trace = append(result.Trace, replacer.Replace(string(line)))
	}
	return nil
}

// replacer rewrites addresses to "@alias". When two aliases share an
// address the alphabetically first one is used.
func (h *Harness) replacer() *strings.Replacer {
	names := make([]string, 0, len(h.aliases))
	for name := range h.aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := map[ir.Address]bool{}
	var pairs []string
	for _, name := range names {
		addr := h.aliases[name]
		if seen[addr] {
			continue
		}
		seen[addr] = true
		pairs = append(pairs, string(addr), "@"+name)
	}
	return strings.NewReplacer(pairs...)
}
