package nucleus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hcore/internal/capability"
	"github.com/roach88/hcore/internal/consistency"
	"github.com/roach88/hcore/internal/instance"
	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/keystore"
	"github.com/roach88/hcore/internal/state"
	"github.com/roach88/hcore/internal/store"
)

func testDna() ir.Dna {
	return ir.Dna{
		Name: "test",
		Zomes: map[string]ir.Zome{
			"test_zome": {
				EntryTypes: map[string]ir.EntryTypeDef{
					"post":   {Sharing: ir.SharingPublic},
					"secret": {Sharing: ir.SharingPrivate},
				},
				Functions: []ir.FnDeclaration{{Name: "test"}, {Name: "fail"}, {Name: "panic"}, {Name: "block"}},
			},
		},
	}
}

func key(t *testing.T, b byte) *keystore.KeyPair {
	t.Helper()
	kp, err := keystore.FromSeed(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return kp
}

type signalLog struct {
	mu     sync.Mutex
	events []consistency.Event
}

func (l *signalLog) handle(sig consistency.Signal[consistency.Event]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, sig.Event)
}

func (l *signalLog) snapshot() []consistency.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]consistency.Event(nil), l.events...)
}

type fixture struct {
	inst    *instance.Instance
	bridge  *Bridge
	agent   *keystore.KeyPair
	signals *signalLog
	release chan struct{}
}

func testFunctions(release chan struct{}) Functions {
	fns := Functions{}
	fns.Register("test_zome", "test", func(_ context.Context, inv Invocation) (json.RawMessage, error) {
		return json.RawMessage(fmt.Sprintf(`{"echo":%s}`, inv.Call.ParametersString())), nil
	})
	fns.Register("test_zome", "fail", func(context.Context, Invocation) (json.RawMessage, error) {
		return nil, errors.New("bad input")
	})
	fns.Register("test_zome", "panic", func(context.Context, Invocation) (json.RawMessage, error) {
		panic("boom")
	})
	fns.Register("test_zome", "block", func(context.Context, Invocation) (json.RawMessage, error) {
		<-release
		return json.RawMessage(`"late"`), nil
	})
	return fns
}

// newFixture runs an initialized instance for alice with a SQLite chain.
func newFixture(t *testing.T, initialize bool) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "chain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{agent: key(t, 1), signals: &signalLog{}, release: make(chan struct{})}
	f.inst = instance.New(
		instance.WithStore(db),
		instance.WithSigner(f.agent),
		instance.WithSignalHandler(f.signals.handle),
	)
	f.bridge = NewBridge(f.inst, testFunctions(f.release), capability.New(keystore.Ed25519Verifier{}), WithChain(db))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.inst.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		f.bridge.Wait()
	})

	if initialize {
		err := f.inst.Initialize(testCtx(t), testDna(), ir.AgentIDEntry{Nick: "alice", PubSignKey: f.agent.Address()})
		require.NoError(t, err)
	} else {
		_, err := f.inst.WaitFor(testCtx(t), func(*state.State) bool { return true })
		require.NoError(t, err)
	}
	return f
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func makeCall(signer keystore.Signer, token ir.Address, fn, params string) ir.ZomeFnCall {
	return ir.ZomeFnCall{
		ZomeName:   "test_zome",
		FnName:     fn,
		Cap:        capability.MakeCapRequestForCall(signer, token, fn, params),
		Parameters: json.RawMessage(params),
	}
}

func TestSelfCallSucceeds(t *testing.T) {
	f := newFixture(t, true)

	got, err := f.bridge.CallZomeFunction(testCtx(t), makeCall(f.agent, f.agent.Address(), "test", `{"x":1}`))

	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":{"x":1}}`, string(got))
}

func TestBadTokenFailsBeforeDispatch(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.bridge.CallZomeFunction(testCtx(t), makeCall(f.agent, "fake_token", "test", `{}`))

	assert.True(t, IsCapabilityError(err), err)
	assert.Equal(t, CodeCapabilityCheckFailed, CodeOf(err))
	for _, e := range f.signals.snapshot() {
		assert.NotEqual(t, consistency.EventSignalZomeFunctionCall, e.Kind, "rejected call was announced")
	}
}

func TestForeignSignerCannotUseAgentToken(t *testing.T) {
	f := newFixture(t, true)
	mallory := key(t, 9)

	_, err := f.bridge.CallZomeFunction(testCtx(t), makeCall(mallory, f.agent.Address(), "test", `{}`))

	assert.True(t, IsCapabilityError(err))
}

func TestResolutionErrors(t *testing.T) {
	f := newFixture(t, true)
	ctx := testCtx(t)

	noZome := makeCall(f.agent, f.agent.Address(), "test", `{}`)
	noZome.ZomeName = "missing_zome"
	_, err := f.bridge.CallZomeFunction(ctx, noZome)
	assert.Equal(t, CodeZomeNotFound, CodeOf(err))
	assert.ErrorIs(t, err, ir.ErrZomeNotFound)
	assert.True(t, IsConfigurationError(err))

	_, err = f.bridge.CallZomeFunction(ctx, makeCall(f.agent, f.agent.Address(), "missing_fn", `{}`))
	assert.Equal(t, CodeFunctionNotFound, CodeOf(err))
	assert.ErrorIs(t, err, ir.ErrFunctionNotFound)
}

func TestDnaMissing(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.bridge.CallZomeFunction(testCtx(t), makeCall(f.agent, f.agent.Address(), "test", `{}`))

	assert.Equal(t, CodeDnaMissing, CodeOf(err))
	assert.True(t, IsConfigurationError(err))
}

func TestStateNotInitialized(t *testing.T) {
	inst := instance.New()
	b := NewBridge(inst, Echo{}, capability.New(keystore.Ed25519Verifier{}))

	_, err := b.CallZomeFunction(context.Background(), ir.ZomeFnCall{ZomeName: "z", FnName: "f"})

	assert.Equal(t, CodeStateNotInitialized, CodeOf(err))
	assert.True(t, IsInfrastructureError(err))
	assert.ErrorIs(t, err, instance.ErrStateNotInitialized)
}

func TestFunctionErrorsAreReturned(t *testing.T) {
	f := newFixture(t, true)
	ctx := testCtx(t)

	_, err := f.bridge.CallZomeFunction(ctx, makeCall(f.agent, f.agent.Address(), "fail", `{}`))
	assert.Equal(t, CodeFunctionFailed, CodeOf(err))
	assert.ErrorContains(t, err, "bad input")

	_, err = f.bridge.CallZomeFunction(ctx, makeCall(f.agent, f.agent.Address(), "panic", `{}`))
	assert.Equal(t, CodeFunctionFailed, CodeOf(err))
	assert.ErrorContains(t, err, "boom")
}

func TestClosedChannelEndsWait(t *testing.T) {
	f := newFixture(t, true)
	call := makeCall(f.agent, f.agent.Address(), "block", `{}`)
	call.ID = "blocked"

	errc := make(chan error, 1)
	go func() {
		_, err := f.bridge.CallZomeFunction(testCtx(t), call)
		errc <- err
	}()

	_, err := f.inst.WaitFor(testCtx(t), func(s *state.State) bool { return s.Nucleus.ZomeCallRunning("blocked") })
	require.NoError(t, err)
	f.inst.Stop()

	err = <-errc
	assert.Equal(t, CodeActionChannelClosed, CodeOf(err))
	assert.ErrorIs(t, err, instance.ErrActionChannelClosed)

	close(f.release)
	f.bridge.Wait()
}

func TestAbandonedCallStillCompletes(t *testing.T) {
	f := newFixture(t, true)
	call := makeCall(f.agent, f.agent.Address(), "block", `{}`)
	call.ID = "abandoned"
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := f.bridge.CallZomeFunction(ctx, call)
		errc <- err
	}()
	_, err := f.inst.WaitFor(testCtx(t), func(s *state.State) bool { return s.Nucleus.ZomeCallRunning("abandoned") })
	require.NoError(t, err)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(f.release)
	s, err := f.inst.WaitFor(testCtx(t), func(s *state.State) bool {
		_, ok := s.Nucleus.ZomeCallResult("abandoned")
		return ok
	})
	require.NoError(t, err)
	result, _ := s.Nucleus.ZomeCallResult("abandoned")
	assert.Equal(t, `"late"`, string(result.Value))
}

// settledRuntime serves a fixed state that has already reduced every
// announcement it hands out, and never changes.
type settledRuntime struct {
	state *state.State
}

func (r *settledRuntime) Dispatch(a ir.Action) (ir.ActionWrapper, error) {
	return ir.ActionWrapper{Seq: r.state.Seq, Action: a}, nil
}
func (r *settledRuntime) State() (*state.State, error) { return r.state, nil }
func (r *settledRuntime) Changed() <-chan struct{}      { return make(chan struct{}) }
func (r *settledRuntime) Closed() bool                  { return false }

func TestDroppedResultEndsWait(t *testing.T) {
	agent := key(t, 1)
	reducer := state.NewReducer()
	s := reducer.Reduce(context.Background(), state.New(nil), ir.ActionWrapper{ID: "a1", Seq: 1, Action: ir.InitializeChain{Dna: testDna()}})
	s = reducer.Reduce(context.Background(), s, ir.ActionWrapper{ID: "a2", Seq: 2, Action: ir.Commit{
		Entry: ir.AgentIDEntry{Nick: "alice", PubSignKey: agent.Address()},
	}})

	b := NewBridge(&settledRuntime{state: s}, testFunctions(nil), capability.New(keystore.Ed25519Verifier{}))
	t.Cleanup(b.Wait)

	_, err := b.CallZomeFunction(testCtx(t), makeCall(agent, agent.Address(), "test", `{}`))

	assert.Equal(t, CodeResultExpired, CodeOf(err), err)
}

func TestConcurrentCallsAnnounceBeforeReturn(t *testing.T) {
	f := newFixture(t, true)
	ctx := testCtx(t)
	const n = 100

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			params := fmt.Sprintf(`{"i":%d}`, i)
			call := makeCall(f.agent, f.agent.Address(), "test", params)
			call.ID = fmt.Sprintf("call-%d", i)
			got, err := f.bridge.CallZomeFunction(ctx, call)
			if err == nil && string(got) != fmt.Sprintf(`{"echo":%s}`, params) {
				err = fmt.Errorf("call %d got %s", i, got)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "call %d", i)
	}

	signalled := map[string]int{}
	returned := map[string]int{}
	for idx, e := range f.signals.snapshot() {
		switch e.Kind {
		case consistency.EventSignalZomeFunctionCall:
			signalled[e.CallID] = idx
		case consistency.EventReturnZomeFunctionResult:
			returned[e.CallID] = idx
		}
	}
	assert.Len(t, signalled, n)
	assert.Len(t, returned, n)
	for id, r := range returned {
		s, ok := signalled[id]
		require.True(t, ok, id)
		assert.Less(t, s, r, "call %s returned before it was announced", id)
	}
}

func TestGrantedCallFromAnotherAgent(t *testing.T) {
	f := newFixture(t, true)
	ctx := testCtx(t)
	bob := key(t, 2)
	carol := key(t, 3)

	grant, err := ir.NewCapTokenGrant("bob-only", ir.CapAssigned, []ir.Address{bob.Address()}, ir.CapFunctions{"test_zome": {"test"}})
	require.NoError(t, err)
	token, err := f.bridge.AuthorEntry(ctx, ir.CapTokenGrantEntry{Grant: grant}, "")
	require.NoError(t, err)

	got, ok, err := f.bridge.GetGrant(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, grant, got)

	_, err = f.bridge.CallZomeFunction(ctx, makeCall(bob, token, "test", `1`))
	assert.NoError(t, err)

	_, err = f.bridge.CallZomeFunction(ctx, makeCall(carol, token, "test", `1`))
	assert.True(t, IsCapabilityError(err), "carol is not an assignee")

	_, err = f.bridge.CallZomeFunction(ctx, makeCall(bob, token, "fail", `1`))
	assert.True(t, IsCapabilityError(err), "fail is not granted")
}

func TestGetGrantMisses(t *testing.T) {
	f := newFixture(t, true)
	ctx := testCtx(t)

	_, ok, err := f.bridge.GetGrant(ctx, "bnothing")
	require.NoError(t, err)
	assert.False(t, ok)

	postAddr, err := f.bridge.AuthorEntry(ctx, ir.AppEntry{Type: "post", Value: json.RawMessage(`"x"`)}, "")
	require.NoError(t, err)
	_, ok, err = f.bridge.GetGrant(ctx, postAddr)
	require.NoError(t, err)
	assert.False(t, ok, "a non-grant entry is not a grant")
}

func TestAuthorEntryEmitsPublishSignal(t *testing.T) {
	f := newFixture(t, true)
	ctx := testCtx(t)

	addr, err := f.bridge.AuthorEntry(ctx, ir.AppEntry{Type: "post", Value: json.RawMessage(`"hello"`)}, "")
	require.NoError(t, err)

	_, err = f.bridge.AuthorEntry(ctx, ir.AppEntry{Type: "secret", Value: json.RawMessage(`"shh"`)}, "")
	require.NoError(t, err)

	var published []ir.Address
	for _, e := range f.signals.snapshot() {
		if e.Kind == consistency.EventPublish {
			published = append(published, e.Address)
		}
	}
	assert.Equal(t, []ir.Address{addr}, published)
}

func TestEcho(t *testing.T) {
	got, err := Echo{}.Call(context.Background(), Invocation{Call: ir.ZomeFnCall{Parameters: json.RawMessage(`[1,2]`)}})
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))

	got, err = Echo{}.Call(context.Background(), Invocation{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(got))
}

func TestFunctionsUnknown(t *testing.T) {
	_, err := Functions{}.Call(context.Background(), Invocation{Call: ir.ZomeFnCall{ZomeName: "z", FnName: "f"}})
	assert.ErrorContains(t, err, "no implementation for z/f")
}

func TestCallErrorFormat(t *testing.T) {
	err := newCallError(CodeZomeNotFound, "z", "f", errors.New("gone"))
	assert.Equal(t, "ZOME_NOT_FOUND: gone (zome=z, function=f)", err.Error())

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, CodeZomeNotFound, CodeOf(wrapped))
	assert.Equal(t, CallErrorCode(""), CodeOf(errors.New("plain")))
}
