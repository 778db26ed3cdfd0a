package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/keystore"
)

type grantMap map[ir.Address]ir.CapTokenGrant

func (m grantMap) Grant(_ context.Context, token ir.Address) (ir.CapTokenGrant, bool, error) {
	g, ok := m[token]
	return g, ok, nil
}

type failingSource struct{}

func (failingSource) Grant(context.Context, ir.Address) (ir.CapTokenGrant, bool, error) {
	return ir.CapTokenGrant{}, false, errors.New("store offline")
}

func agent(t *testing.T, b byte) *keystore.KeyPair {
	t.Helper()
	kp, err := keystore.FromSeed(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return kp
}

func grant(t *testing.T, typ ir.CapabilityType, assignees ...ir.Address) (ir.CapTokenGrant, ir.Address) {
	t.Helper()
	g, err := ir.NewCapTokenGrant("g-"+string(typ), typ, assignees, ir.CapFunctions{"test_zome": {"test"}})
	require.NoError(t, err)
	token, err := g.Token()
	require.NoError(t, err)
	return g, token
}

func call(signer keystore.Signer, token ir.Address, zome, fn, params string) ir.ZomeFnCall {
	return ir.ZomeFnCall{
		ID:         "call-1",
		ZomeName:   zome,
		FnName:     fn,
		Cap:        MakeCapRequestForCall(signer, token, fn, params),
		Parameters: json.RawMessage(params),
	}
}

func newVerifier() *Verifier {
	return New(keystore.Ed25519Verifier{})
}

func TestEncodeCallDataForSigning(t *testing.T) {
	encoded := EncodeCallDataForSigning("test", `{"x":1}`)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, `test:{"x":1}`, string(decoded))
}

func TestVerifyCallSignature(t *testing.T) {
	alice := agent(t, 1)
	bob := agent(t, 2)
	v := newVerifier()

	req := MakeCapRequestForCall(alice, "token", "f", "{}")

	assert.True(t, v.VerifyCallSignature(req.Provenance, "f", "{}"))
	assert.False(t, v.VerifyCallSignature(req.Provenance, "g", "{}"), "different function")
	assert.False(t, v.VerifyCallSignature(req.Provenance, "f", `{"x":1}`), "different parameters")

	stolen := ir.Provenance{Source: bob.Address(), Signature: req.Provenance.Signature}
	assert.False(t, v.VerifyCallSignature(stolen, "f", "{}"), "signature claimed by another source")
}

func TestMakeCapRequestForCall(t *testing.T) {
	alice := agent(t, 1)

	req := MakeCapRequestForCall(alice, "token", "some_fn", "{}")

	assert.Equal(t, ir.Address("token"), req.CapToken)
	assert.Equal(t, alice.Address(), req.Provenance.Source)
	assert.Equal(t, alice.Sign(EncodeCallDataForSigning("some_fn", "{}")), req.Provenance.Signature)
}

func TestVerifyGrantAssigned(t *testing.T) {
	alice := agent(t, 1)
	bob := agent(t, 2)
	v := newVerifier()
	g, token := grant(t, ir.CapAssigned, alice.Address())

	assert.True(t, v.VerifyGrant(g, call(alice, token, "test_zome", "test", "{}")), "assignee admitted")
	assert.False(t, v.VerifyGrant(g, call(bob, token, "test_zome", "test", "{}")), "non-assignee rejected")
}

func TestVerifyGrantPublicAndTransferable(t *testing.T) {
	v := newVerifier()

	for _, typ := range []ir.CapabilityType{ir.CapPublic, ir.CapTransferable} {
		t.Run(string(typ), func(t *testing.T) {
			g, token := grant(t, typ)
			for _, b := range []byte{1, 2, 3} {
				caller := agent(t, b)
				assert.True(t, v.VerifyGrant(g, call(caller, token, "test_zome", "test", "{}")))
			}
		})
	}
}

func TestVerifyGrantRejectsTokenMismatch(t *testing.T) {
	alice := agent(t, 1)
	v := newVerifier()

	for _, typ := range []ir.CapabilityType{ir.CapPublic, ir.CapTransferable, ir.CapAssigned} {
		t.Run(string(typ), func(t *testing.T) {
			var assignees []ir.Address
			if typ == ir.CapAssigned {
				assignees = []ir.Address{alice.Address()}
			}
			g, _ := grant(t, typ, assignees...)
			assert.False(t, v.VerifyGrant(g, call(alice, "some-other-token", "test_zome", "test", "{}")))
		})
	}
}

func TestVerifyGrantRejectsUnauthorizedFunctions(t *testing.T) {
	alice := agent(t, 1)
	v := newVerifier()
	g, token := grant(t, ir.CapPublic)

	assert.False(t, v.VerifyGrant(g, call(alice, token, "other_zome", "test", "{}")), "zome not granted")
	assert.False(t, v.VerifyGrant(g, call(alice, token, "test_zome", "other", "{}")), "function not granted")
}

func TestVerifyGrantRejectsSignatureForOtherCall(t *testing.T) {
	alice := agent(t, 1)
	v := newVerifier()
	g, err := ir.NewCapTokenGrant("g", ir.CapPublic, nil, ir.CapFunctions{"z": {"f", "g"}})
	require.NoError(t, err)
	token, err := g.Token()
	require.NoError(t, err)

	signed := call(alice, token, "z", "f", "{}")
	require.True(t, v.VerifyGrant(g, signed))

	otherFn := signed
	otherFn.FnName = "g"
	assert.False(t, v.VerifyGrant(g, otherFn))

	otherParams := signed
	otherParams.Parameters = json.RawMessage(`{"x":1}`)
	assert.False(t, v.VerifyGrant(g, otherParams))
}

func TestVerifyGrantLogsFailingCheck(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v := New(keystore.Ed25519Verifier{}, WithLogger(logger))
	alice := agent(t, 1)
	bob := agent(t, 2)
	g, token := grant(t, ir.CapAssigned, alice.Address())

	require.False(t, v.VerifyGrant(g, call(bob, token, "test_zome", "test", "{}")))
	assert.Contains(t, buf.String(), "caller not one of the assignees")
}

func TestCheckCapability(t *testing.T) {
	alice := agent(t, 1)
	v := newVerifier()
	g, token := grant(t, ir.CapPublic)
	ctx := context.Background()

	assert.True(t, v.CheckCapability(ctx, grantMap{token: g}, call(alice, token, "test_zome", "test", "{}")))
	assert.False(t, v.CheckCapability(ctx, grantMap{}, call(alice, token, "test_zome", "test", "{}")), "absent grant denies")
	assert.False(t, v.CheckCapability(ctx, failingSource{}, call(alice, token, "test_zome", "test", "{}")), "lookup error denies")
}

func TestIsTokenTheAgent(t *testing.T) {
	alice := agent(t, 1)

	assert.True(t, IsTokenTheAgent(alice.Address(), MakeCapRequestForCall(alice, alice.Address(), "test", "{}")))
	assert.False(t, IsTokenTheAgent(alice.Address(), ir.CapabilityRequest{CapToken: "fake_token"}))
	assert.False(t, IsTokenTheAgent("", ir.CapabilityRequest{}))
}

func TestSelfCall(t *testing.T) {
	alice := agent(t, 1)
	bob := agent(t, 2)
	v := newVerifier()

	assert.True(t, v.SelfCall(alice.Address(), call(alice, alice.Address(), "test_zome", "test", "{}")))

	// bob presents alice's key as token but signs with bob's key
	assert.False(t, v.SelfCall(alice.Address(), call(bob, alice.Address(), "test_zome", "test", "{}")))

	// a forged provenance claiming alice's address does not verify
	forged := call(bob, alice.Address(), "test_zome", "test", "{}")
	forged.Cap.Provenance.Source = alice.Address()
	assert.False(t, v.SelfCall(alice.Address(), forged))
}

func TestAllowed(t *testing.T) {
	alice := agent(t, 1)
	v := newVerifier()
	ctx := context.Background()

	assert.True(t, v.Allowed(ctx, grantMap{}, alice.Address(), call(alice, alice.Address(), "test_zome", "test", "{}")),
		"self call needs no grant")
	assert.False(t, v.Allowed(ctx, grantMap{}, alice.Address(), call(alice, "unknown-token", "test_zome", "test", "{}")))
	assert.False(t, v.Allowed(ctx, grantMap{}, alice.Address(), call(agent(t, 2), alice.Address(), "test_zome", "test", "{}")),
		"agent token signed by another key needs a grant")
}
