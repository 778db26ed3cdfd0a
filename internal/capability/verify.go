// Package capability decides whether a zome call may run.
//
// A call carries a capability request: a token plus the caller's signature
// over the function name and parameters. The token names a CapTokenGrant
// entry on the local source chain; VerifyGrant checks the request against
// that grant. An agent may also call its own functions without a grant by
// presenting its own public key as the token (SelfCall).
package capability

import (
	"context"
	"encoding/base64"
	"log/slog"
	"slices"

	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/keystore"
)

// GrantSource resolves a token to the grant stored at that address.
// A missing or non-grant entry reports ok == false.
type GrantSource interface {
	Grant(ctx context.Context, token ir.Address) (grant ir.CapTokenGrant, ok bool, err error)
}

// Verifier checks capability requests.
type Verifier struct {
	oracle keystore.Verifier
	logger *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger used for denial diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// New returns a Verifier backed by the given signature oracle.
func New(oracle keystore.Verifier, opts ...Option) *Verifier {
	v := &Verifier{
		oracle: oracle,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// EncodeCallDataForSigning returns the string a caller signs for a call:
// base64 of "<function>:<parameters>".
func EncodeCallDataForSigning(function, parameters string) string {
	return base64.StdEncoding.EncodeToString([]byte(function + ":" + parameters))
}

// VerifyCallSignature reports whether provenance signs exactly this
// function and parameter text.
func (v *Verifier) VerifyCallSignature(provenance ir.Provenance, function, parameters string) bool {
	return v.oracle.Verify(provenance, EncodeCallDataForSigning(function, parameters))
}

// VerifyGrant checks call against grant. The checks run in a fixed order
// and the first failure denies: zome authorized, function authorized,
// token equal, signature valid, and for Assigned grants only, caller among
// the assignees.
func (v *Verifier) VerifyGrant(grant ir.CapTokenGrant, call ir.ZomeFnCall) bool {
	fns, ok := grant.Functions[call.ZomeName]
	if !ok {
		v.logger.Debug("capability denied: no grant for zome",
			"zome", call.ZomeName,
			"grant_id", grant.ID,
		)
		return false
	}
	if !slices.Contains(fns, call.FnName) {
		v.logger.Debug("capability denied: no grant for function",
			"zome", call.ZomeName,
			"function", call.FnName,
			"grant_id", grant.ID,
		)
		return false
	}

	token, err := grant.Token()
	if err != nil || token != call.Cap.CapToken {
		v.logger.Debug("capability denied: grant token does not match",
			"expected", token,
			"got", call.Cap.CapToken,
		)
		return false
	}

	if !v.VerifyCallSignature(call.Cap.Provenance, call.FnName, call.ParametersString()) {
		v.logger.Debug("capability denied: call signature did not match",
			"source", call.Cap.Provenance.Source,
			"function", call.FnName,
		)
		return false
	}

	switch grant.Type {
	case ir.CapPublic, ir.CapTransferable:
		return true
	case ir.CapAssigned:
		if !grant.IsAssignee(call.Cap.Provenance.Source) {
			v.logger.Debug("capability denied: caller not one of the assignees",
				"source", call.Cap.Provenance.Source,
				"grant_id", grant.ID,
			)
			return false
		}
		return true
	default:
		v.logger.Debug("capability denied: unknown capability type", "cap_type", grant.Type)
		return false
	}
}

// CheckCapability resolves the grant named by the call's token and
// verifies the call against it. A missing grant, or a lookup failure,
// denies the call.
func (v *Verifier) CheckCapability(ctx context.Context, grants GrantSource, call ir.ZomeFnCall) bool {
	grant, ok, err := grants.Grant(ctx, call.Cap.CapToken)
	if err != nil {
		v.logger.Warn("capability grant lookup failed",
			"token", call.Cap.CapToken,
			"error", err,
		)
		return false
	}
	if !ok {
		v.logger.Debug("capability denied: no grant at token", "token", call.Cap.CapToken)
		return false
	}
	return v.VerifyGrant(grant, call)
}

// IsTokenTheAgent reports whether the request presents the agent's own
// public signing key as its token.
func IsTokenTheAgent(agent ir.Address, request ir.CapabilityRequest) bool {
	return !agent.IsZero() && request.CapToken == agent
}

// SelfCall reports whether call may bypass grant lookup: the token is the
// local agent's key, the provenance source is that same agent, and the
// provenance signature verifies.
func (v *Verifier) SelfCall(agent ir.Address, call ir.ZomeFnCall) bool {
	return IsTokenTheAgent(agent, call.Cap) &&
		call.Cap.Provenance.Source == agent &&
		v.VerifyCallSignature(call.Cap.Provenance, call.FnName, call.ParametersString())
}

// Allowed is the complete admission decision for a call: a verified grant
// or a self call.
func (v *Verifier) Allowed(ctx context.Context, grants GrantSource, agent ir.Address, call ir.ZomeFnCall) bool {
	return v.CheckCapability(ctx, grants, call) || v.SelfCall(agent, call)
}

// MakeCapRequestForCall builds a capability request for calling function
// with parameters, signed by signer.
func MakeCapRequestForCall(signer keystore.Signer, token ir.Address, function, parameters string) ir.CapabilityRequest {
	return ir.CapabilityRequest{
		CapToken: token,
		Provenance: ir.Provenance{
			Source:    signer.Address(),
			Signature: signer.Sign(EncodeCallDataForSigning(function, parameters)),
		},
	}
}
