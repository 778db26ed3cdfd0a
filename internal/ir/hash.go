package ir

import (
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEntry  = "hcore/entry/v1"
	DomainHeader = "hcore/header/v1"
)

// Address is a content address. Entry and header addresses are CIDv1
// strings (raw codec, sha2-256 multihash); agent addresses are the
// multibase-encoded public signing key.
type Address string

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

// CID decodes the address as a content identifier.
func (a Address) CID() (cid.Cid, error) {
	c, err := cid.Decode(string(a))
	if err != nil {
		return cid.Undef, fmt.Errorf("address %q is not a cid: %w", string(a), err)
	}
	return c, nil
}

// addressWithDomain computes a CIDv1 over SHA-256 with domain separation.
// Hashed bytes: domain + 0x00 + data
// The null byte separator prevents domain/data boundary ambiguity.
func addressWithDomain(domain string, data []byte) (Address, error) {
	buf := make([]byte, 0, len(domain)+1+len(data))
	buf = append(buf, domain...)
	buf = append(buf, 0x00)
	buf = append(buf, data...)

	sum, err := multihash.Sum(buf, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("multihash: %w", err)
	}
	return Address(cid.NewCidV1(cid.Raw, sum).String()), nil
}

// AddressOf computes the content address of an entry.
// The address of an AgentIDEntry is the agent's public signing key, so the
// agent's chain identity and its capability token coincide.
func AddressOf(e Entry) (Address, error) {
	if agent, ok := e.(AgentIDEntry); ok {
		return agent.PubSignKey, nil
	}
	env, err := EncodeEntry(e)
	if err != nil {
		return "", err
	}
	canonical, err := MarshalCanonical(map[string]any{
		"entry_type": string(env.EntryType),
		"content":    env.Content,
	})
	if err != nil {
		return "", fmt.Errorf("AddressOf: failed to marshal: %w", err)
	}
	return addressWithDomain(DomainEntry, canonical)
}

// Address computes the content address of a chain header.
func (h ChainHeader) Address() (Address, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("header address: %w", err)
	}
	canonical, err := CanonicalizeJSON(raw)
	if err != nil {
		return "", fmt.Errorf("header address: failed to marshal: %w", err)
	}
	return addressWithDomain(DomainHeader, canonical)
}
