// Package keystore is the agent's signing and verification oracle.
//
// Agents are ed25519 key pairs. An agent's address is its public key in
// multibase base32, so any peer can verify a provenance from the address
// alone. Signatures are standard base64.
package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/multiformats/go-multibase"

	"github.com/roach88/hcore/internal/ir"
)

// Signer signs on behalf of one agent.
type Signer interface {
	Address() ir.Address
	Sign(data string) string
}

// Verifier checks that a provenance's signature over data was produced by
// the key behind its source address.
type Verifier interface {
	Verify(p ir.Provenance, data string) bool
}

// KeyPair is an ed25519 agent key.
type KeyPair struct {
	priv ed25519.PrivateKey
	addr ir.Address
}

var _ Signer = (*KeyPair)(nil)

// Generate creates a random key pair.
func Generate() (*KeyPair, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	return FromSeed(seed)
}

// FromSeed derives the key pair for a 32-byte seed.
func FromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	addr, err := AddressFromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &KeyPair{priv: priv, addr: addr}, nil
}

// Address returns the agent address, which is also its public signing key.
func (k *KeyPair) Address() ir.Address {
	return k.addr
}

// Seed returns the private seed.
func (k *KeyPair) Seed() []byte {
	return k.priv.Seed()
}

// Sign signs data and returns the base64 signature.
func (k *KeyPair) Sign(data string) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(k.priv, []byte(data)))
}

// AddressFromPublicKey encodes an ed25519 public key as an agent address.
func AddressFromPublicKey(pub ed25519.PublicKey) (ir.Address, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("expected public key length of %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	s, err := multibase.Encode(multibase.Base32, pub)
	if err != nil {
		return "", fmt.Errorf("encode public key: %w", err)
	}
	return ir.Address(s), nil
}

// PublicKeyFromAddress decodes an agent address back to its public key.
func PublicKeyFromAddress(addr ir.Address) (ed25519.PublicKey, error) {
	_, data, err := multibase.Decode(string(addr))
	if err != nil {
		return nil, fmt.Errorf("decode agent address %q: %w", addr, err)
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("agent address %q holds %d bytes, want %d", addr, len(data), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(data), nil
}

// Ed25519Verifier verifies provenances whose source is an agent address.
type Ed25519Verifier struct{}

var _ Verifier = Ed25519Verifier{}

// Verify reports whether p.Signature is a valid signature of data by
// p.Source. Malformed addresses or signatures do not verify.
func (Ed25519Verifier) Verify(p ir.Provenance, data string) bool {
	pub, err := PublicKeyFromAddress(p.Source)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(p.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, []byte(data), sig)
}
