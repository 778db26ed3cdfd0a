// Package codec is the CBOR encoding used for everything hcore persists or
// sends to peers: source chain rows in the store and outgoing network
// messages.
//
// Encoding is Core Deterministic (RFC 8949 section 4.2) so the same value
// always produces the same bytes. Timestamps encode as RFC 3339 text with
// nanoseconds so chain headers survive a round trip with their content
// address intact.
package codec
