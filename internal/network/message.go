package network

import (
	"fmt"

	"github.com/roach88/hcore/internal/codec"
	"github.com/roach88/hcore/internal/ir"
)

// MessageKind names an outgoing network message.
type MessageKind string

const (
	MsgPublish              MessageKind = "publish"
	MsgQuery                MessageKind = "query"
	MsgGetValidationPackage MessageKind = "get_validation_package"
	MsgDirect               MessageKind = "direct"
)

// Message is the unit handed to the transport. Only the fields relevant
// to Kind are set.
type Message struct {
	Kind       MessageKind       `cbor:"kind"`
	DnaAddress ir.Address        `cbor:"dna_address"`
	From       ir.Address        `cbor:"from"`
	To         ir.Address        `cbor:"to,omitempty"`
	ID         string            `cbor:"id,omitempty"`
	Address    ir.Address        `cbor:"address,omitempty"`
	Query      *ir.QueryKey      `cbor:"query,omitempty"`
	Entry      *ir.EntryEnvelope `cbor:"entry,omitempty"`
	Header     *ir.ChainHeader   `cbor:"header,omitempty"`
	Direct     *ir.DirectMessage `cbor:"direct,omitempty"`
}

// DecodeMessage decodes bytes produced by Handle.Send.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := codec.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode network message: %w", err)
	}
	return msg, nil
}
