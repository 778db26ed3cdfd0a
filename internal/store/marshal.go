package store

import (
	"fmt"

	"github.com/roach88/hcore/internal/codec"
	"github.com/roach88/hcore/internal/ir"
)

func marshalEntry(e ir.Entry) (ir.EntryEnvelope, []byte, error) {
	env, err := ir.EncodeEntry(e)
	if err != nil {
		return ir.EntryEnvelope{}, nil, err
	}
	data, err := codec.Marshal(env)
	if err != nil {
		return ir.EntryEnvelope{}, nil, fmt.Errorf("marshal entry: %w", err)
	}
	return env, data, nil
}

func unmarshalEntry(data []byte) (ir.Entry, error) {
	var env ir.EntryEnvelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return env.Decode()
}

func marshalHeader(h ir.ChainHeader) ([]byte, error) {
	data, err := codec.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}
	return data, nil
}

func unmarshalHeader(data []byte) (ir.ChainHeader, error) {
	var h ir.ChainHeader
	if err := codec.Unmarshal(data, &h); err != nil {
		return ir.ChainHeader{}, fmt.Errorf("unmarshal header: %w", err)
	}
	return h, nil
}
