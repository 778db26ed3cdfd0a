package network

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/roach88/hcore/internal/ir"
)

// Loopback is an in-memory transport. It decodes and records every
// message it is handed and passes each one to an optional callback, which
// tests and single-node runs use to answer requests.
type Loopback struct {
	mu     sync.Mutex
	sent   []Message
	closed bool
	onSend func(Message)
}

var _ P2pNetwork = (*Loopback)(nil)

// NewLoopback returns a Loopback calling onSend, which may be nil, for
// every message sent.
func NewLoopback(onSend func(Message)) *Loopback {
	return &Loopback{onSend: onSend}
}

// Factory returns a Factory that always attaches l.
func (l *Loopback) Factory() Factory {
	return func(ir.NetworkSettings) (P2pNetwork, error) {
		l.mu.Lock()
		l.closed = false
		l.mu.Unlock()
		return l, nil
	}
}

func (l *Loopback) Send(_ context.Context, data []byte) error {
	msg, err := DecodeMessage(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.New("loopback network closed")
	}
	l.sent = append(l.sent, msg)
	onSend := l.onSend
	l.mu.Unlock()

	if onSend != nil {
		onSend(msg)
	}
	return nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Sent returns a copy of every message sent so far.
func (l *Loopback) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.sent)
}
