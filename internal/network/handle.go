package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/hcore/internal/codec"
)

// P2pNetwork is the transport port. Send delivers one encoded Message.
type P2pNetwork interface {
	Send(ctx context.Context, data []byte) error
	Close() error
}

// errNoNetwork is returned by Handle.Send while detached.
var errNoNetwork = errors.New("no network attached")

// Handle holds the attached transport. It is shared by every State
// snapshot of an instance.
type Handle struct {
	mu  sync.Mutex
	net P2pNetwork
}

// NewHandle returns a detached handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Attach installs n, returning the transport it replaced, if any.
func (h *Handle) Attach(n P2pNetwork) P2pNetwork {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.net
	h.net = n
	return prev
}

// Detach removes and returns the attached transport.
func (h *Handle) Detach() P2pNetwork {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.net
	h.net = nil
	return prev
}

// Present reports whether a transport is attached.
func (h *Handle) Present() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.net != nil
}

// Send encodes msg and hands it to the attached transport.
func (h *Handle) Send(ctx context.Context, msg Message) error {
	data, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Kind, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.net == nil {
		return errNoNetwork
	}
	return h.net.Send(ctx, data)
}
