package instance

import (
	"log/slog"
	"time"

	"github.com/roach88/hcore/internal/consistency"
	"github.com/roach88/hcore/internal/keystore"
	"github.com/roach88/hcore/internal/network"
	"github.com/roach88/hcore/internal/store"
)

// SignalHandler receives consistency signals in-process, on the Run loop
// goroutine. It must not block.
type SignalHandler func(consistency.Signal[consistency.Event])

// Option configures an Instance.
type Option func(*Instance)

// WithStore persists the source chain in s and resumes any chain s already
// holds.
func WithStore(s *store.Store) Option {
	return func(i *Instance) {
		i.store = s
	}
}

// WithSigner sets the agent key that signs commits.
func WithSigner(s keystore.Signer) Option {
	return func(i *Instance) {
		i.signer = s
	}
}

// WithNetwork enables the network; Initialize attaches the transport built
// by f.
func WithNetwork(f network.Factory) Option {
	return func(i *Instance) {
		i.factory = f
	}
}

// WithIDGenerator sets the action id generator.
//
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(i *Instance) {
		i.ids = g
	}
}

// WithTimeSource sets the clock used for header timestamps.
func WithTimeSource(now func() time.Time) Option {
	return func(i *Instance) {
		i.now = now
	}
}

// WithSignalHandler registers an in-process signal consumer.
func WithSignalHandler(h SignalHandler) Option {
	return func(i *Instance) {
		i.handlers = append(i.handlers, h)
	}
}

// WithSink registers an out-of-process signal consumer. Sinks receive the
// exported string form.
func WithSink(s consistency.Sink) Option {
	return func(i *Instance) {
		i.sinks = append(i.sinks, s)
	}
}

// WithLogger sets the logger for the instance and everything it builds.
func WithLogger(l *slog.Logger) Option {
	return func(i *Instance) {
		i.logger = l
	}
}
