package instance

import "errors"

var (
	// ErrActionChannelClosed is returned once the instance stops accepting
	// actions.
	ErrActionChannelClosed = errors.New("action channel closed")

	// ErrStateNotInitialized is returned when state is read before Run has
	// published the first snapshot.
	ErrStateNotInitialized = errors.New("state not initialized")
)
