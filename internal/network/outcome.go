package network

import (
	"errors"
	"fmt"
)

// Status classifies an Outcome.
type Status int

const (
	// StatusUnasked means no request was ever made. It is the zero value,
	// so a missing map entry reads as unasked.
	StatusUnasked Status = iota
	// StatusAwaiting means the request is in flight.
	StatusAwaiting
	// StatusFailed means the network answered with an error.
	StatusFailed
	// StatusArrived means the answer is present.
	StatusArrived
)

func (s Status) String() string {
	switch s {
	case StatusUnasked:
		return "unasked"
	case StatusAwaiting:
		return "awaiting"
	case StatusFailed:
		return "failed"
	case StatusArrived:
		return "arrived"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the state of one network request.
type Outcome[T any] struct {
	status Status
	value  T
	err    string
}

// Awaiting returns the outcome of a request still in flight.
func Awaiting[T any]() Outcome[T] {
	return Outcome[T]{status: StatusAwaiting}
}

// Arrived returns a successful outcome.
func Arrived[T any](v T) Outcome[T] {
	return Outcome[T]{status: StatusArrived, value: v}
}

// Failed returns a failed outcome.
func Failed[T any](msg string) Outcome[T] {
	if msg == "" {
		msg = "unknown network error"
	}
	return Outcome[T]{status: StatusFailed, err: msg}
}

// Status returns which of the four cases o is.
func (o Outcome[T]) Status() Status {
	return o.status
}

// Value returns the answer and whether it arrived.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.status == StatusArrived
}

// Err returns the failure, or nil unless the outcome failed.
func (o Outcome[T]) Err() error {
	if o.status != StatusFailed {
		return nil
	}
	return errors.New(o.err)
}

// Terminal reports whether the outcome is final.
func (o Outcome[T]) Terminal() bool {
	return o.status == StatusFailed || o.status == StatusArrived
}
