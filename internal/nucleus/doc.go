// Package nucleus connects a synchronous zome function call to its
// asynchronous execution inside an instance.
//
// A call moves through
//
//	requested → validated → announced (SignalZomeFunctionCall) → executing → returned (ReturnZomeFunctionResult)
//
// Validation and capability checks happen before anything is dispatched.
// Execution happens on a worker goroutine that reports back only through
// the instance's action queue; the caller waits on state snapshots until
// the result for its call id appears.
package nucleus
