// Package instance runs one agent: the action queue, the single-writer
// reducer loop, and publication of immutable state snapshots.
//
// Any goroutine may Dispatch. Actions are sequenced under the queue lock,
// so sequence order is dispatch order, and Run applies them one at a time:
//
//	reduce → publish snapshot → consistency model → emit signals → broadcast change
//
// Readers never lock. State returns the latest snapshot; Changed returns a
// channel closed at the next snapshot, which is how completion futures wait.
package instance
