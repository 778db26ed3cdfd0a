// Package consistency predicts and confirms the distributed effects of
// local actions.
//
// Model observes every action in dispatch order. For actions whose effects
// appear elsewhere later it emits a pending Signal: a headline event plus
// the follow-up events that must eventually be observed, each tagged with
// the Group of nodes expected to observe it. When those follow-ups happen
// they arrive as actions too and are emitted as terminal signals, letting
// an observer match causes to effects.
//
// Commits are special: the signal for a commit is computed when the Commit
// is seen but only emitted when the matching Publish arrives, and at most
// once.
package consistency
