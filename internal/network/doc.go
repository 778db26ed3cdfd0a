// Package network tracks outstanding network work for one instance.
//
// State is a passive ledger: every dispatched network action and its
// response, in-flight validation package fetches keyed by entry address,
// in-flight queries keyed by QueryKey, open direct-message conversations
// keyed by id, and the local dna and agent identity. Only Reducer produces
// new States; everything else reads them.
//
// Each lookup answers with an Outcome that distinguishes four cases: never
// asked, asked and awaiting the network, failed, and arrived.
//
// The transport itself is behind the P2pNetwork port. Handle guards the
// attached transport with a mutex so it can be swapped when the network
// attaches or detaches; it is the only lock in the subsystem.
package network
