// Package state holds the instance's shared state and the reducer that
// advances it.
//
// A State is an immutable snapshot made of four parts: the nucleus (DNA,
// zome call results, pending validations), the agent (source chain head
// and commit results), the DHT shard this node holds, and the network
// ledger. Reducer.Reduce is the only producer of new snapshots and is only
// called from the instance's action loop. Every other goroutine reads
// snapshots without locking.
package state
