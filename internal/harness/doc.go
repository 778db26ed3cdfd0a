// Package harness runs YAML scenarios against a real instance and checks
// the consistency signals they produce.
//
// A scenario names a CUE DNA directory and a list of steps. Each step
// dispatches one action (or makes one zome call) and may list the signal
// kinds that step must emit. Entries and calls are given aliases so later
// steps can refer to them; the recorded trace replaces every address with
// its alias, which keeps golden files readable and independent of content
// hashing.
//
// Runs are deterministic: a fixed agent key, a sequential action id
// generator and a logical clock for header timestamps.
package harness
