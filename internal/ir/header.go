package ir

import "time"

// ChainHeader records one commit on an agent's source chain. Link points at
// the previous header, forming the chain; CrudLink points at the entry an
// update or deletion supersedes.
type ChainHeader struct {
	EntryType    EntryType    `json:"entry_type"`
	EntryAddress Address      `json:"entry_address"`
	Provenances  []Provenance `json:"provenances"`
	Link         Address      `json:"link,omitempty"`
	CrudLink     Address      `json:"crud_link,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Provenance is a claimed source address plus its signature.
type Provenance struct {
	Source    Address `json:"source"`
	Signature string  `json:"signature"`
}
