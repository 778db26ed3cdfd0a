package ir

import "encoding/json"

// QueryKind selects what a network query asks for.
type QueryKind string

const (
	QueryEntry QueryKind = "entry"
	QueryLinks QueryKind = "links"
)

// QueryKey identifies one outstanding network query. It is comparable and
// used directly as a map key.
type QueryKey struct {
	Kind    QueryKind `json:"kind" cbor:"kind"`
	Address Address   `json:"address" cbor:"address"`
	ID      string    `json:"id" cbor:"id"`
}

// QueryResult is a network query answer: the entry found, or the link
// targets for a links query.
type QueryResult struct {
	Entry *EntryWithHeader `json:"entry,omitempty"`
	Links []Address        `json:"links,omitempty"`
}

// ValidationPackage carries what a validator needs to check an entry.
type ValidationPackage struct {
	Header             ChainHeader   `json:"header"`
	SourceChainHeaders []ChainHeader `json:"source_chain_headers,omitempty"`
}

// ValidatingWorkflow names the DHT workflow awaiting validation.
type ValidatingWorkflow string

const (
	WorkflowHoldEntry   ValidatingWorkflow = "hold_entry"
	WorkflowHoldLink    ValidatingWorkflow = "hold_link"
	WorkflowRemoveLink  ValidatingWorkflow = "remove_link"
	WorkflowUpdateEntry ValidatingWorkflow = "update_entry"
	WorkflowRemoveEntry ValidatingWorkflow = "remove_entry"
)

// PendingValidation is received content waiting on its dependencies before
// it can be validated and held.
type PendingValidation struct {
	EntryWithHeader EntryWithHeader    `json:"entry_with_header"`
	Dependencies    []Address          `json:"dependencies"`
	Workflow        ValidatingWorkflow `json:"workflow"`
}

// DirectMessageKind distinguishes node-to-node message payloads.
type DirectMessageKind string

const (
	DirectCustom                   DirectMessageKind = "custom"
	DirectRequestValidationPackage DirectMessageKind = "request_validation_package"
	DirectValidationPackage        DirectMessageKind = "validation_package"
)

// DirectMessage is one node-to-node message.
type DirectMessage struct {
	Kind    DirectMessageKind `json:"kind" cbor:"kind"`
	Payload json.RawMessage   `json:"payload" cbor:"payload"`
}

// NetworkSettings configures the network attachment of an instance.
type NetworkSettings struct {
	DnaAddress Address           `json:"dna_address"`
	AgentID    string            `json:"agent_id"`
	Config     map[string]string `json:"config,omitempty"`
}
