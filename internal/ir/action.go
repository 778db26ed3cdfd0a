package ir

import "encoding/json"

// ActionKind names a variant of Action.
type ActionKind string

const (
	KindCommit                     ActionKind = "Commit"
	KindPublish                    ActionKind = "Publish"
	KindHold                       ActionKind = "Hold"
	KindUpdateEntry                ActionKind = "UpdateEntry"
	KindRemoveEntry                ActionKind = "RemoveEntry"
	KindAddLink                    ActionKind = "AddLink"
	KindRemoveLink                 ActionKind = "RemoveLink"
	KindAddPendingValidation       ActionKind = "AddPendingValidation"
	KindRemovePendingValidation    ActionKind = "RemovePendingValidation"
	KindSignalZomeFunctionCall     ActionKind = "SignalZomeFunctionCall"
	KindReturnZomeFunctionResult   ActionKind = "ReturnZomeFunctionResult"
	KindInitializeChain            ActionKind = "InitializeChain"
	KindInitNetwork                ActionKind = "InitNetwork"
	KindShutdownNetwork            ActionKind = "ShutdownNetwork"
	KindGetValidationPackage       ActionKind = "GetValidationPackage"
	KindHandleGetValidationPackage ActionKind = "HandleGetValidationPackage"
	KindQuery                      ActionKind = "Query"
	KindHandleQuery                ActionKind = "HandleQuery"
	KindSendDirectMessage          ActionKind = "SendDirectMessage"
	KindResolveDirectConnection    ActionKind = "ResolveDirectConnection"
	KindHandleCustomSendResponse   ActionKind = "HandleCustomSendResponse"
)

// AllActionKinds enumerates every Action variant in declaration order.
func AllActionKinds() []ActionKind {
	return []ActionKind{
		KindCommit,
		KindPublish,
		KindHold,
		KindUpdateEntry,
		KindRemoveEntry,
		KindAddLink,
		KindRemoveLink,
		KindAddPendingValidation,
		KindRemovePendingValidation,
		KindSignalZomeFunctionCall,
		KindReturnZomeFunctionResult,
		KindInitializeChain,
		KindInitNetwork,
		KindShutdownNetwork,
		KindGetValidationPackage,
		KindHandleGetValidationPackage,
		KindQuery,
		KindHandleQuery,
		KindSendDirectMessage,
		KindResolveDirectConnection,
		KindHandleCustomSendResponse,
	}
}

// Action is a state mutation request. Actions are immutable once built and
// are the only way state changes. The set of implementations is closed.
type Action interface {
	Kind() ActionKind
	isAction()
}

// ActionWrapper is an Action with its dispatch identity. Seq is the
// position in the dispatch queue; ID is a UUIDv7.
type ActionWrapper struct {
	ID     string `json:"id"`
	Seq    int64  `json:"seq"`
	Action Action `json:"-"`
}

// Commit appends an entry to the local source chain.
type Commit struct {
	Entry       Entry
	CrudLink    Address
	Provenances []Provenance
}

// Publish announces a committed entry to the DHT.
type Publish struct {
	Address Address
}

// Hold stores validated content received from the network.
type Hold struct {
	EntryWithHeader EntryWithHeader
}

// UpdateEntry records that Old was superseded by New.
type UpdateEntry struct {
	Old Address
	New Address
}

// RemoveEntry records that Old was deleted by the deletion entry New.
type RemoveEntry struct {
	Old Address
	New Address
}

// AddLink stores a link on the DHT.
type AddLink struct {
	Link LinkData
}

// RemoveLink removes a link, carrying the LinkRemove entry that asked for it.
type RemoveLink struct {
	Entry Entry
}

// AddPendingValidation queues received content until its dependencies are held.
type AddPendingValidation struct {
	Validation PendingValidation
}

// RemovePendingValidation drops queued content once handled.
type RemovePendingValidation struct {
	Address  Address
	Workflow ValidatingWorkflow
}

// SignalZomeFunctionCall announces that a zome call is about to execute.
type SignalZomeFunctionCall struct {
	Call ZomeFnCall
}

// ReturnZomeFunctionResult delivers the result of a zome call.
type ReturnZomeFunctionResult struct {
	Response ExecuteZomeFnResponse
}

// InitializeChain installs the DNA into the nucleus.
type InitializeChain struct {
	Dna Dna
}

// InitNetwork attaches the instance to a network.
type InitNetwork struct {
	Settings NetworkSettings
}

// ShutdownNetwork detaches the instance from its network.
type ShutdownNetwork struct{}

// GetValidationPackage asks the author of Header for its validation package.
type GetValidationPackage struct {
	Header ChainHeader
}

// HandleGetValidationPackage delivers the answer to GetValidationPackage.
// A nil Package with empty Err means the author had none.
type HandleGetValidationPackage struct {
	Address Address
	Package *ValidationPackage
	Err     string
}

// Query asks the network for an entry or its links.
type Query struct {
	Key QueryKey
}

// HandleQuery delivers the answer to Query.
type HandleQuery struct {
	Key    QueryKey
	Result *QueryResult
	Err    string
}

// SendDirectMessage opens a node-to-node conversation.
type SendDirectMessage struct {
	ID      string
	To      Address
	Message DirectMessage
}

// ResolveDirectConnection closes the conversation ID.
type ResolveDirectConnection struct {
	ID string
}

// HandleCustomSendResponse delivers the reply to a custom direct message.
type HandleCustomSendResponse struct {
	ID    string
	Reply json.RawMessage
	Err   string
}

func (Commit) Kind() ActionKind                     { return KindCommit }
func (Publish) Kind() ActionKind                    { return KindPublish }
func (Hold) Kind() ActionKind                       { return KindHold }
func (UpdateEntry) Kind() ActionKind                { return KindUpdateEntry }
func (RemoveEntry) Kind() ActionKind                { return KindRemoveEntry }
func (AddLink) Kind() ActionKind                    { return KindAddLink }
func (RemoveLink) Kind() ActionKind                 { return KindRemoveLink }
func (AddPendingValidation) Kind() ActionKind       { return KindAddPendingValidation }
func (RemovePendingValidation) Kind() ActionKind    { return KindRemovePendingValidation }
func (SignalZomeFunctionCall) Kind() ActionKind     { return KindSignalZomeFunctionCall }
func (ReturnZomeFunctionResult) Kind() ActionKind   { return KindReturnZomeFunctionResult }
func (InitializeChain) Kind() ActionKind            { return KindInitializeChain }
func (InitNetwork) Kind() ActionKind                { return KindInitNetwork }
func (ShutdownNetwork) Kind() ActionKind            { return KindShutdownNetwork }
func (GetValidationPackage) Kind() ActionKind       { return KindGetValidationPackage }
func (HandleGetValidationPackage) Kind() ActionKind { return KindHandleGetValidationPackage }
func (Query) Kind() ActionKind                      { return KindQuery }
func (HandleQuery) Kind() ActionKind                { return KindHandleQuery }
func (SendDirectMessage) Kind() ActionKind          { return KindSendDirectMessage }
func (ResolveDirectConnection) Kind() ActionKind    { return KindResolveDirectConnection }
func (HandleCustomSendResponse) Kind() ActionKind   { return KindHandleCustomSendResponse }

func (Commit) isAction()                     {}
func (Publish) isAction()                    {}
func (Hold) isAction()                       {}
func (UpdateEntry) isAction()                {}
func (RemoveEntry) isAction()                {}
func (AddLink) isAction()                    {}
func (RemoveLink) isAction()                 {}
func (AddPendingValidation) isAction()       {}
func (RemovePendingValidation) isAction()    {}
func (SignalZomeFunctionCall) isAction()     {}
func (ReturnZomeFunctionResult) isAction()   {}
func (InitializeChain) isAction()            {}
func (InitNetwork) isAction()                {}
func (ShutdownNetwork) isAction()            {}
func (GetValidationPackage) isAction()       {}
func (HandleGetValidationPackage) isAction() {}
func (Query) isAction()                      {}
func (HandleQuery) isAction()                {}
func (SendDirectMessage) isAction()          {}
func (ResolveDirectConnection) isAction()    {}
func (HandleCustomSendResponse) isAction()   {}
