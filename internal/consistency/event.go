package consistency

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/hcore/internal/ir"
)

// EventKind names a consistency event.
type EventKind string

const (
	// Causes.
	EventPublish                EventKind = "Publish"
	EventAddPendingValidation   EventKind = "AddPendingValidation"
	EventSignalZomeFunctionCall EventKind = "SignalZomeFunctionCall"

	// Effects.
	EventHold                     EventKind = "Hold"
	EventUpdateEntry              EventKind = "UpdateEntry"
	EventRemoveEntry              EventKind = "RemoveEntry"
	EventAddLink                  EventKind = "AddLink"
	EventRemoveLink               EventKind = "RemoveLink"
	EventRemovePendingValidation  EventKind = "RemovePendingValidation"
	EventReturnZomeFunctionResult EventKind = "ReturnZomeFunctionResult"
)

// Event is one observed or predicted occurrence. Which payload fields are
// set depends on Kind.
type Event struct {
	Kind       EventKind
	Address    ir.Address
	NewAddress ir.Address
	Link       ir.LinkData
	Entry      ir.Entry
	CallID     string
}

// Publish is the event of addr being published to the DHT.
func Publish(addr ir.Address) Event {
	return Event{Kind: EventPublish, Address: addr}
}

// Hold is the event of a node holding the entry at addr.
func Hold(addr ir.Address) Event {
	return Event{Kind: EventHold, Address: addr}
}

// UpdateEntry is the event of old being superseded by replacement.
func UpdateEntry(old, replacement ir.Address) Event {
	return Event{Kind: EventUpdateEntry, Address: old, NewAddress: replacement}
}

// RemoveEntry is the event of old being deleted by the deletion entry.
func RemoveEntry(old, deletion ir.Address) Event {
	return Event{Kind: EventRemoveEntry, Address: old, NewAddress: deletion}
}

// AddLink is the event of link being stored on the DHT.
func AddLink(link ir.LinkData) Event {
	return Event{Kind: EventAddLink, Link: link}
}

// RemoveLink is the event of the link named by a LinkRemove entry being
// removed.
func RemoveLink(entry ir.Entry) Event {
	return Event{Kind: EventRemoveLink, Entry: entry}
}

// AddPendingValidation is the event of addr being queued for validation.
func AddPendingValidation(addr ir.Address) Event {
	return Event{Kind: EventAddPendingValidation, Address: addr}
}

// RemovePendingValidation is the event of addr leaving the validation
// queue.
func RemovePendingValidation(addr ir.Address) Event {
	return Event{Kind: EventRemovePendingValidation, Address: addr}
}

// SignalZomeFunctionCall is the event of call callID being announced.
func SignalZomeFunctionCall(callID string) Event {
	return Event{Kind: EventSignalZomeFunctionCall, CallID: callID}
}

// ReturnZomeFunctionResult is the event of call callID returning.
func ReturnZomeFunctionResult(callID string) Event {
	return Event{Kind: EventReturnZomeFunctionResult, CallID: callID}
}

// MarshalJSON encodes the event externally tagged by kind:
//
//	{"Publish":"<address>"}
//	{"UpdateEntry":["<old>","<new>"]}
//	{"AddLink":{<link data>}}
//	{"RemoveLink":{"entry_type":...,"content":...}}
//	{"SignalZomeFunctionCall":"<call id>"}
func (e Event) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Kind {
	case EventPublish, EventHold, EventAddPendingValidation, EventRemovePendingValidation:
		payload = e.Address
	case EventUpdateEntry, EventRemoveEntry:
		payload = [2]ir.Address{e.Address, e.NewAddress}
	case EventAddLink:
		payload = e.Link
	case EventRemoveLink:
		env, err := ir.EncodeEntry(e.Entry)
		if err != nil {
			return nil, fmt.Errorf("RemoveLink event: %w", err)
		}
		payload = env
	case EventSignalZomeFunctionCall, EventReturnZomeFunctionResult:
		payload = e.CallID
	default:
		return nil, fmt.Errorf("unknown consistency event kind %q", e.Kind)
	}
	return json.Marshal(map[EventKind]any{e.Kind: payload})
}

// String returns the JSON form, or the kind if encoding fails.
func (e Event) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return string(e.Kind)
	}
	return string(data)
}
