package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntryType names the kind of a chain entry. System types carry a "%"
// prefix; every other value is an application entry type declared by a zome.
type EntryType string

const (
	EntryTypeDna           EntryType = "%dna"
	EntryTypeAgentID       EntryType = "%agent_id"
	EntryTypeDeletion      EntryType = "%deletion"
	EntryTypeLinkAdd       EntryType = "%link_add"
	EntryTypeLinkRemove    EntryType = "%link_remove"
	EntryTypeCapTokenGrant EntryType = "%cap_token_grant"
)

// IsSys reports whether t is a system entry type.
func (t EntryType) IsSys() bool {
	return strings.HasPrefix(string(t), "%")
}

// CanPublish reports whether entries of this type go to the DHT.
// The DNA itself and capability grants stay on the source chain. App entry
// types are published unless their zome declares them private; an app type
// the DNA does not declare is not publishable.
func (t EntryType) CanPublish(dna *Dna) bool {
	switch t {
	case EntryTypeDna, EntryTypeCapTokenGrant:
		return false
	case EntryTypeAgentID, EntryTypeDeletion, EntryTypeLinkAdd, EntryTypeLinkRemove:
		return true
	}
	if t.IsSys() || dna == nil {
		return false
	}
	def, ok := dna.EntryTypeDef(string(t))
	if !ok {
		return false
	}
	return def.Sharing != SharingPrivate
}

// Entry is a chain entry. The set of implementations is closed.
type Entry interface {
	EntryType() EntryType
	isEntry()
}

// AppEntry is application data of a zome-declared entry type.
type AppEntry struct {
	Type  EntryType
	Value json.RawMessage
}

// DnaEntry is the genesis entry holding the instance's DNA.
type DnaEntry struct {
	Dna Dna `json:"dna"`
}

// AgentIDEntry records the authoring agent's identity.
type AgentIDEntry struct {
	Nick       string  `json:"nick"`
	PubSignKey Address `json:"pub_sign_key"`
}

// DeletionEntry marks Deleted as removed.
type DeletionEntry struct {
	Deleted Address `json:"deleted"`
}

// LinkAddEntry adds a link between two entries.
type LinkAddEntry struct {
	Link LinkData `json:"link"`
}

// LinkRemoveEntry removes a link previously added by the Removed entries.
type LinkRemoveEntry struct {
	Link    LinkData  `json:"link"`
	Removed []Address `json:"removed"`
}

// CapTokenGrantEntry persists a capability grant on the source chain.
type CapTokenGrantEntry struct {
	Grant CapTokenGrant `json:"grant"`
}

// LinkData describes a typed, tagged link from Base to Target.
type LinkData struct {
	Base     Address `json:"base"`
	Target   Address `json:"target"`
	LinkType string  `json:"link_type"`
	Tag      string  `json:"tag"`
}

func (e AppEntry) EntryType() EntryType         { return e.Type }
func (DnaEntry) EntryType() EntryType           { return EntryTypeDna }
func (AgentIDEntry) EntryType() EntryType       { return EntryTypeAgentID }
func (DeletionEntry) EntryType() EntryType      { return EntryTypeDeletion }
func (LinkAddEntry) EntryType() EntryType       { return EntryTypeLinkAdd }
func (LinkRemoveEntry) EntryType() EntryType    { return EntryTypeLinkRemove }
func (CapTokenGrantEntry) EntryType() EntryType { return EntryTypeCapTokenGrant }

func (AppEntry) isEntry()           {}
func (DnaEntry) isEntry()           {}
func (AgentIDEntry) isEntry()       {}
func (DeletionEntry) isEntry()      {}
func (LinkAddEntry) isEntry()       {}
func (LinkRemoveEntry) isEntry()    {}
func (CapTokenGrantEntry) isEntry() {}

// EntryEnvelope is the type-tagged serialized form of an entry, used for
// persistence, content addressing and wire transfer.
type EntryEnvelope struct {
	EntryType EntryType       `json:"entry_type" cbor:"entry_type"`
	Content   json.RawMessage `json:"content" cbor:"content"`
}

// EncodeEntry serializes e into its envelope.
func EncodeEntry(e Entry) (EntryEnvelope, error) {
	if e == nil {
		return EntryEnvelope{}, fmt.Errorf("encode entry: nil entry")
	}
	if app, ok := e.(AppEntry); ok {
		if app.Type.IsSys() || app.Type == "" {
			return EntryEnvelope{}, fmt.Errorf("encode entry: invalid app entry type %q", app.Type)
		}
		content := app.Value
		if len(content) == 0 {
			content = json.RawMessage("null")
		}
		if !json.Valid(content) {
			return EntryEnvelope{}, fmt.Errorf("encode entry: app entry %q holds invalid JSON", app.Type)
		}
		return EntryEnvelope{EntryType: app.Type, Content: content}, nil
	}
	content, err := json.Marshal(e)
	if err != nil {
		return EntryEnvelope{}, fmt.Errorf("encode entry %s: %w", e.EntryType(), err)
	}
	return EntryEnvelope{EntryType: e.EntryType(), Content: content}, nil
}

// Decode reconstructs the entry held by the envelope.
func (env EntryEnvelope) Decode() (Entry, error) {
	var (
		e   Entry
		err error
	)
	switch env.EntryType {
	case EntryTypeDna:
		var v DnaEntry
		err = json.Unmarshal(env.Content, &v)
		e = v
	case EntryTypeAgentID:
		var v AgentIDEntry
		err = json.Unmarshal(env.Content, &v)
		e = v
	case EntryTypeDeletion:
		var v DeletionEntry
		err = json.Unmarshal(env.Content, &v)
		e = v
	case EntryTypeLinkAdd:
		var v LinkAddEntry
		err = json.Unmarshal(env.Content, &v)
		e = v
	case EntryTypeLinkRemove:
		var v LinkRemoveEntry
		err = json.Unmarshal(env.Content, &v)
		e = v
	case EntryTypeCapTokenGrant:
		var v CapTokenGrantEntry
		err = json.Unmarshal(env.Content, &v)
		e = v
	case "":
		return nil, fmt.Errorf("decode entry: missing entry type")
	default:
		if env.EntryType.IsSys() {
			return nil, fmt.Errorf("decode entry: unknown system entry type %q", env.EntryType)
		}
		return AppEntry{Type: env.EntryType, Value: append(json.RawMessage(nil), env.Content...)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", env.EntryType, err)
	}
	return e, nil
}

// EntryWithHeader pairs an entry with the header that committed it.
type EntryWithHeader struct {
	Entry  Entry
	Header ChainHeader
}

type entryWithHeaderJSON struct {
	Entry  EntryEnvelope `json:"entry"`
	Header ChainHeader   `json:"header"`
}

// MarshalJSON encodes the entry through its envelope.
func (ewh EntryWithHeader) MarshalJSON() ([]byte, error) {
	env, err := EncodeEntry(ewh.Entry)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entryWithHeaderJSON{Entry: env, Header: ewh.Header})
}

// UnmarshalJSON decodes the entry through its envelope.
func (ewh *EntryWithHeader) UnmarshalJSON(data []byte) error {
	var raw entryWithHeaderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e, err := raw.Entry.Decode()
	if err != nil {
		return err
	}
	ewh.Entry = e
	ewh.Header = raw.Header
	return nil
}
