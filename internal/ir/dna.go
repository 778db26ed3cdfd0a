package ir

import (
	"fmt"
	"slices"
)

// Sharing controls whether entries of an app type leave the source chain.
type Sharing string

const (
	SharingPublic  Sharing = "public"
	SharingPrivate Sharing = "private"
)

// Dna is the versioned definition of the zomes an instance executes.
type Dna struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	UUID    string          `json:"uuid"`
	Zomes   map[string]Zome `json:"zomes"`
}

// Zome is a named unit of application logic.
type Zome struct {
	Description string                  `json:"description,omitempty"`
	EntryTypes  map[string]EntryTypeDef `json:"entry_types"`
	Functions   []FnDeclaration         `json:"functions"`
}

// EntryTypeDef declares an app entry type.
type EntryTypeDef struct {
	Description string  `json:"description,omitempty"`
	Sharing     Sharing `json:"sharing"`
}

// FnDeclaration declares a callable zome function.
type FnDeclaration struct {
	Name    string   `json:"name"`
	Inputs  []string `json:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
}

// GetZome returns the named zome.
func (d *Dna) GetZome(name string) (Zome, error) {
	z, ok := d.Zomes[name]
	if !ok {
		return Zome{}, fmt.Errorf("%w: %q in dna %q", ErrZomeNotFound, name, d.Name)
	}
	return z, nil
}

// GetFunction returns the declaration of fn in zome.
func (d *Dna) GetFunction(zome, fn string) (FnDeclaration, error) {
	z, err := d.GetZome(zome)
	if err != nil {
		return FnDeclaration{}, err
	}
	i := slices.IndexFunc(z.Functions, func(f FnDeclaration) bool { return f.Name == fn })
	if i < 0 {
		return FnDeclaration{}, fmt.Errorf("%w: %q in zome %q", ErrFunctionNotFound, fn, zome)
	}
	return z.Functions[i], nil
}

// EntryTypeDef finds the declaration of an app entry type in any zome.
func (d *Dna) EntryTypeDef(name string) (EntryTypeDef, bool) {
	for _, z := range d.Zomes {
		if def, ok := z.EntryTypes[name]; ok {
			return def, true
		}
	}
	return EntryTypeDef{}, false
}

// Address returns the content address of the DNA's genesis entry.
func (d *Dna) Address() (Address, error) {
	return AddressOf(DnaEntry{Dna: *d})
}
