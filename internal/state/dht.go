package state

import (
	"maps"
	"slices"

	"github.com/roach88/hcore/internal/ir"
)

// CrudStatus is the lifecycle status of held content.
type CrudStatus int

const (
	CrudLive CrudStatus = iota
	CrudModified
	CrudDeleted
)

// DhtState is the content this node holds as a validator.
type DhtState struct {
	held   map[ir.Address]ir.EntryWithHeader
	status map[ir.Address]CrudStatus
	crud   map[ir.Address]ir.Address
	links  map[ir.LinkData]struct{}
}

func newDhtState() *DhtState {
	return &DhtState{
		held:   map[ir.Address]ir.EntryWithHeader{},
		status: map[ir.Address]CrudStatus{},
		crud:   map[ir.Address]ir.Address{},
		links:  map[ir.LinkData]struct{}{},
	}
}

// Held returns the held entry at addr.
func (d *DhtState) Held(addr ir.Address) (ir.EntryWithHeader, bool) {
	e, ok := d.held[addr]
	return e, ok
}

// Status returns the crud status of addr and, for modified or deleted
// content, the address of the entry that superseded it.
func (d *DhtState) Status(addr ir.Address) (CrudStatus, ir.Address) {
	return d.status[addr], d.crud[addr]
}

// HasLink reports whether link is held.
func (d *DhtState) HasLink(link ir.LinkData) bool {
	_, ok := d.links[link]
	return ok
}

// Links returns the held link targets from base in address order.
func (d *DhtState) Links(base ir.Address) []ir.Address {
	var out []ir.Address
	for l := range d.links {
		if l.Base == base {
			out = append(out, l.Target)
		}
	}
	slices.Sort(out)
	return out
}

func (d *DhtState) reduce(w ir.ActionWrapper) *DhtState {
	switch a := w.Action.(type) {
	case ir.Hold:
		addr, err := ir.AddressOf(a.EntryWithHeader.Entry)
		if err != nil {
			return d
		}
		next := *d
		next.held = maps.Clone(d.held)
		next.held[addr] = a.EntryWithHeader
		return &next
	case ir.UpdateEntry:
		return d.supersede(a.Old, a.New, CrudModified)
	case ir.RemoveEntry:
		return d.supersede(a.Old, a.New, CrudDeleted)
	case ir.AddLink:
		next := *d
		next.links = maps.Clone(d.links)
		next.links[a.Link] = struct{}{}
		return &next
	case ir.RemoveLink:
		remove, ok := a.Entry.(ir.LinkRemoveEntry)
		if !ok {
			return d
		}
		if _, held := d.links[remove.Link]; !held {
			return d
		}
		next := *d
		next.links = maps.Clone(d.links)
		delete(next.links, remove.Link)
		return &next
	default:
		return d
	}
}

func (d *DhtState) supersede(old, replacement ir.Address, status CrudStatus) *DhtState {
	next := *d
	next.status = maps.Clone(d.status)
	next.crud = maps.Clone(d.crud)
	next.status[old] = status
	next.crud[old] = replacement
	return &next
}
