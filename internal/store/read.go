package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hcore/internal/ir"
)

// Record is one header as stored on the chain.
type Record struct {
	Seq     int64
	Address ir.Address
	Header  ir.ChainHeader
}

// ReadEntry returns the entry stored at addr, or ErrNotFound.
func (s *Store) ReadEntry(ctx context.Context, addr ir.Address) (ir.Entry, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT envelope FROM entries WHERE address = ?
	`, string(addr)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read entry %s: %w", addr, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", addr, err)
	}
	return unmarshalEntry(data)
}

// ReadHeader returns the header stored at addr, or ErrNotFound.
func (s *Store) ReadHeader(ctx context.Context, addr ir.Address) (ir.ChainHeader, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT header FROM headers WHERE address = ?
	`, string(addr)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ChainHeader{}, fmt.Errorf("read header %s: %w", addr, ErrNotFound)
	}
	if err != nil {
		return ir.ChainHeader{}, fmt.Errorf("read header %s: %w", addr, err)
	}
	return unmarshalHeader(data)
}

// HeaderForEntry returns the most recent header that committed the entry at
// entryAddr.
func (s *Store) HeaderForEntry(ctx context.Context, entryAddr ir.Address) (ir.ChainHeader, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT header FROM headers WHERE entry_address = ?
		ORDER BY seq DESC LIMIT 1
	`, string(entryAddr)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ChainHeader{}, fmt.Errorf("header for entry %s: %w", entryAddr, ErrNotFound)
	}
	if err != nil {
		return ir.ChainHeader{}, fmt.Errorf("header for entry %s: %w", entryAddr, err)
	}
	return unmarshalHeader(data)
}

// EntryWithHeader returns the entry at addr paired with its latest header.
// A missing entry is reported as ok == false, not as an error.
func (s *Store) EntryWithHeader(ctx context.Context, addr ir.Address) (ir.EntryWithHeader, bool, error) {
	entry, err := s.ReadEntry(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return ir.EntryWithHeader{}, false, nil
	}
	if err != nil {
		return ir.EntryWithHeader{}, false, err
	}
	header, err := s.HeaderForEntry(ctx, addr)
	if err != nil {
		return ir.EntryWithHeader{}, false, err
	}
	return ir.EntryWithHeader{Entry: entry, Header: header}, true, nil
}

// Top returns the newest header and its address. ok is false for an empty
// chain.
func (s *Store) Top(ctx context.Context) (header ir.ChainHeader, addr ir.Address, ok bool, err error) {
	var data []byte
	var a string
	err = s.db.QueryRowContext(ctx, `
		SELECT address, header FROM headers ORDER BY seq DESC LIMIT 1
	`).Scan(&a, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ChainHeader{}, "", false, nil
	}
	if err != nil {
		return ir.ChainHeader{}, "", false, fmt.Errorf("chain top: %w", err)
	}
	header, err = unmarshalHeader(data)
	if err != nil {
		return ir.ChainHeader{}, "", false, err
	}
	return header, ir.Address(a), true, nil
}

// Headers returns the whole chain, newest first.
//
// Returns an empty slice (not nil) for an empty chain.
func (s *Store) Headers(ctx context.Context) ([]Record, error) {
	return s.Query(ctx, ChainQuery{})
}

// EntryFromChain walks header links back from the header at top and returns
// the entry at target if one of those headers committed it.
func (s *Store) EntryFromChain(ctx context.Context, top, target ir.Address) (ir.Entry, error) {
	for cur := top; !cur.IsZero(); {
		h, err := s.ReadHeader(ctx, cur)
		if err != nil {
			return nil, err
		}
		if h.EntryAddress == target {
			return s.ReadEntry(ctx, target)
		}
		cur = h.Link
	}
	return nil, fmt.Errorf("entry %s on chain: %w", target, ErrNotFound)
}

// FirstOfType returns the earliest entry of type t committed to the chain.
func (s *Store) FirstOfType(ctx context.Context, t ir.EntryType) (ir.Entry, error) {
	var addr string
	err := s.db.QueryRowContext(ctx, `
		SELECT entry_address FROM headers WHERE entry_type = ?
		ORDER BY seq ASC LIMIT 1
	`, string(t)).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("first %s entry: %w", t, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("first %s entry: %w", t, err)
	}
	return s.ReadEntry(ctx, ir.Address(addr))
}
