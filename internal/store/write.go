package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hcore/internal/ir"
)

// ErrBrokenLink is returned when a header does not link to the current top
// of the chain.
var ErrBrokenLink = errors.New("header does not link to chain top")

// WriteCommit appends entry and its header to the chain and returns the
// header address.
//
// The entry row is written with ON CONFLICT DO NOTHING: committing the same
// content twice stores it once but appends two headers. The header's Link
// must equal the address of the current top header (empty for the first
// commit), otherwise ErrBrokenLink is returned and nothing is written.
func (s *Store) WriteCommit(ctx context.Context, entry ir.Entry, header ir.ChainHeader) (ir.Address, error) {
	env, entryData, err := marshalEntry(entry)
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}
	entryAddr, err := ir.AddressOf(entry)
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}
	if header.EntryAddress != entryAddr {
		return "", fmt.Errorf("write commit: header names entry %s, entry hashes to %s", header.EntryAddress, entryAddr)
	}
	headerAddr, err := header.Address()
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}
	headerData, err := marshalHeader(header)
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var (
		top  sql.NullString
		next int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT address, seq + 1 FROM headers ORDER BY seq DESC LIMIT 1
	`).Scan(&top, &next)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		next = 1
	case err != nil:
		return "", fmt.Errorf("write commit: read top: %w", err)
	}
	if ir.Address(top.String) != header.Link {
		return "", fmt.Errorf("write commit: %w: link %q, top %q", ErrBrokenLink, header.Link, top.String)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (address, entry_type, envelope)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`, string(entryAddr), string(env.EntryType), entryData)
	if err != nil {
		return "", fmt.Errorf("write commit: insert entry: %w", err)
	}

	var link any
	if !header.Link.IsZero() {
		link = string(header.Link)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO headers (address, seq, entry_address, entry_type, link, header)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(headerAddr), next, string(entryAddr), string(header.EntryType), link, headerData)
	if err != nil {
		return "", fmt.Errorf("write commit: insert header: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write commit: commit tx: %w", err)
	}
	return headerAddr, nil
}
