package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/hcore/internal/ir"
)

// ChainQuery selects headers from the chain. The zero value selects every
// header, newest first.
type ChainQuery struct {
	// Types keeps only headers committing one of these entry types.
	Types []ir.EntryType

	// AfterSeq and BeforeSeq bound seq exclusively; zero means unbounded.
	AfterSeq  int64
	BeforeSeq int64

	// Limit caps the number of records; zero means no limit.
	Limit int

	// Ascending returns the oldest header first.
	Ascending bool
}

// compile renders q as parameterized SQL. Every value is bound, never
// interpolated, and the result is always ordered by seq.
func (q ChainQuery) compile() (string, []any, error) {
	if q.Limit < 0 {
		return "", nil, fmt.Errorf("chain query: negative limit %d", q.Limit)
	}
	if q.AfterSeq < 0 || q.BeforeSeq < 0 {
		return "", nil, fmt.Errorf("chain query: negative seq bound")
	}

	var (
		where  []string
		params []any
	)
	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			params = append(params, string(t))
		}
		where = append(where, "entry_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if q.AfterSeq > 0 {
		where = append(where, "seq > ?")
		params = append(params, q.AfterSeq)
	}
	if q.BeforeSeq > 0 {
		where = append(where, "seq < ?")
		params = append(params, q.BeforeSeq)
	}

	var b strings.Builder
	b.WriteString("SELECT seq, address, header FROM headers")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if q.Ascending {
		b.WriteString(" ORDER BY seq ASC")
	} else {
		b.WriteString(" ORDER BY seq DESC")
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

// Query returns the headers q selects.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Query(ctx context.Context, q ChainQuery) ([]Record, error) {
	query, params, err := q.compile()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query headers: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r    Record
			addr string
			data []byte
		)
		if err := rows.Scan(&r.Seq, &addr, &data); err != nil {
			return nil, fmt.Errorf("scan header: %w", err)
		}
		r.Address = ir.Address(addr)
		if r.Header, err = unmarshalHeader(data); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate headers: %w", err)
	}
	return records, nil
}
