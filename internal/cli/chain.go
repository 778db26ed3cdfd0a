package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/store"
)

// ChainOptions holds flags for the chain command.
type ChainOptions struct {
	*RootOptions
	Entries bool
	Types   []string
	Limit   int
}

// ChainRecord is one header as printed by the chain command.
type ChainRecord struct {
	Seq          int64           `json:"seq"`
	Address      ir.Address      `json:"address"`
	EntryType    ir.EntryType    `json:"entry_type"`
	EntryAddress ir.Address      `json:"entry_address"`
	Link         ir.Address      `json:"link,omitempty"`
	CrudLink     ir.Address      `json:"crud_link,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Entry        json.RawMessage `json:"entry,omitempty"`
}

// NewChainCommand creates the chain command.
func NewChainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "List the source chain, newest first",
		Long: `List the headers of the configured source chain, newest first.

Example:
  hcore chain
  hcore chain --type post --limit 10
  hcore chain --entries --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Entries, "entries", false, "include entry content")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "only list entries of these types")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "list at most this many headers")

	return cmd
}

func runChain(opts *ChainOptions, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(e.cfg.Database)
	if err != nil {
		return e.formatter.fail(ExitCommandError, ErrCodeStore, "open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			e.logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	query := store.ChainQuery{Limit: opts.Limit}
	for _, t := range opts.Types {
		query.Types = append(query.Types, ir.EntryType(t))
	}
	headers, err := st.Query(ctx, query)
	if err != nil {
		return e.formatter.fail(ExitCommandError, ErrCodeStore, "read chain", err)
	}

	records := make([]ChainRecord, 0, len(headers))
	var text strings.Builder
	for _, h := range headers {
		rec := ChainRecord{
			Seq:          h.Seq,
			Address:      h.Address,
			EntryType:    h.Header.EntryType,
			EntryAddress: h.Header.EntryAddress,
			Link:         h.Header.Link,
			CrudLink:     h.Header.CrudLink,
			Timestamp:    h.Header.Timestamp,
		}
		if opts.Entries {
			entry, err := st.ReadEntry(ctx, h.Header.EntryAddress)
			if err != nil {
				return e.formatter.fail(ExitCommandError, ErrCodeStore, "read entry", err)
			}
			env, err := ir.EncodeEntry(entry)
			if err != nil {
				return e.formatter.fail(ExitCommandError, ErrCodeStore, "encode entry", err)
			}
			rec.Entry = env.Content
		}
		records = append(records, rec)

		fmt.Fprintf(&text, "%d\t%s\t%s\t%s", rec.Seq, rec.EntryType, rec.EntryAddress, rec.Timestamp.Format(time.RFC3339))
		if opts.Entries {
			fmt.Fprintf(&text, "\t%s", rec.Entry)
		}
		text.WriteByte('\n')
	}
	if len(records) == 0 {
		return e.formatter.Success(records, "chain is empty")
	}
	return e.formatter.Success(records, strings.TrimSuffix(text.String(), "\n"))
}
