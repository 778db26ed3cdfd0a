package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/hcore/internal/capability"
	"github.com/roach88/hcore/internal/consistency"
	"github.com/roach88/hcore/internal/instance"
	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/nucleus"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Signals string
}

// Request is one line read by the run command. Exactly one of Call and
// Commit is set.
type Request struct {
	ID     string         `json:"id"`
	Call   *CallRequest   `json:"call,omitempty"`
	Commit *CommitRequest `json:"commit,omitempty"`
}

// CallRequest asks for a zome call signed by the running agent.
type CallRequest struct {
	Zome     string          `json:"zome"`
	Function string          `json:"function"`
	Params   json.RawMessage `json:"params,omitempty"`
	Token    ir.Address      `json:"token,omitempty"`
}

// CommitRequest asks for an app entry to be authored.
type CommitRequest struct {
	Type     ir.EntryType    `json:"type"`
	Value    json.RawMessage `json:"value"`
	CrudLink ir.Address      `json:"crud_link,omitempty"`
}

// Response is written for every Request, in request order.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *CLIError       `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the instance, serving JSON-lines requests on stdin",
		Long: `Start the instance and serve requests read from stdin, one JSON object
per line, until stdin closes or the process is interrupted.

  {"id":"1","call":{"zome":"posts","function":"create_post","params":{"content":"hi"}}}
  {"id":"2","commit":{"type":"post","value":"hello"}}

Each request gets one JSON response line on stdout. Consistency signals are
written as JSON lines to the --signals file ("-" for stdout).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstance(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Signals, "signals", "", `write consistency signals to this file ("-" for stdout)`)

	return cmd
}

func runInstance(opts *RunOptions, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Responses and signals may share stdout; both go through one lock.
	out := &lockedWriter{w: cmd.OutOrStdout()}

	var extra []instance.Option
	switch opts.Signals {
	case "":
	case "-":
		extra = append(extra, instance.WithSink(consistency.NewJSONLinesSink(out)))
	default:
		f, err := os.Create(opts.Signals)
		if err != nil {
			return e.formatter.fail(ExitCommandError, ErrCodeGeneric, "open signals file", err)
		}
		defer f.Close()
		extra = append(extra, instance.WithSink(consistency.NewJSONLinesSink(f)))
	}

	s, err := e.start(ctx, extra...)
	if err != nil {
		return err
	}
	e.logger.Info("instance running", "agent_id", s.agent.Address())

	serveErr := serve(ctx, s, cmd.InOrStdin(), out)
	closeErr := s.close()
	e.logger.Info("instance stopped")

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return WrapExitError(ExitFailure, "serve requests", serveErr)
	}
	if closeErr != nil {
		return WrapExitError(ExitFailure, "stop instance", closeErr)
	}
	return nil
}

// serve answers requests from in until it reaches EOF or ctx ends.
func serve(ctx context.Context, s *session, in io.Reader, out io.Writer) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			if err := enc.Encode(handle(ctx, s, line)); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}
	}
}

func handle(ctx context.Context, s *session, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{Error: &CLIError{Code: ErrCodeGeneric, Message: fmt.Sprintf("malformed request: %v", err)}}
	}
	resp := Response{ID: req.ID}

	switch {
	case req.Call != nil && req.Commit == nil:
		result, err := doCall(ctx, s, *req.Call)
		if err != nil {
			resp.Error = errorFor(err)
			return resp
		}
		resp.Result = result

	case req.Commit != nil && req.Call == nil:
		entry := ir.AppEntry{Type: req.Commit.Type, Value: req.Commit.Value}
		addr, err := s.bridge.AuthorEntry(ctx, entry, req.Commit.CrudLink)
		if err != nil {
			resp.Error = errorFor(err)
			return resp
		}
		resp.Result, _ = json.Marshal(addr)

	default:
		resp.Error = &CLIError{Code: ErrCodeGeneric, Message: "request needs exactly one of call or commit"}
	}
	return resp
}

func doCall(ctx context.Context, s *session, req CallRequest) (json.RawMessage, error) {
	params := "null"
	if len(req.Params) > 0 {
		params = string(req.Params)
	}
	token := req.Token
	if token.IsZero() {
		token = s.agent.Address()
	}
	return s.bridge.CallZomeFunction(ctx, ir.ZomeFnCall{
		ID:         uuid.Must(uuid.NewV7()).String(),
		ZomeName:   req.Zome,
		FnName:     req.Function,
		Cap:        capability.MakeCapRequestForCall(s.agent, token, req.Function, params),
		Parameters: json.RawMessage(params),
	})
}

func errorFor(err error) *CLIError {
	code := string(nucleus.CodeOf(err))
	if code == "" {
		code = ErrCodeCall
	}
	return &CLIError{Code: code, Message: err.Error()}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
