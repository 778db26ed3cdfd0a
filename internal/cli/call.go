package cli

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/hcore/internal/capability"
	"github.com/roach88/hcore/internal/consistency"
	"github.com/roach88/hcore/internal/instance"
	"github.com/roach88/hcore/internal/ir"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Token   string
	Signals bool
}

// CallResult is the result of a successful call.
type CallResult struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <zome> <function> [params-json]",
		Short: "Make one zome call as the configured agent",
		Long: `Start the instance, make one capability-checked zome call and stop.

The call is signed by the configured agent. Without --token it presents the
agent's own address, which admits it as a self call. Zome functions run on
the built-in echo ribosome, which returns the call's parameters.

Example:
  hcore call posts create_post '{"content":"hello"}'
  hcore call posts get_post '"bafk..."' --token bafk... --signals`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Token, "token", "", "capability token (default: the agent's address)")
	cmd.Flags().BoolVar(&opts.Signals, "signals", false, "write consistency signals to stderr as JSON lines")

	return cmd
}

func runCall(opts *CallOptions, args []string, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	params := "null"
	if len(args) == 3 {
		params = args[2]
	}
	if !json.Valid([]byte(params)) {
		return e.formatter.fail(ExitCommandError, ErrCodeCall, "parse params", errors.New("params must be JSON"))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var extra []instance.Option
	if opts.Signals {
		extra = append(extra, instance.WithSink(consistency.NewJSONLinesSink(cmd.ErrOrStderr())))
	}
	s, err := e.start(ctx, extra...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(); closeErr != nil {
			e.logger.Error("error stopping instance", "error", closeErr)
		}
	}()

	token := ir.Address(opts.Token)
	if token.IsZero() {
		token = s.agent.Address()
	}
	call := ir.ZomeFnCall{
		ID:         uuid.Must(uuid.NewV7()).String(),
		ZomeName:   args[0],
		FnName:     args[1],
		Cap:        capability.MakeCapRequestForCall(s.agent, token, args[1], params),
		Parameters: json.RawMessage(params),
	}

	result, err := s.bridge.CallZomeFunction(ctx, call)
	if err != nil {
		return callFailed(e.formatter, err)
	}
	return e.formatter.Success(CallResult{ID: call.ID, Result: result}, string(result))
}

// callFailed reports a failed call under its CallError code.
func callFailed(f *OutputFormatter, err error) error {
	cliErr := errorFor(err)
	_ = f.Error(cliErr.Code, cliErr.Message, nil)
	return WrapExitError(ExitFailure, "zome call failed", err)
}
