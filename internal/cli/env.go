package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hcore/internal/capability"
	"github.com/roach88/hcore/internal/config"
	"github.com/roach88/hcore/internal/dna"
	"github.com/roach88/hcore/internal/instance"
	"github.com/roach88/hcore/internal/ir"
	"github.com/roach88/hcore/internal/keystore"
	"github.com/roach88/hcore/internal/network"
	"github.com/roach88/hcore/internal/nucleus"
	"github.com/roach88/hcore/internal/store"
)

// env is the configuration, logger and formatter shared by one command
// invocation.
type env struct {
	cfg       config.Config
	logger    *slog.Logger
	formatter *OutputFormatter
}

// newEnv loads the configuration named by --config. A missing file is only
// an error when --config was given explicitly.
func newEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, formatter.fail(ExitCommandError, ErrCodeConfig, "load config", err)
	}
	formatter.VerboseLog("config: agent=%s dna=%s database=%s", cfg.Agent.Name, cfg.Dna, cfg.Database)

	return &env{cfg: cfg, logger: newLogger(cfg.Log, opts.Verbose, cmd), formatter: formatter}, nil
}

func newLogger(l config.Log, verbose bool, cmd *cobra.Command) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil || verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if l.Format == config.FormatJSON {
		return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts))
}

// session is a running, initialized instance with a bridge in front of it.
type session struct {
	inst   *instance.Instance
	bridge *nucleus.Bridge
	db     *store.Store
	agent  *keystore.KeyPair
	cancel context.CancelFunc
	done   chan error
}

// start opens the chain, starts the instance and runs genesis or resume.
// The caller must close the session.
func (e *env) start(ctx context.Context, extra ...instance.Option) (*session, error) {
	d, err := dna.LoadDir(e.cfg.Dna)
	if err != nil {
		return nil, e.formatter.fail(ExitCommandError, ErrCodeDnaLoad, "load dna", err)
	}
	if errs := dna.Validate(d); len(errs) > 0 {
		_ = e.formatter.Error(ErrCodeDnaInvalid, fmt.Sprintf("dna %s is invalid", d.Name), errs)
		return nil, WrapExitError(ExitCommandError, "invalid dna", errs[0])
	}

	agent, err := keystore.NewStore(e.cfg.Agent.Keystore).LoadOrCreate(e.cfg.Agent.Name)
	if err != nil {
		return nil, e.formatter.fail(ExitCommandError, ErrCodeKeystore, "load agent key", err)
	}

	db, err := store.Open(e.cfg.Database)
	if err != nil {
		return nil, e.formatter.fail(ExitCommandError, ErrCodeStore, "open database", err)
	}

	opts := []instance.Option{
		instance.WithStore(db),
		instance.WithSigner(agent),
		instance.WithLogger(e.logger),
	}
	if e.cfg.Network.Enabled {
		opts = append(opts, instance.WithNetwork(network.NewLoopback(nil).Factory()))
	}
	opts = append(opts, extra...)

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{
		inst:   instance.New(opts...),
		db:     db,
		agent:  agent,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { s.done <- s.inst.Run(runCtx) }()

	genesisAgent := ir.AgentIDEntry{Nick: e.cfg.Agent.Name, PubSignKey: agent.Address()}
	if err := s.inst.Initialize(ctx, *d, genesisAgent); err != nil {
		_ = s.close()
		return nil, e.formatter.fail(ExitCommandError, ErrCodeStore, "initialize instance", err)
	}

	verifier := capability.New(keystore.Ed25519Verifier{}, capability.WithLogger(e.logger))
	s.bridge = nucleus.NewBridge(s.inst, nucleus.Echo{}, verifier,
		nucleus.WithChain(db),
		nucleus.WithLogger(e.logger),
	)
	e.logger.Debug("session started", "agent_id", agent.Address(), "dna", d.Name)
	return s, nil
}

// close stops the instance, waits for its loop and for outstanding calls,
// then closes the store.
func (s *session) close() error {
	s.inst.Stop()
	err := <-s.done
	if s.bridge != nil {
		s.bridge.Wait()
	}
	s.cancel()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, s.db.Close())
}
