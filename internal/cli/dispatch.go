// Package cli turns command-line arguments into a command run.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskdeck/internal/backend/restapi"
	"taskdeck/internal/commands"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/logging"
	"taskdeck/internal/metrics"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
	"taskdeck/internal/store"
)

// BackendFactory opens the backend for the configured session.
// Used to inject the backend during dispatch.
type BackendFactory func(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics) (service.Backend, error)

// RESTBackend opens the saved session against cfg.APIURL. A refreshed
// access token is written back to the session file.
func RESTBackend(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics) (service.Backend, error) {
	sess, err := session.Load(cfg.SessionPath())
	if err != nil {
		return nil, err
	}
	return restapi.New(restapi.Options{
		BaseURL: cfg.APIURL,
		Session: sess,
		Timeout: cfg.Timeout,
		Logger:  log,
		Metrics: m,
		OnSessionRefresh: func(s *session.Session) {
			if err := session.Save(cfg.SessionPath(), s); err != nil {
				log.WithError(err).Warn("failed to save refreshed session")
			}
		},
	})
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
	in       io.Reader
	now      func() time.Time
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		now:      time.Now,
	}
}

// SetInput sets where commands read input such as passwords.
func (d *Dispatcher) SetInput(r io.Reader) { d.in = r }

// SetClock overrides the clock (for testing).
func (d *Dispatcher) SetClock(now func() time.Time) { d.now = now }

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	quiet     bool
	debug     bool
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> list
	if len(args) == 0 {
		args = []string{"list"}
	}

	// Flags require a command
	if strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
		return exitcode.UserError
	}
	if _, ok := d.registry.Find(args[0]); !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
		return exitcode.UserError
	}

	code := exitcode.Success
	root := d.rootCommand(&code, out, errOut)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	return code
}

// rootCommand builds the cobra tree from the registry. The selected
// command's exit code is stored in code.
func (d *Dispatcher) rootCommand(code *int, out, errOut io.Writer) *cobra.Command {
	var flags commonFlags

	root := &cobra.Command{
		Use:               "taskdeck",
		Short:             "Manage your tasks from the terminal",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config", "", "override config directory")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress informational output")
	pf.BoolVar(&flags.debug, "debug", false, "print debug logs to stderr")

	for _, cmd := range d.registry.All() {
		sub := &cobra.Command{
			Use:     cmd.Name(),
			Aliases: cmd.Aliases(),
			Short:   cmd.Synopsis(),
			Long:    "Usage: " + cmd.Usage(),
			RunE: func(c *cobra.Command, args []string) error {
				*code = d.execute(c.Context(), cmd, flags, args, out, errOut)
				return nil
			},
		}
		cmd.RegisterFlags(sub.Flags())
		root.AddCommand(sub)
		if cmd.Name() == "help" {
			root.SetHelpCommand(sub)
		}
	}
	return root
}

func (d *Dispatcher) execute(ctx context.Context, cmd commands.Command, flags commonFlags, args []string, out, errOut io.Writer) int {
	cfg, err := config.Load(flags.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}
	cfg.Quiet = flags.quiet
	cfg.Debug = flags.debug

	log := logging.New(cfg, errOut)
	m := metrics.New()
	if cfg.MetricsFile != "" {
		defer func() {
			if err := m.WriteFile(cfg.MetricsFile); err != nil {
				log.WithError(err).Warn("failed to write metrics")
			}
		}()
	}

	env := &commands.Env{
		Config: cfg,
		Log:    log,
		Now:    d.now,
		In:     d.in,
		Out:    out,
		ErrOut: errOut,
	}
	if d.factory != nil {
		env.Connect = func(ctx context.Context) (service.Backend, error) {
			return d.factory(ctx, cfg, log, m)
		}
	}

	if cmd.NeedsAuth() {
		if env.Connect == nil {
			fmt.Fprintln(errOut, "error: no backend configured")
			return exitcode.AuthError
		}
		backend, err := env.Connect(ctx)
		if err != nil {
			code := commands.Report(errOut, err)
			if code == exitcode.BackendError {
				code = exitcode.AuthError
			}
			return code
		}

		st := store.New(backend,
			store.WithLogger(log),
			store.WithMetrics(m),
			store.WithRemoteTimeout(cfg.Timeout),
			store.WithClock(d.now),
		)
		// Detached remote calls settle before the process reports and exits.
		defer st.Wait()

		if err := st.Load(ctx); err != nil {
			return commands.Report(errOut, err)
		}
		env.Store = st
		env.Account = backend
	}

	log.WithField("command", cmd.Name()).Debug("running command")
	return cmd.Run(ctx, env, args)
}
