// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"taskdeck/internal/config"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

// Env is everything a command runs against.
type Env struct {
	// Config is always provided (config dir, paths, settings).
	Config *config.Config

	Log logrus.FieldLogger

	// Store holds the user's tasks, already loaded. Nil unless the command
	// NeedsAuth.
	Store *store.Store

	// Account is the session behind Store. Nil unless the command NeedsAuth.
	Account service.Account

	// Connect opens a backend for the saved session. Commands that do not
	// need auth but may use a session (logout) call it themselves.
	Connect func(ctx context.Context) (service.Backend, error)

	// Now is the clock used for "today".
	Now func() time.Time

	In          io.Reader
	Out, ErrOut io.Writer
}

// Today returns the local calendar date.
func (e *Env) Today() service.Date {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return service.DateOf(now())
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a session.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command with the positional arguments left after
	// flag parsing and returns the exit code.
	Run(ctx context.Context, env *Env, args []string) int
}
