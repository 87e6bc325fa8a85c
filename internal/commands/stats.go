package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
)

func init() {
	Register(func() Command { return &StatsCmd{} })
	Register(func() Command { return &ProfileCmd{} })
}

// StatsCmd prints task counters.
type StatsCmd struct{}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Show task counts" }
func (c *StatsCmd) Usage() string     { return "taskdeck stats" }
func (c *StatsCmd) NeedsAuth() bool   { return true }

func (c *StatsCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *StatsCmd) Run(ctx context.Context, env *Env, args []string) int {
	output.FormatStats(env.Out, env.Store.Stats())
	return exitcode.Success
}

// ProfileCmd prints the signed-in user's profile and task counters.
type ProfileCmd struct{}

func (c *ProfileCmd) Name() string      { return "profile" }
func (c *ProfileCmd) Aliases() []string { return []string{"whoami"} }
func (c *ProfileCmd) Synopsis() string  { return "Show the signed-in user" }
func (c *ProfileCmd) Usage() string     { return "taskdeck profile" }
func (c *ProfileCmd) NeedsAuth() bool   { return true }

func (c *ProfileCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ProfileCmd) Run(ctx context.Context, env *Env, args []string) int {
	p, err := env.Account.Profile(ctx)
	if err != nil {
		return Report(env.ErrOut, err)
	}

	output.FormatProfile(env.Out, p)
	fmt.Fprintln(env.Out)
	output.FormatStats(env.Out, env.Store.Stats())
	return exitcode.Success
}
