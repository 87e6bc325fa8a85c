package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
)

func init() {
	Register(func() Command { return &ListCmd{} })
}

// ListCmd implements the list command, which is also what `taskdeck` with
// no arguments runs.
type ListCmd struct {
	view viewFlags
}

// SetView sets the filter and search (for testing).
func (c *ListCmd) SetView(filter, search string) {
	c.view = viewFlags{filter: filter, search: search}
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "taskdeck list [--filter <status>] [--search <text>]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.view.register(fs)
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(env.ErrOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks, err := c.view.view(env.Store)
	if err != nil {
		return Report(env.ErrOut, err)
	}

	if len(tasks) == 0 {
		if !env.Config.Quiet {
			fmt.Fprintln(env.Out, "no tasks found")
		}
		return exitcode.Success
	}

	output.FormatTasks(env.Out, tasks, env.Today())
	return exitcode.Success
}
