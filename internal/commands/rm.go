package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"taskdeck/internal/exitcode"
)

func init() {
	Register(func() Command { return &RmCmd{} })
	Register(func() Command { return &EmptyArchiveCmd{} })
}

// RmCmd implements the rm command.
type RmCmd struct {
	view viewFlags
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string {
	return "taskdeck rm [--filter <status>] [--search <text>] <ref>"
}
func (c *RmCmd) NeedsAuth() bool { return true }

func (c *RmCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.view.register(fs)
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string) int {
	task, err := resolveRef(env.Store, &c.view, args)
	if err != nil {
		return Report(env.ErrOut, err)
	}

	if err := env.Store.Delete(ctx, task.ID); err != nil {
		return Report(env.ErrOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}

// EmptyArchiveCmd deletes every archived task.
type EmptyArchiveCmd struct{}

func (c *EmptyArchiveCmd) Name() string      { return "empty-archive" }
func (c *EmptyArchiveCmd) Aliases() []string { return nil }
func (c *EmptyArchiveCmd) Synopsis() string  { return "Delete all archived tasks" }
func (c *EmptyArchiveCmd) Usage() string     { return "taskdeck empty-archive" }
func (c *EmptyArchiveCmd) NeedsAuth() bool   { return true }

func (c *EmptyArchiveCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *EmptyArchiveCmd) Run(ctx context.Context, env *Env, args []string) int {
	n, err := env.Store.EmptyArchive(ctx)
	if err != nil {
		if n > 0 && !env.Config.Quiet {
			fmt.Fprintf(env.Out, "deleted %d\n", n)
		}
		return Report(env.ErrOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintf(env.Out, "deleted %d\n", n)
	}
	return exitcode.Success
}
