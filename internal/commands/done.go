package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

func init() {
	Register(func() Command {
		return &ToggleCmd{
			name:     "done",
			synopsis: "Toggle a task's completion",
			toggle:   (*store.Store).ToggleCompleted,
			state:    func(t service.Task) bool { return t.Completed },
			on:       "completed",
			off:      "reopened",
		}
	})
	Register(func() Command {
		return &ToggleCmd{
			name:     "star",
			synopsis: "Toggle a task's star",
			toggle:   (*store.Store).ToggleStarred,
			state:    func(t service.Task) bool { return t.Starred },
			on:       "starred",
			off:      "unstarred",
		}
	})
	Register(func() Command {
		return &ToggleCmd{
			name:     "archive",
			synopsis: "Toggle whether a task is archived",
			toggle:   (*store.Store).ToggleArchived,
			state:    func(t service.Task) bool { return t.Archived },
			on:       "archived",
			off:      "restored",
		}
	})
}

// ToggleCmd flips one boolean flag of a referenced task.
type ToggleCmd struct {
	name     string
	synopsis string
	toggle   func(*store.Store, context.Context, string) (service.Task, error)
	state    func(service.Task) bool
	on, off  string

	view viewFlags
}

func (c *ToggleCmd) Name() string      { return c.name }
func (c *ToggleCmd) Aliases() []string { return nil }
func (c *ToggleCmd) Synopsis() string  { return c.synopsis }
func (c *ToggleCmd) Usage() string {
	return "taskdeck " + c.name + " [--filter <status>] [--search <text>] <ref>"
}
func (c *ToggleCmd) NeedsAuth() bool { return true }

func (c *ToggleCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.view.register(fs)
}

func (c *ToggleCmd) Run(ctx context.Context, env *Env, args []string) int {
	task, err := resolveRef(env.Store, &c.view, args)
	if err != nil {
		return Report(env.ErrOut, err)
	}

	updated, err := c.toggle(env.Store, ctx, task.ID)
	if err != nil {
		return Report(env.ErrOut, err)
	}

	if !env.Config.Quiet {
		if c.state(updated) {
			fmt.Fprintln(env.Out, c.on)
		} else {
			fmt.Fprintln(env.Out, c.off)
		}
	}
	return exitcode.Success
}
