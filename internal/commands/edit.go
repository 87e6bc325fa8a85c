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
	Register(func() Command { return &EditCmd{} })
}

// EditCmd changes a task's title and/or due date.
type EditCmd struct {
	view     viewFlags
	title    string
	due      string
	clearDue bool

	fs *pflag.FlagSet
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title or due date" }
func (c *EditCmd) Usage() string {
	return "taskdeck edit [--title <title>] [--due <YYYY-MM-DD> | --clear-due] <ref>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.view.register(fs)
	fs.StringVarP(&c.title, "title", "t", "", "new title")
	fs.StringVarP(&c.due, "due", "d", "", "new due date (YYYY-MM-DD)")
	fs.BoolVar(&c.clearDue, "clear-due", false, "remove the due date")
	c.fs = fs
}

// titleSet reports whether --title was given, so an explicit empty title
// reaches validation instead of meaning "unchanged".
func (c *EditCmd) titleSet() bool {
	return c.fs != nil && c.fs.Changed("title")
}

func (c *EditCmd) Run(ctx context.Context, env *Env, args []string) int {
	if c.due != "" && c.clearDue {
		fmt.Fprintln(env.ErrOut, "error: cannot use both --due and --clear-due")
		return exitcode.UserError
	}

	var in store.EditInput
	if c.titleSet() || c.title != "" {
		title := c.title
		in.Title = &title
	}
	if c.due != "" {
		d, err := service.ParseDate(c.due)
		if err != nil {
			fmt.Fprintf(env.ErrOut, "error: invalid due date: %s\n", c.due)
			return exitcode.UserError
		}
		in.DueDate = &d
	}
	in.ClearDueDate = c.clearDue

	task, err := resolveRef(env.Store, &c.view, args)
	if err != nil {
		return Report(env.ErrOut, err)
	}

	if _, err := env.Store.Edit(ctx, task.ID, in); err != nil {
		return Report(env.ErrOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}
