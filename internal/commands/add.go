package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

func init() {
	Register(func() Command { return &AddCmd{} })
}

// AddCmd implements the add command.
type AddCmd struct {
	due     string
	starred bool
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "taskdeck add [--due <YYYY-MM-DD>] [--star] <title...>" }
func (c *AddCmd) NeedsAuth() bool   { return true }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.due, "due", "d", "", "due date (YYYY-MM-DD)")
	fs.BoolVar(&c.starred, "star", false, "create the task starred")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(env.ErrOut, "error: title required")
		return exitcode.UserError
	}

	in := store.CreateInput{
		Title:   strings.Join(args, " "),
		Starred: c.starred,
	}
	if c.due != "" {
		d, err := service.ParseDate(c.due)
		if err != nil {
			fmt.Fprintf(env.ErrOut, "error: invalid due date: %s\n", c.due)
			return exitcode.UserError
		}
		in.DueDate = &d
	}

	task, err := env.Store.Create(ctx, in)
	if err != nil {
		return Report(env.ErrOut, err)
	}

	env.Log.WithField("task_id", task.ID).Debug("task created")
	if !env.Config.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}
