package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"taskdeck/internal/exitcode"
)

func init() {
	Register(func() Command { return &HelpCmd{} })
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskdeck help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string) int {
	fmt.Fprint(env.Out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskdeck                                      List tasks
  taskdeck list [view flags]
  taskdeck add [--due <YYYY-MM-DD>] [--star] <title...>
  taskdeck done [view flags] <ref>              Toggle completion
  taskdeck star [view flags] <ref>              Toggle star
  taskdeck archive [view flags] <ref>           Toggle archived
  taskdeck edit [view flags] [--title <title>] [--due <YYYY-MM-DD> | --clear-due] <ref>
  taskdeck rm [view flags] <ref>
  taskdeck empty-archive
  taskdeck stats
  taskdeck profile
  taskdeck watch [view flags] [--every <cron spec>]
  taskdeck signup --email <email>               Password on stdin
  taskdeck login --email <email>                Password on stdin
  taskdeck logout
  taskdeck config
  taskdeck help
  taskdeck version

View flags:
  --filter, -f <status>   all, active, completed, starred, archived, overdue
  --search, -s <text>     Only tasks whose title contains text

A <ref> is a position in the view as printed by list, or id:<id>.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
