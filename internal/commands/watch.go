package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
)

func init() {
	Register(func() Command { return &WatchCmd{} })
}

// WatchCmd re-fetches tasks on a schedule and prints the view whenever it
// changes, until interrupted.
type WatchCmd struct {
	view     viewFlags
	schedule string
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Print the task list whenever it changes" }
func (c *WatchCmd) Usage() string {
	return "taskdeck watch [--every <cron spec>] [--filter <status>] [--search <text>]"
}
func (c *WatchCmd) NeedsAuth() bool { return true }

func (c *WatchCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.view.register(fs)
	fs.StringVar(&c.schedule, "every", "", "cron spec, e.g. \"@every 1m\" (default from config)")
}

func (c *WatchCmd) Run(ctx context.Context, env *Env, args []string) int {
	spec := c.schedule
	if spec == "" {
		spec = env.Config.WatchSchedule
	}

	var (
		mu   sync.Mutex
		last string
	)
	render := func() error {
		tasks, err := c.view.view(env.Store)
		if err != nil {
			return err
		}
		var b strings.Builder
		output.FormatTasks(&b, tasks, env.Today())
		if len(tasks) == 0 {
			b.WriteString("no tasks found\n")
		}

		mu.Lock()
		defer mu.Unlock()
		if b.String() != last {
			last = b.String()
			fmt.Fprint(env.Out, last)
			fmt.Fprintln(env.Out, "--")
		}
		return nil
	}

	if err := render(); err != nil {
		return Report(env.ErrOut, err)
	}

	sched := cron.New(cron.WithLogger(cronLogger{env.Log}))
	_, err := sched.AddFunc(spec, func() {
		env.Store.Refresh(ctx)
		if err := render(); err != nil {
			env.Log.WithError(err).Error("render failed")
		}
	})
	if err != nil {
		fmt.Fprintf(env.ErrOut, "error: invalid schedule %q: %v\n", spec, err)
		return exitcode.UserError
	}

	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	return exitcode.Success
}

// cronLogger routes the scheduler's own logging through logrus.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(pairs(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(pairs(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func pairs(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
