package commands_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/commands"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
	"taskdeck/internal/testutil"
)

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.Local)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// runCommand runs a freshly registered command against gw, parsing flags
// the way the dispatcher does.
func runCommand(t *testing.T, name string, gw *testutil.FakeGateway, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	cmd, ok := commands.DefaultRegistry.Find(name)
	require.True(t, ok, "command %s not registered", name)

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	cmd.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	var outBuf, errBuf bytes.Buffer
	env := &commands.Env{
		Config: &config.Config{Dir: t.TempDir(), Quiet: quiet, WatchSchedule: "@every 1h"},
		Log:    quietLogger(),
		Now:    func() time.Time { return fixedNow },
		Out:    &outBuf,
		ErrOut: &errBuf,
	}
	if gw != nil {
		st := store.New(gw, store.WithClock(env.Now))
		require.NoError(t, st.Load(context.Background()))
		env.Store = st
		env.Account = gw
		defer st.Wait()
	}

	code = cmd.Run(context.Background(), env, fs.Args())
	return outBuf.String(), errBuf.String(), code
}

func seeded() *testutil.FakeGateway {
	gw := testutil.NewFakeGateway()
	gw.AddTask(service.Task{ID: "t1", Title: "Buy milk"})
	gw.AddTask(service.Task{ID: "t2", Title: "Call mom", Starred: true})
	gw.AddTask(service.Task{ID: "t3", Title: "Pay rent", Completed: true, DueDate: &service.Date{Year: 2025, Month: time.March, Day: 1}})
	gw.AddTask(service.Task{ID: "t4", Title: "Old notes", Archived: true})
	return gw
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, "version", nil, nil, false)

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "taskdeck 0.1.0\n", stdout)
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, "help", nil, nil, false)

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "empty-archive")
}

func TestConfigCommand(t *testing.T) {
	stdout, _, code := runCommand(t, "config", nil, nil, false)

	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "@every 1h")
	assert.Contains(t, stdout, "config.yaml")
}

func TestListCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, "list", seeded(), nil, false)

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t,
		"   1  [ ]   Buy milk\n"+
			"   2  [ ] * Call mom\n"+
			"   3  [x]   Pay rent  due 2025-03-01\n",
		stdout)
}

func TestListCommand_Filters(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "active", args: []string{"--filter", "active"}, want: "   1  [ ]   Buy milk\n   2  [ ] * Call mom\n"},
		{name: "archived", args: []string{"-f", "archived"}, want: "   1  [ ]   Old notes  [archived]\n"},
		{name: "search", args: []string{"--search", "  RENT "}, want: "   1  [x]   Pay rent  due 2025-03-01\n"},
		{name: "starred search", args: []string{"-f", "starred", "-s", "milk"}, want: "no tasks found\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, code := runCommand(t, "list", seeded(), tt.args, false)
			assert.Equal(t, exitcode.Success, code)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestListCommand_Overdue(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTask(service.Task{ID: "late", Title: "Late", DueDate: &service.Date{Year: 2025, Month: time.March, Day: 9}})
	gw.AddTask(service.Task{ID: "today", Title: "Today", DueDate: &service.Date{Year: 2025, Month: time.March, Day: 10}})

	stdout, _, code := runCommand(t, "list", gw, []string{"--filter", "overdue"}, false)
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "   1  [ ]   Late  due 2025-03-09 (overdue)\n", stdout)
}

func TestListCommand_UnknownFilter(t *testing.T) {
	_, stderr, code := runCommand(t, "list", seeded(), []string{"--filter", "someday"}, false)
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: unknown filter: someday\n", stderr)
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	stdout, stderr, code := runCommand(t, "list", testutil.NewFakeGateway(), nil, true)

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Empty(t, stdout)
}

func TestAddCommand(t *testing.T) {
	gw := testutil.NewFakeGateway()

	stdout, stderr, code := runCommand(t, "add", gw, []string{"--due", "2025-04-01", "--star", "Write", "report"}, false)

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "ok\n", stdout)

	tasks, err := gw.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write report", tasks[0].Title)
	assert.True(t, tasks[0].Starred)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2025-04-01", tasks[0].DueDate.String())
}

func TestAddCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{name: "no title", args: nil, stderr: "error: title required\n"},
		{name: "blank title", args: []string{"   "}, stderr: "error: title is required\n"},
		{name: "bad date", args: []string{"--due", "tomorrow", "x"}, stderr: "error: invalid due date: tomorrow\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := testutil.NewFakeGateway()
			_, stderr, code := runCommand(t, "add", gw, tt.args, false)
			assert.Equal(t, exitcode.UserError, code)
			assert.Equal(t, tt.stderr, stderr)
			assert.Zero(t, gw.Calls("Create"))
		})
	}
}

func TestAddCommand_BackendError(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.CreateErr = errors.New("connection refused")

	_, stderr, code := runCommand(t, "add", gw, []string{"x"}, false)
	assert.Equal(t, exitcode.BackendError, code)
	assert.Contains(t, stderr, "error: backend error:")
	assert.Contains(t, stderr, "connection refused")
}

func TestToggleCommands(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		id    string
		out   string
		check func(service.Task) bool
	}{
		{name: "done", args: []string{"1"}, id: "t1", out: "completed\n", check: func(t service.Task) bool { return t.Completed }},
		{name: "done", args: []string{"3"}, id: "t3", out: "reopened\n", check: func(t service.Task) bool { return !t.Completed }},
		{name: "star", args: []string{"2"}, id: "t2", out: "unstarred\n", check: func(t service.Task) bool { return !t.Starred }},
		{name: "archive", args: []string{"id:t1"}, id: "t1", out: "archived\n", check: func(t service.Task) bool { return t.Archived }},
		{name: "archive", args: []string{"-f", "archived", "1"}, id: "t4", out: "restored\n", check: func(t service.Task) bool { return !t.Archived }},
	}
	for _, tt := range tests {
		t.Run(tt.name+" "+tt.id, func(t *testing.T) {
			gw := seeded()
			stdout, stderr, code := runCommand(t, tt.name, gw, tt.args, false)

			assert.Equal(t, exitcode.Success, code)
			assert.Empty(t, stderr)
			assert.Equal(t, tt.out, stdout)

			remote, ok := gw.Task(tt.id)
			require.True(t, ok)
			assert.True(t, tt.check(remote))
		})
	}
}

func TestToggleCommand_Errors(t *testing.T) {
	_, stderr, code := runCommand(t, "done", seeded(), nil, false)
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: task reference required\n", stderr)

	_, stderr, code = runCommand(t, "done", seeded(), []string{"9"}, false)
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: task number out of range: 9\n", stderr)

	_, stderr, code = runCommand(t, "star", seeded(), []string{"id:nope"}, false)
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: task not found: nope\n", stderr)
}

func TestToggleCommand_RemoteFailure(t *testing.T) {
	gw := seeded()
	gw.SetStarredErr = errors.New("boom")

	_, stderr, code := runCommand(t, "star", gw, []string{"1"}, false)
	assert.Equal(t, exitcode.BackendError, code)
	assert.Contains(t, stderr, "boom")

	remote, _ := gw.Task("t1")
	assert.False(t, remote.Starred)
}

func TestEditCommand(t *testing.T) {
	gw := seeded()

	stdout, stderr, code := runCommand(t, "edit", gw, []string{"--title", "Buy oat milk", "--due", "2025-03-20", "1"}, false)
	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "ok\n", stdout)

	remote, _ := gw.Task("t1")
	assert.Equal(t, "Buy oat milk", remote.Title)
	require.NotNil(t, remote.DueDate)
	assert.Equal(t, "2025-03-20", remote.DueDate.String())

	_, _, code = runCommand(t, "edit", gw, []string{"--clear-due", "id:t3"}, false)
	assert.Equal(t, exitcode.Success, code)
	remote, _ = gw.Task("t3")
	assert.Nil(t, remote.DueDate)
}

func TestEditCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{name: "nothing", args: []string{"1"}, stderr: "error: nothing to change\n"},
		{name: "empty title", args: []string{"--title", "", "1"}, stderr: "error: title is required\n"},
		{name: "both due flags", args: []string{"--due", "2025-01-01", "--clear-due", "1"}, stderr: "error: cannot use both --due and --clear-due\n"},
		{name: "bad due", args: []string{"--due", "31/12", "1"}, stderr: "error: invalid due date: 31/12\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := seeded()
			_, stderr, code := runCommand(t, "edit", gw, tt.args, false)
			assert.Equal(t, exitcode.UserError, code)
			assert.Equal(t, tt.stderr, stderr)
			assert.Zero(t, gw.Calls("Update"))
		})
	}
}

func TestRmCommand(t *testing.T) {
	gw := seeded()

	stdout, _, code := runCommand(t, "rm", gw, []string{"--search", "mom", "1"}, false)
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "ok\n", stdout)

	_, ok := gw.Task("t2")
	assert.False(t, ok)
}

func TestEmptyArchiveCommand(t *testing.T) {
	gw := seeded()
	gw.AddTask(service.Task{ID: "t5", Title: "Also old", Archived: true})
	gw.DeleteErrByID["t5"] = errors.New("locked")

	stdout, stderr, code := runCommand(t, "empty-archive", gw, nil, false)
	assert.Equal(t, exitcode.BackendError, code)
	assert.Equal(t, "deleted 1\n", stdout)
	assert.Contains(t, stderr, "locked")

	_, ok := gw.Task("t4")
	assert.False(t, ok)
	_, ok = gw.Task("t5")
	assert.True(t, ok)
}

func TestEmptyArchiveCommand_Nothing(t *testing.T) {
	stdout, _, code := runCommand(t, "empty-archive", testutil.NewFakeGateway(), nil, false)
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "deleted 0\n", stdout)
}

func TestStatsCommand(t *testing.T) {
	stdout, _, code := runCommand(t, "stats", seeded(), nil, false)
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "total:     3\ncompleted: 1 (33%)\nstarred:   1\narchived:  1\n", stdout)
}

func TestProfileCommand(t *testing.T) {
	gw := seeded()
	gw.PictureURL = "https://tasks.example.com/uploads/me.png"

	stdout, _, code := runCommand(t, "profile", gw, nil, false)
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "email:   "+testutil.OwnerEmail+"\n")
	assert.Contains(t, stdout, "picture: https://tasks.example.com/uploads/me.png\n")
	assert.Contains(t, stdout, "total:     3\n")
}

func TestWatchCommand_RendersAndStops(t *testing.T) {
	gw := seeded()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd, _ := commands.DefaultRegistry.Find("watch")
	var out bytes.Buffer
	st := store.New(gw)
	require.NoError(t, st.Load(context.Background()))
	env := &commands.Env{
		Config: &config.Config{WatchSchedule: "@every 1h"},
		Log:    quietLogger(),
		Store:  st,
		Now:    func() time.Time { return fixedNow },
		Out:    &out,
		ErrOut: io.Discard,
	}

	code := cmd.Run(ctx, env, nil)
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, out.String(), "Buy milk")
	assert.Contains(t, out.String(), "--\n")
}

func TestWatchCommand_BadSchedule(t *testing.T) {
	_, stderr, code := runCommand(t, "watch", seeded(), []string{"--every", "whenever"}, false)
	assert.Equal(t, exitcode.UserError, code)
	assert.Contains(t, stderr, `invalid schedule "whenever"`)
}

func TestRegistry(t *testing.T) {
	r := commands.NewRegistry()
	require.NoError(t, r.Register(func() commands.Command { return &commands.AddCmd{} }))

	err := r.Register(func() commands.Command { return &commands.AddCmd{} })
	assert.EqualError(t, err, "command already registered: add")

	a, ok := r.Find("create")
	require.True(t, ok)
	b, _ := r.Find("add")
	assert.NotSame(t, a, b)

	all := r.All()
	require.Len(t, all, 1)
	assert.Equal(t, "add", all[0].Name())
}
