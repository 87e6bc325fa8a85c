package commands_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"taskdeck/internal/commands"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
	"taskdeck/internal/testutil"
)

func runAuthCommand(t *testing.T, name string, cfg *config.Config, args []string, stdin string) (stdout, stderr string, code int) {
	t.Helper()

	cmd, ok := commands.DefaultRegistry.Find(name)
	require.True(t, ok)

	var outBuf, errBuf bytes.Buffer
	env := &commands.Env{
		Config: cfg,
		Log:    quietLogger(),
		Now:    time.Now,
		In:     strings.NewReader(stdin),
		Out:    &outBuf,
		ErrOut: &errBuf,
	}
	code = cmd.Run(context.Background(), env, args)
	return outBuf.String(), errBuf.String(), code
}

func TestLoginCommand(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()
	api.AddUser("me@example.com", "hunter2")

	cfg := &config.Config{Dir: t.TempDir() + "/nested", APIURL: api.URL, Quiet: true}
	stdout, stderr, code := runAuthCommand(t, "login", cfg, []string{"me@example.com"}, "hunter2\n")

	assert.Equal(t, exitcode.Success, code, stderr)
	assert.Empty(t, stdout)

	sess, err := session.Load(cfg.SessionPath())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", sess.Email)
	assert.NotEmpty(t, sess.Token.AccessToken)

	info, err := os.Stat(cfg.SessionPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoginCommand_WrongPassword(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()
	api.AddUser("me@example.com", "hunter2")

	cfg := &config.Config{Dir: t.TempDir(), APIURL: api.URL, Quiet: true}
	_, stderr, code := runAuthCommand(t, "login", cfg, []string{"me@example.com"}, "nope\n")

	assert.Equal(t, exitcode.AuthError, code)
	assert.Contains(t, stderr, "invalid email or password")
	assert.False(t, cfg.HasSession())
}

func TestLoginCommand_MissingInput(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), APIURL: "http://127.0.0.1:1", Quiet: true}

	_, stderr, code := runAuthCommand(t, "login", cfg, nil, "pw\n")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: email required\n", stderr)

	_, stderr, code = runAuthCommand(t, "login", cfg, []string{"me@example.com"}, "")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: password required\n", stderr)

	cfg.APIURL = ""
	_, stderr, code = runAuthCommand(t, "login", cfg, []string{"me@example.com"}, "pw\n")
	assert.Equal(t, exitcode.AuthError, code)
	assert.Contains(t, stderr, "api_url is not configured")
}

func TestSignupCommand(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()

	cfg := &config.Config{Dir: t.TempDir(), APIURL: api.URL}
	stdout, stderr, code := runAuthCommand(t, "signup", cfg, []string{"new@example.com"}, "pw")

	assert.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "ok\n", stdout)
	assert.Equal(t, "Password: \n", stderr)
	assert.True(t, cfg.HasSession())
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}

	stdout, stderr, code := runAuthCommand(t, "logout", cfg, nil, "")
	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "not logged in\n", stdout)
}

func saveTestSession(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, session.Save(cfg.SessionPath(), &session.Session{
		Email:   testutil.OwnerEmail,
		Token:   &oauth2.Token{AccessToken: "token", TokenType: "Bearer"},
		Cookies: []*http.Cookie{{Name: testutil.RefreshCookie, Value: "r"}},
	}))
}

func TestLogoutCommand(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	saveTestSession(t, cfg)
	gw := testutil.NewFakeGateway()

	cmd, _ := commands.DefaultRegistry.Find("logout")
	var out bytes.Buffer
	env := &commands.Env{
		Config:  cfg,
		Log:     quietLogger(),
		Connect: func(context.Context) (service.Backend, error) { return gw, nil },
		Out:     &out,
		ErrOut:  &out,
	}

	code := cmd.Run(context.Background(), env, nil)
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "ok\n", out.String())
	assert.Equal(t, 1, gw.Calls("Logout"))
	assert.False(t, cfg.HasSession())
}

func TestLogoutCommand_ServerFailureStillRemovesSession(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), Quiet: true}
	saveTestSession(t, cfg)

	cmd, _ := commands.DefaultRegistry.Find("logout")
	env := &commands.Env{
		Config: cfg,
		Log:    quietLogger(),
		Connect: func(context.Context) (service.Backend, error) {
			return nil, errors.New("unreachable")
		},
		Out:    &bytes.Buffer{},
		ErrOut: &bytes.Buffer{},
	}

	code := cmd.Run(context.Background(), env, nil)
	assert.Equal(t, exitcode.Success, code)
	assert.False(t, cfg.HasSession())
}
