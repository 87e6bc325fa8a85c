package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/pflag"

	"taskdeck/internal/backend/restapi"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/session"
)

func init() {
	Register(func() Command {
		return &LoginCmd{name: "login", synopsis: "Sign in", authenticate: restapi.Login}
	})
	Register(func() Command {
		return &LoginCmd{name: "signup", synopsis: "Create an account and sign in", authenticate: restapi.Signup}
	})
}

type authFunc func(ctx context.Context, httpClient *http.Client, baseURL, email, password string) (*session.Session, error)

// LoginCmd implements login and signup. The password is read from the
// first line of standard input.
type LoginCmd struct {
	name         string
	synopsis     string
	authenticate authFunc

	email string
}

func (c *LoginCmd) Name() string      { return c.name }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return c.synopsis }
func (c *LoginCmd) Usage() string     { return "taskdeck " + c.name + " --email <email>  (password on stdin)" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.email, "email", "e", "", "account email")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string) int {
	cfg := env.Config

	email := strings.TrimSpace(c.email)
	if email == "" && len(args) == 1 {
		email = strings.TrimSpace(args[0])
	}
	if email == "" {
		fmt.Fprintln(env.ErrOut, "error: email required")
		return exitcode.UserError
	}
	if cfg.APIURL == "" {
		fmt.Fprintf(env.ErrOut, "error: api_url is not configured (set it in %s or TASKDECK_API_URL)\n", cfg.ConfigPath())
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprint(env.ErrOut, "Password: ")
	}
	password, err := readLine(env.In)
	if !cfg.Quiet {
		fmt.Fprintln(env.ErrOut)
	}
	if err != nil || password == "" {
		fmt.Fprintln(env.ErrOut, "error: password required")
		return exitcode.UserError
	}

	sess, err := c.authenticate(ctx, nil, cfg.APIURL, email, password)
	if err != nil {
		if restapi.IsAuthError(err) {
			fmt.Fprintf(env.ErrOut, "error: %v\n", err)
			return exitcode.AuthError
		}
		return Report(env.ErrOut, err)
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(env.ErrOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := session.Save(cfg.SessionPath(), sess); err != nil {
		fmt.Fprintf(env.ErrOut, "error: failed to save session: %v\n", err)
		return exitcode.AuthError
	}

	env.Log.WithField("email", sess.Email).Debug("session saved")
	if !cfg.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}

func readLine(r io.Reader) (string, error) {
	if r == nil {
		return "", io.EOF
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
