package commands

import (
	"errors"
	"fmt"
	"io"

	"taskdeck/internal/backend/restapi"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/session"
	"taskdeck/internal/store"
)

// ExitCode classifies err for the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case store.IsValidation(err), store.IsNotFound(err), errors.Is(err, ErrTaskRefRequired), isRefError(err):
		return exitcode.UserError
	case errors.Is(err, session.ErrNoSession), restapi.IsAuthError(err):
		return exitcode.AuthError
	default:
		return exitcode.BackendError
	}
}

// Report prints err the way the CLI shows errors and returns its exit code.
func Report(errOut io.Writer, err error) int {
	code := ExitCode(err)
	var v *store.ValidationError
	switch {
	case errors.As(err, &v):
		fmt.Fprintf(errOut, "error: %s\n", v.Message)
	case code == exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintln(errOut, "error: not logged in (run: taskdeck login)")
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}
