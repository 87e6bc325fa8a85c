// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError covers bad arguments, rejected input and unknown tasks.
	UserError = 1

	// AuthError covers missing or expired sessions and unusable configuration.
	AuthError = 2

	// BackendError indicates a failed call to the task server.
	BackendError = 3
)
