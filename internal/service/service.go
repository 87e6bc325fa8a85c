// Package service defines the backend-agnostic gateway interface for task operations.
package service

import "context"

// Gateway defines the remote persistence interface for tasks.
// An implementation is bound to a single signed-in user for its lifetime;
// no method takes a user identity.
// The store never imports a transport directly.
type Gateway interface {
	// FetchAll returns every task owned by the bound user, in server order.
	FetchAll(ctx context.Context) ([]Task, error)

	// Create persists a new task and returns it with the server-assigned
	// ID and CreatedAt.
	Create(ctx context.Context, in CreateInput) (Task, error)

	// Update applies a partial update of title and/or due date.
	Update(ctx context.Context, id string, in UpdateInput) (Task, error)

	// SetCompleted sets the completion flag.
	SetCompleted(ctx context.Context, id string, completed bool) (Task, error)

	// SetStarred sets the starred flag.
	SetStarred(ctx context.Context, id string, starred bool) (Task, error)

	// SetArchived sets the archived flag.
	SetArchived(ctx context.Context, id string, archived bool) (Task, error)

	// Delete removes a task.
	Delete(ctx context.Context, id string) error
}

// Account covers the session-level calls that are not task operations.
type Account interface {
	// Email returns the identity the implementation is bound to.
	Email() string

	// Profile returns the user's profile.
	Profile(ctx context.Context) (Profile, error)

	// Logout ends the session server-side.
	Logout(ctx context.Context) error
}

// Backend is a Gateway that also exposes the Account calls.
type Backend interface {
	Gateway
	Account
}
