// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/service"
)

// OwnerEmail is the identity the fakes are bound to.
const OwnerEmail = "tester@example.com"

// ErrNotFound is returned when a task is not found.
var ErrNotFound = errors.New("not found")

// FakeGateway is an in-memory implementation of service.Gateway for testing.
type FakeGateway struct {
	mu    sync.RWMutex
	tasks []service.Task
	calls map[string]int

	// Error injection for testing
	FetchAllErr     error
	CreateErr       error
	UpdateErr       error
	SetCompletedErr error
	SetStarredErr   error
	SetArchivedErr  error
	DeleteErr       error
	DeleteErrByID   map[string]error // taskID -> error
	ProfileErr      error
	LogoutErr       error

	// PictureURL is what Profile reports.
	PictureURL string

	// BeforeCall, if set, runs at the start of every method with the method
	// name. Tests use it to hold a call open.
	BeforeCall func(method string)
}

var _ service.Backend = (*FakeGateway)(nil)

// NewFakeGateway creates an empty FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		calls:         make(map[string]int),
		DeleteErrByID: make(map[string]error),
	}
}

// AddTask seeds a task. Empty OwnerEmail and CreatedAt are filled in.
func (f *FakeGateway) AddTask(t service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.OwnerEmail == "" {
		t.OwnerEmail = OwnerEmail
	}
	if t.CreatedAt == "" {
		t.CreatedAt = "2025-01-01T09:00:00.000Z"
	}
	f.tasks = append(f.tasks, t.Clone())
}

// Task returns the server-side copy of a task.
func (f *FakeGateway) Task(id string) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return service.Task{}, false
}

// Calls returns how many times method was invoked.
func (f *FakeGateway) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

func (f *FakeGateway) enter(method string) {
	f.mu.Lock()
	f.calls[method]++
	hook := f.BeforeCall
	f.mu.Unlock()
	if hook != nil {
		hook(method)
	}
}

// FetchAll implements service.Gateway.
func (f *FakeGateway) FetchAll(ctx context.Context) ([]service.Task, error) {
	f.enter("FetchAll")
	if f.FetchAllErr != nil {
		return nil, f.FetchAllErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]service.Task, len(f.tasks))
	for i, t := range f.tasks {
		result[i] = t.Clone()
	}
	return result, nil
}

// Create implements service.Gateway.
func (f *FakeGateway) Create(ctx context.Context, in service.CreateInput) (service.Task, error) {
	f.enter("Create")
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	created := in.CreatedAt
	if created == "" {
		created = time.Now().UTC().Format(time.RFC3339)
	}
	t := service.Task{
		ID:         uuid.NewString(),
		OwnerEmail: OwnerEmail,
		Title:      in.Title,
		CreatedAt:  created,
		DueDate:    in.DueDate,
		Starred:    in.Starred,
	}
	f.tasks = append(f.tasks, t.Clone())
	return t, nil
}

// Update implements service.Gateway.
func (f *FakeGateway) Update(ctx context.Context, id string, in service.UpdateInput) (service.Task, error) {
	f.enter("Update")
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	return f.mutate(id, func(t *service.Task) {
		if in.Title != nil {
			t.Title = *in.Title
		}
		if in.SetDueDate {
			t.DueDate = in.DueDate
		}
	})
}

// SetCompleted implements service.Gateway.
func (f *FakeGateway) SetCompleted(ctx context.Context, id string, completed bool) (service.Task, error) {
	f.enter("SetCompleted")
	if f.SetCompletedErr != nil {
		return service.Task{}, f.SetCompletedErr
	}
	return f.mutate(id, func(t *service.Task) { t.Completed = completed })
}

// SetStarred implements service.Gateway.
func (f *FakeGateway) SetStarred(ctx context.Context, id string, starred bool) (service.Task, error) {
	f.enter("SetStarred")
	if f.SetStarredErr != nil {
		return service.Task{}, f.SetStarredErr
	}
	return f.mutate(id, func(t *service.Task) { t.Starred = starred })
}

// SetArchived implements service.Gateway.
func (f *FakeGateway) SetArchived(ctx context.Context, id string, archived bool) (service.Task, error) {
	f.enter("SetArchived")
	if f.SetArchivedErr != nil {
		return service.Task{}, f.SetArchivedErr
	}
	return f.mutate(id, func(t *service.Task) { t.Archived = archived })
}

// Delete implements service.Gateway.
func (f *FakeGateway) Delete(ctx context.Context, id string) error {
	f.enter("Delete")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.DeleteErrByID[id]; err != nil {
		return err
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *FakeGateway) mutate(id string, apply func(*service.Task)) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			apply(&f.tasks[i])
			return f.tasks[i].Clone(), nil
		}
	}
	return service.Task{}, ErrNotFound
}

// Email implements service.Account.
func (f *FakeGateway) Email() string { return OwnerEmail }

// Profile implements service.Account.
func (f *FakeGateway) Profile(ctx context.Context) (service.Profile, error) {
	f.enter("Profile")
	if f.ProfileErr != nil {
		return service.Profile{}, f.ProfileErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return service.Profile{Email: OwnerEmail, PictureURL: f.PictureURL}, nil
}

// Logout implements service.Account.
func (f *FakeGateway) Logout(ctx context.Context) error {
	f.enter("Logout")
	return f.LogoutErr
}
