// Package store owns the signed-in user's tasks in memory and mediates every
// change through a service.Gateway.
//
// Mutations are optimistic: local state changes first, the gateway is called,
// and the change is reverted if the call fails. Creation is the exception and
// only touches local state once the gateway has assigned an id.
package store

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"taskdeck/internal/metrics"
	"taskdeck/internal/service"
)

// DefaultRemoteTimeout bounds each gateway call made by the store.
const DefaultRemoteTimeout = 10 * time.Second

// Store is the single source of truth for one user's tasks.
// It is safe for concurrent use.
type Store struct {
	gw      service.Gateway
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	tasks []service.Task

	// s.tasks is kept sorted by seq. A removed task keeps its entry until
	// its delete settles so a rollback can find its place again.
	seq     map[string]uint64
	nextSeq uint64

	// pending counts unsettled optimistic changes per id. touched records
	// the generation of each id's last change while a Load is in flight;
	// Load keeps the local copy of both.
	pending map[string]int
	touched map[string]uint64
	gen     uint64
	loads   int

	locks    keyedMutex
	inflight sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for rollbacks and swallowed refresh errors.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics records rollbacks into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithRemoteTimeout bounds each gateway call. Zero disables the bound.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithClock overrides the time source used for creation stamps and the
// overdue filter.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store backed by gw. Call Load to populate it.
func New(gw service.Gateway, opts ...Option) *Store {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Store{
		gw:      gw,
		log:     discard,
		timeout: DefaultRemoteTimeout,
		now:     time.Now,
		seq:     make(map[string]uint64),
		pending: make(map[string]int),
		touched: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tasks returns a copy of every task in store order.
func (s *Store) Tasks() []service.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]service.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (service.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return service.Task{}, false
}

// Wait blocks until every remote call started by the store has settled,
// including those whose callers stopped waiting.
func (s *Store) Wait() {
	s.inflight.Wait()
}

// Load replaces local state with the gateway's full list, in server order.
// Tasks with a change still in flight, or changed after the fetch began,
// keep their local state. On failure local state is left untouched.
func (s *Store) Load(ctx context.Context) error {
	rctx, cancel := s.boundContext(ctx)
	defer cancel()

	s.mu.Lock()
	s.loads++
	since := s.gen
	s.mu.Unlock()

	tasks, err := s.gw.FetchAll(rctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.loadDone()

	if err != nil {
		return &RemoteError{Op: "load", Err: err}
	}

	seen := make(map[string]bool, len(tasks))
	loaded := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			s.log.WithField("task_id", t.ID).Warn("duplicate task id from server, keeping first")
			continue
		}
		seen[t.ID] = true
		loaded = append(loaded, t.Clone())
	}

	local := func(id string) bool {
		return s.pending[id] > 0 || s.touched[id] > since
	}

	next := make([]service.Task, 0, len(loaded))
	seq := make(map[string]uint64, len(loaded))
	for _, t := range loaded {
		seq[t.ID] = s.nextSeq
		s.nextSeq++
		if local(t.ID) {
			i := s.indexOf(t.ID)
			if i < 0 {
				// Removed locally; its delete is pending or already done.
				continue
			}
			t = s.tasks[i].Clone()
		}
		next = append(next, t)
	}
	for _, t := range s.tasks {
		if !seen[t.ID] && local(t.ID) {
			seq[t.ID] = s.nextSeq
			s.nextSeq++
			next = append(next, t)
		}
	}
	for id := range s.pending {
		if _, ok := seq[id]; !ok {
			if old, ok := s.seq[id]; ok {
				seq[id] = old
			}
		}
	}

	s.tasks = next
	s.seq = seq
	return nil
}

// loadDone ends a Load. Caller holds s.mu.
func (s *Store) loadDone() {
	s.loads--
	if s.loads == 0 {
		clear(s.touched)
	}
}

// begin marks an optimistic change on id as in flight. Caller holds s.mu.
func (s *Store) begin(id string) {
	s.pending[id]++
	s.touch(id)
}

// finish marks the changes on ids as settled.
func (s *Store) finish(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if s.pending[id]--; s.pending[id] <= 0 {
			delete(s.pending, id)
		}
		s.touch(id)
	}
}

// touch records a change to id for any Load in flight. Caller holds s.mu.
func (s *Store) touch(id string) {
	s.gen++
	if s.loads > 0 {
		s.touched[id] = s.gen
	}
}

// Refresh reloads local state and logs, rather than returns, any failure.
// It is meant for background reconciliation where no caller can act on
// the error.
func (s *Store) Refresh(ctx context.Context) {
	if err := s.Load(ctx); err != nil {
		s.log.WithError(err).Error("background refresh failed")
	}
}

// CreateInput describes a new task.
type CreateInput struct {
	Title   string
	DueDate *service.Date
	Starred bool
}

// Create persists a new task and adds it to local state once the gateway
// returns it. Nothing is added if the call fails.
func (s *Store) Create(ctx context.Context, in CreateInput) (service.Task, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return service.Task{}, err
	}

	req := service.CreateInput{
		Title:     title,
		DueDate:   in.DueDate,
		Starred:   in.Starred,
		CreatedAt: s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	return settle(s, ctx, func(rctx context.Context) (service.Task, error) {
		created, err := s.gw.Create(rctx, req)
		if err == nil && created.ID == "" {
			err = errors.New("server returned a task without an id")
		}
		if err != nil {
			return service.Task{}, &RemoteError{Op: "create", Err: err}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if i := s.indexOf(created.ID); i >= 0 {
			s.tasks[i] = created.Clone()
		} else {
			s.tasks = append(s.tasks, created.Clone())
			s.seq[created.ID] = s.nextSeq
			s.nextSeq++
		}
		s.touch(created.ID)
		return created.Clone(), nil
	})
}

// ToggleCompleted flips the completion flag.
func (s *Store) ToggleCompleted(ctx context.Context, id string) (service.Task, error) {
	return s.toggle(ctx, id, "toggle_completed",
		func(t *service.Task) *bool { return &t.Completed },
		s.gw.SetCompleted)
}

// ToggleStarred flips the starred flag.
func (s *Store) ToggleStarred(ctx context.Context, id string) (service.Task, error) {
	return s.toggle(ctx, id, "toggle_starred",
		func(t *service.Task) *bool { return &t.Starred },
		s.gw.SetStarred)
}

// ToggleArchived flips the archived flag.
func (s *Store) ToggleArchived(ctx context.Context, id string) (service.Task, error) {
	return s.toggle(ctx, id, "toggle_archived",
		func(t *service.Task) *bool { return &t.Archived },
		s.gw.SetArchived)
}

func (s *Store) toggle(
	ctx context.Context,
	id, op string,
	field func(*service.Task) *bool,
	call func(context.Context, string, bool) (service.Task, error),
) (service.Task, error) {
	unlock, err := s.locks.lock(ctx, id)
	if err != nil {
		return service.Task{}, err
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		unlock()
		return service.Task{}, &NotFoundError{ID: id}
	}
	flag := field(&s.tasks[i])
	prev := *flag
	*flag = !prev
	s.begin(id)
	s.mu.Unlock()

	return settle(s, ctx, func(rctx context.Context) (service.Task, error) {
		defer unlock()
		defer s.finish(id)

		updated, err := call(rctx, id, !prev)
		if err != nil {
			s.mu.Lock()
			if i := s.indexOf(id); i >= 0 {
				*field(&s.tasks[i]) = prev
			}
			s.mu.Unlock()
			s.rolledBack(op, id, err)
			return service.Task{}, &RemoteError{Op: op, ID: id, Err: err}
		}
		return s.adopt(id, updated), nil
	})
}

// EditInput describes a partial edit. A nil Title keeps the title.
// DueDate sets the due date; ClearDueDate removes it and wins over DueDate.
type EditInput struct {
	Title        *string
	DueDate      *service.Date
	ClearDueDate bool
}

// Edit updates title and/or due date optimistically.
func (s *Store) Edit(ctx context.Context, id string, in EditInput) (service.Task, error) {
	var upd service.UpdateInput
	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return service.Task{}, err
		}
		upd.Title = &title
	}
	switch {
	case in.ClearDueDate:
		upd.SetDueDate = true
	case in.DueDate != nil:
		d := *in.DueDate
		upd.DueDate = &d
		upd.SetDueDate = true
	}
	if upd.Title == nil && !upd.SetDueDate {
		return service.Task{}, &ValidationError{Field: "input", Message: "nothing to change"}
	}

	unlock, err := s.locks.lock(ctx, id)
	if err != nil {
		return service.Task{}, err
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		unlock()
		return service.Task{}, &NotFoundError{ID: id}
	}
	prevTitle, prevDue := s.tasks[i].Title, s.tasks[i].DueDate
	if upd.Title != nil {
		s.tasks[i].Title = *upd.Title
	}
	if upd.SetDueDate {
		s.tasks[i].DueDate = upd.DueDate
	}
	s.begin(id)
	s.mu.Unlock()

	return settle(s, ctx, func(rctx context.Context) (service.Task, error) {
		defer unlock()
		defer s.finish(id)

		updated, err := s.gw.Update(rctx, id, upd)
		if err != nil {
			s.mu.Lock()
			if i := s.indexOf(id); i >= 0 {
				s.tasks[i].Title = prevTitle
				s.tasks[i].DueDate = prevDue
			}
			s.mu.Unlock()
			s.rolledBack("edit", id, err)
			return service.Task{}, &RemoteError{Op: "edit", ID: id, Err: err}
		}
		return s.adopt(id, updated), nil
	})
}

// Delete removes a task optimistically. If the gateway fails the task is put
// back where it was, relative to the tasks still present.
func (s *Store) Delete(ctx context.Context, id string) error {
	unlock, err := s.locks.lock(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		unlock()
		return &NotFoundError{ID: id}
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.begin(id)
	s.mu.Unlock()

	_, err = settle(s, ctx, func(rctx context.Context) (struct{}, error) {
		defer unlock()
		defer s.finish(id)

		err := s.gw.Delete(rctx, id)

		s.mu.Lock()
		if err != nil {
			s.reinsert(removed)
		} else {
			delete(s.seq, id)
		}
		s.mu.Unlock()

		if err != nil {
			s.rolledBack("delete", id, err)
			return struct{}{}, &RemoteError{Op: "delete", ID: id, Err: err}
		}
		return struct{}{}, nil
	})
	return err
}

// EmptyArchive deletes every archived task. All of them leave local state at
// once; those whose remote delete fails are restored to their places. It
// returns how many were deleted.
func (s *Store) EmptyArchive(ctx context.Context) (int, error) {
	var ids []string
	for _, t := range s.FilteredView(StatusArchived, "") {
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	unlock, err := s.locks.lockAll(ctx, ids)
	if err != nil {
		return 0, err
	}

	var removed []service.Task
	var removedIDs []string

	s.mu.Lock()
	kept := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.Archived && containsID(ids, t.ID) {
			removed = append(removed, t)
			removedIDs = append(removedIDs, t.ID)
			s.begin(t.ID)
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	s.mu.Unlock()

	return settle(s, ctx, func(rctx context.Context) (int, error) {
		defer unlock()
		defer s.finish(removedIDs...)

		errs := make([]error, len(removed))
		var wg sync.WaitGroup
		for n, t := range removed {
			wg.Add(1)
			go func(n int, id string) {
				defer wg.Done()
				errs[n] = s.gw.Delete(rctx, id)
			}(n, t.ID)
		}
		wg.Wait()

		deleted := 0
		var failed []error
		s.mu.Lock()
		for n, t := range removed {
			if errs[n] == nil {
				deleted++
				delete(s.seq, t.ID)
				continue
			}
			s.reinsert(t)
			failed = append(failed, errs[n])
		}
		s.mu.Unlock()

		if len(failed) > 0 {
			for n, t := range removed {
				if errs[n] != nil {
					s.rolledBack("empty_archive", t.ID, errs[n])
				}
			}
			return deleted, &RemoteError{Op: "empty_archive", Err: errors.Join(failed...)}
		}
		return deleted, nil
	})
}

// adopt replaces the local copy with the server's version when the gateway
// returned one, and returns the current local copy.
func (s *Store) adopt(id string, updated service.Task) service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return updated.Clone()
	}
	if updated.ID == id {
		s.tasks[i] = updated.Clone()
	}
	return s.tasks[i].Clone()
}

// reinsert puts t back in seq order. Caller holds s.mu.
func (s *Store) reinsert(t service.Task) {
	if s.indexOf(t.ID) >= 0 {
		return
	}
	want, ok := s.seq[t.ID]
	if !ok {
		want = s.nextSeq
		s.nextSeq++
		s.seq[t.ID] = want
	}
	i := sort.Search(len(s.tasks), func(i int) bool {
		return s.seq[s.tasks[i].ID] > want
	})
	s.tasks = append(s.tasks, service.Task{})
	copy(s.tasks[i+1:], s.tasks[i:])
	s.tasks[i] = t
}

// indexOf returns the index of id or -1. Caller holds s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) rolledBack(op, id string, err error) {
	s.metrics.ObserveRollback(op)
	s.log.WithFields(logrus.Fields{
		"op":      op,
		"task_id": id,
	}).WithError(err).Warn("remote call failed, local change reverted")
}

func (s *Store) boundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// settle runs fn on a context detached from the caller's cancellation and
// waits for it. If ctx ends first settle returns ctx.Err() while fn keeps
// running, so its commit or rollback always completes. Store.Wait covers it.
func settle[T any](s *Store, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		rctx, cancel := s.boundContext(context.WithoutCancel(ctx))
		defer cancel()
		v, err := fn(rctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		select {
		case r := <-done:
			return r.v, r.err
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "title is required"}
	}
	return title, nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
