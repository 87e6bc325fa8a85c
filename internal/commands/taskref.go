package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/pflag"

	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

// TaskRef represents a parsed task reference: either a 1-based position in
// the current view, or an explicit id written "id:<id>".
type TaskRef struct {
	Num int
	ID  string
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// refError is a malformed or unresolvable reference.
type refError struct{ msg string }

func (e *refError) Error() string { return e.msg }

func isRefError(err error) bool {
	var r *refError
	return errors.As(err, &r)
}

// ParseTaskRef parses the task reference in args[0].
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, &refError{fmt.Sprintf("unexpected argument: %s", args[1])}
	}

	arg := strings.TrimSpace(args[0])
	if id, ok := strings.CutPrefix(arg, "id:"); ok {
		if id == "" {
			return TaskRef{}, ErrTaskRefRequired
		}
		return TaskRef{ID: id}, nil
	}

	if !isAllDigits(arg) {
		return TaskRef{}, &refError{fmt.Sprintf("invalid task reference: %s", arg)}
	}
	num, err := strconv.Atoi(arg)
	if err != nil || num < 1 {
		return TaskRef{}, &refError{fmt.Sprintf("task number out of range: %s", arg)}
	}
	return TaskRef{Num: num}, nil
}

// Resolve finds the referenced task. Positions count within view.
func (r TaskRef) Resolve(st *store.Store, view []service.Task) (service.Task, error) {
	if r.ID != "" {
		t, ok := st.Get(r.ID)
		if !ok {
			return service.Task{}, &store.NotFoundError{ID: r.ID}
		}
		return t, nil
	}
	if r.Num < 1 || r.Num > len(view) {
		return service.Task{}, &refError{fmt.Sprintf("task number out of range: %d", r.Num)}
	}
	return view[r.Num-1], nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// viewFlags selects the view that list numbers and positional references
// count within.
type viewFlags struct {
	filter string
	search string
}

func (v *viewFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&v.filter, "filter", "f", "all", "all, active, completed, starred, archived or overdue")
	fs.StringVarP(&v.search, "search", "s", "", "only tasks whose title contains this text")
}

func (v *viewFlags) view(st *store.Store) ([]service.Task, error) {
	status, err := store.ParseStatus(v.filter)
	if err != nil {
		return nil, &refError{err.Error()}
	}
	return st.FilteredView(status, v.search), nil
}

// resolveRef parses args and resolves them against the selected view.
func resolveRef(st *store.Store, v *viewFlags, args []string) (service.Task, error) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return service.Task{}, err
	}
	view, err := v.view(st)
	if err != nil {
		return service.Task{}, err
	}
	return ref.Resolve(st, view)
}
