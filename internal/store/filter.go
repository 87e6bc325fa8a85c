package store

import (
	"fmt"
	"strings"

	"taskdeck/internal/service"
)

// Status selects a subset of tasks for FilteredView.
type Status int

const (
	StatusAll Status = iota
	StatusActive
	StatusCompleted
	StatusStarred
	StatusArchived
	StatusOverdue
)

var statusNames = []string{"all", "active", "completed", "starred", "archived", "overdue"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "all"
	}
	return statusNames[s]
}

// ParseStatus parses a status name case-insensitively. Empty means all.
func ParseStatus(name string) (Status, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StatusAll, nil
	}
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusAll, fmt.Errorf("unknown filter: %s", name)
}

// matches reports whether t belongs to status s. today is only consulted
// for StatusOverdue.
func (s Status) matches(t service.Task, today service.Date) bool {
	switch s {
	case StatusActive:
		return !t.Archived && !t.Completed
	case StatusCompleted:
		return !t.Archived && t.Completed
	case StatusStarred:
		return !t.Archived && t.Starred
	case StatusArchived:
		return t.Archived
	case StatusOverdue:
		return !t.Archived && !t.Completed && t.DueDate != nil && t.DueDate.Before(today)
	default:
		return !t.Archived
	}
}

// matchesSearch is a case-insensitive substring match on the title.
// needle must already be trimmed and lower-cased.
func matchesSearch(t service.Task, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), needle)
}

// FilteredView returns the tasks matching status and, when search is not
// blank, whose title contains search case-insensitively. Order follows the
// store. The result is a copy; it does not follow later mutations.
func (s *Store) FilteredView(status Status, search string) []service.Task {
	needle := strings.ToLower(strings.TrimSpace(search))
	today := service.DateOf(s.now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []service.Task
	for _, t := range s.tasks {
		if status.matches(t, today) && matchesSearch(t, needle) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Stats summarises the current tasks.
type Stats struct {
	Total             int // not archived
	Completed         int // completed and not archived
	Starred           int // starred and not archived
	Archived          int
	CompletionPercent float64
}

// Stats computes counts over the current local state.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, t := range s.tasks {
		if t.Archived {
			st.Archived++
			continue
		}
		st.Total++
		if t.Completed {
			st.Completed++
		}
		if t.Starred {
			st.Starred++
		}
	}
	if st.Total > 0 {
		st.CompletionPercent = float64(st.Completed) / float64(st.Total) * 100
	}
	return st
}
