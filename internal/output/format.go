// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

// FormatTask formats one task line of a view.
// Format: "{N:>4}  [x] * {TITLE}{SUFFIX}\n" where the box is "[ ]" for
// open tasks and the star column is blank for unstarred ones.
func FormatTask(w io.Writer, num int, task service.Task, today service.Date) {
	box := "[ ]"
	if task.Completed {
		box = "[x]"
	}
	star := " "
	if task.Starred {
		star = "*"
	}
	fmt.Fprintf(w, "%4d  %s %s %s%s\n", num, box, star, normalizeTitle(task.Title), suffix(task, today))
}

// FormatTasks formats a view, numbering from 1.
func FormatTasks(w io.Writer, tasks []service.Task, today service.Date) {
	for i, t := range tasks {
		FormatTask(w, i+1, t, today)
	}
}

// FormatStats formats the summary counters.
func FormatStats(w io.Writer, st store.Stats) {
	fmt.Fprintf(w, "total:     %d\n", st.Total)
	fmt.Fprintf(w, "completed: %d (%.0f%%)\n", st.Completed, st.CompletionPercent)
	fmt.Fprintf(w, "starred:   %d\n", st.Starred)
	fmt.Fprintf(w, "archived:  %d\n", st.Archived)
}

// FormatProfile formats the profile header.
func FormatProfile(w io.Writer, p service.Profile) {
	fmt.Fprintf(w, "email:   %s\n", p.Email)
	picture := p.PictureURL
	if picture == "" {
		picture = "(none)"
	}
	fmt.Fprintf(w, "picture: %s\n", picture)
}

func suffix(t service.Task, today service.Date) string {
	var b strings.Builder
	if t.DueDate != nil {
		b.WriteString("  due ")
		b.WriteString(t.DueDate.String())
		if !t.Completed && !t.Archived && t.DueDate.Before(today) {
			b.WriteString(" (overdue)")
		}
	}
	if t.Archived {
		b.WriteString("  [archived]")
	}
	return b.String()
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
