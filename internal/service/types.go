// Package service defines the backend-agnostic gateway interface for task operations.
package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Task represents a single task item as held by the client.
type Task struct {
	ID         string `json:"id"`
	OwnerEmail string `json:"user_email"`
	Title      string `json:"title"`
	CreatedAt  string `json:"date"` // ISO-8601, assigned remotely
	DueDate    *Date  `json:"due_date,omitempty"`
	Completed  bool   `json:"completion_status"`
	Starred    bool   `json:"starred_status"`
	Archived   bool   `json:"archived_status"`
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

// CreateInput holds the fields sent when creating a task.
type CreateInput struct {
	Title     string
	DueDate   *Date
	Starred   bool
	CreatedAt string // client timestamp sent as "date"
}

// UpdateInput is a partial update of a task's editable fields.
// A nil Title leaves the title unchanged. DueDate is applied only when
// SetDueDate is true; a nil DueDate then clears it.
type UpdateInput struct {
	Title      *string
	DueDate    *Date
	SetDueDate bool
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the local calendar date of t.
// The components are read in local time so no UTC shift can move the day.
func DateOf(t time.Time) Date {
	t = t.Local()
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses "YYYY-MM-DD". A longer ISO timestamp is accepted and
// its leading date part is taken as written, without zone conversion.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == 'T' {
		s = s[:10]
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date: %q (want YYYY-MM-DD)", s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String formats the date as YYYY-MM-DD from its components.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
// Empty strings are rejected; use a nil *Date for "no due date".
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Profile is the user's public profile.
type Profile struct {
	Email string

	// PictureURL is absolute, or empty when no picture was uploaded.
	PictureURL string
}
