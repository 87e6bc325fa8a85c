package restapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"taskdeck/internal/service"
)

// flexID accepts ids sent as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid task id: %s", data)
	}
	*id = flexID(n.String())
	return nil
}

// wireTask is a task as the server sends it.
type wireTask struct {
	ID        flexID  `json:"id"`
	UserEmail string  `json:"user_email"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	Completed bool    `json:"completion_status"`
	Starred   bool    `json:"starred_status"`
	Archived  bool    `json:"archived_status"`
	DueDate   *string `json:"due_date"`
}

func (w wireTask) toTask() (service.Task, error) {
	t := service.Task{
		ID:         string(w.ID),
		OwnerEmail: w.UserEmail,
		Title:      w.Title,
		CreatedAt:  w.Date,
		Completed:  w.Completed,
		Starred:    w.Starred,
		Archived:   w.Archived,
	}
	if w.DueDate != nil && strings.TrimSpace(*w.DueDate) != "" {
		d, err := service.ParseDate(*w.DueDate)
		if err != nil {
			return service.Task{}, fmt.Errorf("task %s: %w", t.ID, err)
		}
		t.DueDate = &d
	}
	return t, nil
}

type createRequest struct {
	Title            string  `json:"title"`
	Date             string  `json:"date"`
	UserEmail        string  `json:"user_email"`
	CompletionStatus bool    `json:"completionStatus"`
	StarredStatus    bool    `json:"starredStatus"`
	DueDate          *string `json:"due_date,omitempty"`
}

type completeRequest struct {
	UserEmail   string `json:"user_email"`
	IsCompleted bool   `json:"isCompleted"`
}

type starRequest struct {
	UserEmail string `json:"user_email"`
	IsStarred bool   `json:"isStarred"`
}

type archiveRequest struct {
	UserEmail  string `json:"user_email"`
	IsArchived bool   `json:"isArchived"`
}

// updateRequest builds the body for a partial update. due_date is sent as
// null to clear it and omitted when unchanged.
func updateRequest(email string, in service.UpdateInput) map[string]any {
	body := map[string]any{"user_email": email}
	if in.Title != nil {
		body["title"] = *in.Title
	}
	if in.SetDueDate {
		if in.DueDate == nil {
			body["due_date"] = nil
		} else {
			body["due_date"] = in.DueDate.String()
		}
	}
	return body
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type profileResponse struct {
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
}
