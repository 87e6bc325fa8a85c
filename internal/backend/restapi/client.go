// Package restapi implements service.Gateway over the task server's REST API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"

	"taskdeck/internal/metrics"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
)

// APITimeout is the default timeout for a single API call.
const APITimeout = 10 * time.Second

var (
	errEmptyBody = errors.New("empty response body")
	errBadBody   = errors.New("invalid response body")
)

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, without a trailing slash.
	BaseURL string

	// Session is the identity the client acts for.
	Session *session.Session

	// Transport is the underlying transport; http.DefaultTransport if nil.
	Transport http.RoundTripper

	// Timeout bounds each call; APITimeout if zero.
	Timeout time.Duration

	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics

	// OnSessionRefresh is called with the updated session after the access
	// token has been refreshed, so it can be persisted.
	OnSessionRefresh func(*session.Session)
}

// Client implements service.Gateway for one user.
type Client struct {
	http    *http.Client
	baseURL string
	email   string
	timeout time.Duration
	log     logrus.FieldLogger
}

var _ service.Backend = (*Client)(nil)

// New creates a client bound to opts.Session.
func New(opts Options) (*Client, error) {
	if opts.Session == nil {
		return nil, session.ErrNoSession
	}
	if err := opts.Session.Validate(); err != nil {
		return nil, err
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid api_url: %q", opts.BaseURL)
	}

	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = APITimeout
	}

	transport := opts.Metrics.RoundTripper(opts.Transport)
	auth := &authenticator{
		baseURL:   base,
		base:      transport,
		onRefresh: opts.OnSessionRefresh,
		sess:      *opts.Session,
	}

	return &Client{
		http:    &http.Client{Transport: &authTransport{base: transport, auth: auth}},
		baseURL: base,
		email:   opts.Session.Email,
		timeout: timeout,
		log:     log.WithField("component", "restapi"),
	}, nil
}

// Email returns the identity the client is bound to.
func (c *Client) Email() string { return c.email }

// FetchAll returns every task owned by the session's user.
func (c *Client) FetchAll(ctx context.Context) ([]service.Task, error) {
	var wire []wireTask
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(c.email), nil, &wire); err != nil {
		if errors.Is(err, errEmptyBody) {
			return nil, nil
		}
		return nil, err
	}

	result := make([]service.Task, 0, len(wire))
	for _, w := range wire {
		t, err := w.toTask()
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// Create submits a new task and returns the server's record of it.
func (c *Client) Create(ctx context.Context, in service.CreateInput) (service.Task, error) {
	body := createRequest{
		Title:         in.Title,
		Date:          in.CreatedAt,
		UserEmail:     c.email,
		StarredStatus: in.Starred,
	}
	if in.DueDate != nil {
		d := in.DueDate.String()
		body.DueDate = &d
	}

	var w wireTask
	if err := c.do(ctx, http.MethodPost, "/tasks", body, &w); err != nil {
		return service.Task{}, err
	}
	t, err := w.toTask()
	if err != nil {
		return service.Task{}, err
	}
	if t.ID == "" {
		return service.Task{}, errors.New("server returned a task without an id")
	}
	return t, nil
}

// Update changes a task's title and/or due date.
func (c *Client) Update(ctx context.Context, id string, in service.UpdateInput) (service.Task, error) {
	return c.mutate(ctx, http.MethodPut, taskPath(id), updateRequest(c.email, in))
}

// SetCompleted sets the completion flag.
func (c *Client) SetCompleted(ctx context.Context, id string, completed bool) (service.Task, error) {
	return c.mutate(ctx, http.MethodPut, taskPath(id)+"/complete", completeRequest{UserEmail: c.email, IsCompleted: completed})
}

// SetStarred sets the starred flag.
func (c *Client) SetStarred(ctx context.Context, id string, starred bool) (service.Task, error) {
	return c.mutate(ctx, http.MethodPut, taskPath(id)+"/star", starRequest{UserEmail: c.email, IsStarred: starred})
}

// SetArchived sets the archived flag.
func (c *Client) SetArchived(ctx context.Context, id string, archived bool) (service.Task, error) {
	return c.mutate(ctx, http.MethodPut, taskPath(id)+"/archive", archiveRequest{UserEmail: c.email, IsArchived: archived})
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// Logout ends the session on the server. The local session file is the
// caller's to remove.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Profile fetches the user's profile picture reference, resolved against
// the server root.
func (c *Client) Profile(ctx context.Context) (service.Profile, error) {
	var pr profileResponse
	if err := c.do(ctx, http.MethodGet, "/upload/"+url.PathEscape(c.email), nil, &pr); err != nil {
		if errors.Is(err, errEmptyBody) {
			return service.Profile{Email: c.email}, nil
		}
		return service.Profile{}, err
	}

	p := service.Profile{Email: pr.Email}
	if p.Email == "" {
		p.Email = c.email
	}
	if pic := strings.TrimSpace(pr.ProfilePicture); pic != "" {
		if strings.HasPrefix(pic, "http://") || strings.HasPrefix(pic, "https://") {
			p.PictureURL = pic
		} else {
			p.PictureURL = c.baseURL + "/" + strings.TrimLeft(pic, "/")
		}
	}
	return p, nil
}

// mutate sends a state change. The server's copy of the task is returned
// when the response carries one; otherwise the zero Task is returned and
// the caller keeps its own view.
func (c *Client) mutate(ctx context.Context, method, path string, body any) (service.Task, error) {
	var w wireTask
	err := c.do(ctx, method, path, body, &w)
	switch {
	case errors.Is(err, errEmptyBody):
		return service.Task{}, nil
	case errors.Is(err, errBadBody):
		c.log.WithError(err).WithField("path", path).Debug("ignoring unreadable response body")
		return service.Task{}, nil
	case err != nil:
		return service.Task{}, err
	}

	t, err := w.toTask()
	if err != nil {
		c.log.WithError(err).WithField("path", path).Debug("ignoring unreadable task")
		return service.Task{}, nil
	}
	return t, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"route":      metrics.NormalizeRoute(path),
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return wrapError(err)
	}
	defer resp.Body.Close()

	log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("request completed")

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w from %s %s: %v", errBadBody, method, path, err)
	}
	return nil
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

// wrapError adds a user-facing message to API errors, keeping the cause.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		case http.StatusNotFound:
			return fmt.Errorf("not found: %w", err)
		}
	}
	return err
}

// IsAuthError reports whether err means the session is no longer valid.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
	}
	return false
}
