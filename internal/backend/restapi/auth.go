package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"taskdeck/internal/session"
)

// ErrSessionExpired is returned when the access token was rejected and the
// refresh endpoint could not issue a new one.
var ErrSessionExpired = errors.New("session expired (run: taskdeck login)")

// Login exchanges credentials for a new session.
func Login(ctx context.Context, httpClient *http.Client, baseURL, email, password string) (*session.Session, error) {
	return authenticate(ctx, httpClient, baseURL+"/auth/login", email, password)
}

// Signup registers a user and returns the new session.
func Signup(ctx context.Context, httpClient *http.Client, baseURL, email, password string) (*session.Session, error) {
	return authenticate(ctx, httpClient, baseURL+"/auth/signup", email, password)
}

func authenticate(ctx context.Context, httpClient *http.Client, url, email, password string) (*session.Session, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	email = strings.TrimSpace(email)
	body, err := json.Marshal(credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, wrapError(err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		if IsAuthError(err) {
			return nil, fmt.Errorf("invalid email or password: %w", err)
		}
		return nil, wrapError(err)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("invalid auth response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("invalid auth response: no access token")
	}

	return &session.Session{
		Email:   email,
		Token:   &oauth2.Token{AccessToken: tr.AccessToken, TokenType: "Bearer"},
		Cookies: resp.Cookies(),
	}, nil
}

// authenticator holds the live credentials of a session. It is an
// oauth2.TokenSource whose token is replaced through the refresh endpoint.
type authenticator struct {
	baseURL   string
	base      http.RoundTripper
	onRefresh func(*session.Session)

	mu   sync.Mutex
	sess session.Session
}

var _ oauth2.TokenSource = (*authenticator)(nil)

// Token implements oauth2.TokenSource.
func (a *authenticator) Token() (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess.Token == nil {
		return nil, ErrSessionExpired
	}
	tok := *a.sess.Token
	return &tok, nil
}

func (a *authenticator) cookies() []*http.Cookie {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*http.Cookie(nil), a.sess.Cookies...)
}

// refresh obtains a new access token unless another request already
// replaced stale.
func (a *authenticator) refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess.Token != nil && stale != nil && a.sess.Token.AccessToken != stale.AccessToken {
		tok := *a.sess.Token
		return &tok, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/refresh", nil)
	if err != nil {
		return nil, err
	}
	for _, c := range a.sess.Cookies {
		req.AddCookie(c)
	}

	resp, err := a.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: invalid refresh response", ErrSessionExpired)
	}

	a.sess.Token = &oauth2.Token{AccessToken: tr.AccessToken, TokenType: "Bearer"}
	a.sess.Cookies = mergeCookies(a.sess.Cookies, resp.Cookies())
	if a.onRefresh != nil {
		snapshot := a.sess
		a.onRefresh(&snapshot)
	}
	tok := *a.sess.Token
	return &tok, nil
}

// authTransport attaches the bearer token and session cookies, and on a
// 401 or 403 refreshes the token and retries the request once.
type authTransport struct {
	base http.RoundTripper
	auth *authenticator
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.auth.Token()
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(t.authorize(req, tok))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil // body cannot be replayed
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	fresh, err := t.auth.refresh(req.Context(), tok)
	if err != nil {
		return nil, err
	}

	retry := t.authorize(req, fresh)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}

func (t *authTransport) authorize(req *http.Request, tok *oauth2.Token) *http.Request {
	r := req.Clone(req.Context())
	tok.SetAuthHeader(r)
	for _, c := range t.auth.cookies() {
		r.AddCookie(c)
	}
	return r
}

// mergeCookies replaces cookies in old by name with those in fresh.
func mergeCookies(old, fresh []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(old)+len(fresh))
	names := make(map[string]bool, len(fresh))
	for _, c := range fresh {
		names[c.Name] = true
	}
	for _, c := range old {
		if !names[c.Name] {
			out = append(out, c)
		}
	}
	return append(out, fresh...)
}
