// Package session persists the signed-in user's identity and credentials.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned by Load when no session has been saved.
var ErrNoSession = errors.New("not logged in")

// Session is the identity handle the gateway is bound to.
type Session struct {
	// Email identifies the owning user.
	Email string `json:"email"`

	// Token is the bearer access token.
	Token *oauth2.Token `json:"token"`

	// Cookies carries the server's refresh cookie between runs.
	Cookies []*http.Cookie `json:"cookies,omitempty"`
}

// Validate checks that the session can authenticate requests.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.Email) == "" {
		return errors.New("session has no email")
	}
	if s.Token == nil || s.Token.AccessToken == "" {
		return errors.New("session has no access token")
	}
	return nil
}

// Load reads a session file.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}
	return &s, nil
}

// Save writes a session file with mode 0600.
func Save(path string, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
