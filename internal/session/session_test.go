package session

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	in := &Session{
		Email:   "me@example.com",
		Token:   &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"},
		Cookies: []*http.Cookie{{Name: "refreshToken", Value: "r1"}},
	}

	require.NoError(t, Save(path, in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", out.Email)
	assert.Equal(t, "abc", out.Token.AccessToken)
	require.Len(t, out.Cookies, 1)
	assert.Equal(t, "r1", out.Cookies[0].Value)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{"), 0600))
	_, err := Load(garbage)
	assert.Error(t, err)

	noToken := filepath.Join(dir, "notoken.json")
	require.NoError(t, os.WriteFile(noToken, []byte(`{"email":"me@example.com"}`), 0600))
	_, err = Load(noToken)
	assert.ErrorContains(t, err, "no access token")
}
