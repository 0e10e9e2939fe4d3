package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-editor/inkwell/auth"
	"github.com/inkwell-editor/inkwell/config"
	"github.com/inkwell-editor/inkwell/errors"
)

type memTokenStore struct {
	token string
}

func (s *memTokenStore) ReadToken() (string, error)    { return s.token, nil }
func (s *memTokenStore) WriteToken(token string) error { s.token = token; return nil }
func (s *memTokenStore) ClearToken() error             { s.token = ""; return nil }

// restoredManager returns a session manager with a live restored session
// backed by a stub provider.
func restoredManager(t *testing.T) (*auth.Manager, *memTokenStore) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-OAuth-Scopes", "repo, user:email")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"login":"octo","id":1}`)
	}))
	t.Cleanup(srv.Close)

	store := &memTokenStore{token: "tok"}
	sessions := auth.NewManager(config.AuthConfig{}, srv.URL, store)

	session, err := sessions.Restore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	return sessions, store
}

func TestHandleAuthExpiredTearsDownSession(t *testing.T) {
	sessions, store := restoredManager(t)

	handler := NewErrorHandler(false)
	handler.OnAuthExpired = sessions.Invalidate

	handler.Handle(errors.AuthExpired())

	assert.Nil(t, sessions.Current(), "a rejected credential ends the session")
	tok, _ := store.ReadToken()
	assert.Empty(t, tok, "the persisted token is cleared with it")
}

func TestServeErrorPathInvalidatesSession(t *testing.T) {
	sessions, store := restoredManager(t)
	s := &docServer{app: &App{Sessions: sessions}}

	rec := httptest.NewRecorder()
	s.writeError(rec, errors.AuthExpired())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessions.Current())
	tok, _ := store.ReadToken()
	assert.Empty(t, tok)
}
