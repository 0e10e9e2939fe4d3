package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-editor/inkwell/config"
	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/gh"
	"github.com/inkwell-editor/inkwell/logging"
	"github.com/sirupsen/logrus"
)

// Phase is the manager's authentication state.
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseAuthenticating
	PhaseAuthenticated
)

// Session is the authenticated identity. Nil while unauthenticated.
type Session struct {
	Token  string
	Scopes []string
	User   *gh.User
}

// TokenStore persists the access token across restarts.
type TokenStore interface {
	ReadToken() (string, error)
	WriteToken(token string) error
	ClearToken() error
}

// Manager owns the OAuth token lifecycle: flow initiation, exchange,
// persistence, restore, and teardown. It is the single owner of session
// state; other components read it by reference.
type Manager struct {
	cfg   config.AuthConfig
	store TokenStore
	httpc *http.Client
	api   *gh.Client
	log   *logrus.Entry

	// sleep is swapped out by tests to make the device poll loop instant.
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	phase   Phase
	token   string
	session *Session
}

// NewManager creates a session manager. The returned manager owns a gh.Client
// bound to its token; fetch it with API().
func NewManager(cfg config.AuthConfig, apiBaseURL string, store TokenStore) *Manager {
	m := &Manager{
		cfg:   cfg,
		store: store,
		httpc: &http.Client{Timeout: 30 * time.Second},
		log:   logging.NewLogger("auth"),
		sleep: sleepCtx,
	}
	m.api = gh.NewClient(apiBaseURL, m.Token)
	return m
}

// API returns the API client bound to this manager's token.
func (m *Manager) API() *gh.Client {
	return m.api
}

// Token returns the current access token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Phase returns the manager's authentication phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Scopes returns the OAuth scopes granted to the current token.
func (m *Manager) Scopes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	return append([]string(nil), m.session.Scopes...)
}

// HasScope reports whether the current session carries the named scope.
func (m *Manager) HasScope(name string) bool {
	for _, s := range m.Scopes() {
		if s == name {
			return true
		}
	}
	return false
}

// AuthorizeURL returns the identity provider's authorization endpoint URL
// for the code flow. The caller navigates the user agent there; the flow
// resumes in CompleteAuthorizationCode with the code from the redirect.
func (m *Manager) AuthorizeURL(state string) string {
	q := url.Values{
		"client_id": {m.cfg.ClientID},
		"scope":     {strings.Join(m.cfg.Scopes, " ")},
	}
	if state != "" {
		q.Set("state", state)
	}
	return m.cfg.AuthorizeURL + "?" + q.Encode()
}

// CompleteAuthorizationCode exchanges a one-time authorization code for an
// access token via the trusted server-side proxy. The proxy holds the client
// secret; this process never sees it.
func (m *Manager) CompleteAuthorizationCode(ctx context.Context, code string) (*Session, error) {
	m.setPhase(PhaseAuthenticating)

	body, _ := json.Marshal(map[string]string{"code": code})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.ProxyURL, bytes.NewReader(body))
	if err != nil {
		m.setPhase(PhaseUnauthenticated)
		return nil, errors.ExchangeFailed(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		m.setPhase(PhaseUnauthenticated)
		return nil, errors.ExchangeFailed(err)
	}
	defer resp.Body.Close()

	var payload struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		m.setPhase(PhaseUnauthenticated)
		return nil, errors.ExchangeFailed(err)
	}
	if resp.StatusCode != http.StatusOK || payload.Token == "" {
		m.setPhase(PhaseUnauthenticated)
		return nil, errors.ExchangeFailed(fmt.Errorf("proxy returned status %d: %s", resp.StatusCode, payload.Error))
	}

	return m.establish(ctx, payload.Token)
}

// CompleteWithToken establishes a session from a pre-issued token (e.g. a
// personal access token pasted by the user). The token is validated against
// the provider before it is persisted.
func (m *Manager) CompleteWithToken(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, errors.AuthFailed("empty token")
	}
	m.setPhase(PhaseAuthenticating)
	return m.establish(ctx, token)
}

// Restore reads a persisted token at startup and validates it against the
// provider. A dead credential is cleared and reported as "no session" (nil,
// nil) rather than an error.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	token, err := m.store.ReadToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	user, err := m.api.GetUser(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrCodeAuthExpired) {
			m.log.Info("Persisted token rejected, clearing it")
			m.Logout()
			return nil, nil
		}
		m.mu.Lock()
		m.token = ""
		m.mu.Unlock()
		return nil, err
	}

	session := &Session{Token: token, Scopes: m.api.Scopes(), User: user}
	m.mu.Lock()
	m.session = session
	m.phase = PhaseAuthenticated
	m.mu.Unlock()

	m.log.WithField("user", user.Login).Debug("Session restored")
	return session, nil
}

// Logout clears the persisted token and in-memory session. Idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.session = nil
	m.phase = PhaseUnauthenticated
	m.mu.Unlock()

	if err := m.store.ClearToken(); err != nil {
		m.log.WithError(err).Warn("Failed to clear persisted token")
	}
}

// Invalidate tears the session down in response to a credential rejection
// reported by any API call.
func (m *Manager) Invalidate() {
	m.log.Info("Session invalidated by provider, tearing down")
	m.Logout()
}

// establish persists the token, fetches the identity, and activates the
// session.
func (m *Manager) establish(ctx context.Context, token string) (*Session, error) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	user, err := m.api.GetUser(ctx)
	if err != nil {
		m.mu.Lock()
		m.token = ""
		m.phase = PhaseUnauthenticated
		m.mu.Unlock()
		return nil, errors.Wrap(err, errors.ErrCodeAuthFailed, "token accepted but identity fetch failed")
	}

	if err := m.store.WriteToken(token); err != nil {
		m.log.WithError(err).Warn("Failed to persist token; session will not survive a restart")
	}

	session := &Session{Token: token, Scopes: m.api.Scopes(), User: user}
	m.mu.Lock()
	m.session = session
	m.phase = PhaseAuthenticated
	m.mu.Unlock()

	m.log.WithField("user", user.Login).Info("Session established")
	return session, nil
}

func (m *Manager) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
