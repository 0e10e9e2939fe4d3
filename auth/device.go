package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inkwell-editor/inkwell/errors"
)

// DeviceAuth is the provider's answer to a device authorization request.
// UserCode and VerificationURI are shown to the user; DeviceCode drives the
// poll loop.
type DeviceAuth struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type deviceTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Interval    int    `json:"interval"`
}

// BeginDeviceFlow requests a device code, user code, and verification URL
// from the provider.
func (m *Manager) BeginDeviceFlow(ctx context.Context) (*DeviceAuth, error) {
	m.setPhase(PhaseAuthenticating)

	form := url.Values{
		"client_id": {m.cfg.ClientID},
		"scope":     {strings.Join(m.cfg.Scopes, " ")},
	}

	var da DeviceAuth
	if err := m.postForm(ctx, m.cfg.DeviceAuthURL, form, &da); err != nil {
		m.setPhase(PhaseUnauthenticated)
		return nil, errors.ProviderUnavailable(err)
	}

	m.log.WithField("user_code", da.UserCode).Debug("Device flow started")
	return &da, nil
}

// PollDeviceFlow polls the token endpoint until the provider returns a token
// or a terminal response. authorization_pending continues silently,
// slow_down stretches the interval, expired_token and access_denied stop the
// loop, and any other provider error surfaces immediately. Cancel via ctx
// when the user abandons the login.
func (m *Manager) PollDeviceFlow(ctx context.Context, da *DeviceAuth) (*Session, error) {
	interval := da.Interval
	if interval <= 0 {
		interval = 5
	}

	form := url.Values{
		"client_id":   {m.cfg.ClientID},
		"device_code": {da.DeviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}

	for {
		var resp deviceTokenResponse
		if err := m.postForm(ctx, m.cfg.TokenURL, form, &resp); err != nil {
			m.setPhase(PhaseUnauthenticated)
			return nil, errors.ProviderUnavailable(err)
		}

		switch resp.Error {
		case "":
			if resp.AccessToken != "" {
				return m.establish(ctx, resp.AccessToken)
			}
			m.setPhase(PhaseUnauthenticated)
			return nil, errors.AuthFailed("provider returned neither a token nor an error")
		case "authorization_pending":
			// Keep waiting.
		case "slow_down":
			interval += 5
			if resp.Interval > 0 {
				interval = resp.Interval
			}
		case "expired_token":
			m.setPhase(PhaseUnauthenticated)
			return nil, errors.AuthFailed("device code expired before authorization")
		case "access_denied":
			m.setPhase(PhaseUnauthenticated)
			return nil, errors.AuthFailed("user denied the authorization request")
		default:
			m.setPhase(PhaseUnauthenticated)
			return nil, errors.AuthFailed(resp.Error)
		}

		if err := m.sleep(ctx, time.Duration(interval)*time.Second); err != nil {
			m.setPhase(PhaseUnauthenticated)
			return nil, errors.Wrap(err, errors.ErrCodeAuthFailed, "device flow cancelled")
		}
	}
}

// postForm posts a urlencoded form and decodes the JSON response.
func (m *Manager) postForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}
