package auth

import (
	"context"
	"net/http"
	"strings"

	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Manager)(nil)

// Token makes the Manager an oauth2.TokenSource. An expired session is
// refreshed first; without a usable session it returns ErrNotAuthenticated.
func (m *Manager) Token() (*oauth2.Token, error) {
	current := m.store.Current()
	if current == nil {
		return nil, perrors.ErrNotAuthenticated
	}
	if !current.Valid(m.nowFunc()) {
		if err := m.Refresh(context.Background()); err != nil {
			return nil, err
		}
		if current = m.store.Current(); !current.Valid(m.nowFunc()) {
			return nil, perrors.ErrNotAuthenticated
		}
	}
	return &oauth2.Token{
		AccessToken:  current.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: current.RefreshToken,
		Expiry:       current.ExpiresAt(),
	}, nil
}

// Transport returns a RoundTripper that authorizes requests with the
// current access token and signs out when a response is 401 or 403 for the
// token that is still current. A nil base uses http.DefaultTransport.
func (m *Manager) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &oauth2.Transport{
		Source: m,
		Base:   &unauthorizedTransport{base: base, manager: m},
	}
}

// HTTPClient returns a client for calling the portal API as the signed-in user
func (m *Manager) HTTPClient() *http.Client {
	return &http.Client{Transport: m.Transport(nil)}
}

// unauthorizedTransport sits under oauth2.Transport and so sees the bearer
// each request was actually sent with.
type unauthorizedTransport struct {
	base    http.RoundTripper
	manager *Manager
}

func (t *unauthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	sent := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	current := t.manager.Current()
	if current == nil || current.AccessToken != sent {
		t.manager.logger.Debug().
			Int("status", resp.StatusCode).
			Str("path", req.URL.Path).
			Msg("rejected token was already replaced, keeping the session")
		return resp, nil
	}
	t.manager.logger.Warn().
		Int("status", resp.StatusCode).
		Str("path", req.URL.Path).
		Msg("portal rejected the session, signing out")
	t.manager.Logout(context.WithoutCancel(req.Context()))
	return resp, nil
}
