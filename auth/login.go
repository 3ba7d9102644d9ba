package auth

import (
	"context"
	"maps"
	"strings"

	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/jrsteele09/carebook-portal/internal/utils"
	"github.com/jrsteele09/carebook-portal/portal"
	"github.com/jrsteele09/carebook-portal/sessions"
	"github.com/jrsteele09/carebook-portal/users"
	"github.com/pkg/errors"
)

// LoginResult is returned by a successful sign-in
type LoginResult struct {
	Success bool
	Role    users.RoleType
}

// Login establishes a session from tokens the caller already holds.
// Claims in accessToken win over userData for id, role, email and name.
// Any failure signs out before the error is returned, so no partial
// session survives.
func (m *Manager) Login(ctx context.Context, accessToken, refreshToken string, userData map[string]any) (*LoginResult, error) {
	session, err := m.establish(accessToken, refreshToken, userData, anyEpoch)
	if err != nil {
		m.Logout(ctx)
		return nil, err
	}
	m.logger.Info().Str("user_id", session.ID).Str("role", session.Role.String()).Msg("signed in")
	return &LoginResult{Success: true, Role: session.Role}, nil
}

// LoginWithPassword signs in against the portal with credentials.
// Rejected credentials leave the current state untouched.
func (m *Manager) LoginWithPassword(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return nil, errors.Wrap(err, "[LoginWithPassword] invalid credentials")
	}

	response, err := m.portal.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, errors.Wrap(err, "[LoginWithPassword] portal login failed")
	}
	return m.Login(ctx, response.AccessToken, utils.Value(response.RefreshToken), response.User)
}

// Register creates an account and signs in as it
func (m *Manager) Register(ctx context.Context, registration Registration) (*LoginResult, error) {
	if err := registration.Validate(); err != nil {
		return nil, errors.Wrap(err, "[Register] invalid registration")
	}

	pair, err := m.portal.Register(ctx, portal.RegisterRequest{
		Email:    strings.TrimSpace(registration.Email),
		Password: registration.Password,
		Role:     registration.Role,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Register] portal registration failed")
	}

	userData := maps.Clone(registration.Profile)
	if userData == nil {
		userData = make(map[string]any)
	}
	userData["email"] = strings.TrimSpace(registration.Email)
	userData["role"] = string(registration.Role)
	return m.Login(ctx, pair.AccessToken, pair.RefreshToken, userData)
}

// Logout tears the session down: it cancels the refresh timer, tells the
// portal (best effort), then clears memory, storage and cookies. It never
// fails and is safe to call when already signed out.
func (m *Manager) Logout(ctx context.Context) {
	m.commitLock.Lock()
	m.epoch++
	m.scheduler.Cancel()
	current := m.store.Current()
	m.commitLock.Unlock()

	if current != nil && current.AccessToken != "" {
		if err := m.portal.Logout(ctx, current.AccessToken); err != nil {
			m.logger.Warn().Err(err).Msg("portal logout failed, clearing locally")
		}
	}

	m.commitLock.Lock()
	m.epoch++
	m.scheduler.Cancel()
	if err := m.store.Clear(); err != nil {
		m.logger.Err(err).Msg("failed to clear every session sink")
	}
	m.setState(StateUnauthenticated)
	m.commitLock.Unlock()

	if current != nil {
		m.logger.Info().Str("user_id", current.ID).Msg("signed out")
	}
	m.notify()
}

// establish validates accessToken, builds the session and commits it.
// It does not sign out on failure; callers decide.
func (m *Manager) establish(accessToken, refreshToken string, userData map[string]any, epoch uint64) (*sessions.Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "access token is required")
	}

	identity := m.decoder.Decode(accessToken)
	if identity.Fallback {
		return nil, perrors.Wrapf(perrors.ErrTokenExpired, "access token could not be read")
	}
	if m.nowFunc().UnixMilli() >= identity.Exp {
		return nil, perrors.Wrapf(perrors.ErrTokenExpired, "access token expired at %s", identity.ExpiresAt().UTC())
	}

	session := sessions.New(identity, accessToken, strings.TrimSpace(refreshToken), userData)
	if err := m.commit(session, epoch); err != nil {
		return nil, err
	}
	m.notify()
	return session, nil
}
