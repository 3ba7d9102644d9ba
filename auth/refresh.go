package auth

import (
	"context"

	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/pkg/errors"
)

const refreshFlight = "refresh"

// Refresh exchanges the stored refresh token for a new token pair and
// replaces the session with it. Concurrent callers share one remote call.
// Every failure signs out: a missing refresh token, a rejected or failed
// call, or an answer without both tokens.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, shared := m.refreshes.Do(refreshFlight, func() (any, error) {
		return nil, m.refresh(ctx)
	})
	if shared {
		m.logger.Debug().Msg("joined in-flight refresh")
	}
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.commitLock.Lock()
	epoch := m.epoch
	current := m.store.Current()
	m.setState(StateRefreshPending)
	m.commitLock.Unlock()
	m.notify()

	refreshToken := m.store.RefreshToken()
	if refreshToken == "" {
		m.endSession(ctx, epoch)
		return errors.Wrap(errNoRefreshToken, "[Refresh] cannot refresh")
	}

	expire := m.decoder.RefreshExpiryHint(refreshToken, m.refreshTokenLifetime)
	pair, err := m.portal.Refresh(ctx, refreshToken, expire)
	if err != nil {
		if perrors.IsUnauthorized(err) {
			m.logger.Warn().Err(err).Msg("refresh token rejected, signing out")
		} else {
			m.logger.Warn().Err(err).Msg("refresh failed, signing out")
		}
		m.endSession(ctx, epoch)
		return errors.Wrap(err, "[Refresh] portal refresh failed")
	}

	var userData map[string]any
	if current != nil {
		userData = current.Extra
		if current.ID != "" {
			userData = withID(userData, current.ID)
		}
	}
	session, err := m.establish(pair.AccessToken, pair.RefreshToken, userData, epoch)
	if err != nil {
		m.endSession(ctx, epoch)
		return errors.Wrap(err, "[Refresh] refreshed token rejected")
	}
	m.logger.Debug().Str("user_id", session.ID).Time("expires", session.ExpiresAt()).Msg("session refreshed")
	return nil
}

// endSession signs out unless the session the refresh started from was
// already replaced or ended by someone else, who then owns the state.
func (m *Manager) endSession(ctx context.Context, epoch uint64) {
	m.commitLock.Lock()
	replaced := epoch != m.epoch
	m.commitLock.Unlock()
	if replaced {
		return
	}
	m.Logout(ctx)
}

func withID(userData map[string]any, id string) map[string]any {
	out := make(map[string]any, len(userData)+1)
	for k, v := range userData {
		out[k] = v
	}
	out["id"] = id
	return out
}
