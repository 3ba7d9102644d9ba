package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/carebook-portal/portal"
	"github.com/jrsteele09/carebook-portal/sessions"
	"github.com/jrsteele09/carebook-portal/token"
	"github.com/jrsteele09/carebook-portal/token/refresh"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const defaultRefreshTokenLifetime = 7 * 24 * time.Hour

// Portal is the remote API the Manager signs in against. *portal.Client implements it.
type Portal interface {
	Login(ctx context.Context, email, password string) (*portal.LoginResponse, error)
	Register(ctx context.Context, request portal.RegisterRequest) (*portal.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string, expireRefreshToken time.Time) (*portal.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

var _ Portal = (*portal.Client)(nil)

// Manager is the session API of a running client. It establishes sessions
// from tokens or credentials, keeps them fresh with a refresh timer and
// tears them down. Create one per process.
type Manager struct {
	store                *sessions.Store
	portal               Portal
	scheduler            *refresh.Scheduler
	decoder              *token.Decoder
	refreshTokenLifetime time.Duration
	nowFunc              func() time.Time
	logger               zerolog.Logger

	// commitLock serialises session replacement with timer arming. epoch
	// changes on every commit and logout so an in-flight refresh can tell
	// its session was replaced or ended.
	commitLock sync.Mutex
	epoch      uint64
	refreshes  singleflight.Group

	lock      sync.Mutex
	state     State
	listeners map[uint64]Listener
	nextID    uint64
	closed    bool
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithScheduler replaces the default refresh scheduler (5 minute lead time)
func WithScheduler(scheduler *refresh.Scheduler) ManagerOption {
	return func(m *Manager) {
		m.scheduler = scheduler
	}
}

// WithDecoder overrides the decoder taken from the store
func WithDecoder(decoder *token.Decoder) ManagerOption {
	return func(m *Manager) {
		m.decoder = decoder
	}
}

// WithRefreshTokenLifetime sets the expiry hint sent with opaque refresh tokens
func WithRefreshTokenLifetime(lifetime time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshTokenLifetime = lifetime
	}
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager wires a Manager over a session store and the remote portal.
// Call Restore once before using it.
func NewManager(store *sessions.Store, client Portal, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] session store is required")
	}
	if client == nil {
		return nil, errors.New("[NewManager] portal client is required")
	}

	m := &Manager{
		store:                store,
		portal:               client,
		refreshTokenLifetime: defaultRefreshTokenLifetime,
		nowFunc:              time.Now,
		logger:               zerolog.Nop(),
		state:                StateLoading,
		listeners:            make(map[uint64]Listener),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.decoder == nil {
		m.decoder = store.Decoder()
	}
	if m.scheduler == nil {
		m.scheduler = refresh.NewScheduler(refresh.WithNowFunc(m.nowFunc))
	}
	return m, nil
}

// Restore loads the session persisted by a previous run. A stored session
// whose access token has expired is refreshed before Restore returns.
// Restore never fails; it reports the state it ended in.
func (m *Manager) Restore(ctx context.Context) State {
	result := m.store.Restore()
	m.logger.Debug().Str("result", result.String()).Msg("session restore")

	switch result {
	case sessions.RestoreRestored:
		m.commitLock.Lock()
		m.arm(m.store.Current())
		m.setState(StateAuthenticated)
		m.commitLock.Unlock()
		m.notify()
	case sessions.RestoreExpired:
		if err := m.Refresh(ctx); err != nil {
			m.logger.Info().Err(err).Msg("stored session could not be refreshed")
		}
	default:
		m.setState(StateUnauthenticated)
		m.notify()
	}
	return m.State()
}

// Current returns a copy of the signed-in session, nil when signed out
func (m *Manager) Current() *sessions.Session {
	return m.store.Current()
}

// IsAuthenticated reports whether a session exists and its access token has not expired
func (m *Manager) IsAuthenticated() bool {
	return m.store.Authenticated()
}

// IsLoading is true until Restore has completed
func (m *Manager) IsLoading() bool {
	return m.store.IsLoading()
}

// Close cancels the refresh timer and drops every listener. The persisted
// session is kept for the next run.
func (m *Manager) Close() {
	m.lock.Lock()
	m.closed = true
	clear(m.listeners)
	m.lock.Unlock()

	m.commitLock.Lock()
	m.scheduler.Cancel()
	m.commitLock.Unlock()
}

// anyEpoch commits regardless of what happened since the caller started
const anyEpoch = ^uint64(0)

// commit persists session, makes it current and re-arms the refresh timer
// as one step. Unless epoch is anyEpoch, a commit whose starting session
// was replaced or logged out in the meantime is dropped.
func (m *Manager) commit(session *sessions.Session, epoch uint64) error {
	m.commitLock.Lock()
	defer m.commitLock.Unlock()

	if epoch != anyEpoch && epoch != m.epoch {
		return errors.Wrap(errSessionEnded, "[commit] discarding session")
	}
	if err := m.store.Save(session); err != nil {
		return errors.Wrap(err, "[commit] failed to persist session")
	}
	m.epoch++
	m.arm(session)
	m.setState(StateAuthenticated)
	return nil
}

// arm must be called with commitLock held
func (m *Manager) arm(session *sessions.Session) {
	if session == nil || m.isClosed() {
		return
	}
	if session.RefreshToken == "" {
		// Nothing to refresh with; the session ends when the token does.
		delay := m.scheduler.ScheduleAt(session.ExpiresAt(), m.onRefreshTimer)
		m.logger.Debug().Str("user_id", session.ID).Dur("in", delay).Msg("expiry armed")
		return
	}
	delay := m.scheduler.Schedule(session.ExpiresAt(), m.onRefreshTimer)
	m.logger.Debug().Str("user_id", session.ID).Dur("in", delay).Msg("refresh armed")
}

func (m *Manager) onRefreshTimer() {
	if m.isClosed() {
		return
	}
	if err := m.Refresh(context.Background()); err != nil {
		m.logger.Info().Err(err).Msg("scheduled refresh ended the session")
	}
}

func (m *Manager) isClosed() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.closed
}
