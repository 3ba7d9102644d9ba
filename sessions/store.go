package sessions

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/carebook-portal/sessions/kvstore"
	"github.com/jrsteele09/carebook-portal/token"
	"github.com/rs/zerolog"
)

// RestoreResult reports how Restore ended
type RestoreResult int

const (
	// RestoreEmpty means nothing usable was stored; the client is signed out
	RestoreEmpty RestoreResult = iota
	// RestoreRestored means a valid session was loaded into memory
	RestoreRestored
	// RestoreExpired means a stored access token has expired and needs a refresh
	RestoreExpired
)

func (r RestoreResult) String() string {
	switch r {
	case RestoreRestored:
		return "restored"
	case RestoreExpired:
		return "expired"
	default:
		return "empty"
	}
}

// Store owns the one in-memory session of a running client and mirrors it
// into durable storage and any further sinks (cookies). Storage and sinks
// are mirrors; after Restore the in-memory copy is the source of truth.
type Store struct {
	mu      sync.RWMutex
	current *Session
	loading bool

	storage *StorageSink
	mirrors []Sink
	decoder *token.Decoder
	nowFunc func() time.Time
	logger  zerolog.Logger
}

type StoreOption func(*Store)

// WithSinks adds mirrors written after durable storage, e.g. a CookieSink
func WithSinks(sinks ...Sink) StoreOption {
	return func(s *Store) {
		s.mirrors = append(s.mirrors, sinks...)
	}
}

func WithDecoder(decoder *token.Decoder) StoreOption {
	return func(s *Store) {
		s.decoder = decoder
	}
}

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(storage kvstore.Store, options ...StoreOption) *Store {
	s := &Store{
		loading: true,
		storage: NewStorageSink(storage),
		logger:  zerolog.Nop(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.decoder == nil {
		s.decoder = token.NewDecoder(token.WithNowFunc(s.nowFunc))
	}
	return s
}

// Restore loads a previously persisted session. It never fails: corrupt
// state is wiped and reported as RestoreEmpty. An expired access token
// leaves storage untouched so the refresh token can still be used.
func (s *Store) Restore() RestoreResult {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	result, err := s.restore()
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable stored session")
		if clearErr := s.Clear(); clearErr != nil {
			s.logger.Err(clearErr).Msg("failed to clear unreadable stored session")
		}
		return RestoreEmpty
	}
	return result
}

func (s *Store) restore() (RestoreResult, error) {
	userJSON, accessToken, err := s.storage.Load()
	if err != nil {
		return RestoreEmpty, err
	}
	if userJSON == "" && accessToken == "" {
		s.Set(nil)
		return RestoreEmpty, nil
	}
	if userJSON == "" || accessToken == "" {
		return RestoreEmpty, errors.New("stored session is incomplete")
	}

	identity := s.decoder.Decode(accessToken)
	if identity.Fallback {
		return RestoreEmpty, errors.New("stored access token is unreadable")
	}
	if s.nowFunc().UnixMilli() >= identity.Exp {
		s.logger.Debug().Str("user_id", identity.ID).Msg("stored access token expired")
		return RestoreExpired, nil
	}

	var stored Session
	if err := json.Unmarshal([]byte(userJSON), &stored); err != nil {
		return RestoreEmpty, err
	}
	restored := New(identity, accessToken, stored.RefreshToken, stored.Extra)
	if restored.ID == "" {
		restored.ID = stored.ID
	}
	if refreshToken, err := s.storage.RefreshToken(); err == nil && refreshToken != "" {
		restored.RefreshToken = refreshToken
	}

	// Mirrors such as a per-process cookie jar do not survive restarts.
	for _, sink := range s.mirrors {
		if err := sink.Persist(restored); err != nil {
			s.logger.Warn().Err(err).Msg("failed to mirror restored session")
		}
	}
	s.Set(restored)
	s.logger.Debug().Str("user_id", restored.ID).Str("role", restored.Role.String()).Msg("session restored")
	return RestoreRestored, nil
}

// Persist writes session to durable storage and then to every mirror.
// A storage failure stops before the mirrors are touched.
func (s *Store) Persist(session *Session) error {
	if session == nil {
		return errors.New("persist nil session")
	}
	if err := s.storage.Persist(session); err != nil {
		return err
	}
	var errs []error
	for _, sink := range s.mirrors {
		errs = append(errs, sink.Persist(session))
	}
	return errors.Join(errs...)
}

// Save persists session and makes it current
func (s *Store) Save(session *Session) error {
	if err := s.Persist(session); err != nil {
		return err
	}
	s.Set(session)
	return nil
}

// Set replaces the in-memory session without touching persistence
func (s *Store) Set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = session.Clone()
}

// Clear wipes every key and cookie the store owns and drops the in-memory
// session. The in-memory session is dropped even when a sink fails.
func (s *Store) Clear() error {
	errs := []error{s.storage.Clear()}
	for _, sink := range s.mirrors {
		errs = append(errs, sink.Clear())
	}
	s.Set(nil)
	return errors.Join(errs...)
}

// Current returns a copy of the in-memory session, nil when signed out
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Authenticated reports whether the current session is usable right now
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Valid(s.nowFunc())
}

// IsLoading is true until the first Restore completes
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// RefreshToken returns the stored refresh token, falling back to the
// in-memory session when storage has none.
func (s *Store) RefreshToken() string {
	refreshToken, err := s.storage.RefreshToken()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read stored refresh token")
	}
	if refreshToken != "" {
		return refreshToken
	}
	if current := s.Current(); current != nil {
		return current.RefreshToken
	}
	return ""
}

// Decoder returns the decoder used to read stored tokens
func (s *Store) Decoder() *token.Decoder {
	return s.decoder
}
