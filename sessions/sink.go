package sessions

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jrsteele09/carebook-portal/sessions/kvstore"
)

// Sink mirrors the session into one persistence tier
type Sink interface {
	// Persist writes every field the sink mirrors
	Persist(session *Session) error
	// Clear removes everything the sink ever wrote. Clearing an empty sink is a no-op.
	Clear() error
}

// Durable storage keys owned by the session store
const (
	StorageKeyUser         = "user"
	StorageKeyAccessToken  = "accessToken"
	StorageKeyLegacyToken  = "token" // duplicate of accessToken kept for older readers
	StorageKeyRefreshToken = "refreshToken"
)

var storageKeys = []string{StorageKeyUser, StorageKeyAccessToken, StorageKeyLegacyToken, StorageKeyRefreshToken}

var _ Sink = (*StorageSink)(nil)

// StorageSink keeps the serialized session plus the raw tokens in a
// durable key-value store. It is the tier sessions are restored from.
type StorageSink struct {
	store kvstore.Store
}

func NewStorageSink(store kvstore.Store) *StorageSink {
	return &StorageSink{store: store}
}

func (s *StorageSink) Persist(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.store.Set(StorageKeyUser, string(data)); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := s.store.Set(StorageKeyAccessToken, session.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := s.store.Set(StorageKeyLegacyToken, session.AccessToken); err != nil {
		return fmt.Errorf("store legacy token: %w", err)
	}
	if session.RefreshToken == "" {
		if err := s.store.Delete(StorageKeyRefreshToken); err != nil {
			return fmt.Errorf("drop refresh token: %w", err)
		}
		return nil
	}
	if err := s.store.Set(StorageKeyRefreshToken, session.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *StorageSink) Clear() error {
	return s.store.Delete(storageKeys...)
}

// Load returns the serialized session and the raw access token. Missing
// keys come back empty; only backend failures are errors.
func (s *StorageSink) Load() (userJSON, accessToken string, err error) {
	if userJSON, err = s.get(StorageKeyUser); err != nil {
		return "", "", err
	}
	if accessToken, err = s.get(StorageKeyAccessToken); err != nil {
		return "", "", err
	}
	if accessToken == "" {
		if accessToken, err = s.get(StorageKeyLegacyToken); err != nil {
			return "", "", err
		}
	}
	return userJSON, accessToken, nil
}

// RefreshToken returns the stored refresh token, empty when none is stored
func (s *StorageSink) RefreshToken() (string, error) {
	return s.get(StorageKeyRefreshToken)
}

func (s *StorageSink) get(key string) (string, error) {
	value, err := s.store.Get(key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}
