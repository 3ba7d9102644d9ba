package config

import "time"

type SessionConfig interface {
	GetRefreshLeadTime() time.Duration
	GetFallbackTokenLifetime() time.Duration
	GetDefaultRefreshTokenLifetime() time.Duration
	GetCookieMaxAge() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshLeadTime is how long before access token expiry the refresh fires
func (Session) GetRefreshLeadTime() time.Duration {
	return 5 * time.Minute
}

// GetFallbackTokenLifetime is the expiry given to identities decoded from unreadable tokens
func (Session) GetFallbackTokenLifetime() time.Duration {
	return 5 * time.Hour
}

func (Session) GetDefaultRefreshTokenLifetime() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

func (Session) GetCookieMaxAge() time.Duration {
	return 7 * 24 * time.Hour
}
