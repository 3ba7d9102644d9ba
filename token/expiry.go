package token

import (
	"time"
)

const defaultRefreshTokenLifetime = 7 * 24 * time.Hour

// RefreshExpiryHint returns the instant a refresh token expires, read from its
// own exp claim. Opaque or unreadable refresh tokens are assumed to live for
// lifetime (seven days when lifetime is zero) from now. The result is only a
// hint for the server and is never used to reject a refresh locally.
func (d *Decoder) RefreshExpiryHint(refreshToken string, lifetime time.Duration) time.Time {
	if lifetime <= 0 {
		lifetime = defaultRefreshTokenLifetime
	}
	now := d.nowFunc()
	claims, err := d.claims(refreshToken)
	if err != nil {
		return now.Add(lifetime)
	}
	exp, ok := expClaim(claims)
	if !ok {
		return now.Add(lifetime)
	}
	return time.Unix(exp, 0)
}
