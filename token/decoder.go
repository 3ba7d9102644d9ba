package token

import (
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/carebook-portal/internal/utils"
	"github.com/jrsteele09/carebook-portal/users"
)

const defaultFallbackLifetime = 5 * time.Hour

// Identity holds the claims the portal reads from a bearer token.
// Exp is an absolute instant in epoch milliseconds.
type Identity struct {
	ID       string
	Role     users.RoleType
	Email    string
	Name     string
	Exp      int64
	Fallback bool // true when the token could not be read; never an authorization grant
}

// ExpiresAt returns Exp as a time.Time
func (i Identity) ExpiresAt() time.Time {
	return time.UnixMilli(i.Exp)
}

// Decoder reads identity claims out of bearer tokens without verifying
// their signature. Verification is the issuing server's job; the client
// only needs the claims for display, routing and refresh timing.
type Decoder struct {
	parser           *jwt.Parser
	fallbackLifetime time.Duration
	nowFunc          func() time.Time
}

type DecoderOption func(*Decoder)

func WithNowFunc(now func() time.Time) DecoderOption {
	return func(d *Decoder) {
		d.nowFunc = now
	}
}

// WithFallbackLifetime sets the expiry used when a token carries no usable exp claim
func WithFallbackLifetime(lifetime time.Duration) DecoderOption {
	return func(d *Decoder) {
		d.fallbackLifetime = lifetime
	}
}

func NewDecoder(options ...DecoderOption) *Decoder {
	d := &Decoder{
		parser:           jwt.NewParser(),
		fallbackLifetime: defaultFallbackLifetime,
		nowFunc:          time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Decode never fails. Empty or unreadable tokens produce the fallback identity.
func (d *Decoder) Decode(rawToken string) Identity {
	if strings.TrimSpace(rawToken) == "" {
		return d.fallback()
	}

	claims, err := d.claims(rawToken)
	if err != nil {
		return d.fallback()
	}

	identity := Identity{
		ID:    lastClaim(claims, IDClaimAliases),
		Role:  users.ParseRole(lastClaim(claims, RoleClaimAliases)),
		Email: lastClaim(claims, EmailClaimAliases),
		Name:  lastClaim(claims, NameClaimAliases),
		Exp:   d.fallbackExp(),
	}
	if identity.Email == "" {
		identity.Email = FallbackEmail
	}
	if identity.Name == "" {
		identity.Name = FallbackName
	}
	if exp, ok := expClaim(claims); ok {
		identity.Exp = exp * 1000
	}
	return identity
}

// Claims returns the raw, unverified claim set of a token.
func (d *Decoder) Claims(rawToken string) (jwt.MapClaims, error) {
	return d.claims(rawToken)
}

func (d *Decoder) claims(rawToken string) (claims jwt.MapClaims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, jwt.ErrTokenMalformed
		}
	}()

	parsed, _, err := d.parser.ParseUnverified(strings.TrimSpace(rawToken), jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return mapClaims, nil
}

func (d *Decoder) fallback() Identity {
	return Identity{
		Role:     users.RolePatient,
		Email:    FallbackEmail,
		Name:     FallbackName,
		Exp:      d.fallbackExp(),
		Fallback: true,
	}
}

func (d *Decoder) fallbackExp() int64 {
	return d.nowFunc().Add(d.fallbackLifetime).UnixMilli()
}

// lastClaim walks every alias and keeps the last one that yields a non-empty value
func lastClaim(claims jwt.MapClaims, aliases []string) string {
	var value string
	for _, alias := range aliases {
		raw, ok := claims[alias]
		if !ok {
			continue
		}
		if s, ok := utils.ToString(raw); ok && strings.TrimSpace(s) != "" {
			value = strings.TrimSpace(s)
		}
	}
	return value
}

// maxExpSeconds keeps exp*1000 inside int64
const maxExpSeconds = math.MaxInt64 / 1000

// expClaim reads exp in seconds. A value whose millisecond form would not
// fit in int64 is treated as missing.
func expClaim(claims jwt.MapClaims) (int64, bool) {
	var exp int64
	switch v := claims["exp"].(type) {
	case float64:
		if math.IsNaN(v) || v > maxExpSeconds || v < -maxExpSeconds {
			return 0, false
		}
		exp = int64(v)
	case int64:
		exp = v
	case int:
		exp = int64(v)
	default:
		return 0, false
	}
	if exp > maxExpSeconds || exp < -maxExpSeconds {
		return 0, false
	}
	return exp, true
}
