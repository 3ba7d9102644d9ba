package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer creates signed tokens from claims
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)
}

// HMACSigner implements Signer using symmetric HMAC-SHA256. The portal
// never holds the issuer's keys; this signer backs test fixtures and the
// fake portal server.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner creates a new HMAC signer with the given secret
func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{
		secret: []byte(secret),
	}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

// MustSign is Sign for fixtures; it panics on failure
func (h *HMACSigner) MustSign(claims jwt.MapClaims) string {
	signed, err := h.Sign(claims)
	if err != nil {
		panic(err)
	}
	return signed
}
