package auth

import (
	"fmt"

	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
)

var (
	errSessionEnded   = fmt.Errorf("session ended during refresh: %w", perrors.ErrNotAuthenticated)
	errNoRefreshToken = fmt.Errorf("no refresh token: %w", perrors.ErrNotAuthenticated)
)
