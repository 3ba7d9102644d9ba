package auth

import (
	"strings"

	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/jrsteele09/carebook-portal/users"
)

// Registration is what a new user submits to create an account.
// Profile fields are kept with the session as user data.
type Registration struct {
	Email    string
	Password string
	Role     users.RoleType // Empty registers a Patient
	Profile  map[string]any
}

// ValidateCredentials checks an email and password pair is present
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return perrors.Wrapf(perrors.ErrInvalidInput, "email is required")
	}
	if password == "" {
		return perrors.Wrapf(perrors.ErrInvalidInput, "password is required")
	}
	if !strings.Contains(email, "@") {
		return perrors.Wrapf(perrors.ErrInvalidInput, "email %q is not an address", email)
	}
	return nil
}

// Validate checks the registration and normalises its role
func (r *Registration) Validate() error {
	if err := ValidateCredentials(r.Email, r.Password); err != nil {
		return err
	}
	if r.Role == "" {
		r.Role = users.RolePatient
		return nil
	}
	role, ok := users.LookupRole(string(r.Role))
	if !ok {
		return perrors.Wrapf(perrors.ErrInvalidInput, "unknown role %q", r.Role)
	}
	r.Role = role
	return nil
}
