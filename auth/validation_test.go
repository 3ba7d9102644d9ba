package auth_test

import (
	"testing"

	"github.com/jrsteele09/carebook-portal/auth"
	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/jrsteele09/carebook-portal/users"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{name: "valid", email: "a@example.com", password: "pw"},
		{name: "missing email", email: " ", password: "pw", wantErr: true},
		{name: "missing password", email: "a@example.com", wantErr: true},
		{name: "not an address", email: "alice", password: "pw", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateCredentials(tt.email, tt.password)
			if tt.wantErr {
				require.ErrorIs(t, err, perrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRegistration_Validate(t *testing.T) {
	r := auth.Registration{Email: "a@example.com", Password: "pw"}
	require.NoError(t, r.Validate())
	require.Equal(t, users.RolePatient, r.Role)

	r = auth.Registration{Email: "a@example.com", Password: "pw", Role: "lab"}
	require.NoError(t, r.Validate())
	require.Equal(t, users.RoleLaboratory, r.Role)

	r = auth.Registration{Email: "a@example.com", Password: "pw", Role: "Janitor"}
	require.ErrorIs(t, r.Validate(), perrors.ErrInvalidInput)
}
