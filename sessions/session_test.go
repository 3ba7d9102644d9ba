package sessions_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/carebook-portal/sessions"
	"github.com/jrsteele09/carebook-portal/token"
	"github.com/jrsteele09/carebook-portal/users"
	"github.com/stretchr/testify/require"
)

func TestNew_ClaimsWinOverUserData(t *testing.T) {
	identity := token.Identity{ID: "abc", Role: users.RoleDoctor, Email: "doc@example.com", Name: "Doc", Exp: 1000}
	s := sessions.New(identity, "access", "refresh", map[string]any{
		"id":        "from-user-data",
		"role":      "Admin",
		"email":     "other@example.com",
		"clinicId":  "c-9",
		"specialty": "Cardiology",
	})

	require.Equal(t, "abc", s.ID)
	require.Equal(t, users.RoleDoctor, s.Role)
	require.Equal(t, "doc@example.com", s.Email)
	require.Equal(t, "access", s.AccessToken)
	require.Equal(t, "refresh", s.RefreshToken)
	require.Equal(t, int64(1000), s.Exp)
	require.Equal(t, map[string]any{"clinicId": "c-9", "specialty": "Cardiology"}, s.Extra)
}

func TestNew_KeepsCallerIDWhenTokenHasNone(t *testing.T) {
	s := sessions.New(token.Identity{Role: users.RoleNurse}, "a", "", map[string]any{"id": "n-1"})
	require.Equal(t, "n-1", s.ID)

	s = sessions.New(token.Identity{}, "a", "", nil)
	require.Equal(t, users.RolePatient, s.Role)
	require.NotNil(t, s.Extra)
}

func TestSession_ValidBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &sessions.Session{AccessToken: "a", Exp: now.UnixMilli()}

	require.False(t, s.Valid(now), "exp == now is expired")
	require.False(t, s.Valid(now.Add(time.Millisecond)))
	require.True(t, s.Valid(now.Add(-time.Millisecond)))

	s.AccessToken = ""
	require.False(t, s.Valid(now.Add(-time.Hour)))

	var nilSession *sessions.Session
	require.False(t, nilSession.Valid(now))
	require.Nil(t, nilSession.Clone())
}

func TestSession_JSONRoundTrip(t *testing.T) {
	original := &sessions.Session{
		ID:           "abc",
		Role:         users.RoleLaboratory,
		Email:        "lab@example.com",
		Name:         "Lab",
		AccessToken:  "a.b.c",
		RefreshToken: "r",
		Exp:          1772366400000,
		Extra:        map[string]any{"phone": "+20123", "role": "ignored"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	require.Equal(t, "Laboratory", flat["role"], "owned fields win over extra keys")
	require.Equal(t, "+20123", flat["phone"])

	var decoded sessions.Session
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original.ID, decoded.ID)
	require.Equal(t, original.Role, decoded.Role)
	require.Equal(t, original.Exp, decoded.Exp)
	require.Equal(t, original.RefreshToken, decoded.RefreshToken)
	require.Equal(t, map[string]any{"phone": "+20123"}, decoded.Extra)
}

func TestSession_JSONNullID(t *testing.T) {
	data, err := json.Marshal(sessions.Session{Role: users.RolePatient})
	require.NoError(t, err)
	require.Contains(t, string(data), `"id":null`)
	require.NotContains(t, string(data), "refreshToken")

	var s sessions.Session
	require.Error(t, json.Unmarshal([]byte("[1,2]"), &s))
}

func TestSession_CloneIsolation(t *testing.T) {
	s := &sessions.Session{ID: "a", Extra: map[string]any{"k": "v"}}
	c := s.Clone()
	c.Extra["k"] = "changed"
	c.ID = "b"
	require.Equal(t, "v", s.Extra["k"])
	require.Equal(t, "a", s.ID)
}
