package sessions

import (
	"encoding/json"
	"errors"
	"maps"
	"time"

	"github.com/jrsteele09/carebook-portal/token"
	"github.com/jrsteele09/carebook-portal/users"
)

// JSON keys of the fields the portal owns. Anything else in a serialized
// session is caller supplied user data.
const (
	keyID           = "id"
	keyRole         = "role"
	keyEmail        = "email"
	keyName         = "name"
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyExp          = "exp"
)

// Session is the client-held record combining the decoded identity of the
// signed-in user with the raw tokens. It is replaced wholesale on login and
// refresh and never mutated in place.
type Session struct {
	ID           string         // User identifier, empty when undeterminable
	Role         users.RoleType // Never empty, defaults to Patient
	Email        string
	Name         string
	AccessToken  string         // Bearer token, required for an authenticated session
	RefreshToken string         // Optional, absence disables proactive refresh
	Exp          int64          // Access token expiry in epoch milliseconds
	Extra        map[string]any // Caller supplied fields, preserved verbatim
}

// New merges decoded claims over caller supplied user data. Claims win for
// the identity fields; every other userData field passes through.
func New(identity token.Identity, accessToken, refreshToken string, userData map[string]any) *Session {
	s := &Session{
		ID:           identity.ID,
		Role:         identity.Role,
		Email:        identity.Email,
		Name:         identity.Name,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Exp:          identity.Exp,
		Extra:        extraFields(userData),
	}
	if s.ID == "" {
		// The token carried no id claim; keep one the caller already knew.
		s.ID, _ = userData[keyID].(string)
	}
	if s.Role == "" {
		s.Role = users.RolePatient
	}
	return s
}

// Valid reports whether the session can authenticate requests at now.
// A session expiring exactly at now is already expired.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.UnixMilli() < s.Exp
}

// ExpiresAt returns Exp as a time.Time
func (s *Session) ExpiresAt() time.Time {
	return time.UnixMilli(s.Exp)
}

// Clone returns a deep enough copy that callers cannot reach the original
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Extra = maps.Clone(s.Extra)
	return &c
}

// MarshalJSON writes one flat object: user data first, owned fields over it.
func (s Session) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+7)
	maps.Copy(out, s.Extra)
	out[keyID] = nullable(s.ID)
	out[keyRole] = s.Role
	out[keyEmail] = s.Email
	out[keyName] = s.Name
	out[keyAccessToken] = s.AccessToken
	if s.RefreshToken != "" {
		out[keyRefreshToken] = s.RefreshToken
	} else {
		delete(out, keyRefreshToken)
	}
	out[keyExp] = s.Exp
	return json.Marshal(out)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("session is null")
	}

	*s = Session{}
	s.ID, _ = raw[keyID].(string)
	role, _ := raw[keyRole].(string)
	s.Role = users.ParseRole(role)
	s.Email, _ = raw[keyEmail].(string)
	s.Name, _ = raw[keyName].(string)
	s.AccessToken, _ = raw[keyAccessToken].(string)
	s.RefreshToken, _ = raw[keyRefreshToken].(string)
	if exp, ok := raw[keyExp].(float64); ok {
		s.Exp = int64(exp)
	}
	s.Extra = extraFields(raw)
	return nil
}

func extraFields(data map[string]any) map[string]any {
	extra := make(map[string]any)
	for k, v := range data {
		switch k {
		case keyID, keyRole, keyEmail, keyName, keyAccessToken, keyRefreshToken, keyExp:
			continue
		}
		extra[k] = v
	}
	return extra
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
