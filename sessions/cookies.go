package sessions

import (
	"net/http"
	"net/url"
	"time"
)

// Cookie names mirrored for server-adjacent checks
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
	CookieUserRole     = "userRole"
	CookieUserID       = "userId"
	CookieUserEmail    = "userEmail"
)

var cookieNames = []string{CookieAccessToken, CookieRefreshToken, CookieUserRole, CookieUserID, CookieUserEmail}

const defaultCookieMaxAge = 7 * 24 * time.Hour

var _ Sink = (*CookieSink)(nil)

// CookieSink mirrors the identity and tokens into a cookie jar scoped to
// the portal API origin, so that every request the jar serves carries them.
type CookieSink struct {
	jar     http.CookieJar
	origin  *url.URL
	maxAge  time.Duration
	nowFunc func() time.Time
}

type CookieSinkOption func(*CookieSink)

func WithCookieMaxAge(maxAge time.Duration) CookieSinkOption {
	return func(c *CookieSink) {
		c.maxAge = maxAge
	}
}

func WithCookieNowFunc(now func() time.Time) CookieSinkOption {
	return func(c *CookieSink) {
		c.nowFunc = now
	}
}

func NewCookieSink(jar http.CookieJar, origin *url.URL, options ...CookieSinkOption) *CookieSink {
	c := &CookieSink{
		jar:     jar,
		origin:  origin,
		maxAge:  defaultCookieMaxAge,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *CookieSink) Persist(session *Session) error {
	values := map[string]string{
		CookieAccessToken:  session.AccessToken,
		CookieRefreshToken: session.RefreshToken,
		CookieUserRole:     string(session.Role),
		CookieUserID:       session.ID,
		CookieUserEmail:    session.Email,
	}

	cookies := make([]*http.Cookie, 0, len(cookieNames))
	for _, name := range cookieNames {
		if values[name] == "" {
			// Nothing to mirror; make sure a stale value does not linger.
			cookies = append(cookies, c.expired(name))
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     name,
			Value:    url.QueryEscape(values[name]),
			Path:     "/",
			Expires:  c.nowFunc().Add(c.maxAge),
			MaxAge:   int(c.maxAge.Seconds()),
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
	c.jar.SetCookies(c.origin, cookies)
	return nil
}

func (c *CookieSink) Clear() error {
	cookies := make([]*http.Cookie, 0, len(cookieNames))
	for _, name := range cookieNames {
		cookies = append(cookies, c.expired(name))
	}
	c.jar.SetCookies(c.origin, cookies)
	return nil
}

func (c *CookieSink) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
