package portal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/jrsteele09/carebook-portal/portal"
	"github.com/jrsteele09/carebook-portal/portal/portalfake"
	"github.com/jrsteele09/carebook-portal/token"
	"github.com/jrsteele09/carebook-portal/users"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*portalfake.Server, *portal.Client, *portalfake.Account) {
	t.Helper()
	fake := portalfake.New()
	t.Cleanup(fake.Close)

	account := fake.AddAccount(portalfake.Account{
		Email:     "house@example.com",
		Password:  "vicodin",
		Name:      "Gregory House",
		Role:      users.RoleDoctor,
		Confirmed: true,
	})
	return fake, portal.NewClient(fake.APIBaseURL()+"/", fake.TokenBaseURL()), account
}

func TestClient_Login(t *testing.T) {
	fake, client, account := setup(t)

	response, err := client.Login(context.Background(), "house@example.com", "vicodin")
	require.NoError(t, err)
	require.NotNil(t, response.RefreshToken)
	require.NotEmpty(t, *response.RefreshToken)
	require.Equal(t, account.ID, response.User["id"])

	identity := token.NewDecoder().Decode(response.AccessToken)
	require.False(t, identity.Fallback)
	require.Equal(t, users.RoleDoctor, identity.Role)
	require.Equal(t, account.ID, identity.ID)
	require.Equal(t, 1, fake.Calls(portal.OpLogin))
}

func TestClient_LoginWithoutRefreshToken(t *testing.T) {
	fake, client, _ := setup(t)
	fake.SetOmitRefreshToken(true)

	response, err := client.Login(context.Background(), "house@example.com", "vicodin")
	require.NoError(t, err)
	require.Nil(t, response.RefreshToken)
	require.NotEmpty(t, response.AccessToken)
}

func TestClient_LoginErrors(t *testing.T) {
	fake, client, _ := setup(t)
	fake.AddAccount(portalfake.Account{Email: "new@example.com", Password: "pw", Confirmed: false})

	_, err := client.Login(context.Background(), "house@example.com", "wrong")
	require.ErrorIs(t, err, perrors.ErrInvalidCredentials)
	var apiErr *portal.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Invalid email or password", apiErr.Message)

	_, err = client.Login(context.Background(), "new@example.com", "pw")
	require.ErrorIs(t, err, perrors.ErrEmailUnconfirmed)

	fake.SetStatus(portal.OpLogin, http.StatusServiceUnavailable)
	_, err = client.Login(context.Background(), "house@example.com", "vicodin")
	require.ErrorIs(t, err, perrors.ErrTransientService)
}

func TestClient_Register(t *testing.T) {
	fake, client, _ := setup(t)

	pair, err := client.Register(context.Background(), portal.RegisterRequest{
		Email:    "cuddy@example.com",
		Password: "dean",
		Role:     users.RoleAdmin,
	})
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, users.RoleAdmin, token.NewDecoder().Decode(pair.AccessToken).Role)

	_, err = client.Register(context.Background(), portal.RegisterRequest{Email: "cuddy@example.com", Password: "dean"})
	var apiErr *portal.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)

	_, err = client.Register(context.Background(), portal.RegisterRequest{})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "One or more validation errors occurred.", apiErr.Message)
	require.Equal(t, 3, fake.Calls(portal.OpRegister))
}

func TestClient_Refresh(t *testing.T) {
	fake, client, account := setup(t)
	refreshToken := fake.IssueRefreshToken(account)
	expire := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

	pair, err := client.Refresh(context.Background(), refreshToken, expire)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEqual(t, refreshToken, pair.RefreshToken, "refresh tokens rotate")

	requests := fake.RefreshRequests()
	require.Len(t, requests, 1)
	require.Equal(t, refreshToken, requests[0].RefreshToken)
	require.Equal(t, "2026-03-08T12:00:00Z", requests[0].ExpireRefreshToken)

	_, err = client.Refresh(context.Background(), refreshToken, expire)
	require.ErrorIs(t, err, perrors.ErrUnauthorized, "rotated token is rejected")
}

func TestClient_RefreshMalformedResponses(t *testing.T) {
	for name, body := range map[string]string{
		"not json":              "<html>oops</html>",
		"missing refresh token": `{"accessToken":"a"}`,
		"missing access token":  `{"refreshToken":"r"}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := portal.NewClient(srv.URL, srv.URL).Refresh(context.Background(), "r", time.Now())
			require.ErrorIs(t, err, perrors.ErrMalformedResponse)
		})
	}
}

func TestClient_TokenFieldSpellings(t *testing.T) {
	var requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"data":{"access_token":"a","refresh_token":"r"}}`))
	}))
	defer srv.Close()

	pair, err := portal.NewClient(srv.URL, srv.URL).Refresh(context.Background(), "old", time.Now())
	require.NoError(t, err)
	require.Len(t, requestID, 36)
	require.Equal(t, &portal.TokenPair{AccessToken: "a", RefreshToken: "r"}, pair)
}

func TestClient_RefreshStatusMapping(t *testing.T) {
	fake, client, account := setup(t)

	for status, want := range map[int]error{
		http.StatusUnauthorized:        perrors.ErrUnauthorized,
		http.StatusForbidden:           perrors.ErrUnauthorized,
		http.StatusBadRequest:          perrors.ErrTransientService,
		http.StatusInternalServerError: perrors.ErrTransientService,
	} {
		fake.SetStatus(portal.OpRefresh, status)
		_, err := client.Refresh(context.Background(), fake.IssueRefreshToken(account), time.Now())
		require.ErrorIs(t, err, want, "status %d", status)
	}
}

func TestClient_Logout(t *testing.T) {
	fake, client, _ := setup(t)

	require.NoError(t, client.Logout(context.Background(), "access-1"))
	require.Equal(t, []string{"access-1"}, fake.Bearers())

	ids := fake.RequestIDs()
	require.Len(t, ids, 1)
	require.Len(t, ids[0], 36)

	fake.SetStatus(portal.OpLogout, http.StatusInternalServerError)
	require.ErrorIs(t, client.Logout(context.Background(), "access-2"), perrors.ErrTransientService)
}

func TestClient_NetworkFailure(t *testing.T) {
	fake, _, _ := setup(t)
	apiURL, tokenURL := fake.APIBaseURL(), fake.TokenBaseURL()
	fake.Close()

	client := portal.NewClient(apiURL, tokenURL)
	_, err := client.Login(context.Background(), "house@example.com", "vicodin")
	require.ErrorIs(t, err, perrors.ErrTransientService)
	_, err = client.Refresh(context.Background(), "r", time.Now())
	require.ErrorIs(t, err, perrors.ErrTransientService)
}
