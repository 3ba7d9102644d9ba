package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/jrsteele09/carebook-portal/users"
	"github.com/rs/zerolog"
)

// Endpoint paths relative to the API and token base URLs
const (
	PathLogin    = "/Account/login"
	PathRegister = "/Account/register"
	PathLogout   = "/Account/logout"
	PathRefresh  = "/token/refresh-token"
)

// TokenPair is an access token with its refresh token
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the answer to a password login. The refresh token and
// user profile are optional.
type LoginResponse struct {
	AccessToken  string
	RefreshToken *string
	User         map[string]any
}

// RegisterRequest is the body posted to the register endpoint
type RegisterRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Role     users.RoleType `json:"role"`
}

type refreshRequest struct {
	RefreshToken       string `json:"refreshToken"`
	ExpireRefreshToken string `json:"expireRefreshToken"`
}

// Client talks to the remote portal API. It holds no session state; the
// caller supplies tokens for every call.
type Client struct {
	apiBaseURL   string
	tokenBaseURL string
	httpClient   *http.Client
	logger       zerolog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client (which has no timeout)
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a portal client. apiBaseURL serves the account
// endpoints (".../api/v1"), tokenBaseURL the token endpoints (".../api/token").
func NewClient(apiBaseURL, tokenBaseURL string, options ...ClientOption) *Client {
	c := &Client{
		apiBaseURL:   strings.TrimRight(apiBaseURL, "/"),
		tokenBaseURL: strings.TrimRight(tokenBaseURL, "/"),
		httpClient:   &http.Client{},
		logger:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Login posts form-encoded credentials
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	body, err := c.do(ctx, OpLogin, c.apiBaseURL+PathLogin, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), "")
	if err != nil {
		return nil, err
	}

	var envelope tokenEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", OpLogin, perrors.ErrMalformedResponse)
	}
	if envelope.accessToken == "" {
		return nil, fmt.Errorf("%s: no access token in response: %w", OpLogin, perrors.ErrMalformedResponse)
	}

	response := &LoginResponse{AccessToken: envelope.accessToken, User: envelope.user}
	if envelope.refreshToken != "" {
		response.RefreshToken = &envelope.refreshToken
	}
	return response, nil
}

// Register creates an account and returns its first token pair
func (c *Client) Register(ctx context.Context, request RegisterRequest) (*TokenPair, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", OpRegister, err)
	}
	body, err := c.do(ctx, OpRegister, c.apiBaseURL+PathRegister, "application/json", bytes.NewReader(payload), "")
	if err != nil {
		return nil, err
	}
	return decodeTokenPair(OpRegister, body)
}

// Refresh exchanges a refresh token for a new token pair. Both tokens must
// be present in the answer.
func (c *Client) Refresh(ctx context.Context, refreshToken string, expireRefreshToken time.Time) (*TokenPair, error) {
	payload, err := json.Marshal(refreshRequest{
		RefreshToken:       refreshToken,
		ExpireRefreshToken: expireRefreshToken.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", OpRefresh, err)
	}
	body, err := c.do(ctx, OpRefresh, c.tokenBaseURL+PathRefresh, "application/json", bytes.NewReader(payload), "")
	if err != nil {
		return nil, err
	}
	return decodeTokenPair(OpRefresh, body)
}

// Logout tells the API the bearer is signing out. Callers treat failure as non-fatal.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, OpLogout, c.apiBaseURL+PathLogout, "", nil, accessToken)
	return err
}

func (c *Client) do(ctx context.Context, op, target, contentType string, body io.Reader, bearer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	c.logger.Debug().Str("op", op).Str("request_id", requestID).Str("url", target).Msg("portal request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, perrors.ErrTransientService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w: %v", op, perrors.ErrTransientService, err)
	}
	c.logger.Debug().Str("op", op).Str("request_id", requestID).Int("status", resp.StatusCode).Msg("portal response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return respBody, nil
}

func decodeTokenPair(op string, body []byte) (*TokenPair, error) {
	var envelope tokenEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, perrors.ErrMalformedResponse)
	}
	if envelope.accessToken == "" || envelope.refreshToken == "" {
		return nil, fmt.Errorf("%s: response is missing a token: %w", op, perrors.ErrMalformedResponse)
	}
	return &TokenPair{AccessToken: envelope.accessToken, RefreshToken: envelope.refreshToken}, nil
}

// tokenEnvelope accepts the token field spellings the API has used,
// optionally nested under "data".
type tokenEnvelope struct {
	accessToken  string
	refreshToken string
	user         map[string]any
}

func (t *tokenEnvelope) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if nested, ok := raw["data"].(map[string]any); ok {
		raw = nested
	}
	t.accessToken = firstString(raw, "accessToken", "access_token", "token")
	t.refreshToken = firstString(raw, "refreshToken", "refresh_token")
	t.user, _ = raw["user"].(map[string]any)
	return nil
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
